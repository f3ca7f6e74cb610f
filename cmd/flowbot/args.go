package main

import (
	"crypto/ecdsa"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/config"
	"poly-flowbot/internal/gamma"
)

type args struct {
	configPath string
	market     string
	dryRun     bool
	iterations int
	outFile    string
	summaryOut string
	envFile    string

	clobHost  string
	gammaHost string

	privateKeyHex string
	funderHex     string
	funder        common.Address
	signatureType int
	sigTypeSet    bool

	apiKey        string
	apiSecret     string
	apiPassphrase string
	apiNonce      uint64
	useServerTime bool
}

// parseFlags reads the command line only. Environment fallbacks are applied
// by applyEnv once the .env file is loaded.
func parseFlags(argv []string, stderr io.Writer) (args, error) {
	var a args
	fs := flag.NewFlagSet("flowbot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&a.configPath, "config", "", "YAML config path (or FLOWBOT_CONFIG; default config.yaml)")
	fs.StringVar(&a.market, "market", "", "Trade a single market: token id, market id/slug or polymarket.com event URL")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Search and log intended trades without submitting orders")
	fs.IntVar(&a.iterations, "iterations", 0, "Number of loop iterations (0 = until interrupted)")
	fs.StringVar(&a.outFile, "out", "", "Optional JSONL event log path (or FLOWBOT_OUT_FILE)")
	fs.StringVar(&a.summaryOut, "summary-out", "", "Optional path for the end-of-run summary JSON (or FLOWBOT_SUMMARY_FILE)")
	fs.StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	fs.StringVar(&a.clobHost, "clob-url", "", "CLOB API base URL (or CLOB_URL; default "+clob.DefaultHost+")")
	fs.StringVar(&a.gammaHost, "gamma-url", "", "Gamma API base URL (or GAMMA_URL; default "+gamma.DefaultURL+")")
	fs.StringVar(&a.privateKeyHex, "private-key", "", "Private key hex (0x...) (or PRIVATE_KEY env)")
	fs.StringVar(&a.funderHex, "funder", "", "Funder address (proxy wallet) (default: signer)")
	fs.IntVar(&a.signatureType, "signature-type", 0, "Signature type: 0=EOA, 1=POLY_PROXY, 2=POLY_GNOSIS_SAFE (or SIGNATURE_TYPE)")
	fs.StringVar(&a.apiKey, "api-key", "", "CLOB API key (optional; derived when missing)")
	fs.StringVar(&a.apiSecret, "api-secret", "", "CLOB API secret (optional)")
	fs.StringVar(&a.apiPassphrase, "api-passphrase", "", "CLOB API passphrase (optional)")
	fs.Uint64Var(&a.apiNonce, "api-nonce", 0, "Nonce for API key derive/create")
	fs.BoolVar(&a.useServerTime, "use-server-time", true, "Use /time for signed requests")

	if err := fs.Parse(argv); err != nil {
		return args{}, err
	}
	if fs.NArg() > 0 {
		return args{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "signature-type" {
			a.sigTypeSet = true
		}
	})
	if a.iterations < 0 {
		return args{}, fmt.Errorf("--iterations must be >= 0, got %d", a.iterations)
	}
	return a, nil
}

// applyEnv fills unset options from the environment.
func (a *args) applyEnv(getenv func(string) string) error {
	env := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}
	orEnv := func(cur string, keys ...string) string {
		if s := strings.TrimSpace(cur); s != "" {
			return s
		}
		return env(keys...)
	}

	a.configPath = orEnv(a.configPath, "FLOWBOT_CONFIG")
	if a.configPath == "" {
		a.configPath = config.DefaultPath
	}
	a.outFile = orEnv(a.outFile, "FLOWBOT_OUT_FILE")
	a.summaryOut = orEnv(a.summaryOut, "FLOWBOT_SUMMARY_FILE")

	a.clobHost = orEnv(a.clobHost, "CLOB_URL")
	if a.clobHost == "" {
		a.clobHost = clob.DefaultHost
	}
	a.gammaHost = orEnv(a.gammaHost, "GAMMA_URL")
	if a.gammaHost == "" {
		a.gammaHost = gamma.DefaultURL
	}

	a.privateKeyHex = orEnv(a.privateKeyHex, "CLOB_PRIVATE_KEY", "PRIVATE_KEY")
	a.funderHex = orEnv(a.funderHex, "CLOB_FUNDER", "FUNDER")
	if a.funderHex != "" {
		if !common.IsHexAddress(a.funderHex) {
			return fmt.Errorf("invalid funder: %q", a.funderHex)
		}
		a.funder = common.HexToAddress(a.funderHex)
	}
	if !a.sigTypeSet {
		if v := env("CLOB_SIGNATURE_TYPE", "SIGNATURE_TYPE"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid signature type env %q: %w", v, err)
			}
			a.signatureType = n
		}
	}

	a.apiKey = orEnv(a.apiKey, "CLOB_API_KEY", "API_KEY")
	a.apiSecret = orEnv(a.apiSecret, "CLOB_SECRET", "SECRET")
	a.apiPassphrase = orEnv(a.apiPassphrase, "CLOB_PASSPHRASE", "PASSPHRASE")
	return nil
}

func (a args) hasApiCreds() bool {
	return a.apiKey != "" && a.apiSecret != "" && a.apiPassphrase != ""
}

// privateKey returns nil without error when no key is configured.
func (a args) privateKey() (*ecdsa.PrivateKey, error) {
	if a.privateKeyHex == "" {
		return nil, nil
	}
	return parsePrivateKey(a.privateKeyHex)
}

var errPrivateKeyRequired = errors.New("private key required for live trading (set --private-key or PRIVATE_KEY, or use --dry-run)")

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("private key missing")
	}
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return pk, nil
}

func safePrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
