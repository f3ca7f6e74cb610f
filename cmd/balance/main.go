// Command balance prints the funder's USDC balance and exchange allowances,
// on-chain and as the CLOB sees them.
package main

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"poly-flowbot/internal/amount"
	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/dotenv"
	"poly-flowbot/internal/polygonutil"
)

const polygonChainID = 137

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var (
		addrFlag      string
		tokenIDFlag   string
		useServerTime bool
		apiNonce      uint64
		skipCLOB      bool
	)
	flag.StringVar(&addrFlag, "address", "", "Wallet address to check (default: FUNDER/CLOB_FUNDER or signer from PRIVATE_KEY)")
	flag.StringVar(&tokenIDFlag, "token-id", "", "Also query the CLOB for this conditional token's balance")
	flag.BoolVar(&useServerTime, "use-server-time", true, "Use /time for signed requests")
	flag.Uint64Var(&apiNonce, "api-nonce", 0, "Nonce for API key derive/create")
	flag.BoolVar(&skipCLOB, "onchain-only", false, "Skip the CLOB balance-allowance query")
	flag.Parse()

	pk, err := envPrivateKey()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	owner, ownerSrc, err := resolveOwnerAddress(addrFlag, pk)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	fmt.Printf("owner: %s (%s)\n", owner.Hex(), ownerSrc)

	rpcURL, ok, err := polygonutil.RPCURLFromEnv()
	switch {
	case err != nil:
		log.Printf("[warn] %v", err)
	case !ok:
		log.Printf("[warn] no RPC_URL/POLYGON_RPC_URL set; skipping on-chain balance")
	default:
		spenders, err := polygonutil.ExchangeSpenders(polygonChainID)
		if err != nil {
			log.Fatalf("[fatal] %v", err)
		}
		f, err := polygonutil.Probe{RPCURL: rpcURL, Owner: owner, Spenders: spenders}.Check(ctx)
		if err != nil {
			log.Fatalf("[fatal] %v", err)
		}
		fmt.Printf("usdc_balance: %s (micros=%d)\n", amount.Format(f.BalanceMicros), f.BalanceMicros)
		for _, a := range f.Allowances {
			fmt.Printf("allowance_%s: %s (%s)\n", a.Spender.Name, formatAllowance(a.Micros), a.Spender.Address.Hex())
		}
		fmt.Printf("spendable: %s\n", amount.Format(f.Spendable()))
	}

	if skipCLOB || pk == nil {
		return
	}
	if err := printCLOBView(ctx, pk, owner, tokenIDFlag, useServerTime, apiNonce); err != nil {
		log.Fatalf("[fatal] %v", err)
	}
}

func printCLOBView(ctx context.Context, pk *ecdsa.PrivateKey, funder common.Address, tokenID string, useServerTime bool, apiNonce uint64) error {
	signatureType := 0
	if env := strings.TrimSpace(firstNonEmpty(os.Getenv("CLOB_SIGNATURE_TYPE"), os.Getenv("SIGNATURE_TYPE"))); env != "" {
		v, err := strconv.Atoi(env)
		if err != nil {
			return fmt.Errorf("invalid signature type env %q: %w", env, err)
		}
		signatureType = v
	}
	c, err := clob.NewClient(firstNonEmpty(os.Getenv("CLOB_URL"), clob.DefaultHost), polygonChainID, pk, funder, signatureType)
	if err != nil {
		return err
	}
	key, secret, pass := firstNonEmpty(os.Getenv("CLOB_API_KEY"), os.Getenv("API_KEY")), firstNonEmpty(os.Getenv("CLOB_SECRET"), os.Getenv("SECRET")), firstNonEmpty(os.Getenv("CLOB_PASSPHRASE"), os.Getenv("PASSPHRASE"))
	if key != "" && secret != "" && pass != "" {
		c.SetApiCreds(clob.ApiKeyCreds{Key: key, Secret: secret, Passphrase: pass})
	} else {
		creds, err := c.CreateOrDeriveApiKey(ctx, apiNonce, useServerTime)
		if err != nil {
			return fmt.Errorf("create/derive api key: %w", err)
		}
		c.SetApiCreds(creds)
	}

	ba, err := c.GetBalanceAllowance(ctx, clob.AssetCollateral, "", useServerTime)
	if err != nil {
		return fmt.Errorf("clob collateral balance: %w", err)
	}
	printBalanceAllowance("clob_collateral", ba)

	if strings.TrimSpace(tokenID) != "" {
		ba, err := c.GetBalanceAllowance(ctx, clob.AssetConditional, tokenID, useServerTime)
		if err != nil {
			return fmt.Errorf("clob conditional balance: %w", err)
		}
		printBalanceAllowance("clob_conditional", ba)
	}
	return nil
}

func printBalanceAllowance(prefix string, ba *clob.BalanceAllowance) {
	fmt.Printf("%s_balance: %s\n", prefix, formatRawMicros(ba.Balance))
	spenders := make([]string, 0, len(ba.Allowances))
	for s := range ba.Allowances {
		spenders = append(spenders, s)
	}
	sort.Strings(spenders)
	for _, s := range spenders {
		fmt.Printf("%s_allowance[%s]: %s\n", prefix, s, formatRawMicros(ba.Allowances[s]))
	}
}

// formatRawMicros renders a 1e6-scaled integer string, passing through
// anything that does not parse.
func formatRawMicros(s string) string {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return s
	}
	return formatAllowance(v)
}

func formatAllowance(m uint64) string {
	if m >= 1<<63 {
		return "max"
	}
	return amount.Format(m)
}

func envPrivateKey() (*ecdsa.PrivateKey, error) {
	pkHex := strings.TrimPrefix(firstNonEmpty(os.Getenv("CLOB_PRIVATE_KEY"), os.Getenv("PRIVATE_KEY")), "0x")
	if pkHex == "" {
		return nil, nil
	}
	pk, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		return nil, fmt.Errorf("invalid PRIVATE_KEY: %w", err)
	}
	return pk, nil
}

func resolveOwnerAddress(addrFlag string, pk *ecdsa.PrivateKey) (common.Address, string, error) {
	if raw := strings.TrimSpace(addrFlag); raw != "" {
		if !common.IsHexAddress(raw) {
			return common.Address{}, "", fmt.Errorf("invalid --address %q", raw)
		}
		return common.HexToAddress(raw), "--address", nil
	}
	if envFunder := firstNonEmpty(os.Getenv("CLOB_FUNDER"), os.Getenv("FUNDER")); envFunder != "" {
		if !common.IsHexAddress(envFunder) {
			return common.Address{}, "", fmt.Errorf("invalid FUNDER/CLOB_FUNDER env %q", envFunder)
		}
		return common.HexToAddress(envFunder), "FUNDER", nil
	}
	if pk != nil {
		return crypto.PubkeyToAddress(pk.PublicKey), "PRIVATE_KEY", nil
	}
	return common.Address{}, "", fmt.Errorf("wallet required: set FUNDER/CLOB_FUNDER, PRIVATE_KEY/CLOB_PRIVATE_KEY, or pass --address")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
