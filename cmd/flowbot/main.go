package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poly-flowbot/internal/amount"
	"poly-flowbot/internal/clob"
	"poly-flowbot/internal/config"
	"poly-flowbot/internal/dotenv"
	"poly-flowbot/internal/flowbot"
	"poly-flowbot/internal/gamma"
	"poly-flowbot/internal/jsonl"
	"poly-flowbot/internal/market"
	"poly-flowbot/internal/polygonutil"
	"poly-flowbot/internal/state"
)

const polygonChainID = 137

func main() {
	log.SetFlags(log.LstdFlags)

	parsed, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("[fatal] %v", err)
	}
	if err := dotenv.Load(parsed.envFile); err != nil {
		log.Printf("[warn] %v", err)
	}
	if err := parsed.applyEnv(os.Getenv); err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	cfg, err := config.LoadAndValidate(parsed.configPath)
	if err != nil {
		log.Fatalf("[fatal] config %s: %v", parsed.configPath, err)
	}
	money, err := cfg.Money()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Printf("[info] interrupt received, stopping after the current step")
		cancel()
	}()

	gammaClient, err := gamma.NewClient(parsed.gammaHost)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	selector := market.NewSelector(gammaClient, nil, log.Default())
	pool, err := selector.Pool(ctx, parsed.market, cfg.Identifiers())
	if err != nil {
		log.Fatalf("[fatal] market selection: %v", err)
	}

	pk, err := parsed.privateKey()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	if pk == nil && !parsed.dryRun {
		log.Fatalf("[fatal] %v", errPrivateKeyRequired)
	}
	clobClient, err := clob.NewClient(parsed.clobHost, polygonChainID, pk, parsed.funder, parsed.signatureType)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	var submitter flowbot.OrderSubmitter
	if !parsed.dryRun {
		if parsed.hasApiCreds() {
			clobClient.SetApiCreds(clob.ApiKeyCreds{Key: parsed.apiKey, Secret: parsed.apiSecret, Passphrase: parsed.apiPassphrase})
		} else {
			creds, err := clobClient.CreateOrDeriveApiKey(ctx, parsed.apiNonce, parsed.useServerTime)
			if err != nil {
				log.Fatalf("[fatal] failed to create/derive api key: %v", err)
			}
			clobClient.SetApiCreds(creds)
			log.Printf("[info] CLOB API creds ready (key=%s…)", safePrefix(creds.Key, 8))
		}
		submitter = clobClient
	}

	var funding flowbot.FundingChecker
	if probe, ok := fundingProbe(clobClient); ok {
		funding = probe
		if !parsed.dryRun {
			preflight(ctx, probe, money.MaxSpendPerMarket)
		}
	}

	tradeLog, err := jsonl.Open(parsed.outFile)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	defer tradeLog.Close()

	var approver flowbot.Approver = flowbot.AlwaysApprove{}
	if cfg.ManualApproval && !parsed.dryRun {
		approver = flowbot.NewPrompt(os.Stdin, os.Stdout)
	}

	logConfig(parsed, cfg, pool, clobClient)

	events := flowbot.NewEvents(tradeLog, parsed.dryRun, log.Default())
	ledger := flowbot.NewLedger()
	sampler := flowbot.NewSampler(cfg, nil)
	searcher := flowbot.NewSearcher(sampler, ledger, clobClient, flowbot.SearchConfig{
		Money:        money,
		SellAsShares: cfg.SellQuantityAsShares,
	}, log.Default(), events)
	executor := flowbot.NewExecutor(flowbot.ExecutorConfig{
		DryRun:        parsed.dryRun,
		SellAsShares:  cfg.SellQuantityAsShares,
		CeilingMicros: money.MaxSpendPerMarket,
		UseServerTime: parsed.useServerTime,
	}, submitter, approver, ledger, selector, funding, log.Default(), events)
	runner := flowbot.NewRunner(flowbot.RunnerConfig{
		Iterations:           parsed.iterations,
		MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		ErrorPause:           cfg.ErrorPause,
	}, searcher, executor, sampler, ledger, selector, log.Default(), events)

	sum, runErr := runner.Run(ctx, pool)
	if err := state.SaveSummary(parsed.summaryOut, sum); err != nil {
		log.Printf("[warn] write summary %s: %v", parsed.summaryOut, err)
	}
	if runErr != nil {
		tradeLog.Close()
		log.Fatalf("[fatal] %v", runErr)
	}
}

// fundingProbe builds an on-chain funding probe when a Polygon RPC URL is
// configured.
func fundingProbe(c *clob.Client) (polygonutil.Probe, bool) {
	rpcURL, ok, err := polygonutil.RPCURLFromEnv()
	if err != nil {
		log.Printf("[warn] %v", err)
		return polygonutil.Probe{}, false
	}
	if !ok || c.FunderAddress() == (common.Address{}) {
		return polygonutil.Probe{}, false
	}
	spenders, err := polygonutil.ExchangeSpenders(c.ChainID())
	if err != nil {
		log.Printf("[warn] %v", err)
		return polygonutil.Probe{}, false
	}
	return polygonutil.Probe{RPCURL: rpcURL, Owner: c.FunderAddress(), Spenders: spenders}, true
}

func preflight(ctx context.Context, probe polygonutil.Probe, ceiling uint64) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()
	f, err := probe.Check(ctx)
	if err != nil {
		log.Printf("[warn] funding preflight failed: %v", err)
		return
	}
	log.Printf("[info] funding %s", f.Describe())
	if f.Spendable() < ceiling {
		log.Printf("[warn] spendable USDC %s is below max_spend_per_market %s", amount.Format(f.Spendable()), amount.Format(ceiling))
	}
}

func logConfig(parsed args, cfg config.Config, pool []string, c *clob.Client) {
	mode := "live"
	if parsed.dryRun {
		mode = "dry"
	}
	iterations := "unbounded"
	if parsed.iterations > 0 {
		iterations = strconv.Itoa(parsed.iterations)
	}
	log.Printf("[info] mode=%s iterations=%s pool=%d tokens config=%s", mode, iterations, len(pool), parsed.configPath)
	log.Printf("[info] quantity=[%v, %v] USDC interval=[%vs, %vs] p_buy=%v", cfg.Quantity.Min, cfg.Quantity.Max, cfg.Interval.Min, cfg.Interval.Max, cfg.PBuy)
	log.Printf("[info] max_spend_per_market=%v price_window=[%v, %v] manual_approval=%v", cfg.MaxSpendPerMarket, cfg.MinPrice, cfg.MaxPrice, cfg.ManualApproval)
	if c.CanSign() {
		log.Printf("[info] signer=%s funder=%s", c.SignerAddress().Hex(), c.FunderAddress().Hex())
	}
	if parsed.outFile != "" {
		log.Printf("[info] events -> %s", parsed.outFile)
	}
}
