// Command resolve prints the token pool flowbot would trade for the given
// identifiers (token ids, market ids or slugs, event URLs), or for the
// configured markets when none are given.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"poly-flowbot/internal/config"
	"poly-flowbot/internal/dotenv"
	"poly-flowbot/internal/gamma"
	"poly-flowbot/internal/market"
)

func main() {
	log.SetFlags(0)

	var (
		configPath string
		gammaHost  string
		timeout    time.Duration
	)
	flag.StringVar(&configPath, "config", "", "YAML config path used when no identifiers are given (or FLOWBOT_CONFIG)")
	flag.StringVar(&gammaHost, "gamma-url", "", "Gamma API base URL (or GAMMA_URL)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}
	if strings.TrimSpace(gammaHost) == "" {
		gammaHost = firstNonEmpty(os.Getenv("GAMMA_URL"), gamma.DefaultURL)
	}

	identifiers := flag.Args()
	if len(identifiers) == 0 {
		if strings.TrimSpace(configPath) == "" {
			configPath = firstNonEmpty(os.Getenv("FLOWBOT_CONFIG"), config.DefaultPath)
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("[fatal] %v", err)
		}
		identifiers = cfg.Identifiers()
	}

	client, err := gamma.NewClient(gammaHost)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sel := market.NewSelector(client, nil, log.New(os.Stderr, "", 0))
	pool, err := sel.Pool(ctx, "", identifiers)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	for _, id := range pool {
		fmt.Printf("%s\t%s\n", id, sel.Label(ctx, id))
	}
	fmt.Fprintf(os.Stderr, "%d tokens\n", len(pool))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
