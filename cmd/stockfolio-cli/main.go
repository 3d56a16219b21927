// One-shot CLI for the portfolio: record a purchase, add a watchlist entry
// or alert, or print the valuation summary, all against the local store.
//
// Usage:
//
//	stockfolio-cli buy -symbol AAPL -qty 10 -price 150.25 [-date 2024-01-02] [-notes "..."]
//	stockfolio-cli watch -symbol NVDA
//	stockfolio-cli alert -symbol TSLA -target 300
//	stockfolio-cli summary
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/config"
	"stockfolio/internal/engine"
	"stockfolio/internal/ledger"
	"stockfolio/internal/quote"
	"stockfolio/internal/store"
	"stockfolio/internal/util"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stockfolio-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  buy        Record a purchase\n")
		fmt.Fprintf(os.Stderr, "  watch      Add a symbol to the watchlist\n")
		fmt.Fprintf(os.Stderr, "  alert      Add a price alert\n")
		fmt.Fprintf(os.Stderr, "  summary    Print the portfolio valuation\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cfgPath := "config/stockfolio.yaml"
	if p := os.Getenv("STOCKFOLIO_CONFIG"); p != "" {
		cfgPath = p
	}
	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.Default()
	}

	logger := util.NewLogger("warn", cfg.Logging.Format)
	util.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	timeout := time.Duration(cfg.Quotes.TimeoutMS) * time.Millisecond
	var src quote.Source = quote.NewYahooSource(cfg.Quotes.RateLimitPerMin, cfg.Quotes.Burst, timeout)
	if cfg.Quotes.Provider == "alpaca" {
		src = quote.NewAlpacaSource(cfg.Quotes.Alpaca.APIKey, cfg.Quotes.Alpaca.APISecret,
			cfg.Quotes.Alpaca.DataURL, cfg.Quotes.RateLimitPerMin, cfg.Quotes.Burst, timeout)
	}

	eng := engine.New(st, st, st, src, engine.Options{
		Trending:   cfg.Trending,
		MaxWorkers: cfg.Quotes.MaxWorkers,
	})

	ctx := context.Background()

	switch os.Args[1] {
	case "buy":
		runBuy(ctx, eng, os.Args[2:])
	case "watch":
		runWatch(ctx, eng, os.Args[2:])
	case "alert":
		runAlert(ctx, eng, os.Args[2:])
	case "summary":
		runSummary(ctx, eng)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func runBuy(ctx context.Context, eng *engine.Engine, args []string) {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	symbol := fs.String("symbol", "", "ticker symbol")
	qty := fs.Int64("qty", 0, "quantity purchased")
	price := fs.String("price", "", "purchase price per unit")
	date := fs.String("date", "", "purchase date (YYYY-MM-DD, default today)")
	notes := fs.String("notes", "", "free-form notes")
	fs.Parse(args)

	p, err := decimal.NewFromString(*price)
	if err != nil {
		log.Fatalf("invalid price %q", *price)
	}

	pos, err := eng.RecordPurchase(ctx, ledger.PurchaseInput{
		Symbol:   *symbol,
		Quantity: *qty,
		Price:    p,
		Date:     *date,
		Notes:    *notes,
	})
	if err != nil {
		log.Fatalf("recording purchase: %v", err)
	}

	fmt.Printf("%s: %d @ %s (opened %s)\n",
		pos.Symbol, pos.Quantity, pos.AvgCost.Round(2), pos.OpenDate.Format("2006-01-02"))
}

func runWatch(ctx context.Context, eng *engine.Engine, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	symbol := fs.String("symbol", "", "ticker symbol")
	fs.Parse(args)

	if err := eng.AddWatch(ctx, *symbol); err != nil {
		log.Fatalf("adding watch: %v", err)
	}
	fmt.Println("watching", *symbol)
}

func runAlert(ctx context.Context, eng *engine.Engine, args []string) {
	fs := flag.NewFlagSet("alert", flag.ExitOnError)
	symbol := fs.String("symbol", "", "ticker symbol")
	target := fs.String("target", "", "target price")
	fs.Parse(args)

	tgt, err := decimal.NewFromString(*target)
	if err != nil {
		log.Fatalf("invalid target %q", *target)
	}

	alert, err := eng.AddAlert(ctx, *symbol, tgt)
	if err != nil {
		log.Fatalf("adding alert: %v", err)
	}
	fmt.Printf("alert #%d: %s >= %s\n", alert.ID, alert.Symbol, alert.Target.Round(2))
}

func runSummary(ctx context.Context, eng *engine.Engine) {
	dash, err := eng.BuildDashboard(ctx)
	if err != nil {
		log.Fatalf("building summary: %v", err)
	}

	fmt.Printf("%-8s %8s %10s %10s %12s %12s %8s\n",
		"SYMBOL", "QTY", "AVG", "LIVE", "VALUE", "P/L", "CLASS")
	for _, v := range dash.Positions {
		live := v.LivePrice.Round(2).String()
		if v.Invalid {
			live = "n/a"
		}
		fmt.Printf("%-8s %8d %10s %10s %12s %12s %8s\n",
			v.Symbol, v.Quantity, v.AvgCost.Round(2), live,
			v.CurrentValue.Round(2), v.ProfitLoss.Round(2), v.Class)
	}

	fmt.Printf("\ninvested %s  value %s  p/l %s  (long %s, short %s)\n",
		dash.Totals.Invested.Round(2), dash.Totals.CurrentValue.Round(2),
		dash.Totals.ProfitLoss.Round(2), dash.Totals.LongPL.Round(2),
		dash.Totals.ShortPL.Round(2))

	if len(dash.Alerts) > 0 {
		fmt.Println("\nalerts:")
		for _, a := range dash.Alerts {
			state := "waiting"
			if a.Hit {
				state = "HIT"
			}
			if a.Unavailable {
				state = "no quote"
			}
			fmt.Printf("  %-8s target %s live %s  %s\n",
				a.Symbol, a.Target.Round(2), a.Live.Round(2), state)
		}
	}

	if len(dash.Watchlist) > 0 {
		fmt.Println("\nwatchlist:")
		for _, w := range dash.Watchlist {
			fmt.Printf("  %s\n", w.Symbol)
		}
	}

	if len(dash.Trending) > 0 {
		fmt.Println("\ntrending:")
		for _, q := range dash.Trending {
			price := q.Price.Round(2).String()
			if !q.Valid {
				price = "n/a"
			}
			fmt.Printf("  %-8s %s\n", q.Symbol, price)
		}
	}
}
