package quote

import (
	"context"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
	"stockfolio/internal/util"
)

// AlpacaSource fetches live prices from the Alpaca market-data API (latest
// trade per symbol). Like every Source it maps all failures to an
// unavailable quote.
type AlpacaSource struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	timeout time.Duration
	log     *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
// dataURL may be empty to use the SDK default endpoint.
func NewAlpacaSource(apiKey, apiSecret, dataURL string, perMinute, burst int, timeout time.Duration) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaSource{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(perMinute, burst),
		timeout: timeout,
		log:     slog.Default().With("source", "alpaca"),
	}
}

// Name returns the source identifier.
func (s *AlpacaSource) Name() string { return "alpaca" }

// Lookup fetches the latest trade price for symbol.
func (s *AlpacaSource) Lookup(ctx context.Context, symbol string) domain.Quote {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return domain.Unavailable(sym)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Unavailable(sym)
	}

	// The SDK call carries no context; run it in a goroutine so the
	// per-lookup timeout still bounds the wait.
	type result struct {
		price float64
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		trade, err := s.client.GetLatestTrade(sym, marketdata.GetLatestTradeRequest{})
		if err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{price: trade.Price}
	}()

	select {
	case <-ctx.Done():
		s.log.Debug("lookup timed out", "symbol", sym)
		return domain.Unavailable(sym)
	case r := <-ch:
		if r.err != nil || r.price <= 0 {
			s.log.Debug("lookup failed", "symbol", sym, "error", r.err)
			return domain.Unavailable(sym)
		}
		return domain.Quote{Symbol: sym, Price: decimal.NewFromFloat(r.price), Valid: true}
	}
}
