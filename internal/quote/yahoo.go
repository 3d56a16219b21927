package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
	"stockfolio/internal/util"
)

// yahooChartURL is the public chart endpoint serving the regular market
// price in its metadata block.
const yahooChartURL = "https://query2.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=1d"

// YahooSource fetches live prices from the Yahoo Finance chart API. Each
// lookup is bounded by a timeout and goes through a shared rate limiter;
// transient HTTP failures are retried once before giving up.
type YahooSource struct {
	httpClient *http.Client
	limiter    *util.RateLimiter
	timeout    time.Duration
	chartURL   string
	log        *slog.Logger
}

// NewYahooSource creates a YahooSource limited to perMinute requests per
// minute (with the given burst headroom) and a per-lookup timeout.
func NewYahooSource(perMinute, burst int, timeout time.Duration) *YahooSource {
	return &YahooSource{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    util.NewRateLimiter(perMinute, burst),
		timeout:    timeout,
		chartURL:   yahooChartURL,
		log:        slog.Default().With("source", "yahoo"),
	}
}

// Name returns the source identifier.
func (s *YahooSource) Name() string { return "yahoo" }

// Lookup fetches the current price for symbol. Timeouts, HTTP errors,
// malformed payloads, and non-positive prices all degrade to an unavailable
// quote rather than an error.
func (s *YahooSource) Lookup(ctx context.Context, symbol string) domain.Quote {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return domain.Unavailable(sym)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Unavailable(sym)
	}

	var price decimal.Decimal
	err := util.Retry(ctx, 2, 200*time.Millisecond, func() error {
		p, err := s.fetch(ctx, sym)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	if err != nil {
		s.log.Debug("lookup failed", "symbol", sym, "error", err)
		return domain.Unavailable(sym)
	}

	return domain.Quote{Symbol: sym, Price: price, Valid: true}
}

func (s *YahooSource) fetch(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf(s.chartURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("quote endpoint status %d", resp.StatusCode)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string  `json:"symbol"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decoding quote: %w", err)
	}

	if len(payload.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("empty chart result for %s", symbol)
	}

	p := payload.Chart.Result[0].Meta.RegularMarketPrice
	if p <= 0 {
		return decimal.Zero, fmt.Errorf("no usable price for %s", symbol)
	}

	return decimal.NewFromFloat(p), nil
}
