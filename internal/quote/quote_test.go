package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
)

func TestStaticSourceLookup(t *testing.T) {
	src := NewStaticSource(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(150),
	})

	q := src.Lookup(context.Background(), " aapl ")
	if !q.Valid {
		t.Fatal("expected valid quote for AAPL")
	}
	if !q.Price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("AAPL price = %s, want 150", q.Price)
	}

	q = src.Lookup(context.Background(), "MISSING")
	if q.Valid {
		t.Error("unknown symbol should be unavailable")
	}
	if !q.Price.IsZero() {
		t.Errorf("unavailable price = %s, want 0", q.Price)
	}
}

func TestFetchAllDedupes(t *testing.T) {
	src := &countingSource{
		inner: NewStaticSource(map[string]decimal.Decimal{
			"AAPL": decimal.NewFromInt(150),
			"TSLA": decimal.NewFromInt(250),
		}),
		counts: make(map[string]int),
	}

	quotes := FetchAll(context.Background(), src, []string{"AAPL", "aapl", "TSLA", " AAPL ", "GONE"}, 4)

	if len(quotes) != 3 {
		t.Fatalf("FetchAll returned %d quotes, want 3", len(quotes))
	}
	if src.count("AAPL") != 1 {
		t.Errorf("AAPL looked up %d times, want 1", src.count("AAPL"))
	}
	if !quotes["AAPL"].Valid || !quotes["TSLA"].Valid {
		t.Error("expected valid quotes for AAPL and TSLA")
	}
	if quotes["GONE"].Valid {
		t.Error("GONE should be unavailable")
	}
}

func TestFetchAllBoundsWorkers(t *testing.T) {
	src := &concurrencyProbe{}
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}

	quotes := FetchAll(context.Background(), src, symbols, 2)

	if len(quotes) != len(symbols) {
		t.Fatalf("got %d quotes, want %d", len(quotes), len(symbols))
	}
	if got := src.peak(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestFetchAllEmpty(t *testing.T) {
	src := NewStaticSource(nil)
	quotes := FetchAll(context.Background(), src, nil, 4)
	if len(quotes) != 0 {
		t.Errorf("FetchAll(nil) returned %d quotes, want 0", len(quotes))
	}

	quotes = FetchAll(context.Background(), src, []string{"", "  "}, 4)
	if len(quotes) != 0 {
		t.Errorf("FetchAll(blank symbols) returned %d quotes, want 0", len(quotes))
	}
}

func TestYahooSourceLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"chart": map[string]any{
				"result": []any{
					map[string]any{
						"meta": map[string]any{
							"symbol":             "AAPL",
							"regularMarketPrice": 187.42,
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	src := NewYahooSource(600, 4, 2*time.Second)
	src.chartURL = ts.URL + "/%s"

	q := src.Lookup(context.Background(), "aapl")
	if !q.Valid {
		t.Fatal("expected valid quote")
	}
	if !q.Price.Equal(decimal.NewFromFloat(187.42)) {
		t.Errorf("price = %s, want 187.42", q.Price)
	}
	if q.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", q.Symbol)
	}
}

func TestYahooSourceEmptyResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{}}})
	}))
	defer ts.Close()

	src := NewYahooSource(600, 4, 2*time.Second)
	src.chartURL = ts.URL + "/%s"

	if q := src.Lookup(context.Background(), "GONE"); q.Valid {
		t.Error("empty chart result should degrade to unavailable")
	}
}

// ---------------------------------------------------------------------------
// test doubles
// ---------------------------------------------------------------------------

type countingSource struct {
	inner  *StaticSource
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) Lookup(ctx context.Context, symbol string) domain.Quote {
	c.mu.Lock()
	c.counts[symbol]++
	c.mu.Unlock()
	return c.inner.Lookup(ctx, symbol)
}

func (c *countingSource) count(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[symbol]
}

type concurrencyProbe struct {
	mu      sync.Mutex
	current int32
	maxSeen int32
}

func (p *concurrencyProbe) Name() string { return "probe" }

func (p *concurrencyProbe) Lookup(_ context.Context, symbol string) domain.Quote {
	p.mu.Lock()
	p.current++
	if p.current > p.maxSeen {
		p.maxSeen = p.current
	}
	p.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	p.current--
	p.mu.Unlock()

	return domain.Quote{Symbol: symbol, Price: decimal.NewFromInt(1), Valid: true}
}

func (p *concurrencyProbe) peak() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxSeen
}
