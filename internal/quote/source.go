// Package quote provides live price lookup sources and a concurrent
// multi-symbol fetcher. Lookups never fail: any provider error, timeout, or
// unknown symbol degrades to an unavailable quote.
package quote

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
)

// Source is a live price provider for ticker symbols. Lookup must never
// return an error; every failure maps to a Quote with Valid=false.
type Source interface {
	// Name returns the source identifier (e.g. "yahoo", "alpaca", "static").
	Name() string

	// Lookup fetches the current price for symbol. The returned quote has
	// Valid=false when no price could be obtained.
	Lookup(ctx context.Context, symbol string) domain.Quote
}

// ---------------------------------------------------------------------------
// StaticSource
// ---------------------------------------------------------------------------

// StaticSource serves quotes from a fixed in-memory table. Used in tests and
// offline mode; symbols absent from the table are unavailable.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a StaticSource with the given price table.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	if prices == nil {
		prices = make(map[string]decimal.Decimal)
	}
	return &StaticSource{prices: prices}
}

// Name returns the source identifier.
func (s *StaticSource) Name() string { return "static" }

// Set updates the price for a symbol.
func (s *StaticSource) Set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	s.prices[domain.NormalizeSymbol(symbol)] = price
	s.mu.Unlock()
}

// Remove deletes the price for a symbol, making it unavailable.
func (s *StaticSource) Remove(symbol string) {
	s.mu.Lock()
	delete(s.prices, domain.NormalizeSymbol(symbol))
	s.mu.Unlock()
}

// Lookup returns the table entry for symbol, or an unavailable quote.
func (s *StaticSource) Lookup(_ context.Context, symbol string) domain.Quote {
	sym := domain.NormalizeSymbol(symbol)
	s.mu.RLock()
	price, ok := s.prices[sym]
	s.mu.RUnlock()
	if !ok {
		return domain.Unavailable(sym)
	}
	return domain.Quote{Symbol: sym, Price: price, Valid: true}
}

// ---------------------------------------------------------------------------
// Concurrent fan-out
// ---------------------------------------------------------------------------

// FetchAll looks up every distinct symbol concurrently with at most
// maxWorkers goroutines and returns a quote per symbol. Symbols have no
// ordering dependency between them, so lookups run in parallel; a failed or
// slow lookup yields an unavailable quote without affecting the rest.
func FetchAll(ctx context.Context, src Source, symbols []string, maxWorkers int) map[string]domain.Quote {
	distinct := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		sym := domain.NormalizeSymbol(s)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		distinct = append(distinct, sym)
	}

	quotes := make(map[string]domain.Quote, len(distinct))
	if len(distinct) == 0 {
		return quotes
	}

	if maxWorkers < 1 {
		maxWorkers = 1
	}

	symCh := make(chan string, len(distinct))
	for _, sym := range distinct {
		symCh <- sym
	}
	close(symCh)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	workers := min(maxWorkers, len(distinct))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symCh {
				q := src.Lookup(ctx, sym)
				mu.Lock()
				quotes[sym] = q
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every requested symbol gets an entry, even if a source misbehaved.
	for _, sym := range distinct {
		if _, ok := quotes[sym]; !ok {
			quotes[sym] = domain.Unavailable(sym)
		}
	}

	return quotes
}
