// Package engine coordinates the portfolio service: it routes purchases
// through the ledger, maintains the watchlist and alerts, and assembles the
// full dashboard from stored records and live quotes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
	"stockfolio/internal/ledger"
	"stockfolio/internal/quote"
	"stockfolio/internal/store"
	"stockfolio/internal/valuation"
)

// Engine orchestrates the stores, the ledger, and the quote source.
type Engine struct {
	positions store.PositionStore
	watchlist store.WatchlistStore
	alerts    store.AlertStore
	ledger    *ledger.Ledger
	quotes    quote.Source
	archive   *store.SnapshotArchive // nil disables archiving

	trending   []string
	maxWorkers int
	now        func() time.Time
	log        *slog.Logger
}

// Options configures optional Engine behaviour.
type Options struct {
	// Trending is the fixed symbol set shown with price-only data.
	Trending []string

	// MaxWorkers bounds concurrent quote lookups during a dashboard pass.
	MaxWorkers int

	// Archive, when non-nil, receives the totals of every dashboard pass.
	Archive *store.SnapshotArchive

	// Now supplies the current time; nil means time.Now.
	Now func() time.Time
}

// New creates an Engine over the given stores and quote source.
func New(positions store.PositionStore, watchlist store.WatchlistStore, alerts store.AlertStore, quotes quote.Source, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxWorkers := opts.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Engine{
		positions:  positions,
		watchlist:  watchlist,
		alerts:     alerts,
		ledger:     ledger.New(positions, now),
		quotes:     quotes,
		archive:    opts.Archive,
		trending:   opts.Trending,
		maxWorkers: maxWorkers,
		now:        now,
		log:        slog.Default().With("component", "engine"),
	}
}

// RecordPurchase merges a purchase event into the stored position for its
// symbol.
func (e *Engine) RecordPurchase(ctx context.Context, in ledger.PurchaseInput) (*domain.Position, error) {
	return e.ledger.RecordPurchase(ctx, in)
}

// AddWatch adds a symbol to the watchlist. Re-adding a watched symbol is a
// no-op.
func (e *Engine) AddWatch(ctx context.Context, symbol string) error {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}
	return e.watchlist.AddWatch(ctx, sym)
}

// AddAlert registers a standing price alert for a symbol.
func (e *Engine) AddAlert(ctx context.Context, symbol string, target decimal.Decimal) (domain.Alert, error) {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return domain.Alert{}, fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}
	if target.IsNegative() {
		return domain.Alert{}, fmt.Errorf("%w: target must not be negative, got %s", domain.ErrInvalidInput, target)
	}
	return e.alerts.AppendAlert(ctx, domain.Alert{Symbol: sym, Target: target})
}

// PositionValuations values every stored position against live quotes and
// returns the rows with their aggregate totals.
func (e *Engine) PositionValuations(ctx context.Context) ([]valuation.PositionValuation, valuation.Totals, error) {
	positions, err := e.positions.ListPositions(ctx)
	if err != nil {
		return nil, valuation.Totals{}, fmt.Errorf("listing positions: %w", err)
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	quotes := quote.FetchAll(ctx, e.quotes, symbols, e.maxWorkers)

	vals, totals := valuation.Valuate(positions, quotes, domain.Midnight(e.now()))
	return vals, totals, nil
}

// Watchlist returns the stored watchlist entries.
func (e *Engine) Watchlist(ctx context.Context) ([]domain.WatchlistEntry, error) {
	return e.watchlist.ListWatchlist(ctx)
}

// AlertStatuses evaluates every stored alert against live quotes.
func (e *Engine) AlertStatuses(ctx context.Context) ([]valuation.AlertStatus, error) {
	alerts, err := e.alerts.ListAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}

	symbols := make([]string, 0, len(alerts))
	for _, a := range alerts {
		symbols = append(symbols, a.Symbol)
	}
	quotes := quote.FetchAll(ctx, e.quotes, symbols, e.maxWorkers)

	return valuation.EvaluateAlerts(alerts, quotes), nil
}

// TrendingQuotes fetches live prices for the configured trending symbols.
func (e *Engine) TrendingQuotes(ctx context.Context) []domain.Quote {
	quotes := quote.FetchAll(ctx, e.quotes, e.trending, e.maxWorkers)
	return valuation.TrendingPrices(e.trending, quotes)
}

// Dashboard is the full read-only summary of the portfolio: valuations,
// aggregates, watchlist, alert states, and trending prices. Monetary fields
// are full precision; rounding is the presentation layer's job.
type Dashboard struct {
	AsOf      time.Time                     `json:"asOf"`
	Positions []valuation.PositionValuation `json:"positions"`
	Totals    valuation.Totals              `json:"totals"`
	Watchlist []domain.WatchlistEntry       `json:"watchlist"`
	Alerts    []valuation.AlertStatus       `json:"alerts"`
	Trending  []domain.Quote                `json:"trending"`
}

// BuildDashboard loads all stored records, fetches a live quote once per
// distinct symbol, and assembles the dashboard. Quote unavailability never
// fails the pass; only storage errors do.
func (e *Engine) BuildDashboard(ctx context.Context) (*Dashboard, error) {
	positions, err := e.positions.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	watched, err := e.watchlist.ListWatchlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing watchlist: %w", err)
	}
	alerts, err := e.alerts.ListAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}

	symbols := make([]string, 0, len(positions)+len(alerts)+len(e.trending))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	for _, a := range alerts {
		symbols = append(symbols, a.Symbol)
	}
	symbols = append(symbols, e.trending...)

	quotes := quote.FetchAll(ctx, e.quotes, symbols, e.maxWorkers)

	now := e.now()
	today := domain.Midnight(now)
	vals, totals := valuation.Valuate(positions, quotes, today)

	dash := &Dashboard{
		AsOf:      now,
		Positions: vals,
		Totals:    totals,
		Watchlist: watched,
		Alerts:    valuation.EvaluateAlerts(alerts, quotes),
		Trending:  valuation.TrendingPrices(e.trending, quotes),
	}

	e.archiveSnapshot(dash)

	return dash, nil
}

// archiveSnapshot records the pass totals. Archiving is best effort: a
// failure is logged and never fails the dashboard.
func (e *Engine) archiveSnapshot(dash *Dashboard) {
	if e.archive == nil {
		return
	}

	missing := int64(0)
	for _, v := range dash.Positions {
		if v.Invalid {
			missing++
		}
	}

	invested, _ := dash.Totals.Invested.Round(2).Float64()
	current, _ := dash.Totals.CurrentValue.Round(2).Float64()
	pl, _ := dash.Totals.ProfitLoss.Round(2).Float64()
	longPL, _ := dash.Totals.LongPL.Round(2).Float64()
	shortPL, _ := dash.Totals.ShortPL.Round(2).Float64()

	rec := store.SnapshotRecord{
		Date:          dash.AsOf.UTC().Format(domain.DateLayout),
		Timestamp:     dash.AsOf.UnixMilli(),
		TotalInvested: invested,
		TotalCurrent:  current,
		TotalPL:       pl,
		LongPL:        longPL,
		ShortPL:       shortPL,
		Positions:     int64(len(dash.Positions)),
		MissingQuotes: missing,
	}
	if err := e.archive.Append(rec); err != nil {
		e.log.Warn("archiving snapshot failed", "error", err)
	}
}
