// Package ledger owns the rule for merging repeated purchases of a symbol
// into a single weighted-average-cost position.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
	"stockfolio/internal/store"
)

// Ledger records purchases against a PositionStore. Merges for the same
// symbol are serialized by a per-symbol lock: the weighted-average update is
// a read-modify-write, and two concurrent purchases of one symbol must not
// silently drop a contribution.
type Ledger struct {
	positions store.PositionStore
	now       func() time.Time
	log       *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Ledger over the given position store. now supplies "today"
// for date clamping; pass nil for time.Now.
func New(positions store.PositionStore, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		positions: positions,
		now:       now,
		log:       slog.Default().With("component", "ledger"),
		locks:     make(map[string]*sync.Mutex),
	}
}

// PurchaseInput is a single purchase event as received from the caller.
// Date is the raw calendar-date string; blank or malformed values fall back
// to today.
type PurchaseInput struct {
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Date     string
	Notes    string
}

// RecordPurchase validates the purchase, merges it into any existing
// position for the symbol, and persists the result atomically. It returns
// the stored position after the merge.
func (l *Ledger) RecordPurchase(ctx context.Context, in PurchaseInput) (*domain.Position, error) {
	symbol := domain.NormalizeSymbol(in.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrInvalidInput, in.Quantity)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative, got %s", domain.ErrInvalidInput, in.Price)
	}

	today := domain.Midnight(l.now())

	purchaseDate, err := domain.ParseDate(in.Date)
	if err != nil {
		// Malformed or missing date falls back to today.
		purchaseDate = today
	} else if purchaseDate.After(today) {
		// Future-dated purchases are clamped to today.
		purchaseDate = today
	}

	notes := strings.TrimSpace(in.Notes)

	lock := l.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	existing, err := l.positions.GetPosition(ctx, symbol)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading position %s: %w", symbol, err)
	}

	var merged domain.Position
	if existing == nil {
		merged = domain.Position{
			Symbol:   symbol,
			Quantity: in.Quantity,
			AvgCost:  in.Price,
			OpenDate: purchaseDate,
			Notes:    notes,
		}
	} else {
		merged = mergePurchase(*existing, in.Quantity, in.Price, purchaseDate, notes)
	}

	if err := l.positions.UpsertPosition(ctx, &merged); err != nil {
		return nil, fmt.Errorf("storing position %s: %w", symbol, err)
	}

	l.log.Info("purchase recorded",
		"symbol", symbol,
		"quantity", in.Quantity,
		"price", in.Price,
		"newQuantity", merged.Quantity,
		"newAvgCost", merged.AvgCost,
	)

	return &merged, nil
}

// mergePurchase folds a new lot into an existing position: quantities add,
// the average cost becomes the quantity-weighted mean of both lots, the
// earliest date wins, and notes are last-write-wins even when blank.
func mergePurchase(old domain.Position, qty int64, price decimal.Decimal, date time.Time, notes string) domain.Position {
	newQty := old.Quantity + qty

	oldQty := decimal.NewFromInt(old.Quantity)
	addQty := decimal.NewFromInt(qty)
	totalCost := old.AvgCost.Mul(oldQty).Add(price.Mul(addQty))
	newAvg := totalCost.Div(decimal.NewFromInt(newQty))

	openDate := old.OpenDate
	if openDate.IsZero() || date.Before(openDate) {
		openDate = date
	}

	return domain.Position{
		Symbol:   old.Symbol,
		Quantity: newQty,
		AvgCost:  newAvg,
		OpenDate: openDate,
		Notes:    notes,
	}
}

func (l *Ledger) symbolLock(symbol string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[symbol] = lock
	}
	return lock
}
