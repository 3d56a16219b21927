package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
)

// memPositions is an in-memory PositionStore for ledger tests.
type memPositions struct {
	mu        sync.Mutex
	positions map[string]domain.Position
}

func newMemPositions() *memPositions {
	return &memPositions{positions: make(map[string]domain.Position)}
}

func (m *memPositions) GetPosition(_ context.Context, symbol string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &pos, nil
}

func (m *memPositions) UpsertPosition(_ context.Context, pos *domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.Symbol] = *pos
	return nil
}

func (m *memPositions) ListPositions(_ context.Context) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC)
}

func newTestLedger() (*Ledger, *memPositions) {
	mem := newMemPositions()
	return New(mem, fixedNow), mem
}

func TestRecordPurchaseCreates(t *testing.T) {
	l, _ := newTestLedger()

	pos, err := l.RecordPurchase(context.Background(), PurchaseInput{
		Symbol:   " aapl ",
		Quantity: 10,
		Price:    decimal.NewFromInt(100),
		Date:     "2024-03-01",
		Notes:    "  first lot  ",
	})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	if pos.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", pos.Symbol)
	}
	if pos.Quantity != 10 {
		t.Errorf("Quantity = %d, want 10", pos.Quantity)
	}
	if !pos.AvgCost.Equal(decimal.NewFromInt(100)) {
		t.Errorf("AvgCost = %s, want 100", pos.AvgCost)
	}
	if pos.Notes != "first lot" {
		t.Errorf("Notes = %q, want trimmed", pos.Notes)
	}
}

func TestWeightedAverageMerge(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	// 10 @ 100 then 10 @ 200 must yield 20 @ 150.
	if _, err := l.RecordPurchase(ctx, PurchaseInput{Symbol: "AAPL", Quantity: 10, Price: decimal.NewFromInt(100), Date: "2024-03-01"}); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	pos, err := l.RecordPurchase(ctx, PurchaseInput{Symbol: "AAPL", Quantity: 10, Price: decimal.NewFromInt(200), Date: "2024-04-01"})
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	if pos.Quantity != 20 {
		t.Errorf("Quantity = %d, want 20", pos.Quantity)
	}
	if !pos.AvgCost.Equal(decimal.NewFromInt(150)) {
		t.Errorf("AvgCost = %s, want 150", pos.AvgCost)
	}
}

func TestWeightedAverageFullPrecision(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	// 1 @ 1 then 2 @ 2: mean is 5/3, which integer math would mangle.
	l.RecordPurchase(ctx, PurchaseInput{Symbol: "X", Quantity: 1, Price: decimal.NewFromInt(1), Date: "2024-01-01"})
	pos, err := l.RecordPurchase(ctx, PurchaseInput{Symbol: "X", Quantity: 2, Price: decimal.NewFromInt(2), Date: "2024-01-02"})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	want := decimal.NewFromInt(5).Div(decimal.NewFromInt(3))
	if !pos.AvgCost.Equal(want) {
		t.Errorf("AvgCost = %s, want %s", pos.AvgCost, want)
	}
}

func TestEarliestDateRetention(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	l.RecordPurchase(ctx, PurchaseInput{Symbol: "MSFT", Quantity: 5, Price: decimal.NewFromInt(300), Date: "2021-01-01"})
	pos, err := l.RecordPurchase(ctx, PurchaseInput{Symbol: "MSFT", Quantity: 5, Price: decimal.NewFromInt(310), Date: "2020-01-01"})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if !pos.OpenDate.Equal(want) {
		t.Errorf("OpenDate = %v, want %v", pos.OpenDate, want)
	}

	// A later-dated lot must not move the open date forward.
	pos, err = l.RecordPurchase(ctx, PurchaseInput{Symbol: "MSFT", Quantity: 5, Price: decimal.NewFromInt(320), Date: "2023-01-01"})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}
	if !pos.OpenDate.Equal(want) {
		t.Errorf("OpenDate after later lot = %v, want %v", pos.OpenDate, want)
	}
}

func TestFutureDateClampedToToday(t *testing.T) {
	l, _ := newTestLedger()

	pos, err := l.RecordPurchase(context.Background(), PurchaseInput{
		Symbol:   "TSLA",
		Quantity: 1,
		Price:    decimal.NewFromInt(200),
		Date:     "2026-06-15", // one year past the fixed clock
	})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	today := domain.Midnight(fixedNow())
	if !pos.OpenDate.Equal(today) {
		t.Errorf("OpenDate = %v, want clamped to %v", pos.OpenDate, today)
	}
}

func TestMalformedDateFallsBackToToday(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	today := domain.Midnight(fixedNow())

	for _, raw := range []string{"", "not-a-date", "15/06/2025"} {
		pos, err := l.RecordPurchase(ctx, PurchaseInput{
			Symbol:   "NVDA",
			Quantity: 1,
			Price:    decimal.NewFromInt(100),
			Date:     raw,
		})
		if err != nil {
			t.Fatalf("RecordPurchase(date=%q): %v", raw, err)
		}
		if !pos.OpenDate.Equal(today) {
			t.Errorf("OpenDate for date=%q = %v, want %v", raw, pos.OpenDate, today)
		}
	}
}

func TestNotesLastWriteWins(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	l.RecordPurchase(ctx, PurchaseInput{Symbol: "AMZN", Quantity: 1, Price: decimal.NewFromInt(100), Date: "2024-01-01", Notes: "keep an eye"})
	pos, err := l.RecordPurchase(ctx, PurchaseInput{Symbol: "AMZN", Quantity: 1, Price: decimal.NewFromInt(100), Date: "2024-02-01", Notes: ""})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}

	// Blank notes still overwrite the previous value.
	if pos.Notes != "" {
		t.Errorf("Notes = %q, want overwritten blank", pos.Notes)
	}
}

func TestRecordPurchaseRejectsBadInput(t *testing.T) {
	l, mem := newTestLedger()
	ctx := context.Background()

	cases := []struct {
		name string
		in   PurchaseInput
	}{
		{"empty symbol", PurchaseInput{Symbol: "  ", Quantity: 1, Price: decimal.NewFromInt(1)}},
		{"zero quantity", PurchaseInput{Symbol: "AAPL", Quantity: 0, Price: decimal.NewFromInt(1)}},
		{"negative quantity", PurchaseInput{Symbol: "AAPL", Quantity: -5, Price: decimal.NewFromInt(1)}},
		{"negative price", PurchaseInput{Symbol: "AAPL", Quantity: 1, Price: decimal.NewFromInt(-1)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := l.RecordPurchase(ctx, c.in)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("RecordPurchase returned %v, want ErrInvalidInput", err)
			}
		})
	}

	// No partial write may occur for rejected input.
	if positions, _ := mem.ListPositions(ctx); len(positions) != 0 {
		t.Errorf("store has %d positions after rejected inputs, want 0", len(positions))
	}
}

func TestConcurrentPurchasesSameSymbol(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordPurchase(ctx, PurchaseInput{
				Symbol:   "GOOG",
				Quantity: 1,
				Price:    decimal.NewFromInt(100),
				Date:     "2024-01-01",
			})
			if err != nil {
				t.Errorf("RecordPurchase: %v", err)
			}
		}()
	}
	wg.Wait()

	pos, err := l.RecordPurchase(ctx, PurchaseInput{Symbol: "GOOG", Quantity: 1, Price: decimal.NewFromInt(100), Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("final purchase: %v", err)
	}
	// Every contribution must survive the concurrent merges.
	if pos.Quantity != n+1 {
		t.Errorf("Quantity = %d, want %d", pos.Quantity, n+1)
	}
	if !pos.AvgCost.Equal(decimal.NewFromInt(100)) {
		t.Errorf("AvgCost = %s, want 100", pos.AvgCost)
	}
}
