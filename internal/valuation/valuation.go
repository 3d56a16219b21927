// Package valuation computes per-position valuations, holding-period
// classification, and portfolio-wide aggregates from stored positions and
// live quotes, and evaluates standing price alerts.
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
)

// PositionValuation is the derived view of one position against its live
// quote. Invalid marks that no quote was available and zero was substituted
// for the live price, so CurrentValue and ProfitLoss include that zero.
type PositionValuation struct {
	domain.Position
	LivePrice    decimal.Decimal     `json:"livePrice"`
	Invested     decimal.Decimal     `json:"invested"`
	CurrentValue decimal.Decimal     `json:"currentValue"`
	ProfitLoss   decimal.Decimal     `json:"profitLoss"`
	Class        domain.HoldingClass `json:"holdingClass"`
	Invalid      bool                `json:"invalid"`
}

// Totals aggregates a valuation pass. ProfitLoss is derived as
// CurrentValue − Invested over the whole portfolio, not a sum of signed
// per-position figures; LongPL and ShortPL sum only the positions in their
// class, so Unknown-classified positions contribute to neither.
type Totals struct {
	Invested     decimal.Decimal `json:"invested"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	ProfitLoss   decimal.Decimal `json:"profitLoss"`
	LongPL       decimal.Decimal `json:"longPL"`
	ShortPL      decimal.Decimal `json:"shortPL"`
}

// Valuate computes the valuation of every position against the given quote
// map as of today. A missing or invalid quote never aborts the pass: the
// position is valued with a zero live price and flagged Invalid. All
// arithmetic stays at full precision; rounding happens at the presentation
// boundary.
func Valuate(positions []domain.Position, quotes map[string]domain.Quote, today time.Time) ([]PositionValuation, Totals) {
	out := make([]PositionValuation, 0, len(positions))
	var totals Totals

	for _, pos := range positions {
		quote, ok := quotes[pos.Symbol]
		invalid := !ok || !quote.Valid

		live := decimal.Zero
		if !invalid {
			live = quote.Price
		}

		qty := decimal.NewFromInt(pos.Quantity)
		invested := qty.Mul(pos.AvgCost)
		current := qty.Mul(live)
		pl := current.Sub(invested)

		class := domain.Classify(pos.OpenDate, today)

		totals.Invested = totals.Invested.Add(invested)
		totals.CurrentValue = totals.CurrentValue.Add(current)
		switch class {
		case domain.HoldingLong:
			totals.LongPL = totals.LongPL.Add(pl)
		case domain.HoldingShort:
			totals.ShortPL = totals.ShortPL.Add(pl)
		}

		out = append(out, PositionValuation{
			Position:     pos,
			LivePrice:    live,
			Invested:     invested,
			CurrentValue: current,
			ProfitLoss:   pl,
			Class:        class,
			Invalid:      invalid,
		})
	}

	totals.ProfitLoss = totals.CurrentValue.Sub(totals.Invested)
	return out, totals
}

// AlertStatus reports one alert against its live quote. Live is zero when
// the quote was unavailable, and an unavailable quote never counts as hit.
type AlertStatus struct {
	ID          int64           `json:"id"`
	Symbol      string          `json:"symbol"`
	Target      decimal.Decimal `json:"target"`
	Live        decimal.Decimal `json:"live"`
	Hit         bool            `json:"hit"`
	Unavailable bool            `json:"unavailable"`
}

// EvaluateAlerts checks every alert against the quote map. The trigger is
// non-strict: a live price exactly equal to the target counts as hit.
func EvaluateAlerts(alerts []domain.Alert, quotes map[string]domain.Quote) []AlertStatus {
	out := make([]AlertStatus, 0, len(alerts))
	for _, a := range alerts {
		quote, ok := quotes[a.Symbol]
		if !ok || !quote.Valid {
			out = append(out, AlertStatus{
				ID:          a.ID,
				Symbol:      a.Symbol,
				Target:      a.Target,
				Live:        decimal.Zero,
				Unavailable: true,
			})
			continue
		}
		out = append(out, AlertStatus{
			ID:     a.ID,
			Symbol: a.Symbol,
			Target: a.Target,
			Live:   quote.Price,
			Hit:    quote.Price.GreaterThanOrEqual(a.Target),
		})
	}
	return out
}

// TrendingPrices returns the quote for each symbol in input order, with
// unavailable quotes carried through for symbols that had no price. This is
// the price-only listing: no position or cost data attached.
func TrendingPrices(symbols []string, quotes map[string]domain.Quote) []domain.Quote {
	out := make([]domain.Quote, 0, len(symbols))
	for _, s := range symbols {
		sym := domain.NormalizeSymbol(s)
		if sym == "" {
			continue
		}
		quote, ok := quotes[sym]
		if !ok {
			quote = domain.Unavailable(sym)
		}
		out = append(out, quote)
	}
	return out
}
