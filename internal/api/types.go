package api

import (
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
	"stockfolio/internal/engine"
	"stockfolio/internal/valuation"
)

// Response DTOs. All monetary figures are rounded to 2 decimal places here,
// at the presentation boundary; the engine keeps full precision.

// PositionJSON is one valued position row.
type PositionJSON struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	AvgCost      float64 `json:"avgCost"`
	OpenDate     string  `json:"openDate"`
	Notes        string  `json:"notes"`
	LivePrice    float64 `json:"livePrice"`
	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"currentValue"`
	ProfitLoss   float64 `json:"profitLoss"`
	HoldingClass string  `json:"holdingClass"`
	Invalid      bool    `json:"invalid"`
}

// TotalsJSON aggregates the portfolio.
type TotalsJSON struct {
	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"currentValue"`
	ProfitLoss   float64 `json:"profitLoss"`
	LongPL       float64 `json:"longPL"`
	ShortPL      float64 `json:"shortPL"`
}

// AlertJSON is one evaluated alert row.
type AlertJSON struct {
	ID          int64   `json:"id"`
	Symbol      string  `json:"symbol"`
	Target      float64 `json:"target"`
	Live        float64 `json:"live"`
	Hit         bool    `json:"hit"`
	Unavailable bool    `json:"unavailable"`
}

// TrendingJSON is one price-only trending row.
type TrendingJSON struct {
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Invalid bool    `json:"invalid"`
}

// DashboardResponse is the full dashboard payload.
type DashboardResponse struct {
	AsOf      string         `json:"asOf"`
	Positions []PositionJSON `json:"positions"`
	Totals    TotalsJSON     `json:"totals"`
	Watchlist []string       `json:"watchlist"`
	Alerts    []AlertJSON    `json:"alerts"`
	Trending  []TrendingJSON `json:"trending"`
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func convertPosition(v valuation.PositionValuation) PositionJSON {
	openDate := ""
	if !v.OpenDate.IsZero() {
		openDate = v.OpenDate.Format(domain.DateLayout)
	}
	return PositionJSON{
		Symbol:       v.Symbol,
		Quantity:     v.Quantity,
		AvgCost:      round2(v.AvgCost),
		OpenDate:     openDate,
		Notes:        v.Notes,
		LivePrice:    round2(v.LivePrice),
		Invested:     round2(v.Invested),
		CurrentValue: round2(v.CurrentValue),
		ProfitLoss:   round2(v.ProfitLoss),
		HoldingClass: string(v.Class),
		Invalid:      v.Invalid,
	}
}

func convertTotals(t valuation.Totals) TotalsJSON {
	return TotalsJSON{
		Invested:     round2(t.Invested),
		CurrentValue: round2(t.CurrentValue),
		ProfitLoss:   round2(t.ProfitLoss),
		LongPL:       round2(t.LongPL),
		ShortPL:      round2(t.ShortPL),
	}
}

func convertPositions(vals []valuation.PositionValuation) []PositionJSON {
	out := make([]PositionJSON, 0, len(vals))
	for _, v := range vals {
		out = append(out, convertPosition(v))
	}
	return out
}

func convertWatchlist(entries []domain.WatchlistEntry) []string {
	out := make([]string, 0, len(entries))
	for _, w := range entries {
		out = append(out, w.Symbol)
	}
	return out
}

func convertAlerts(statuses []valuation.AlertStatus) []AlertJSON {
	out := make([]AlertJSON, 0, len(statuses))
	for _, a := range statuses {
		out = append(out, AlertJSON{
			ID:          a.ID,
			Symbol:      a.Symbol,
			Target:      round2(a.Target),
			Live:        round2(a.Live),
			Hit:         a.Hit,
			Unavailable: a.Unavailable,
		})
	}
	return out
}

func convertTrending(quotes []domain.Quote) []TrendingJSON {
	out := make([]TrendingJSON, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, TrendingJSON{
			Symbol:  q.Symbol,
			Price:   round2(q.Price),
			Invalid: !q.Valid,
		})
	}
	return out
}

func convertDashboard(dash *engine.Dashboard) DashboardResponse {
	return DashboardResponse{
		AsOf:      dash.AsOf.UTC().Format(time.RFC3339),
		Positions: convertPositions(dash.Positions),
		Totals:    convertTotals(dash.Totals),
		Watchlist: convertWatchlist(dash.Watchlist),
		Alerts:    convertAlerts(dash.Alerts),
		Trending:  convertTrending(dash.Trending),
	}
}
