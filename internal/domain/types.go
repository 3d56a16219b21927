// Package domain defines the core types shared across the portfolio
// service: positions, watchlist entries, price alerts, and live quotes.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used everywhere dates are
// serialized (storage, API, CLI).
const DateLayout = "2006-01-02"

// Position is the merged single-lot record of all purchases of one symbol.
// AvgCost is the quantity-weighted mean purchase price per unit and
// OpenDate is the earliest acquisition date contributing to the position.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avgCost"`
	OpenDate time.Time       `json:"openDate"`
	Notes    string          `json:"notes"`
}

// WatchlistEntry is a tracked symbol with no position attached.
type WatchlistEntry struct {
	Symbol string `json:"symbol"`
}

// Alert is a standing price alert. Multiple alerts per symbol are allowed.
type Alert struct {
	ID     int64           `json:"id"`
	Symbol string          `json:"symbol"`
	Target decimal.Decimal `json:"target"`
}

// Quote is the result of a live price lookup. Valid is false when no quote
// could be obtained; Price is zero in that case. Carrying the flag instead
// of a sentinel zero keeps "unknown" distinguishable from "worthless".
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Valid  bool            `json:"valid"`
}

// Unavailable returns the quote representing a failed lookup for symbol.
func Unavailable(symbol string) Quote {
	return Quote{Symbol: symbol}
}

// HoldingClass is the tax holding-period classification of a position.
type HoldingClass string

const (
	HoldingLong    HoldingClass = "Long"
	HoldingShort   HoldingClass = "Short"
	HoldingUnknown HoldingClass = "Unknown"
)

// longTermDays is the holding-period threshold: strictly more than 365
// whole days held classifies as Long. Exactly 365 is still Short.
const longTermDays = 365

// DaysBetween returns the number of whole calendar days from a to b,
// ignoring the time-of-day component of both.
func DaysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

// Classify returns the holding-period class for a position opened on
// openDate as of today. A zero openDate classifies as Unknown.
func Classify(openDate, today time.Time) HoldingClass {
	if openDate.IsZero() {
		return HoldingUnknown
	}
	if DaysBetween(openDate, today) > longTermDays {
		return HoldingLong
	}
	return HoldingShort
}

// NormalizeSymbol trims surrounding whitespace and upper-cases a ticker
// symbol. The empty result means the input was not a usable symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseDate parses a calendar date in DateLayout, returning UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Midnight truncates t to UTC midnight of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
