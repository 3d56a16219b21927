package domain

import (
	"testing"
	"time"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"aapl", "AAPL"},
		{"  tsla ", "TSLA"},
		{"MSFT", "MSFT"},
		{"   ", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeSymbol(c.in); got != c.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 1 {
		t.Errorf("DaysBetween = %d, want 1", got)
	}

	// Time-of-day must not affect the whole-day count.
	a = time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	b = time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 1 {
		t.Errorf("DaysBetween across midnight = %d, want 1", got)
	}

	if got := DaysBetween(b, b); got != 0 {
		t.Errorf("DaysBetween same day = %d, want 0", got)
	}
}

func TestClassifyBoundary(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// Exactly 365 days held is still Short; 366 crosses into Long.
	at365 := today.AddDate(0, 0, -365)
	at366 := today.AddDate(0, 0, -366)

	if got := Classify(at365, today); got != HoldingShort {
		t.Errorf("Classify(365 days) = %s, want Short", got)
	}
	if got := Classify(at366, today); got != HoldingLong {
		t.Errorf("Classify(366 days) = %s, want Long", got)
	}
	if got := Classify(time.Time{}, today); got != HoldingUnknown {
		t.Errorf("Classify(zero date) = %s, want Unknown", got)
	}
	if got := Classify(today, today); got != HoldingShort {
		t.Errorf("Classify(same day) = %s, want Short", got)
	}
}

func TestUnavailableQuote(t *testing.T) {
	q := Unavailable("AAPL")
	if q.Valid {
		t.Error("Unavailable quote should not be valid")
	}
	if !q.Price.IsZero() {
		t.Errorf("Unavailable quote price = %s, want 0", q.Price)
	}
	if q.Symbol != "AAPL" {
		t.Errorf("Unavailable quote symbol = %q, want AAPL", q.Symbol)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2020-01-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2020 || d.Month() != time.January || d.Day() != 1 {
		t.Errorf("ParseDate returned %v", d)
	}

	if _, err := ParseDate("01/02/2020"); err == nil {
		t.Error("ParseDate should reject non-ISO layout")
	}
}
