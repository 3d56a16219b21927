// Package store defines storage interfaces for persisting and retrieving
// positions, watchlist entries, and price alerts, plus a Parquet archive of
// valuation snapshots.
package store

import (
	"context"

	"stockfolio/internal/domain"
)

// PositionStore persists and retrieves position records keyed by symbol.
type PositionStore interface {
	// GetPosition retrieves the position for a symbol, or
	// domain.ErrNotFound when none exists.
	GetPosition(ctx context.Context, symbol string) (*domain.Position, error)

	// UpsertPosition inserts or replaces the position for its symbol as a
	// single atomic write: either the whole record commits or the stored
	// record stays unchanged.
	UpsertPosition(ctx context.Context, pos *domain.Position) error

	// ListPositions returns all stored positions ordered by symbol.
	ListPositions(ctx context.Context) ([]domain.Position, error)
}

// WatchlistStore persists the set of watched symbols.
type WatchlistStore interface {
	// AddWatch inserts a symbol if absent. Adding an existing symbol is a
	// silent no-op, never an error.
	AddWatch(ctx context.Context, symbol string) error

	// ListWatchlist returns all watched symbols ordered by symbol.
	ListWatchlist(ctx context.Context) ([]domain.WatchlistEntry, error)
}

// AlertStore persists price alerts. Alerts are append-only and carry no
// uniqueness constraint: the same symbol may have many targets.
type AlertStore interface {
	// AppendAlert inserts a new alert and returns it with its assigned ID.
	AppendAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error)

	// ListAlerts returns all alerts in insertion order.
	ListAlerts(ctx context.Context) ([]domain.Alert, error)
}
