package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ PositionStore = (*SQLiteStore)(nil)
var _ WatchlistStore = (*SQLiteStore)(nil)
var _ AlertStore = (*SQLiteStore)(nil)

// SQLiteStore implements PositionStore, WatchlistStore, and AlertStore
// backed by a SQLite database. Monetary columns are stored as decimal
// strings so no precision is lost on the round trip.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		symbol    TEXT PRIMARY KEY,
		quantity  INTEGER NOT NULL,
		avg_cost  TEXT NOT NULL,
		open_date TEXT NOT NULL,
		notes     TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		target TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrating sqlite schema: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// GetPosition retrieves the position for a symbol.
func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, quantity, avg_cost, open_date, notes
		FROM positions WHERE symbol = ?`, symbol)

	pos, err := scanPosition(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying position %s: %w", symbol, err)
	}
	return pos, nil
}

// UpsertPosition inserts or replaces the position for its symbol. The write
// is a single statement, so the merged record commits atomically.
func (s *SQLiteStore) UpsertPosition(ctx context.Context, pos *domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions(symbol, quantity, avg_cost, open_date, notes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			quantity  = excluded.quantity,
			avg_cost  = excluded.avg_cost,
			open_date = excluded.open_date,
			notes     = excluded.notes`,
		pos.Symbol, pos.Quantity, pos.AvgCost.String(),
		pos.OpenDate.Format(domain.DateLayout), pos.Notes)
	if err != nil {
		return fmt.Errorf("upserting position %s: %w", pos.Symbol, err)
	}
	return nil
}

// ListPositions returns all stored positions ordered by symbol.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, quantity, avg_cost, open_date, notes
		FROM positions ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		positions = append(positions, *pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating positions: %w", err)
	}
	return positions, nil
}

func scanPosition(scan func(dest ...any) error) (*domain.Position, error) {
	var (
		pos      domain.Position
		avgCost  string
		openDate string
	)
	if err := scan(&pos.Symbol, &pos.Quantity, &avgCost, &openDate, &pos.Notes); err != nil {
		return nil, err
	}

	cost, err := decimal.NewFromString(avgCost)
	if err != nil {
		return nil, fmt.Errorf("parsing avg_cost %q: %w", avgCost, err)
	}
	pos.AvgCost = cost

	// A stored open_date should always parse; a corrupt value degrades to
	// the zero date, which the valuation engine classifies as Unknown.
	if d, err := time.Parse(domain.DateLayout, openDate); err == nil {
		pos.OpenDate = d
	}

	return &pos, nil
}

// ---------------------------------------------------------------------------
// WatchlistStore implementation
// ---------------------------------------------------------------------------

// AddWatch inserts a symbol if absent. Duplicate adds are swallowed by
// INSERT OR IGNORE.
func (s *SQLiteStore) AddWatch(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist(symbol) VALUES (?)`, symbol)
	if err != nil {
		return fmt.Errorf("adding watchlist symbol %s: %w", symbol, err)
	}
	return nil
}

// ListWatchlist returns all watched symbols ordered by symbol.
func (s *SQLiteStore) ListWatchlist(ctx context.Context) ([]domain.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM watchlist ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying watchlist: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WatchlistEntry, 0)
	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.Symbol); err != nil {
			return nil, fmt.Errorf("scanning watchlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watchlist: %w", err)
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// AlertStore implementation
// ---------------------------------------------------------------------------

// AppendAlert inserts a new alert and returns it with its assigned ID.
func (s *SQLiteStore) AppendAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts(symbol, target) VALUES (?, ?)`,
		alert.Symbol, alert.Target.String())
	if err != nil {
		return domain.Alert{}, fmt.Errorf("inserting alert for %s: %w", alert.Symbol, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Alert{}, fmt.Errorf("alert last insert id: %w", err)
	}
	alert.ID = id
	return alert, nil
}

// ListAlerts returns all alerts in insertion order.
func (s *SQLiteStore) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, target FROM alerts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]domain.Alert, 0)
	for rows.Next() {
		var (
			a      domain.Alert
			target string
		)
		if err := rows.Scan(&a.ID, &a.Symbol, &target); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		t, err := decimal.NewFromString(target)
		if err != nil {
			return nil, fmt.Errorf("parsing alert target %q: %w", target, err)
		}
		a.Target = t
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}
