package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
)

// SnapshotRecord is the Parquet schema for archived portfolio valuation
// totals. One row per calendar day; repeated passes on the same day replace
// the earlier row. Values are display-precision floats, the authoritative
// decimals live only in the live snapshot.
type SnapshotRecord struct {
	Date          string  `parquet:"date"`
	Timestamp     int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	TotalInvested float64 `parquet:"total_invested"`
	TotalCurrent  float64 `parquet:"total_current"`
	TotalPL       float64 `parquet:"total_pl"`
	LongPL        float64 `parquet:"long_pl"`
	ShortPL       float64 `parquet:"short_pl"`
	Positions     int64   `parquet:"positions"`
	MissingQuotes int64   `parquet:"missing_quotes"`
}

// SnapshotArchive persists valuation totals to Parquet files on disk,
// one file per year:
//
//	<Dir>/snapshots/<YYYY>.parquet
type SnapshotArchive struct {
	Dir string
}

// NewSnapshotArchive creates a SnapshotArchive rooted at dir.
func NewSnapshotArchive(dir string) *SnapshotArchive {
	return &SnapshotArchive{Dir: dir}
}

func (a *SnapshotArchive) yearPath(year int) string {
	return filepath.Join(a.Dir, "snapshots", fmt.Sprintf("%04d.parquet", year))
}

// Append records a valuation pass, replacing any earlier row for the same
// calendar day.
func (a *SnapshotArchive) Append(rec SnapshotRecord) error {
	ts := time.UnixMilli(rec.Timestamp).UTC()
	path := a.yearPath(ts.Year())

	existing, _ := readParquetFile[SnapshotRecord](path)

	byDate := make(map[string]SnapshotRecord, len(existing)+1)
	for _, r := range existing {
		byDate[r.Date] = r
	}
	byDate[rec.Date] = rec

	merged := make([]SnapshotRecord, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing snapshot archive for %d: %w", ts.Year(), err)
	}
	return nil
}

// ReadYear returns all archived rows for a year in date order. A missing
// year file yields an empty slice.
func (a *SnapshotArchive) ReadYear(year int) ([]SnapshotRecord, error) {
	records, err := readParquetFile[SnapshotRecord](a.yearPath(year))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot archive for %d: %w", year, err)
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
