// Package journal archives each trading day's closed trades to Parquet for
// offline analysis. One file per day under <dataDir>/journal/.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"marlin/internal/domain"
)

// Record is the Parquet schema for a closed trade.
type Record struct {
	ID         string  `parquet:"id"`
	Symbol     string  `parquet:"symbol"`
	Mode       string  `parquet:"mode"`
	Qty        int64   `parquet:"qty"`
	EntryPrice float64 `parquet:"entry_price"`
	ExitPrice  float64 `parquet:"exit_price"`
	PnL        float64 `parquet:"pnl"`
	Reason     string  `parquet:"reason"`
	ClosedAt   int64   `parquet:"closed_at,timestamp(millisecond)"` // Unix ms
}

// Journal writes and reads daily closed-trade archives.
type Journal struct {
	DataDir string
}

// New creates a Journal rooted at the given data directory.
func New(dataDir string) *Journal {
	return &Journal{DataDir: dataDir}
}

// dayPath returns the filesystem path for a day's journal file.
// Layout: <dataDir>/journal/<YYYY-MM-DD>.parquet
func (j *Journal) dayPath(date string) string {
	return filepath.Join(j.DataDir, "journal", date+".parquet")
}

// WriteDay persists the day's closed trades, merging with any records
// already on disk (dedup by trade ID, incoming records win).
func (j *Journal) WriteDay(date string, trades []domain.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	incoming := make([]Record, 0, len(trades))
	for _, t := range trades {
		incoming = append(incoming, Record{
			ID:         t.ID,
			Symbol:     t.Symbol,
			Mode:       string(t.Mode),
			Qty:        t.Qty,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			PnL:        t.PnL,
			Reason:     t.Reason,
			ClosedAt:   t.ClosedAt.UnixMilli(),
		})
	}

	path := j.dayPath(date)
	existing, _ := parquet.ReadFile[Record](path)
	merged := mergeRecords(existing, incoming)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("journal: mkdir: %w", err)
	}
	if err := parquet.WriteFile(path, merged); err != nil {
		return fmt.Errorf("journal: writing %s: %w", date, err)
	}
	return nil
}

// ReadDay loads the day's archived trades. A missing file yields an empty
// slice, not an error.
func (j *Journal) ReadDay(date string) ([]domain.ClosedTrade, error) {
	records, err := parquet.ReadFile[Record](j.dayPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: reading %s: %w", date, err)
	}

	trades := make([]domain.ClosedTrade, 0, len(records))
	for _, r := range records {
		trades = append(trades, domain.ClosedTrade{
			ID:         r.ID,
			Symbol:     r.Symbol,
			Mode:       domain.TradeMode(r.Mode),
			Qty:        r.Qty,
			EntryPrice: r.EntryPrice,
			ExitPrice:  r.ExitPrice,
			PnL:        r.PnL,
			Reason:     r.Reason,
			ClosedAt:   time.UnixMilli(r.ClosedAt).UTC(),
		})
	}
	return trades, nil
}

// ListDays returns the dates with a journal file, sorted ascending.
func (j *Journal) ListDays() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(j.DataDir, "journal"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".parquet" {
			continue
		}
		dates = append(dates, name[:len(name)-len(".parquet")])
	}
	sort.Strings(dates)
	return dates, nil
}

// mergeRecords deduplicates by trade ID, preferring incoming records.
// Results are sorted by close time.
func mergeRecords(existing, incoming []Record) []Record {
	seen := make(map[string]Record, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ID] = r
	}
	for _, r := range incoming {
		seen[r.ID] = r
	}

	merged := make([]Record, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ClosedAt < merged[j].ClosedAt
	})
	return merged
}
