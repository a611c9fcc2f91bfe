// Package recurring infers periodic merchant series from the transaction set
// and tracks their lifecycle against the prior run's snapshot.
package recurring

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendview-dev/spendview/internal/model"
	"github.com/spendview-dev/spendview/internal/persist"
)

// SnapshotEntry is one merchant's persisted state from the prior run. The
// display name rides along so a series that vanishes from the dataset can
// still be reported by name, not by lookup key.
type SnapshotEntry struct {
	MerchantKey    string
	Merchant       string
	LastSeen       time.Time
	Period         model.Period
	ExpectedAmount decimal.Decimal
}

// Snapshot is the prior run's recurring-series state, keyed by merchant key.
// Passed explicitly into Detect; file I/O stays at the process boundary.
type Snapshot map[string]SnapshotEntry

// Header is the CSV header for the snapshot file.
const Header = "merchant_key,merchant,last_seen,period,expected_amount"

const (
	numFields   = 5
	dateFormat  = "2006-01-02"
	colKey      = 0
	colMerchant = 1
	colSeen     = 2
	colPeriod   = 3
	colAmount   = 4
)

// LoadSnapshot reads the snapshot file, returning an empty snapshot when the
// file does not exist (first run).
func LoadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	snap, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	return snap, nil
}

// ReadSnapshot reads snapshot rows from r.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot CSV: %w", err)
	}

	snap := Snapshot{}
	if len(records) == 0 {
		return snap, nil
	}
	for i, rec := range records[1:] {
		entry, err := unmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		snap[entry.MerchantKey] = entry
	}
	return snap, nil
}

// WriteSnapshot writes the snapshot to w in stable key order.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"merchant_key", "merchant", "last_seen", "period", "expected_amount"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := snap[k]
		row := []string{
			e.MerchantKey,
			e.Merchant,
			e.LastSeen.Format(dateFormat),
			string(e.Period),
			e.ExpectedAmount.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", k, err)
		}
	}
	return cw.Error()
}

// SaveSnapshot atomically replaces the snapshot file; on failure the prior
// snapshot remains authoritative.
func SaveSnapshot(path string, snap Snapshot) error {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, snap); err != nil {
		return err
	}
	return persist.ReplaceFile(path, buf.Bytes())
}

func unmarshalEntry(record []string) (SnapshotEntry, error) {
	seen, err := time.Parse(dateFormat, record[colSeen])
	if err != nil {
		return SnapshotEntry{}, fmt.Errorf("parsing last_seen %q: %w", record[colSeen], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return SnapshotEntry{}, fmt.Errorf("parsing expected_amount %q: %w", record[colAmount], err)
	}
	return SnapshotEntry{
		MerchantKey:    record[colKey],
		Merchant:       record[colMerchant],
		LastSeen:       seen,
		Period:         model.Period(record[colPeriod]),
		ExpectedAmount: amount,
	}, nil
}
