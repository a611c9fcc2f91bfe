// Package runlog keeps an append-only history of pipeline runs.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one row in runs.csv.
type Entry struct {
	RunID             string
	Timestamp         time.Time
	FilesParsed       int
	FilesSkipped      int
	RowsSkipped       int
	Transactions      int
	PaymentsFiltered  int
	DuplicatesDropped int
}

// NewEntry stamps a fresh run entry.
func NewEntry(now time.Time) Entry {
	return Entry{RunID: uuid.NewString(), Timestamp: now}
}

// Header is the CSV header for runs.csv.
const Header = "run_id,timestamp,files_parsed,files_skipped,rows_skipped,transactions,payments_filtered,duplicates_dropped"

const (
	numFields    = 8
	colRunID     = 0
	colTimestamp = 1
	colParsed    = 2
	colSkipped   = 3
	colRows      = 4
	colTxns      = 5
	colPayments  = 6
	colDups      = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colRunID] = e.RunID
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colParsed] = strconv.Itoa(e.FilesParsed)
	row[colSkipped] = strconv.Itoa(e.FilesSkipped)
	row[colRows] = strconv.Itoa(e.RowsSkipped)
	row[colTxns] = strconv.Itoa(e.Transactions)
	row[colPayments] = strconv.Itoa(e.PaymentsFiltered)
	row[colDups] = strconv.Itoa(e.DuplicatesDropped)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	ints := make([]int, numFields)
	for _, col := range []int{colParsed, colSkipped, colRows, colTxns, colPayments, colDups} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing field %d %q: %w", col, record[col], err)
		}
		ints[col] = n
	}

	return Entry{
		RunID:             record[colRunID],
		Timestamp:         ts,
		FilesParsed:       ints[colParsed],
		FilesSkipped:      ints[colSkipped],
		RowsSkipped:       ints[colRows],
		Transactions:      ints[colTxns],
		PaymentsFiltered:  ints[colPayments],
		DuplicatesDropped: ints[colDups],
	}, nil
}

// Append writes an entry to path, creating the file and header if needed.
func Append(path string, e Entry) error {
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := cw.Write(MarshalEntry(e)); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return cw.Error()
}

// Read returns all entries from path. Returns nil if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
