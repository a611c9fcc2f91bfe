// Package notes persists per-transaction notes and tags. They are user
// state, kept apart from the regenerated dataset so a pipeline rerun never
// wipes them.
package notes

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spendview-dev/spendview/internal/model"
	"github.com/spendview-dev/spendview/internal/persist"
)

// Key identifies a transaction across pipeline reruns. The dataset carries no
// synthetic IDs; (date, merchant key, amount) is the same identity the
// deduplicator uses.
func Key(t model.Transaction) string {
	return t.Date.Format("2006-01-02") + "|" + t.MerchantKey + "|" + t.Amount.StringFixed(2)
}

// Entry is one transaction's annotation.
type Entry struct {
	Note string   `json:"note"`
	Tags []string `json:"tags"`
}

// Header is the CSV header for the notes file.
const Header = "txn_key,note,tags"

const (
	numFields = 3
	colKey    = 0
	colNote   = 1
	colTags   = 2

	tagSeparator = ";"
)

// Store is the persisted transaction-key -> annotation table, same
// read-into-memory, atomic-replace-on-save contract as the mapping store.
type Store struct {
	path    string
	entries map[string]Entry
}

// LoadStore reads the notes file at path, creating an empty table when the
// file does not exist yet.
func LoadStore(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]Entry)}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening notes file: %w", err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading notes file %s: %w", path, err)
	}
	s.entries = entries
	return s, nil
}

// ReadEntries reads txn_key,note,tags rows from r.
func ReadEntries(r io.Reader) (map[string]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading notes CSV: %w", err)
	}

	entries := make(map[string]Entry)
	if len(records) == 0 {
		return entries, nil
	}
	for _, rec := range records[1:] {
		entries[rec[colKey]] = Entry{
			Note: rec[colNote],
			Tags: splitTags(rec[colTags]),
		}
	}
	return entries, nil
}

// WriteEntries writes the table to w in stable key order (including header).
func WriteEntries(w io.Writer, entries map[string]Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"txn_key", "note", "tags"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := entries[k]
		if err := cw.Write([]string{k, e.Note, strings.Join(e.Tags, tagSeparator)}); err != nil {
			return fmt.Errorf("writing row for %s: %w", k, err)
		}
	}
	return cw.Error()
}

// Get returns the annotation for a transaction key.
func (s *Store) Get(key string) (Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// All returns a copy of the annotation table.
func (s *Store) All() map[string]Entry {
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of annotated transactions.
func (s *Store) Len() int { return len(s.entries) }

// Put records an annotation and persists immediately. An entry with no note
// and no tags clears the row. A failed write leaves the prior table
// untouched.
func (s *Store) Put(key string, e Entry) error {
	prior, had := s.entries[key]
	s.set(key, e)
	if err := s.Save(); err != nil {
		if had {
			s.entries[key] = prior
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

// Save atomically replaces the notes file.
func (s *Store) Save() error {
	var buf bytes.Buffer
	if err := WriteEntries(&buf, s.entries); err != nil {
		return err
	}
	return persist.ReplaceFile(s.path, buf.Bytes())
}

func (s *Store) set(key string, e Entry) {
	e.Note = strings.TrimSpace(e.Note)
	e.Tags = splitTags(strings.Join(e.Tags, tagSeparator))
	if e.Note == "" && len(e.Tags) == 0 {
		delete(s.entries, key)
		return
	}
	s.entries[key] = e
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, tagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
