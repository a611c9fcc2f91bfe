package category

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/spendview-dev/spendview/internal/persist"
)

// Header is the CSV header for the mapping file.
const Header = "merchant_key,category"

const (
	numFields   = 2
	colKey      = 0
	colCategory = 1
)

// Store is the persisted merchant-key -> category table. In-memory resolution
// is decoupled from disk: reads hit the map, every successful Save atomically
// replaces the file and bumps Revision.
type Store struct {
	path     string
	mappings map[string]string
	revision int
}

// LoadStore reads the mapping file at path, creating an empty table when the
// file does not exist yet.
func LoadStore(path string) (*Store, error) {
	s := &Store{path: path, mappings: make(map[string]string)}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening mapping file: %w", err)
	}
	defer f.Close()

	mappings, err := ReadMappings(f)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file %s: %w", path, err)
	}
	s.mappings = mappings
	return s, nil
}

// ReadMappings reads merchant_key,category rows from r.
func ReadMappings(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading mapping CSV: %w", err)
	}

	mappings := make(map[string]string)
	if len(records) == 0 {
		return mappings, nil
	}
	for _, rec := range records[1:] {
		mappings[rec[colKey]] = rec[colCategory]
	}
	return mappings, nil
}

// WriteMappings writes the table to w in stable key order (including header).
func WriteMappings(w io.Writer, mappings map[string]string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"merchant_key", "category"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	keys := make([]string, 0, len(mappings))
	for k := range mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := cw.Write([]string{k, mappings[k]}); err != nil {
			return fmt.Errorf("writing row for %s: %w", k, err)
		}
	}
	return cw.Error()
}

// Get returns the mapped category for a merchant key.
func (s *Store) Get(key string) (string, bool) {
	cat, ok := s.mappings[key]
	return cat, ok
}

// Set records a mapping in memory. It does not persist; call Save.
func (s *Store) Set(key, cat string) {
	s.mappings[key] = cat
}

// Len returns the number of mappings.
func (s *Store) Len() int { return len(s.mappings) }

// All returns a copy of the mapping table.
func (s *Store) All() map[string]string {
	out := make(map[string]string, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out
}

// Revision counts successful saves since load.
func (s *Store) Revision() int { return s.revision }

// Save atomically replaces the mapping file. On failure the prior file and
// revision remain authoritative.
func (s *Store) Save() error {
	var buf bytes.Buffer
	if err := WriteMappings(&buf, s.mappings); err != nil {
		return err
	}
	if err := persist.ReplaceFile(s.path, buf.Bytes()); err != nil {
		return err
	}
	s.revision++
	return nil
}
