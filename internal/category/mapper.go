package category

import (
	"fmt"
	"sort"
)

// InvalidCategoryError rejects a mapping update naming a category outside the
// 24 budget categories.
type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid budget category %q", e.Category)
}

// Mapper resolves merchant keys to budget categories. Resolution is a pure
// function of the key, the bank category, and the current table; misses are
// recorded for the unmapped-merchants report.
type Mapper struct {
	store    *Store
	unmapped map[string]bool
}

// NewMapper wraps a loaded Store.
func NewMapper(store *Store) *Mapper {
	return &Mapper{store: store, unmapped: make(map[string]bool)}
}

// Resolve returns the budget category for a merchant key. A stored Default
// is the auto-seeded state, not a pin, so it keeps falling through the
// bank-category table; misses and Default rows alike land in the unmapped
// report until the user pins a category.
func (m *Mapper) Resolve(key, bankCategory string) string {
	if cat, ok := m.store.Get(key); ok && cat != Default {
		return cat
	}
	m.unmapped[key] = true
	if cat := FromBankCategory(bankCategory); cat != "" {
		return cat
	}
	return Default
}

// Update validates and persists a mapping immediately. An invalid category or
// a failed write leaves the prior table untouched.
func (m *Mapper) Update(key, cat string) error {
	if !Valid(cat) {
		return &InvalidCategoryError{Category: cat}
	}

	prior, had := m.store.Get(key)
	m.store.Set(key, cat)
	if err := m.store.Save(); err != nil {
		if had {
			m.store.Set(key, prior)
		} else {
			delete(m.store.mappings, key)
		}
		return err
	}
	delete(m.unmapped, key)
	return nil
}

// Seed records every given merchant key missing from the table as Default,
// then persists once. The pipeline uses it to auto-create the mapping file
// with all known merchants defaulted, so the file is complete and
// hand-editable after the first run. Seeded rows stay provisional; Resolve
// keeps them in the unmapped report.
func (m *Mapper) Seed(keys []string) error {
	added := false
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := m.store.Get(k); !ok {
			m.store.Set(k, Default)
			added = true
		}
	}
	if !added {
		return nil
	}
	return m.store.Save()
}

// Unmapped returns the keys that missed the table this run, sorted.
func (m *Mapper) Unmapped() []string {
	keys := make([]string, 0, len(m.unmapped))
	for k := range m.unmapped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store exposes the underlying table, e.g. for the dashboard API.
func (m *Mapper) Store() *Store { return m.store }
