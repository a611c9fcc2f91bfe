// Package importer discovers bank CSV exports and parses them into raw
// records. One parser per (bank, account type) pair; all converge on
// model.RawRecord.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spendview-dev/spendview/internal/model"
)

// MalformedFileError marks a CSV file (or row) that could not be parsed. The
// file is skipped with a warning, never fatal to the run.
type MalformedFileError struct {
	Path string
	Err  error
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("malformed file %s: %v", e.Path, e.Err)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

// UnknownBankFormatError marks a CSV file matching no registered schema.
type UnknownBankFormatError struct {
	Path string
}

func (e *UnknownBankFormatError) Error() string {
	return fmt.Sprintf("file %s matches no known bank format", e.Path)
}

// RowError records a single skipped row inside an otherwise-parsable file.
type RowError struct {
	Row int // 1-based, header included
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Parser converts one bank's CSV export into RawRecords. Value-level problems
// in individual rows come back as RowErrors; a structural problem (CSV syntax,
// wrong column count) fails the whole file.
type Parser interface {
	Parse(r io.Reader) ([]model.RawRecord, []RowError, error)
	Bank() model.SourceBank
	Account() model.AccountType
}

// Registry holds one parser per (bank, account type) pair.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on a duplicate (bank, account) pair.
func (r *Registry) Register(p Parser) {
	key := registryKey(p.Bank(), p.Account())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser for " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for a (bank, account) pair, or nil.
func (r *Registry) Get(bank model.SourceBank, account model.AccountType) Parser {
	return r.parsers[registryKey(bank, account)]
}

func registryKey(bank model.SourceBank, account model.AccountType) string {
	return strings.ToLower(string(bank)) + "/" + string(account)
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseCardParser{})
	r.Register(&ChaseCheckingParser{})
	r.Register(&CitiCardParser{})
	r.Register(&CitiCheckingParser{})
	return r
}

// checkingDir is the sub-directory holding checking-account exports; credit
// card exports sit at the data-dir top level.
const checkingDir = "Checking"

// FileInfo describes a discovered CSV export.
type FileInfo struct {
	Name    string
	Path    string
	Bank    model.SourceBank
	Account model.AccountType
}

// Scan discovers CSV exports under dir. The bank comes from the filename
// prefix, the account type from the file's location. Files matching no known
// bank are reported via UnknownBankFormatError in the second return.
func Scan(dir string) ([]FileInfo, []error, error) {
	var files []FileInfo
	var skipped []error

	top, err := listCSVs(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range top {
		fi, ok := identify(dir, name, model.AccountCredit)
		if !ok {
			skipped = append(skipped, &UnknownBankFormatError{Path: filepath.Join(dir, name)})
			continue
		}
		files = append(files, fi)
	}

	checking, err := listCSVs(filepath.Join(dir, checkingDir))
	if err != nil {
		return nil, nil, err
	}
	for _, name := range checking {
		fi, ok := identify(filepath.Join(dir, checkingDir), name, model.AccountChecking)
		if !ok {
			skipped = append(skipped, &UnknownBankFormatError{Path: filepath.Join(dir, checkingDir, name)})
			continue
		}
		files = append(files, fi)
	}

	return files, skipped, nil
}

func listCSVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func identify(dir, name string, account model.AccountType) (FileInfo, bool) {
	var bank model.SourceBank
	switch {
	case strings.HasPrefix(strings.ToLower(name), "chase"):
		bank = model.BankChase
	case strings.HasPrefix(strings.ToLower(name), "citi"):
		bank = model.BankCiti
	default:
		return FileInfo{}, false
	}
	return FileInfo{
		Name:    name,
		Path:    filepath.Join(dir, name),
		Bank:    bank,
		Account: account,
	}, true
}

// LoadFile parses a discovered file with its registered parser, stamping each
// record with its source. Returns the records plus any skipped rows.
func LoadFile(reg *Registry, fi FileInfo) ([]model.RawRecord, []RowError, error) {
	p := reg.Get(fi.Bank, fi.Account)
	if p == nil {
		return nil, nil, &UnknownBankFormatError{Path: fi.Path}
	}

	f, err := os.Open(fi.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", fi.Path, err)
	}
	defer f.Close()

	records, rowErrs, err := p.Parse(f)
	if err != nil {
		return nil, nil, &MalformedFileError{Path: fi.Path, Err: err}
	}

	for i := range records {
		records[i].SourceFile = fi.Name
		records[i].Bank = fi.Bank
		records[i].Account = fi.Account
	}
	return records, rowErrs, nil
}
