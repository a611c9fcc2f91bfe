package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendview-dev/spendview/internal/model"
)

const bankDateFormat = "01/02/2006"

// ChaseCardParser parses Chase credit card CSV exports.
//
// Layout: Transaction Date,Post Date,Description,Category,Type,Amount,Memo.
// Sales are already negative, payments positive, so the export natively uses
// the negative-equals-outflow convention.
type ChaseCardParser struct{}

const (
	chaseCardNumFields = 7
	chaseCardColDate   = 0
	chaseCardColDesc   = 2
	chaseCardColCat    = 3
	chaseCardColAmount = 5
)

func (p *ChaseCardParser) Bank() model.SourceBank     { return model.BankChase }
func (p *ChaseCardParser) Account() model.AccountType { return model.AccountCredit }

func (p *ChaseCardParser) Parse(r io.Reader) ([]model.RawRecord, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseCardNumFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading chase card CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil, nil
	}

	var records []model.RawRecord
	var rowErrs []RowError
	for i, row := range rows[1:] {
		date, err := time.Parse(bankDateFormat, row[chaseCardColDate])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: fmt.Errorf("parsing date %q: %w", row[chaseCardColDate], err)})
			continue
		}
		amount, err := decimal.NewFromString(row[chaseCardColAmount])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: fmt.Errorf("parsing amount %q: %w", row[chaseCardColAmount], err)})
			continue
		}
		records = append(records, model.RawRecord{
			Date:         date,
			Description:  row[chaseCardColDesc],
			Amount:       amount,
			BankCategory: row[chaseCardColCat],
		})
	}
	return records, rowErrs, nil
}

// ChaseCheckingParser parses Chase checking CSV exports.
//
// Layout: Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #.
// Debits are negative, credits positive.
type ChaseCheckingParser struct{}

const (
	chaseCheckingNumFields = 7
	chaseCheckingColDate   = 1
	chaseCheckingColDesc   = 2
	chaseCheckingColAmount = 3
)

func (p *ChaseCheckingParser) Bank() model.SourceBank     { return model.BankChase }
func (p *ChaseCheckingParser) Account() model.AccountType { return model.AccountChecking }

func (p *ChaseCheckingParser) Parse(r io.Reader) ([]model.RawRecord, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseCheckingNumFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading chase checking CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil, nil
	}

	var records []model.RawRecord
	var rowErrs []RowError
	for i, row := range rows[1:] {
		date, err := time.Parse(bankDateFormat, row[chaseCheckingColDate])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: fmt.Errorf("parsing date %q: %w", row[chaseCheckingColDate], err)})
			continue
		}
		amount, err := decimal.NewFromString(row[chaseCheckingColAmount])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: fmt.Errorf("parsing amount %q: %w", row[chaseCheckingColAmount], err)})
			continue
		}
		records = append(records, model.RawRecord{
			Date:        date,
			Description: row[chaseCheckingColDesc],
			Amount:      amount,
		})
	}
	return records, rowErrs, nil
}
