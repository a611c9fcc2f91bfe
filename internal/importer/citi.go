package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendview-dev/spendview/internal/model"
)

// CitiCardParser parses Citi credit card CSV exports.
//
// Layout: Status,Date,Description,Debit,Credit. Citi splits the amount across
// two positive columns, so the sign is normalized here: debit d becomes -d,
// credit c becomes +c.
type CitiCardParser struct{}

const (
	citiCardNumFields = 5
	citiCardColDate   = 1
	citiCardColDesc   = 2
	citiCardColDebit  = 3
	citiCardColCredit = 4
)

func (p *CitiCardParser) Bank() model.SourceBank     { return model.BankCiti }
func (p *CitiCardParser) Account() model.AccountType { return model.AccountCredit }

func (p *CitiCardParser) Parse(r io.Reader) ([]model.RawRecord, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = citiCardNumFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading citi card CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil, nil
	}

	var records []model.RawRecord
	var rowErrs []RowError
	for i, row := range rows[1:] {
		date, err := time.Parse(bankDateFormat, row[citiCardColDate])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: fmt.Errorf("parsing date %q: %w", row[citiCardColDate], err)})
			continue
		}
		amount, err := debitCreditAmount(row[citiCardColDebit], row[citiCardColCredit])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: err})
			continue
		}
		records = append(records, model.RawRecord{
			Date:        date,
			Description: row[citiCardColDesc],
			Amount:      amount,
		})
	}
	return records, rowErrs, nil
}

// CitiCheckingParser parses Citi checking CSV exports.
//
// Layout: Date,Description,Debit,Credit,Balance, same debit/credit split as
// the card export.
type CitiCheckingParser struct{}

const (
	citiCheckingNumFields = 5
	citiCheckingColDate   = 0
	citiCheckingColDesc   = 1
	citiCheckingColDebit  = 2
	citiCheckingColCredit = 3
)

func (p *CitiCheckingParser) Bank() model.SourceBank     { return model.BankCiti }
func (p *CitiCheckingParser) Account() model.AccountType { return model.AccountChecking }

func (p *CitiCheckingParser) Parse(r io.Reader) ([]model.RawRecord, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = citiCheckingNumFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading citi checking CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil, nil
	}

	var records []model.RawRecord
	var rowErrs []RowError
	for i, row := range rows[1:] {
		date, err := time.Parse(bankDateFormat, row[citiCheckingColDate])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: fmt.Errorf("parsing date %q: %w", row[citiCheckingColDate], err)})
			continue
		}
		amount, err := debitCreditAmount(row[citiCheckingColDebit], row[citiCheckingColCredit])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Err: err})
			continue
		}
		records = append(records, model.RawRecord{
			Date:        date,
			Description: row[citiCheckingColDesc],
			Amount:      amount,
		})
	}
	return records, rowErrs, nil
}

// debitCreditAmount folds Citi's debit/credit columns into one signed amount
// under the negative-equals-outflow convention.
func debitCreditAmount(debit, credit string) (decimal.Decimal, error) {
	if debit != "" {
		d, err := decimal.NewFromString(debit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing debit %q: %w", debit, err)
		}
		return d.Abs().Neg(), nil
	}
	if credit != "" {
		c, err := decimal.NewFromString(credit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing credit %q: %w", credit, err)
		}
		return c.Abs(), nil
	}
	return decimal.Zero, fmt.Errorf("row has neither debit nor credit")
}
