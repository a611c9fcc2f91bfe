// Package dataset persists the processed transaction set consumed by the
// dashboard.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendview-dev/spendview/internal/model"
	"github.com/spendview-dev/spendview/internal/persist"
)

// Header is the CSV header for transactions.csv.
const Header = "date,merchant,merchant_key,raw_description,amount,account_type,source_bank,source_file,bank_category,category,flow_type,income_source"

const (
	numFields     = 12
	dateFormat    = "2006-01-02"
	colDate       = 0
	colMerchant   = 1
	colKey        = 2
	colRawDesc    = 3
	colAmount     = 4
	colAcctType   = 5
	colBank       = 6
	colSourceFile = 7
	colBankCat    = 8
	colCategory   = 9
	colFlow       = 10
	colIncomeSrc  = 11
)

// ReadTransactions reads all transactions from a dataset reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading dataset CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes transactions to a dataset writer (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// Load reads transactions.csv from path. A missing file is not an error; the
// caller distinguishes an empty dataset from a failed read.
func Load(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	return txns, nil
}

// Save atomically replaces the dataset file.
func Save(path string, txns []model.Transaction) error {
	var buf bytes.Buffer
	if err := WriteTransactions(&buf, txns); err != nil {
		return err
	}
	return persist.ReplaceFile(path, buf.Bytes())
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(txn model.Transaction) []string {
	row := make([]string, numFields)
	row[colDate] = txn.Date.Format(dateFormat)
	row[colMerchant] = txn.Merchant
	row[colKey] = txn.MerchantKey
	row[colRawDesc] = txn.RawDescription
	row[colAmount] = txn.Amount.StringFixed(2)
	row[colAcctType] = string(txn.AccountType)
	row[colBank] = string(txn.SourceBank)
	row[colSourceFile] = txn.SourceFile
	row[colBankCat] = txn.BankCategory
	row[colCategory] = txn.Category
	row[colFlow] = string(txn.FlowType)
	row[colIncomeSrc] = txn.IncomeSource
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return model.Transaction{
		Date:           date,
		Merchant:       record[colMerchant],
		MerchantKey:    record[colKey],
		RawDescription: record[colRawDesc],
		Amount:         amount,
		AccountType:    model.AccountType(record[colAcctType]),
		SourceBank:     model.SourceBank(record[colBank]),
		SourceFile:     record[colSourceFile],
		BankCategory:   record[colBankCat],
		Category:       record[colCategory],
		FlowType:       model.FlowType(record[colFlow]),
		IncomeSource:   record[colIncomeSrc],
	}, nil
}
