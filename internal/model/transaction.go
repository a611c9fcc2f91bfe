package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies the account a transaction was exported from.
type AccountType string

const (
	AccountCredit   AccountType = "credit"
	AccountChecking AccountType = "checking"
)

// SourceBank identifies which bank produced a CSV export.
type SourceBank string

const (
	BankChase SourceBank = "Chase"
	BankCiti  SourceBank = "Citi"
)

// FlowType classifies a checking transaction's cash-flow direction.
// Credit-card transactions always carry FlowNone.
type FlowType string

const (
	FlowIncome   FlowType = "income"
	FlowExpense  FlowType = "expense"
	FlowTransfer FlowType = "transfer"
	FlowNone     FlowType = "none"
)

// RawRecord is a bank CSV row before normalization. Created per row by a
// parser, consumed by the normalizer, never persisted.
type RawRecord struct {
	Date         time.Time
	Description  string
	Amount       decimal.Decimal // already sign-normalized: negative = money out
	BankCategory string          // the bank's own category column, if the export has one
	SourceFile   string
	Bank         SourceBank
	Account      AccountType
}

// Transaction is the unified ledger entity.
type Transaction struct {
	Date           time.Time       `json:"date"`
	Merchant       string          `json:"merchant"`     // cleaned display string
	MerchantKey    string          `json:"merchant_key"` // lowercase alphanumeric lookup key
	RawDescription string          `json:"raw_description"`
	Amount         decimal.Decimal `json:"amount"` // negative = money out
	AccountType    AccountType     `json:"account_type"`
	SourceBank     SourceBank      `json:"source_bank"`
	SourceFile     string          `json:"source_file"`
	BankCategory   string          `json:"bank_category,omitempty"`
	Category       string          `json:"category"`
	FlowType       FlowType        `json:"flow_type"`
	IncomeSource   string          `json:"income_source,omitempty"` // "Payroll", "ACH Credit", "Deposit" for income rows
	IsPayment      bool            `json:"-"`                       // credit-card bill payment, excluded from the dataset
}
