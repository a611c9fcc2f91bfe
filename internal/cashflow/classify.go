// Package cashflow labels checking transactions as income, expense, or
// transfer.
package cashflow

import (
	"strings"

	"github.com/spendview-dev/spendview/internal/model"
)

// Keyword lists are matched against the uppercased raw description. The lists
// overlap: a positive "ONLINE TRANSFER ACH CREDIT" from a linked savings
// account matches both. Transfer keywords win such ties, so rule 1 requires
// no transfer keyword to be present.
var incomeKeywords = []string{"DIRECT DEP", "PAYROLL", "ACH CREDIT", "DEPOSIT"}

var transferKeywords = []string{
	"TRANSFER",
	"PAYMENT TO CHASE CARD",
	"PAYMENT TO CITI CARD",
	"ONLINE TRANSFER",
	"SAVE AS YOU GO",
	"ZELLE",
}

// incomeSources labels income rows by the keyword that matched.
var incomeSources = []struct {
	keyword string
	source  string
}{
	{"DIRECT DEP", "Payroll"},
	{"PAYROLL", "Payroll"},
	{"ACH CREDIT", "ACH Credit"},
	{"DEPOSIT", "Deposit"},
}

// Classify applies the priority rules to a checking transaction:
//  1. positive amount matching an income keyword (and no transfer keyword) -> income
//  2. description matching a transfer keyword -> transfer
//  3. negative amount -> expense
//  4. positive, unclassified -> income
func Classify(txn model.Transaction) (model.FlowType, string) {
	desc := strings.ToUpper(txn.RawDescription)

	isTransfer := matchesAny(desc, transferKeywords)
	if txn.Amount.IsPositive() && !isTransfer && matchesAny(desc, incomeKeywords) {
		return model.FlowIncome, incomeSource(desc)
	}
	if isTransfer {
		return model.FlowTransfer, ""
	}
	if txn.Amount.IsNegative() {
		return model.FlowExpense, ""
	}
	return model.FlowIncome, incomeSource(desc)
}

func matchesAny(desc string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

func incomeSource(desc string) string {
	for _, is := range incomeSources {
		if strings.Contains(desc, is.keyword) {
			return is.source
		}
	}
	return ""
}
