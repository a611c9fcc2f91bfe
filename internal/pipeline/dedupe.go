package pipeline

import (
	"sort"
	"strings"

	"github.com/spendview-dev/spendview/internal/model"
)

// paymentTerms mark credit-card bill payments. These rows appear on both
// sides (checking outflow and card-statement credit) and would double-count
// money, so they are excluded from the dataset entirely.
var paymentTerms = []string{
	"PAYMENT THANK YOU",
	"MOBILE PAYMENT",
	"CREDIT CARD PYMT",
	"AUTOPAY",
	"PAYMENT TO CHASE CARD",
	"PAYMENT TO CITI CARD",
}

// IsPayment reports whether a raw description is a credit-card bill payment.
func IsPayment(description string) bool {
	desc := strings.ToUpper(description)
	for _, term := range paymentTerms {
		if strings.Contains(desc, term) {
			return true
		}
	}
	return false
}

type dupKey struct {
	date        string
	amount      string
	merchantKey string
}

// Dedupe drops cross-source duplicates: rows sharing (date, amount, merchant
// key) that come from different source files. Only the lexicographically
// first file's rows survive, so repeat runs pick the same winner. Identical
// rows within one file are real (two same-day grocery runs) and all survive.
func Dedupe(txns []model.Transaction) (kept []model.Transaction, dropped int) {
	winner := make(map[dupKey]string)
	for _, t := range txns {
		k := key(t)
		if file, ok := winner[k]; !ok || t.SourceFile < file {
			winner[k] = t.SourceFile
		}
	}

	kept = make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if winner[key(t)] != t.SourceFile {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	return kept, dropped
}

func key(t model.Transaction) dupKey {
	return dupKey{
		date:        t.Date.Format("2006-01-02"),
		amount:      t.Amount.StringFixed(2),
		merchantKey: t.MerchantKey,
	}
}

// sortTransactions fixes the dataset order so repeat runs over unchanged
// input produce byte-identical output.
func sortTransactions(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.MerchantKey != b.MerchantKey {
			return a.MerchantKey < b.MerchantKey
		}
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c < 0
		}
		return a.SourceFile < b.SourceFile
	})
}
