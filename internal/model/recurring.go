package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is the inferred recurrence interval of a merchant's series.
type Period string

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodAnnual    Period = "annual"
	PeriodIrregular Period = "irregular"
)

// Days returns the nominal period length in days, or 0 for irregular.
func (p Period) Days() int {
	switch p {
	case PeriodWeekly:
		return 7
	case PeriodMonthly:
		return 30
	case PeriodAnnual:
		return 365
	default:
		return 0
	}
}

// PerYear returns how many times the period repeats in a year, or 0 for irregular.
func (p Period) PerYear() int {
	switch p {
	case PeriodWeekly:
		return 52
	case PeriodMonthly:
		return 12
	case PeriodAnnual:
		return 1
	default:
		return 0
	}
}

// SeriesStatus is the state of a recurring series relative to the prior run.
type SeriesStatus string

const (
	SeriesActive    SeriesStatus = "active"
	SeriesNew       SeriesStatus = "new"
	SeriesCancelled SeriesStatus = "cancelled"
	SeriesChanged   SeriesStatus = "changed"
)

// RecurringSeries groups a merchant's transactions with derived periodicity.
// Recomputed from the full transaction set each run; only the snapshot fields
// (key, last seen, period, expected amount) persist between runs.
type RecurringSeries struct {
	MerchantKey     string          `json:"merchant_key"`
	Merchant        string          `json:"merchant"`
	Category        string          `json:"category,omitempty"`
	Period          Period          `json:"period"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount"` // median of absolute observed amounts
	AnnualProjected decimal.Decimal `json:"annual_projected"`
	Occurrences     int             `json:"occurrences"`
	FirstSeen       time.Time       `json:"first_seen"`
	LastSeen        time.Time       `json:"last_seen"`
	Status          SeriesStatus    `json:"status,omitempty"`
	PriorAmount     decimal.Decimal `json:"prior_amount"`
}
