// Package aggregate rolls the transaction set up into the period summaries
// the dashboard consumes.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendview-dev/spendview/internal/model"
)

// CategoryTotal is a positive spend total for one (bucket, category) cell.
// Bucket labels look like "2024-W03", "2024-Q1", or "2024".
type CategoryTotal struct {
	Year     int             `json:"year"`
	Bucket   string          `json:"bucket"`
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// FlowTotal is a monthly magnitude per flow type over checking transactions.
type FlowTotal struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Flow  model.FlowType  `json:"flow"`
	Total decimal.Decimal `json:"total"`
}

// YoYDelta compares the same quarter bucket across two adjacent years present
// in the dataset.
type YoYDelta struct {
	Quarter  string          `json:"quarter"` // "Q1".."Q4"
	Category string          `json:"category"`
	Year     int             `json:"year"`
	Current  decimal.Decimal `json:"current"`
	Prior    decimal.Decimal `json:"prior"`
	Delta    decimal.Decimal `json:"delta"`
}

// Projection extrapolates a category's year-to-date spend to a full-year
// figure: spent / elapsed-day-fraction. Computed for the current year only
// and kept apart from completed-year actuals.
type Projection struct {
	Year      int             `json:"year"`
	Category  string          `json:"category"`
	Spent     decimal.Decimal `json:"spent"`
	Projected decimal.Decimal `json:"projected"`
}

// Summary is the aggregate view over the whole dataset.
type Summary struct {
	Weekly       []CategoryTotal `json:"weekly"`
	Quarterly    []CategoryTotal `json:"quarterly"`
	Annual       []CategoryTotal `json:"annual"`
	FlowMonthly  []FlowTotal     `json:"flow_monthly"`
	YearOverYear []YoYDelta      `json:"year_over_year"`
	Projections  []Projection    `json:"projections"`
}

// Build computes all summaries. now decides which year gets projections; the
// pipeline injects it so tests can pin the clock.
func Build(txns []model.Transaction, now time.Time) Summary {
	weekly := map[cellKey]decimal.Decimal{}
	quarterly := map[cellKey]decimal.Decimal{}
	annual := map[cellKey]decimal.Decimal{}
	flows := map[flowKey]decimal.Decimal{}

	for _, t := range txns {
		if t.AccountType == model.AccountChecking {
			fk := flowKey{year: t.Date.Year(), month: t.Date.Month(), flow: t.FlowType}
			flows[fk] = flows[fk].Add(t.Amount.Abs())
		}
		if !isSpending(t) {
			continue
		}
		spend := t.Amount.Neg() // outflows are negative; totals read as positive spend

		y, w := t.Date.ISOWeek()
		wk := cellKey{year: y, bucket: fmt.Sprintf("%04d-W%02d", y, w), category: t.Category}
		weekly[wk] = weekly[wk].Add(spend)

		year := t.Date.Year()
		q := (int(t.Date.Month())-1)/3 + 1
		qk := cellKey{year: year, bucket: fmt.Sprintf("%04d-Q%d", year, q), category: t.Category}
		quarterly[qk] = quarterly[qk].Add(spend)

		ak := cellKey{year: year, bucket: fmt.Sprintf("%04d", year), category: t.Category}
		annual[ak] = annual[ak].Add(spend)
	}

	s := Summary{
		Weekly:      cellTotals(weekly),
		Quarterly:   cellTotals(quarterly),
		Annual:      cellTotals(annual),
		FlowMonthly: flowTotals(flows),
	}
	s.YearOverYear = yearOverYear(quarterly)
	s.Projections = projections(annual, now)
	return s
}

type cellKey struct {
	year     int
	bucket   string
	category string
}

type flowKey struct {
	year  int
	month time.Month
	flow  model.FlowType
}

// isSpending reports whether a transaction counts toward category spend:
// credit purchases plus checking expenses. Returns, which arrive as positive
// credit-card rows, stay in and reduce the total like the original tool.
func isSpending(t model.Transaction) bool {
	if t.IsPayment {
		return false
	}
	if t.AccountType == model.AccountCredit {
		return true
	}
	return t.FlowType == model.FlowExpense
}

func cellTotals(cells map[cellKey]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(cells))
	for k, total := range cells {
		out = append(out, CategoryTotal{Year: k.year, Bucket: k.bucket, Category: k.category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bucket != out[j].Bucket {
			return out[i].Bucket < out[j].Bucket
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func flowTotals(flows map[flowKey]decimal.Decimal) []FlowTotal {
	out := make([]FlowTotal, 0, len(flows))
	for k, total := range flows {
		out = append(out, FlowTotal{Year: k.year, Month: k.month, Flow: k.flow, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Flow < b.Flow
	})
	return out
}

// yearOverYear aligns each (quarter, category) cell with the same cell one
// year earlier; a delta appears whenever either side has data.
func yearOverYear(quarterly map[cellKey]decimal.Decimal) []YoYDelta {
	type qcell struct {
		quarter  string
		category string
		year     int
	}
	byCell := map[qcell]decimal.Decimal{}
	years := map[int]bool{}
	for k, total := range quarterly {
		q := k.bucket[len(k.bucket)-2:] // "Q1".."Q4"
		byCell[qcell{quarter: q, category: k.category, year: k.year}] = total
		years[k.year] = true
	}

	var out []YoYDelta
	for cell, current := range byCell {
		if !years[cell.year-1] {
			continue
		}
		prior := byCell[qcell{quarter: cell.quarter, category: cell.category, year: cell.year - 1}]
		out = append(out, YoYDelta{
			Quarter:  cell.quarter,
			Category: cell.category,
			Year:     cell.year,
			Current:  current,
			Prior:    prior,
			Delta:    current.Sub(prior),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Quarter != b.Quarter {
			return a.Quarter < b.Quarter
		}
		return a.Category < b.Category
	})
	return out
}

func projections(annual map[cellKey]decimal.Decimal, now time.Time) []Projection {
	year := now.Year()
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	daysInYear := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Sub(yearStart).Hours() / 24
	elapsed := now.Sub(yearStart).Hours()/24 + 1
	if elapsed < 1 {
		elapsed = 1
	}
	fraction := decimal.NewFromFloat(elapsed / daysInYear)

	var out []Projection
	for k, spent := range annual {
		if k.year != year {
			continue
		}
		out = append(out, Projection{
			Year:      year,
			Category:  k.category,
			Spent:     spent,
			Projected: spent.Div(fraction).Round(2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
