package recurring

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendview-dev/spendview/internal/model"
)

// Default detection thresholds: a series drifting more than 5% in amount is
// flagged changed; one silent for 1.5x its period counts as cancelled.
const (
	DefaultChangedTolerance = 0.05
	DefaultMissedFactor     = 1.5
)

// Detector holds the detection thresholds, usually from config.
type Detector struct {
	changedTolerance decimal.Decimal
	missedFactor     float64
}

// NewDetector builds a Detector. Zero or negative thresholds fall back to the
// defaults.
func NewDetector(changedTolerance, missedFactor float64) *Detector {
	if changedTolerance <= 0 {
		changedTolerance = DefaultChangedTolerance
	}
	if missedFactor <= 0 {
		missedFactor = DefaultMissedFactor
	}
	return &Detector{
		changedTolerance: decimal.NewFromFloat(changedTolerance),
		missedFactor:     missedFactor,
	}
}

// Detect runs detection with the default thresholds.
func Detect(txns []model.Transaction, prior Snapshot, refDate time.Time) []model.RecurringSeries {
	return NewDetector(0, 0).Detect(txns, prior, refDate)
}

// Detect groups transactions by merchant key, infers each series' period and
// expected amount, and derives its status against the prior snapshot. refDate
// anchors cancellation checks; the pipeline passes the newest transaction
// date so repeat runs over unchanged input stay deterministic.
//
// Irregular series are reported for the raw log but excluded from status
// tracking and from NextSnapshot.
func (d *Detector) Detect(txns []model.Transaction, prior Snapshot, refDate time.Time) []model.RecurringSeries {
	groups := make(map[string][]model.Transaction)
	for _, t := range txns {
		if t.MerchantKey == "" {
			continue
		}
		groups[t.MerchantKey] = append(groups[t.MerchantKey], t)
	}

	var series []model.RecurringSeries
	for key, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

		s := model.RecurringSeries{
			MerchantKey: key,
			Merchant:    group[len(group)-1].Merchant,
			Category:    group[len(group)-1].Category,
			Period:      periodOf(group),
			Occurrences: len(group),
			FirstSeen:   group[0].Date,
			LastSeen:    group[len(group)-1].Date,
		}

		amounts := make([]decimal.Decimal, len(group))
		for i, t := range group {
			amounts[i] = t.Amount.Abs()
		}
		s.ExpectedAmount = medianDecimal(amounts)
		if n := s.Period.PerYear(); n > 0 {
			s.AnnualProjected = s.ExpectedAmount.Mul(decimal.NewFromInt(int64(n)))
		}

		if s.Period != model.PeriodIrregular {
			s.Status, s.PriorAmount = d.status(s, prior, refDate)
		}
		series = append(series, s)
	}

	// Merchants that vanished from the dataset entirely but are still in the
	// prior snapshot surface as cancelled once their window lapses.
	for key, entry := range prior {
		if _, present := groups[key]; present {
			continue
		}
		if !d.missed(entry.LastSeen, entry.Period, refDate) {
			continue
		}
		merchant := entry.Merchant
		if merchant == "" {
			merchant = key
		}
		series = append(series, model.RecurringSeries{
			MerchantKey:    key,
			Merchant:       merchant,
			Period:         entry.Period,
			ExpectedAmount: entry.ExpectedAmount,
			LastSeen:       entry.LastSeen,
			Status:         model.SeriesCancelled,
			PriorAmount:    entry.ExpectedAmount,
		})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].MerchantKey < series[j].MerchantKey })
	return series
}

// NextSnapshot builds the snapshot to persist at the end of a run: every
// periodic series, cancelled ones included so later runs keep reporting them.
func NextSnapshot(series []model.RecurringSeries) Snapshot {
	snap := Snapshot{}
	for _, s := range series {
		if s.Period == model.PeriodIrregular {
			continue
		}
		snap[s.MerchantKey] = SnapshotEntry{
			MerchantKey:    s.MerchantKey,
			Merchant:       s.Merchant,
			LastSeen:       s.LastSeen,
			Period:         s.Period,
			ExpectedAmount: s.ExpectedAmount,
		}
	}
	return snap
}

func (d *Detector) status(s model.RecurringSeries, prior Snapshot, refDate time.Time) (model.SeriesStatus, decimal.Decimal) {
	entry, known := prior[s.MerchantKey]
	if !known {
		return model.SeriesNew, decimal.Decimal{}
	}

	lastSeen := s.LastSeen
	if entry.LastSeen.After(lastSeen) {
		lastSeen = entry.LastSeen
	}
	if d.missed(lastSeen, s.Period, refDate) {
		return model.SeriesCancelled, entry.ExpectedAmount
	}

	if !entry.ExpectedAmount.IsZero() {
		delta := s.ExpectedAmount.Sub(entry.ExpectedAmount).Abs().Div(entry.ExpectedAmount)
		if delta.GreaterThan(d.changedTolerance) {
			return model.SeriesChanged, entry.ExpectedAmount
		}
	}
	return model.SeriesActive, decimal.Decimal{}
}

func (d *Detector) missed(lastSeen time.Time, period model.Period, refDate time.Time) bool {
	days := period.Days()
	if days == 0 {
		return false
	}
	window := time.Duration(float64(days)*d.missedFactor*24) * time.Hour
	return refDate.Sub(lastSeen) > window
}

// periodOf classifies the median inter-transaction gap:
// weekly [5,9] days, monthly [25,35], annual [330,400], otherwise irregular.
func periodOf(group []model.Transaction) model.Period {
	gaps := make([]float64, 0, len(group)-1)
	for i := 1; i < len(group); i++ {
		gaps = append(gaps, group[i].Date.Sub(group[i-1].Date).Hours()/24)
	}
	m := medianFloat(gaps)
	switch {
	case m >= 5 && m <= 9:
		return model.PeriodWeekly
	case m >= 25 && m <= 35:
		return model.PeriodMonthly
	case m >= 330 && m <= 400:
		return model.PeriodAnnual
	default:
		return model.PeriodIrregular
	}
}

func medianFloat(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func medianDecimal(vals []decimal.Decimal) decimal.Decimal {
	sorted := append([]decimal.Decimal(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
