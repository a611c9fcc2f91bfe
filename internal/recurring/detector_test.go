package recurring

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendview-dev/spendview/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seriesTxn(key, date, amount string) model.Transaction {
	return model.Transaction{
		MerchantKey: key,
		Merchant:    key,
		Date:        day(date),
		Amount:      decimal.RequireFromString(amount),
	}
}

func findSeries(t *testing.T, series []model.RecurringSeries, key string) model.RecurringSeries {
	t.Helper()
	for _, s := range series {
		if s.MerchantKey == key {
			return s
		}
	}
	t.Fatalf("series %q not found", key)
	return model.RecurringSeries{}
}

func TestDetect_MonthlySeries(t *testing.T) {
	txns := []model.Transaction{
		seriesTxn("netflix", "2024-01-01", "-15.99"),
		seriesTxn("netflix", "2024-02-01", "-15.99"),
		seriesTxn("netflix", "2024-03-03", "-15.99"),
	}
	prior := Snapshot{
		"netflix": {MerchantKey: "netflix", LastSeen: day("2024-02-01"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("15.99")},
	}

	series := Detect(txns, prior, day("2024-03-03"))
	require.Len(t, series, 1)

	s := series[0]
	assert.Equal(t, model.PeriodMonthly, s.Period)
	assert.Equal(t, "15.99", s.ExpectedAmount.StringFixed(2))
	assert.Equal(t, model.SeriesActive, s.Status)
	assert.Equal(t, "191.88", s.AnnualProjected.StringFixed(2))
}

func TestDetect_CancelledAfterMissedWindow(t *testing.T) {
	txns := []model.Transaction{
		seriesTxn("netflix", "2024-01-01", "-15.99"),
		seriesTxn("netflix", "2024-02-01", "-15.99"),
		seriesTxn("netflix", "2024-03-03", "-15.99"),
	}
	prior := Snapshot{
		"netflix": {MerchantKey: "netflix", LastSeen: day("2024-03-03"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("15.99")},
	}

	// 1.5 x 30 days past 2024-03-03 is 2024-04-17; one day beyond that the
	// subscription counts as cancelled.
	series := Detect(txns, prior, day("2024-04-18"))
	s := findSeries(t, series, "netflix")
	assert.Equal(t, model.SeriesCancelled, s.Status)

	// A day inside the window it is still active.
	series = Detect(txns, prior, day("2024-04-16"))
	s = findSeries(t, series, "netflix")
	assert.Equal(t, model.SeriesActive, s.Status)
}

func TestDetect_NewAndChanged(t *testing.T) {
	txns := []model.Transaction{
		seriesTxn("spotify", "2024-01-09", "-11.99"),
		seriesTxn("spotify", "2024-02-09", "-12.99"),
		seriesTxn("hulu", "2024-01-05", "-7.99"),
		seriesTxn("hulu", "2024-02-05", "-7.99"),
	}
	prior := Snapshot{
		"spotify": {MerchantKey: "spotify", LastSeen: day("2023-12-09"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("10.99")},
	}

	series := Detect(txns, prior, day("2024-02-09"))

	spotify := findSeries(t, series, "spotify")
	assert.Equal(t, model.SeriesChanged, spotify.Status)
	assert.Equal(t, "10.99", spotify.PriorAmount.StringFixed(2))
	// median of 11.99, 12.99 -> 12.49, >5% above 10.99
	assert.Equal(t, "12.49", spotify.ExpectedAmount.StringFixed(2))

	hulu := findSeries(t, series, "hulu")
	assert.Equal(t, model.SeriesNew, hulu.Status)
}

func TestDetect_SmallDriftStaysActive(t *testing.T) {
	txns := []model.Transaction{
		seriesTxn("gym", "2024-01-03", "-45.00"),
		seriesTxn("gym", "2024-02-03", "-45.90"),
	}
	prior := Snapshot{
		"gym": {MerchantKey: "gym", LastSeen: day("2024-01-03"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("45.00")},
	}

	series := Detect(txns, prior, day("2024-02-03"))
	// median 45.45 is 1% above prior, inside the 5% tolerance
	assert.Equal(t, model.SeriesActive, findSeries(t, series, "gym").Status)
}

func TestDetector_CustomThresholds(t *testing.T) {
	txns := []model.Transaction{
		seriesTxn("netflix", "2024-01-01", "-16.50"),
		seriesTxn("netflix", "2024-02-01", "-16.50"),
		seriesTxn("netflix", "2024-03-03", "-16.50"),
	}
	prior := Snapshot{
		"netflix": {MerchantKey: "netflix", LastSeen: day("2024-02-01"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("15.99")},
	}

	// 16.50 is 3.2% above 15.99: active under the default tolerance, changed
	// under a tighter 2% one.
	loose := Detect(txns, prior, day("2024-03-03"))
	assert.Equal(t, model.SeriesActive, findSeries(t, loose, "netflix").Status)

	strict := NewDetector(0.02, 0).Detect(txns, prior, day("2024-03-03"))
	assert.Equal(t, model.SeriesChanged, findSeries(t, strict, "netflix").Status)

	// A larger missed factor keeps a 50-day-quiet monthly series alive.
	quiet := Snapshot{
		"gym": {MerchantKey: "gym", LastSeen: day("2024-01-01"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("45.00")},
	}
	patient := NewDetector(0, 2.0).Detect(nil, quiet, day("2024-02-20"))
	assert.Empty(t, patient)
}

func TestDetect_PeriodBuckets(t *testing.T) {
	weekly := []model.Transaction{
		seriesTxn("cleaner", "2024-01-01", "-80.00"),
		seriesTxn("cleaner", "2024-01-08", "-80.00"),
		seriesTxn("cleaner", "2024-01-15", "-80.00"),
	}
	annual := []model.Transaction{
		seriesTxn("costcofee", "2023-02-01", "-120.00"),
		seriesTxn("costcofee", "2024-02-01", "-120.00"),
	}
	irregular := []model.Transaction{
		seriesTxn("hardware", "2024-01-01", "-12.00"),
		seriesTxn("hardware", "2024-01-03", "-230.00"),
		seriesTxn("hardware", "2024-04-20", "-8.50"),
	}

	all := append(append(weekly, annual...), irregular...)
	series := Detect(all, Snapshot{}, day("2024-04-20"))

	assert.Equal(t, model.PeriodWeekly, findSeries(t, series, "cleaner").Period)
	assert.Equal(t, model.PeriodAnnual, findSeries(t, series, "costcofee").Period)

	hw := findSeries(t, series, "hardware")
	assert.Equal(t, model.PeriodIrregular, hw.Period)
	// Irregular series are reported but carry no lifecycle status.
	assert.Empty(t, string(hw.Status))
}

func TestDetect_SingleOccurrenceIgnored(t *testing.T) {
	txns := []model.Transaction{seriesTxn("oneoff", "2024-01-01", "-99.00")}
	assert.Empty(t, Detect(txns, Snapshot{}, day("2024-02-01")))
}

func TestDetect_VanishedMerchantFromSnapshot(t *testing.T) {
	prior := Snapshot{
		"boxsub": {MerchantKey: "boxsub", Merchant: "Box Sub", LastSeen: day("2024-01-10"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("25.00")},
	}

	series := Detect(nil, prior, day("2024-04-01"))
	require.Len(t, series, 1)
	assert.Equal(t, model.SeriesCancelled, series[0].Status)
	assert.Equal(t, "25.00", series[0].ExpectedAmount.StringFixed(2))
	// The snapshot's display name survives; no lookup key leaks out.
	assert.Equal(t, "Box Sub", series[0].Merchant)

	// Inside the window nothing is reported yet.
	assert.Empty(t, Detect(nil, prior, day("2024-02-01")))
}

func TestNextSnapshot_ExcludesIrregular(t *testing.T) {
	series := []model.RecurringSeries{
		{MerchantKey: "netflix", Merchant: "Netflix", Period: model.PeriodMonthly, LastSeen: day("2024-03-03"), ExpectedAmount: decimal.RequireFromString("15.99")},
		{MerchantKey: "hardware", Merchant: "Hardware", Period: model.PeriodIrregular, LastSeen: day("2024-04-20"), ExpectedAmount: decimal.RequireFromString("12.00")},
	}
	snap := NextSnapshot(series)
	require.Len(t, snap, 1)
	require.Contains(t, snap, "netflix")
	assert.Equal(t, "Netflix", snap["netflix"].Merchant)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recurring_snapshot.csv")
	snap := Snapshot{
		"netflix": {MerchantKey: "netflix", Merchant: "Netflix", LastSeen: day("2024-03-03"), Period: model.PeriodMonthly, ExpectedAmount: decimal.RequireFromString("15.99")},
		"cleaner": {MerchantKey: "cleaner", Merchant: "Spotless Home Cleaning", LastSeen: day("2024-01-15"), Period: model.PeriodWeekly, ExpectedAmount: decimal.RequireFromString("80.00")},
	}
	require.NoError(t, SaveSnapshot(path, snap))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.PeriodMonthly, got["netflix"].Period)
	assert.Equal(t, "Netflix", got["netflix"].Merchant)
	assert.Equal(t, "15.99", got["netflix"].ExpectedAmount.StringFixed(2))
	assert.Equal(t, "Spotless Home Cleaning", got["cleaner"].Merchant)
	assert.True(t, got["cleaner"].LastSeen.Equal(day("2024-01-15")))
}

func TestLoadSnapshot_MissingFileIsEmpty(t *testing.T) {
	snap, err := LoadSnapshot(filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)
	assert.Empty(t, snap)
}
