// Package pipeline runs the full normalization and classification pass:
// load -> normalize -> payment filter/dedupe -> categorize + classify ->
// recurring detection + aggregation.
package pipeline

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spendview-dev/spendview/internal/aggregate"
	"github.com/spendview-dev/spendview/internal/cashflow"
	"github.com/spendview-dev/spendview/internal/category"
	"github.com/spendview-dev/spendview/internal/importer"
	"github.com/spendview-dev/spendview/internal/model"
	"github.com/spendview-dev/spendview/internal/normalize"
	"github.com/spendview-dev/spendview/internal/recurring"
)

// ErrNoInput means the data directory held no readable transactions at all.
// The only condition treated as fatal.
var ErrNoInput = errors.New("no readable transactions found")

// Stats counts what a run saw and skipped.
type Stats struct {
	FilesParsed       int
	FilesSkipped      int
	RowsSkipped       int
	PaymentsFiltered  int
	DuplicatesDropped int
	PaymentsTotal     decimal.Decimal
}

// Result is the output dataset handed to persistence and the dashboard.
type Result struct {
	Transactions []model.Transaction
	Series       []model.RecurringSeries
	Summary      aggregate.Summary
	NextSnapshot recurring.Snapshot
	Unmapped     []string
	Stats        Stats
}

// Pipeline wires the run-to-completion batch pass. Single-threaded by
// design: one pass over the full dataset, no concurrent writers.
type Pipeline struct {
	registry *importer.Registry
	mapper   *category.Mapper
	detector *recurring.Detector
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a Pipeline. A nil detector uses the default thresholds.
func New(registry *importer.Registry, mapper *category.Mapper, detector *recurring.Detector, log zerolog.Logger, now func() time.Time) *Pipeline {
	if detector == nil {
		detector = recurring.NewDetector(0, 0)
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{registry: registry, mapper: mapper, detector: detector, log: log, now: now}
}

// Run processes every export under dataDir against the prior recurring
// snapshot. The caller persists Result.NextSnapshot and the dataset on
// success; persistence stays at the process boundary.
func (p *Pipeline) Run(dataDir string, prior recurring.Snapshot) (Result, error) {
	var res Result

	files, unknown, err := importer.Scan(dataDir)
	if err != nil {
		return res, err
	}
	for _, uerr := range unknown {
		res.Stats.FilesSkipped++
		p.log.Warn().Err(uerr).Msg("skipping file")
	}

	var txns []model.Transaction
	for _, fi := range files {
		records, rowErrs, err := importer.LoadFile(p.registry, fi)
		if err != nil {
			res.Stats.FilesSkipped++
			p.log.Warn().Err(err).Str("file", fi.Name).Msg("skipping file")
			continue
		}
		for _, re := range rowErrs {
			res.Stats.RowsSkipped++
			p.log.Warn().Err(re.Err).Str("file", fi.Name).Int("row", re.Row).Msg("skipping row")
		}
		res.Stats.FilesParsed++
		for _, rec := range records {
			txns = append(txns, fromRaw(rec))
		}
	}

	if len(txns) == 0 {
		return res, ErrNoInput
	}

	// Payment filter: bill payments are dropped before dedupe so the same
	// payment seen from both sides never pairs up as a "duplicate".
	filtered := txns[:0]
	for _, t := range txns {
		if t.IsPayment {
			res.Stats.PaymentsFiltered++
			res.Stats.PaymentsTotal = res.Stats.PaymentsTotal.Add(t.Amount.Abs())
			continue
		}
		filtered = append(filtered, t)
	}

	kept, dropped := Dedupe(filtered)
	res.Stats.DuplicatesDropped = dropped

	seedKeys := make([]string, 0, len(kept))
	for i := range kept {
		t := &kept[i]
		t.Category = p.mapper.Resolve(t.MerchantKey, t.BankCategory)
		seedKeys = append(seedKeys, t.MerchantKey)
		if t.AccountType == model.AccountChecking {
			t.FlowType, t.IncomeSource = cashflow.Classify(*t)
		}
	}
	if err := p.mapper.Seed(seedKeys); err != nil {
		return res, err
	}
	res.Unmapped = p.mapper.Unmapped()

	sortTransactions(kept)
	res.Transactions = kept

	refDate := kept[len(kept)-1].Date
	res.Series = p.detector.Detect(RecurringInput(kept), prior, refDate)
	res.NextSnapshot = recurring.NextSnapshot(res.Series)

	res.Summary = aggregate.Build(kept, p.now())

	p.log.Info().
		Int("files", res.Stats.FilesParsed).
		Int("transactions", len(kept)).
		Int("payments_filtered", res.Stats.PaymentsFiltered).
		Int("duplicates_dropped", dropped).
		Msg("pipeline run complete")
	return res, nil
}

// fromRaw is the normalization step: unified schema, cleaned merchant,
// lookup key, payment flag.
func fromRaw(rec model.RawRecord) model.Transaction {
	merchant := normalize.CleanMerchant(rec.Description)
	return model.Transaction{
		Date:           rec.Date,
		Merchant:       merchant,
		MerchantKey:    normalize.Key(merchant),
		RawDescription: rec.Description,
		Amount:         rec.Amount,
		AccountType:    rec.Account,
		SourceBank:     rec.Bank,
		SourceFile:     rec.SourceFile,
		BankCategory:   rec.BankCategory,
		Category:       category.Default,
		FlowType:       model.FlowNone,
		IsPayment:      IsPayment(rec.Description),
	}
}

// RecurringInput limits series detection to money going out: credit
// purchases and checking expenses. Income and transfers are not
// subscriptions.
func RecurringInput(txns []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.AccountType == model.AccountCredit && t.Amount.IsNegative() {
			out = append(out, t)
			continue
		}
		if t.FlowType == model.FlowExpense {
			out = append(out, t)
		}
	}
	return out
}
