package commands

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendview-dev/spendview/internal/aggregate"
	"github.com/spendview-dev/spendview/internal/category"
	"github.com/spendview-dev/spendview/internal/config"
	"github.com/spendview-dev/spendview/internal/dataset"
	"github.com/spendview-dev/spendview/internal/logger"
	"github.com/spendview-dev/spendview/internal/notes"
	"github.com/spendview-dev/spendview/internal/pipeline"
	"github.com/spendview-dev/spendview/internal/recurring"
	"github.com/spendview-dev/spendview/internal/server"
)

func newServeCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over the processed dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(cfg *config.Config) error {
	log := logger.New()

	txns, err := dataset.Load(cfg.Data.Dataset)
	if err != nil {
		return err
	}
	store, err := category.LoadStore(cfg.Data.Mappings)
	if err != nil {
		return err
	}
	snap, err := recurring.LoadSnapshot(cfg.Data.Snapshot)
	if err != nil {
		return err
	}
	notesStore, err := notes.LoadStore(cfg.Data.Notes)
	if err != nil {
		return err
	}

	// Series and summary are derived, not persisted, so rebuild them from the
	// dataset the last process run wrote.
	var refDate time.Time
	for _, t := range txns {
		if t.Date.After(refDate) {
			refDate = t.Date
		}
	}
	detector := recurring.NewDetector(cfg.Recurring.ChangedTolerance, cfg.Recurring.MissedFactor)
	series := detector.Detect(pipeline.RecurringInput(txns), snap, refDate)
	summary := aggregate.Build(txns, time.Now())

	srv := server.New(category.NewMapper(store), notesStore, txns, series, summary, log)

	log.Info().Str("listen", cfg.Server.Listen).Int("transactions", len(txns)).Msg("serving dashboard API")
	return http.ListenAndServe(cfg.Server.Listen, srv.Router())
}
