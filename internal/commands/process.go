package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendview-dev/spendview/internal/category"
	"github.com/spendview-dev/spendview/internal/config"
	"github.com/spendview-dev/spendview/internal/dataset"
	"github.com/spendview-dev/spendview/internal/gitops"
	"github.com/spendview-dev/spendview/internal/importer"
	"github.com/spendview-dev/spendview/internal/logger"
	"github.com/spendview-dev/spendview/internal/pipeline"
	"github.com/spendview-dev/spendview/internal/recurring"
	"github.com/spendview-dev/spendview/internal/runlog"
)

func newProcessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Process all bank exports into the dashboard dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runProcess(cfg)
		},
	}
}

func runProcess(cfg *config.Config) error {
	log := logger.New()

	store, err := category.LoadStore(cfg.Data.Mappings)
	if err != nil {
		return err
	}
	prior, err := recurring.LoadSnapshot(cfg.Data.Snapshot)
	if err != nil {
		return err
	}

	detector := recurring.NewDetector(cfg.Recurring.ChangedTolerance, cfg.Recurring.MissedFactor)
	p := pipeline.New(importer.DefaultRegistry(), category.NewMapper(store), detector, log, time.Now)

	res, err := p.Run(cfg.Data.Dir, prior)
	if err != nil {
		return err
	}

	if err := dataset.Save(cfg.Data.Dataset, res.Transactions); err != nil {
		return err
	}
	if err := recurring.SaveSnapshot(cfg.Data.Snapshot, res.NextSnapshot); err != nil {
		return err
	}

	entry := runlog.NewEntry(time.Now())
	entry.FilesParsed = res.Stats.FilesParsed
	entry.FilesSkipped = res.Stats.FilesSkipped
	entry.RowsSkipped = res.Stats.RowsSkipped
	entry.Transactions = len(res.Transactions)
	entry.PaymentsFiltered = res.Stats.PaymentsFiltered
	entry.DuplicatesDropped = res.Stats.DuplicatesDropped
	if err := runlog.Append(cfg.Data.RunLog, entry); err != nil {
		return err
	}

	fmt.Printf("Processed %d files: %d transactions (%d payments filtered totaling %s, %d duplicates dropped)\n",
		res.Stats.FilesParsed, len(res.Transactions), res.Stats.PaymentsFiltered,
		res.Stats.PaymentsTotal.StringFixed(2), res.Stats.DuplicatesDropped)
	if len(res.Unmapped) > 0 {
		fmt.Printf("%d merchants have no category mapping; edit %s or run `spendview map`\n",
			len(res.Unmapped), cfg.Data.Mappings)
	}

	// The data dir sits inside the repository init created, so resolve the
	// repo root before committing.
	if cfg.Git.AutoCommit {
		if root, ok := gitops.RepoRoot(cfg.Data.Dir); ok {
			changed, err := gitops.HasChanges(root)
			if err != nil {
				return err
			}
			if changed {
				msg := fmt.Sprintf("process: %d transactions from %d files", len(res.Transactions), res.Stats.FilesParsed)
				hash, err := gitops.CommitAll(root, msg, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
				if err != nil {
					return err
				}
				fmt.Printf("Committed data directory (%s)\n", hash)
			}
		}
	}

	return nil
}
