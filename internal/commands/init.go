package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spendview-dev/spendview/internal/config"
	"github.com/spendview-dev/spendview/internal/gitops"
)

func newInitCommand() *cobra.Command {
	var git bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a spendview data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, git)
		},
	}

	cmd.Flags().BoolVar(&git, "git", false, "initialize a git repository and enable auto-commit")

	return cmd
}

func runInit(dir string, git bool) error {
	// Create directory structure: credit card exports at the top of exports/,
	// checking exports under exports/Checking/.
	dirs := []string{
		"exports",
		filepath.Join("exports", "Checking"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write spendview.yaml.
	cfg := config.Default(filepath.Join(dir, "exports"))
	cfg.Git.AutoCommit = git
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write exports/Checking/.gitkeep so the empty layout survives a clone.
	if err := os.WriteFile(filepath.Join(dir, "exports", "Checking", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if git {
		if err := gitops.Init(dir); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
		hash, err := gitops.CommitAll(dir, "init: spendview data directory", cfg.Git.AuthorName, cfg.Git.AuthorEmail)
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		fmt.Printf("Initialized spendview data directory at %s (%s)\n", dir, hash)
		return nil
	}

	fmt.Printf("Initialized spendview data directory at %s\n", dir)
	return nil
}
