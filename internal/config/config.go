package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file created by `spendview init`.
const FileName = "spendview.yaml"

// Config represents the top-level spendview.yaml configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Recurring RecurringConfig `yaml:"recurring"`
	Server    ServerConfig    `yaml:"server"`
	Git       GitConfig       `yaml:"git"`
}

// DataConfig locates the bank exports and the files a run writes.
type DataConfig struct {
	Dir      string `yaml:"dir"`
	Dataset  string `yaml:"dataset"`
	Mappings string `yaml:"mappings"`
	Snapshot string `yaml:"snapshot"`
	RunLog   string `yaml:"run_log"`
	Notes    string `yaml:"notes"`
}

// RecurringConfig tunes recurring-expense detection.
type RecurringConfig struct {
	// ChangedTolerance is the relative amount drift (0.05 = 5%) past which a
	// series is flagged changed instead of active.
	ChangedTolerance float64 `yaml:"changed_tolerance"`
	// MissedFactor is the multiple of the period length without an occurrence
	// past which a series is considered cancelled.
	MissedFactor float64 `yaml:"missed_factor"`
}

// ServerConfig controls the dashboard API server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// GitConfig controls git integration for the data directory.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a spendview.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default(dataDir string) *Config {
	return &Config{
		Data: DataConfig{
			Dir:      dataDir,
			Dataset:  filepath.Join(dataDir, "transactions.csv"),
			Mappings: filepath.Join(dataDir, "mappings.csv"),
			Snapshot: filepath.Join(dataDir, "recurring_snapshot.csv"),
			RunLog:   filepath.Join(dataDir, "run_log.csv"),
			Notes:    filepath.Join(dataDir, "notes.csv"),
		},
		Recurring: RecurringConfig{
			ChangedTolerance: 0.05,
			MissedFactor:     1.5,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8321",
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Spendview",
			AuthorEmail: "spendview@localhost",
		},
	}
}
