// Package config loads lockvault settings from LOCKVAULT_* environment
// variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/illarion/lockvault/internal/ledger"
)

const Prefix = "LOCKVAULT"

// Storage backends
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Config holds the CLI configuration
// Example: LOCKVAULT_DATA_DIR=/srv/vaults LOCKVAULT_BACKEND=sqlite
type Config struct {
	DataDir string `envconfig:"DATA_DIR" default:".lockvault"`
	Backend string `envconfig:"BACKEND" default:"bolt"`
	Key     string `envconfig:"KEY" default:"default"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// Keystore password sources, tried before prompting
	Password string `envconfig:"PASSWORD"`
	Keyring  bool   `envconfig:"KEYRING" default:"true"`

	RentLamportsPerByteYear uint64 `envconfig:"RENT_LAMPORTS_PER_BYTE_YEAR" default:"3480"`
	RentExemptionYears      uint64 `envconfig:"RENT_EXEMPTION_YEARS" default:"2"`
}

// New parses the environment and validates the result
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes enumerated settings and rejects unknown values
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(c.Backend)
	switch c.Backend {
	case BackendBolt, BackendSQLite:
	default:
		return fmt.Errorf("unsupported %s_BACKEND: %s", Prefix, c.Backend)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported %s_LOG_FORMAT: %s", Prefix, c.LogFormat)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%s_DATA_DIR must not be empty", Prefix)
	}
	return nil
}

// LedgerPath is the database file inside the data directory
func (c *Config) LedgerPath() string {
	if c.Backend == BackendSQLite {
		return filepath.Join(c.DataDir, "ledger.sqlite")
	}
	return filepath.Join(c.DataDir, "ledger.db")
}

// Rent returns the configured rent parameters
func (c *Config) Rent() ledger.Rent {
	return ledger.Rent{
		LamportsPerByteYear: c.RentLamportsPerByteYear,
		ExemptionYears:      c.RentExemptionYears,
	}
}
