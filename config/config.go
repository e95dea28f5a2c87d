// Package config loads engine configuration from a JSON or YAML file,
// selected by extension, with broker credentials supplied through the
// environment rather than the config file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/stratengine/errs"
	"github.com/rustyeddy/stratengine/safety"
)

// Config is the full engine configuration.
type Config struct {
	Paths  PathsConfig   `json:"paths" yaml:"paths"`
	Engine EngineConfig  `json:"engine" yaml:"engine"`
	Safety safety.Limits `json:"safety" yaml:"safety"`
	Guard  GuardConfig   `json:"guard" yaml:"guard"`
}

// PathsConfig locates every file the engine owns. Relative entries
// resolve under DataDir.
type PathsConfig struct {
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	Strategies string `json:"strategies" yaml:"strategies"`
	LedgerDB   string `json:"ledger_db" yaml:"ledger_db"`
	AuditDB    string `json:"audit_db" yaml:"audit_db"`
	Orders     string `json:"orders" yaml:"orders"`
	LockFile   string `json:"lock_file" yaml:"lock_file"`
	Backtests  string `json:"backtests" yaml:"backtests"`
}

// EngineConfig tunes the live poll loop.
type EngineConfig struct {
	PollInterval string `json:"poll_interval" yaml:"poll_interval"`
	MetricsAddr  string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// GuardConfig bounds backtest admission.
type GuardConfig struct {
	BacktestsPerWindow int    `json:"backtests_per_window" yaml:"backtests_per_window"`
	Window             string `json:"window" yaml:"window"`
	BacktestTimeout    string `json:"backtest_timeout" yaml:"backtest_timeout"`
}

// Credentials are broker secrets. They never appear in config files;
// Load pulls them from the environment, seeded from an optional .env.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Default returns a runnable configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:    dir,
			Strategies: "strategies.json",
			LedgerDB:   "ledger.db",
			AuditDB:    "audit.db",
			Orders:     "orders.json",
			LockFile:   "engine.lock",
			Backtests:  "backtests",
		},
		Engine: EngineConfig{
			PollInterval: "30s",
		},
		Guard: GuardConfig{
			BacktestsPerWindow: 10,
			Window:             "1m",
			BacktestTimeout:    "5m",
		},
	}
}

// Load reads the file at path. ".yaml" and ".yml" parse as YAML,
// everything else as JSON. Missing or malformed content is a
// ConfigurationError naming the field where possible.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configuration("read config %s: %v", path, err)
	}

	cfg := Default(".")
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errs.Configuration("parse config %s: %v", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config in the format the extension names.
func (c *Config) Save(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errs.Configuration("paths.data_dir is required")
	}
	if _, err := c.PollInterval(); err != nil {
		return errs.Configuration("engine.poll_interval: %v", err)
	}
	if c.Guard.Window != "" {
		if _, err := time.ParseDuration(c.Guard.Window); err != nil {
			return errs.Configuration("guard.window: %v", err)
		}
	}
	if c.Guard.BacktestTimeout != "" {
		if _, err := time.ParseDuration(c.Guard.BacktestTimeout); err != nil {
			return errs.Configuration("guard.backtest_timeout: %v", err)
		}
	}
	if c.Guard.BacktestsPerWindow < 0 {
		return errs.Configuration("guard.backtests_per_window must not be negative")
	}
	return nil
}

// PollInterval parses the live loop cadence.
func (c *Config) PollInterval() (time.Duration, error) {
	if c.Engine.PollInterval == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Engine.PollInterval)
}

// BacktestWindow parses the guard window, defaulting to one minute.
func (c *Config) BacktestWindow() time.Duration {
	d, err := time.ParseDuration(c.Guard.Window)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// BacktestTimeout parses the per-run wall clock, defaulting to five
// minutes.
func (c *Config) BacktestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Guard.BacktestTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Resolve joins a configured path under DataDir unless it is already
// absolute.
func (c *Config) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.DataDir, name)
}

// LoadCredentials reads broker secrets from the environment. An
// optional .env file in the working directory seeds missing
// variables; real environment values win.
func LoadCredentials() (Credentials, error) {
	// Ignore a missing .env; it is a development convenience.
	_ = godotenv.Load()

	creds := Credentials{
		APIKey:    os.Getenv("STRATENGINE_API_KEY"),
		APISecret: os.Getenv("STRATENGINE_API_SECRET"),
	}
	return creds, nil
}

// RequireCredentials is LoadCredentials for code paths that cannot
// run without them.
func RequireCredentials() (Credentials, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return creds, err
	}
	if creds.APIKey == "" {
		return creds, errs.Configuration("STRATENGINE_API_KEY is not set")
	}
	if creds.APISecret == "" {
		return creds, errs.Configuration("STRATENGINE_API_SECRET is not set")
	}
	return creds, nil
}
