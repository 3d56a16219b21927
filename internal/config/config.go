package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stockfolio service.
type Config struct {
	Server   Server   `yaml:"server"`
	Storage  Storage  `yaml:"storage"`
	Quotes   Quotes   `yaml:"quotes"`
	Logging  Logging  `yaml:"logging"`
	Trending []string `yaml:"trending"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath  string `yaml:"sqlite_path"`
	SnapshotDir string `yaml:"snapshot_dir"`
}

// Quotes configures the live price provider.
type Quotes struct {
	// Provider selects the quote source: "yahoo", "alpaca", or "static".
	Provider        string `yaml:"provider"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	// Burst is how many lookups may fire back to back before the
	// per-minute rate applies.
	Burst      int    `yaml:"burst"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	MaxWorkers int    `yaml:"max_workers"`
	Alpaca     Alpaca `yaml:"alpaca"`
}

// Alpaca holds credentials for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaultTrending is the symbol set shown on the dashboard when the config
// file does not provide one.
var defaultTrending = []string{"TSLA", "AAPL", "GOOGL", "META", "NVDA", "MSFT", "AMZN", "NFLX"}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies defaults, and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "stockfolio.db"
	}
	if cfg.Quotes.Provider == "" {
		cfg.Quotes.Provider = "yahoo"
	}
	if cfg.Quotes.RateLimitPerMin == 0 {
		cfg.Quotes.RateLimitPerMin = 120
	}
	if cfg.Quotes.Burst == 0 {
		cfg.Quotes.Burst = 4
	}
	if cfg.Quotes.TimeoutMS == 0 {
		cfg.Quotes.TimeoutMS = 5000
	}
	if cfg.Quotes.MaxWorkers == 0 {
		cfg.Quotes.MaxWorkers = 8
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if len(cfg.Trending) == 0 {
		cfg.Trending = append([]string(nil), defaultTrending...)
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("SNAPSHOT_DIR"); v != "" {
		cfg.Storage.SnapshotDir = v
	}

	if v := os.Getenv("QUOTE_PROVIDER"); v != "" {
		cfg.Quotes.Provider = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Quotes.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Quotes.Alpaca.APISecret = v
	}
	if v := os.Getenv("APCA_API_DATA_URL"); v != "" {
		cfg.Quotes.Alpaca.DataURL = v
	}
}
