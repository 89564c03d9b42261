// Package config provides configuration management for the analytics application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
	Collector   CollectorConfig   `mapstructure:"collector"`
	UI          UIConfig          `mapstructure:"ui"`
	LotSizes    map[string]int    `mapstructure:"lot_sizes"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately
}

// AnalyticsConfig holds the numerical policy shared by the engines.
// It is passed explicitly into each engine so they stay pure and
// testable in isolation.
type AnalyticsConfig struct {
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
	GexMultiplier   float64 `mapstructure:"gex_multiplier"`
	PCRBullish      float64 `mapstructure:"pcr_bullish_threshold"`
	PCRBearish      float64 `mapstructure:"pcr_bearish_threshold"`
	NumWalls        int     `mapstructure:"num_walls"`
	NumLevels       int     `mapstructure:"num_levels"`
	IVMaxIterations int     `mapstructure:"iv_max_iterations"`
	IVTolerance     float64 `mapstructure:"iv_tolerance"`
	IVInitialGuess  float64 `mapstructure:"iv_initial_guess"`
	IVUpperBound    float64 `mapstructure:"iv_upper_bound"`
	AnalysisWorkers int     `mapstructure:"analysis_workers"`
}

// CollectorConfig holds market-data collector configuration.
type CollectorConfig struct {
	Source         string        `mapstructure:"source"` // "nse", "kite", "csv"
	NSEBaseURL     string        `mapstructure:"nse_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
	SnapshotDir    string        `mapstructure:"snapshot_dir"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// Credentials holds API credentials.
type Credentials struct {
	Kite KiteCredentials `mapstructure:"kite"`
}

// KiteCredentials holds Zerodha Kite Connect API credentials.
type KiteCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/nifty-expiry-predictor"
	}
	return filepath.Join(home, ".config", "nifty-expiry-predictor")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setAnalyticsDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and continue on defaults
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setAnalyticsDefaults(v *viper.Viper) {
	// Approximate Indian government bond rate
	v.SetDefault("analytics.risk_free_rate", 0.07)
	v.SetDefault("analytics.gex_multiplier", 0.01)
	v.SetDefault("analytics.pcr_bullish_threshold", 1.2)
	v.SetDefault("analytics.pcr_bearish_threshold", 0.8)
	v.SetDefault("analytics.num_walls", 5)
	v.SetDefault("analytics.num_levels", 3)
	v.SetDefault("analytics.iv_max_iterations", 100)
	v.SetDefault("analytics.iv_tolerance", 1e-6)
	v.SetDefault("analytics.iv_initial_guess", 0.20)
	v.SetDefault("analytics.iv_upper_bound", 5.0)
	v.SetDefault("analytics.analysis_workers", 4)

	v.SetDefault("collector.source", "nse")
	v.SetDefault("collector.nse_base_url", "https://www.nseindia.com")
	v.SetDefault("collector.timeout", "10s")
	v.SetDefault("collector.max_retries", 3)
	v.SetDefault("collector.rate_limit_delay", "2s")

	v.SetDefault("ui.color_enabled", true)

	// NSE index derivative lot sizes
	v.SetDefault("lot_sizes", map[string]int{
		"NIFTY":      50,
		"BANKNIFTY":  25,
		"FINNIFTY":   40,
		"MIDCPNIFTY": 75,
	})
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Credentials.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_API_SECRET"); v != "" {
		cfg.Credentials.Kite.APISecret = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Kite.AccessToken = v
	}
	if v := os.Getenv("COLLECTOR_SOURCE"); v != "" {
		cfg.Collector.Source = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Collector.SnapshotDir == "" {
		cfg.Collector.SnapshotDir = filepath.Join(DefaultConfigDir(), "snapshots")
	}
	if len(cfg.LotSizes) == 0 {
		cfg.LotSizes = map[string]int{
			"NIFTY":      50,
			"BANKNIFTY":  25,
			"FINNIFTY":   40,
			"MIDCPNIFTY": 75,
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Analytics.RiskFreeRate < 0 || c.Analytics.RiskFreeRate > 1 {
		return fmt.Errorf("risk_free_rate must be between 0 and 1")
	}
	if c.Analytics.GexMultiplier <= 0 {
		return fmt.Errorf("gex_multiplier must be positive")
	}
	if c.Analytics.PCRBearish <= 0 || c.Analytics.PCRBullish <= c.Analytics.PCRBearish {
		return fmt.Errorf("pcr thresholds must satisfy 0 < bearish < bullish")
	}
	if c.Analytics.NumWalls <= 0 || c.Analytics.NumLevels <= 0 {
		return fmt.Errorf("num_walls and num_levels must be positive")
	}
	if c.Analytics.IVMaxIterations <= 0 {
		return fmt.Errorf("iv_max_iterations must be positive")
	}
	if c.Analytics.IVTolerance <= 0 {
		return fmt.Errorf("iv_tolerance must be positive")
	}
	if c.Analytics.IVInitialGuess <= 0 || c.Analytics.IVInitialGuess >= c.Analytics.IVUpperBound {
		return fmt.Errorf("iv_initial_guess must be within (0, iv_upper_bound)")
	}

	switch c.Collector.Source {
	case "", "nse", "kite", "csv":
	default:
		return fmt.Errorf("invalid collector source: %s (must be 'nse', 'kite' or 'csv')", c.Collector.Source)
	}
	if c.Collector.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}

	for symbol, lot := range c.LotSizes {
		if lot <= 0 {
			return fmt.Errorf("lot size for %s must be positive", symbol)
		}
	}

	return nil
}

// LotSize returns the configured lot size for a symbol, or 0 if unknown.
func (c *Config) LotSize(symbol string) int {
	return c.LotSizes[symbol]
}
