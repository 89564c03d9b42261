package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Nifty Expiry Predictor Configuration

[analytics]
# Annual risk-free interest rate (Indian government bond approximation)
risk_free_rate = 0.07
# GEX scaling multiplier (per 1% spot move)
gex_multiplier = 0.01
# Put-call ratio sentiment thresholds (contrarian reading)
pcr_bullish_threshold = 1.2
pcr_bearish_threshold = 0.8
# Number of OI walls to report
num_walls = 5
# Number of support/resistance levels to report
num_levels = 3
# Implied volatility solver budget
iv_max_iterations = 100
iv_tolerance = 1e-6
iv_initial_guess = 0.20
iv_upper_bound = 5.0
# Worker pool size for chain analysis
analysis_workers = 4

[collector]
# Data source: "nse", "kite" or "csv"
source = "nse"
nse_base_url = "https://www.nseindia.com"
timeout = "10s"
max_retries = 3
rate_limit_delay = "2s"

[ui]
# Enable colored output
color_enabled = true

[lot_sizes]
NIFTY = 50
BANKNIFTY = 25
FINNIFTY = 40
MIDCPNIFTY = 75
`

const credentialsTemplate = `# Kite Connect API credentials (only needed for the "kite" collector)

[kite]
api_key = ""
api_secret = ""
access_token = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials are sensitive, restrict permissions
	return os.WriteFile(path, []byte(credentialsTemplate), 0600)
}
