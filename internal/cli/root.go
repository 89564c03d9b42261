// Package cli provides the command-line interface for the analytics application.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/analysis"
	"github.com/kangrills/nifty-expiry-predictor/internal/collector"
	"github.com/kangrills/nifty-expiry-predictor/internal/config"
	"github.com/kangrills/nifty-expiry-predictor/internal/logging"
	"github.com/kangrills/nifty-expiry-predictor/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.AnalyticsStore
	Collector collector.Collector
	Engine    *analysis.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		Engine: analysis.NewEngine(cfg.Analytics),
	}

	SetColorEnabled(cfg.UI.ColorEnabled)

	// Initialize SQLite store
	dbPath := filepath.Join(config.DefaultConfigDir(), "predictor.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, history features unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	// Initialize the configured market data collector
	app.Collector, err = newCollector(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize collector, only --file input will work")
	}

	rootCmd := &cobra.Command{
		Use:   "predictor",
		Short: "NSE index option chain analytics CLI",
		Long: `Option chain analytics for NSE index derivatives.

It fetches option chains for NIFTY, BANKNIFTY, FINNIFTY and MIDCPNIFTY
and computes Black-Scholes greeks, gamma exposure, max pain and
open-interest positioning for the chain.

Use 'predictor help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/nifty-expiry-predictor)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newFetchCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
	rootCmd.AddCommand(newIVCmd(app))
	rootCmd.AddCommand(newGexCmd(app))
	rootCmd.AddCommand(newMaxPainCmd(app))
	rootCmd.AddCommand(newOICmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

// newCollector builds the collector named by config. Kite needs
// credentials, NSE and CSV work out of the box.
func newCollector(cfg *config.Config, logger zerolog.Logger) (collector.Collector, error) {
	switch cfg.Collector.Source {
	case "kite":
		return collector.NewKiteCollector(cfg.Credentials.Kite, cfg.LotSize, logger)
	case "csv":
		return collector.NewCSVCollector(cfg.Collector.SnapshotDir), nil
	default:
		return collector.NewNSECollector(cfg.Collector, cfg.LotSize, logger)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("nifty-expiry-predictor v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Analytics Configuration")
	output.Printf("  Risk-Free Rate:  %.2f%%\n", cfg.Analytics.RiskFreeRate*100)
	output.Printf("  GEX Multiplier:  %.4f\n", cfg.Analytics.GexMultiplier)
	output.Printf("  PCR Thresholds:  bearish < %.2f, bullish > %.2f\n", cfg.Analytics.PCRBearish, cfg.Analytics.PCRBullish)
	output.Printf("  OI Walls:        %d\n", cfg.Analytics.NumWalls)
	output.Printf("  S/R Levels:      %d\n", cfg.Analytics.NumLevels)
	output.Printf("  IV Solver:       %d iters, tol %.0e\n", cfg.Analytics.IVMaxIterations, cfg.Analytics.IVTolerance)
	output.Printf("  Workers:         %d\n", cfg.Analytics.AnalysisWorkers)
	output.Println()

	output.Bold("Collector Configuration")
	output.Printf("  Source:          %s\n", cfg.Collector.Source)
	output.Printf("  NSE Base URL:    %s\n", cfg.Collector.NSEBaseURL)
	output.Printf("  Timeout:         %s\n", cfg.Collector.Timeout)
	output.Printf("  Max Retries:     %d\n", cfg.Collector.MaxRetries)
	output.Printf("  Snapshot Dir:    %s\n", cfg.Collector.SnapshotDir)
	output.Println()

	output.Bold("Lot Sizes")
	for _, symbol := range []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"} {
		if lot, ok := cfg.LotSizes[symbol]; ok {
			output.Printf("  %-12s %d\n", symbol, lot)
		}
	}
}
