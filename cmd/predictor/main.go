package main

import (
	"fmt"
	"os"

	"github.com/kangrills/nifty-expiry-predictor/internal/cli"
	"github.com/kangrills/nifty-expiry-predictor/internal/config"
	"github.com/kangrills/nifty-expiry-predictor/internal/logging"
)

func main() {
	logger := logging.NewLogger()

	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
