package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/collector"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
	"github.com/kangrills/nifty-expiry-predictor/pkg/utils"
)

// addChainFlags registers the flags shared by every chain-based command.
func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("symbol", "s", "NIFTY", "index symbol (NIFTY, BANKNIFTY, FINNIFTY, MIDCPNIFTY)")
	cmd.Flags().StringP("expiry", "e", "", "expiry date YYYY-MM-DD (default: nearest)")
	cmd.Flags().StringP("file", "f", "", "load chain from a snapshot CSV instead of fetching")
}

// loadChain resolves the chain for a command: an explicit snapshot file
// wins, otherwise the configured collector fetches it.
func (app *App) loadChain(cmd *cobra.Command) (*models.OptionChainSnapshot, error) {
	symbol, _ := cmd.Flags().GetString("symbol")
	expiryStr, _ := cmd.Flags().GetString("expiry")
	file, _ := cmd.Flags().GetString("file")

	var expiry time.Time
	if expiryStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", expiryStr, utils.ISTLocation())
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %q, want YYYY-MM-DD", expiryStr)
		}
		expiry = parsed
	}

	if file != "" {
		return collector.LoadSnapshot(file)
	}

	if app.Collector == nil {
		return nil, fmt.Errorf("no market data collector configured, pass --file or fix the config")
	}
	return app.Collector.FetchChain(cmd.Context(), symbol, expiry)
}

// chainHeader prints the snapshot banner shared by the analytics
// commands.
func chainHeader(output *Output, snap *models.OptionChainSnapshot) {
	days := utils.DaysToExpiry(snap.Timestamp, snap.ExpiryDate)
	output.Bold("%s  spot %s  expiry %s (%dd)  lot %d", snap.Symbol,
		FormatPrice(snap.UnderlyingSpot), FormatDate(snap.ExpiryDate), days, snap.LotSize)
	output.Dim("captured %s, %d strikes, market %s",
		FormatDateTime(snap.Timestamp), len(snap.Rows), utils.GetMarketStatus())
	output.Println()
}
