package cli

import (
	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/collector"
	"github.com/kangrills/nifty-expiry-predictor/internal/store"
)

func newFetchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch an option chain and save it locally",
		Long: `Fetches the option chain from the configured source and saves it as a
CSV snapshot, optionally also into the local database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, err := app.loadChain(cmd)
			if err != nil {
				return err
			}

			path, err := collector.SaveSnapshot(app.Config.Collector.SnapshotDir, snap)
			if err != nil {
				return err
			}

			var snapshotID int64
			if toStore, _ := cmd.Flags().GetBool("store"); toStore {
				if app.Store == nil {
					output.Warning("store unavailable, snapshot not persisted to database")
				} else {
					snapshotID, err = app.Store.SaveSnapshot(cmd.Context(), snap)
					if err != nil {
						return err
					}
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"path":        path,
					"snapshot_id": snapshotID,
					"strikes":     len(snap.Rows),
					"spot":        snap.UnderlyingSpot,
				})
			}

			chainHeader(output, snap)
			output.Success("Snapshot saved to %s", path)
			if snapshotID > 0 {
				output.Dim("database snapshot id %d", snapshotID)
			}
			return nil
		},
	}

	addChainFlags(cmd)
	cmd.Flags().Bool("store", false, "also persist the snapshot to the local database")
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored analysis history",
		Long: `Lists previously saved analyses for a symbol: how max pain, net GEX
and PCR evolved across captures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("store unavailable")
				return nil
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")

			analyses, err := app.Store.GetAnalyses(cmd.Context(), store.AnalysisFilter{
				Symbol: symbol,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(analyses)
			}

			if len(analyses) == 0 {
				output.Dim("no stored analyses for %s", symbol)
				return nil
			}

			output.Bold("%s analysis history", symbol)
			table := NewTable(output, "Captured", "Spot", "Max Pain", "Net GEX", "PCR", "Bias")
			for _, a := range analyses {
				table.AddRow(
					FormatDateTime(a.Timestamp),
					FormatPrice(a.Spot),
					FormatPrice(a.MaxPain.MaxPainStrike),
					output.SignedValue(a.Gex.NetGex, FormatGex(a.Gex.NetGex)),
					FormatPCR(a.OI.PCR),
					output.Bias(a.Gex.Bias),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringP("symbol", "s", "NIFTY", "index symbol")
	cmd.Flags().Int("limit", 20, "number of entries to show")
	return cmd
}
