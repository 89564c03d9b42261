package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/oi"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

func newOICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oi",
		Short: "Analyze open-interest positioning",
		Long: `Computes the put-call ratio, OI walls, per-strike buildup
classification and the ITM/OTM distribution for a chain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, err := app.loadChain(cmd)
			if err != nil {
				return err
			}

			methodRaw, _ := cmd.Flags().GetString("pcr-method")
			var method models.PCRMethod
			switch methodRaw {
			case "oi":
				method = models.PCRByOI
			case "volume":
				method = models.PCRByVolume
			default:
				return fmt.Errorf("invalid pcr method %q, want oi or volume", methodRaw)
			}

			thresholds := oi.Thresholds{
				Bullish: app.Config.Analytics.PCRBullish,
				Bearish: app.Config.Analytics.PCRBearish,
			}
			summary, err := oi.Summarize(snap, method, thresholds, app.Config.Analytics.NumWalls)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			chainHeader(output, snap)

			output.Bold("Put-Call Ratio")
			output.Printf("  PCR (%s):  %s  %s\n", summary.Method, FormatPCR(summary.PCR), output.Sentiment(summary.Sentiment))
			output.Println()

			output.Bold("OI Walls")
			table := NewTable(output, "", "Strike", "OI")
			for _, wall := range summary.CallWalls {
				table.AddRow(output.Red("CALL"), FormatPrice(wall.Strike), FormatOI(wall.OI))
			}
			for _, wall := range summary.PutWalls {
				table.AddRow(output.Green("PUT"), FormatPrice(wall.Strike), FormatOI(wall.OI))
			}
			table.Render()
			output.Println()

			if full, _ := cmd.Flags().GetBool("full"); full {
				output.Bold("Buildup")
				buildupTable := NewTable(output, "Strike", "Call", "Put")
				for _, b := range summary.Buildup {
					buildupTable.AddRow(FormatPrice(b.Strike), buildupLabel(output, b.Call), buildupLabel(output, b.Put))
				}
				buildupTable.Render()
				output.Println()
			}

			output.Bold("OI Distribution")
			dist := summary.Distribution
			output.Printf("  ITM Calls: %-10s OTM Calls: %s\n", FormatOI(dist.ITMCallOI), FormatOI(dist.OTMCallOI))
			output.Printf("  ITM Puts:  %-10s OTM Puts:  %s\n", FormatOI(dist.ITMPutOI), FormatOI(dist.OTMPutOI))
			return nil
		},
	}

	addChainFlags(cmd)
	cmd.Flags().String("pcr-method", "oi", "PCR method: oi or volume")
	cmd.Flags().Bool("full", false, "print the per-strike buildup table")
	return cmd
}

func buildupLabel(output *Output, category models.BuildupCategory) string {
	label := strings.ToUpper(strings.ReplaceAll(string(category), "_", " "))
	switch category {
	case models.LongBuildup, models.ShortCovering:
		return output.Green(label)
	case models.ShortBuildup, models.LongUnwinding:
		return output.Red(label)
	default:
		return output.DimText(label)
	}
}
