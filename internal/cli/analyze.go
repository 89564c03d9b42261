package cli

import (
	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
	"github.com/kangrills/nifty-expiry-predictor/pkg/utils"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full option-chain analysis",
		Long: `Runs every analytics engine over one option chain: gamma exposure,
max pain, support/resistance and open-interest positioning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, err := app.loadChain(cmd)
			if err != nil {
				return err
			}

			days := utils.DaysToExpiry(snap.Timestamp, snap.ExpiryDate)
			result, err := app.Engine.Analyze(cmd.Context(), snap, days)
			if err != nil {
				return err
			}

			if save, _ := cmd.Flags().GetBool("save"); save {
				if app.Store == nil {
					output.Warning("store unavailable, analysis not persisted")
				} else {
					if _, err := app.Store.SaveSnapshot(cmd.Context(), snap); err != nil {
						return err
					}
					if err := app.Store.SaveAnalysis(cmd.Context(), result); err != nil {
						return err
					}
					app.Logger.Info().Str("symbol", snap.Symbol).Msg("analysis persisted")
				}
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			renderAnalysis(output, snap, result)
			return nil
		},
	}

	addChainFlags(cmd)
	cmd.Flags().Bool("save", false, "persist the snapshot and analysis to the local database")
	return cmd
}

func renderAnalysis(output *Output, snap *models.OptionChainSnapshot, result *models.ChainAnalysis) {
	chainHeader(output, snap)

	output.Bold("Gamma Exposure")
	output.Printf("  Net GEX:     %s  (%s regime)\n",
		output.SignedValue(result.Gex.NetGex, FormatGex(result.Gex.NetGex)), output.Regime(result.Gex.Regime))
	if result.Gex.FlipLevel != nil {
		output.Printf("  Flip Level:  %s\n", FormatPrice(*result.Gex.FlipLevel))
	} else {
		output.Printf("  Flip Level:  %s\n", output.DimText("none in chain"))
	}
	output.Printf("  Above/Below: %s / %s\n", FormatGex(result.Gex.GexAboveSpot), FormatGex(result.Gex.GexBelowSpot))
	output.Printf("  Bias:        %s\n", output.Bias(result.Gex.Bias))
	output.Println()

	output.Bold("Max Pain")
	output.Printf("  Max Pain Strike: %s", FormatPrice(result.MaxPain.MaxPainStrike))
	drift := result.MaxPain.MaxPainStrike - snap.UnderlyingSpot
	output.Printf("  (%s from spot)\n", output.SignedValue(drift, FormatPrice(drift)))
	output.Println()

	output.Bold("Support / Resistance")
	for _, level := range result.Levels.Resistance {
		output.Printf("  R  %s\n", output.Red(FormatPrice(level)))
	}
	for _, level := range result.Levels.Support {
		output.Printf("  S  %s\n", output.Green(FormatPrice(level)))
	}
	output.Println()

	output.Bold("Open Interest")
	output.Printf("  PCR (%s):  %s  %s\n", result.OI.Method, FormatPCR(result.OI.PCR), output.Sentiment(result.OI.Sentiment))
	if len(result.OI.CallWalls) > 0 {
		output.Printf("  Call Wall:  %s (OI %s)\n", FormatPrice(result.OI.CallWalls[0].Strike), FormatOI(result.OI.CallWalls[0].OI))
	}
	if len(result.OI.PutWalls) > 0 {
		output.Printf("  Put Wall:   %s (OI %s)\n", FormatPrice(result.OI.PutWalls[0].Strike), FormatOI(result.OI.PutWalls[0].OI))
	}
}
