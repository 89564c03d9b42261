package cli

import (
	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/gex"
	"github.com/kangrills/nifty-expiry-predictor/pkg/utils"
)

func newGexCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gex",
		Short: "Compute the gamma exposure profile for a chain",
		Long: `Computes dealer gamma exposure per strike (calls positive, puts
negative), the cumulative profile, the zero-gamma flip level and the
resulting volatility regime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, err := app.loadChain(cmd)
			if err != nil {
				return err
			}

			calc := gex.NewCalculator(app.Config.Analytics.RiskFreeRate, app.Config.Analytics.GexMultiplier)
			days := utils.DaysToExpiry(snap.Timestamp, snap.ExpiryDate)

			levels, err := calc.ChainGex(snap, days)
			if err != nil {
				return err
			}
			summary := calc.Levels(levels, snap.UnderlyingSpot)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"levels":  levels,
					"summary": summary,
				})
			}

			chainHeader(output, snap)

			full, _ := cmd.Flags().GetBool("full")
			if full {
				table := NewTable(output, "Strike", "Call OI", "Put OI", "Call GEX", "Put GEX", "Net GEX", "Cumulative")
				for _, level := range levels {
					table.AddRow(
						FormatPrice(level.Strike),
						FormatOI(level.CallOI),
						FormatOI(level.PutOI),
						FormatGex(level.CallGex),
						FormatGex(level.PutGex),
						output.SignedValue(level.NetGex, FormatGex(level.NetGex)),
						output.SignedValue(level.CumulativeGex, FormatGex(level.CumulativeGex)),
					)
				}
				table.Render()
				output.Println()
			}

			output.Bold("Summary")
			output.Printf("  Net GEX:       %s  (%s regime)\n",
				output.SignedValue(summary.NetGex, FormatGex(summary.NetGex)), output.Regime(summary.Regime))
			if summary.FlipLevel != nil {
				output.Printf("  Flip Level:    %s\n", FormatPrice(*summary.FlipLevel))
			} else {
				output.Printf("  Flip Level:    %s\n", output.DimText("none in chain"))
			}
			output.Printf("  Above Spot:    %s\n", FormatGex(summary.GexAboveSpot))
			output.Printf("  Below Spot:    %s\n", FormatGex(summary.GexBelowSpot))
			output.Printf("  Max +GEX:      %s\n", FormatPrice(summary.MaxPositiveStrike))
			output.Printf("  Max -GEX:      %s\n", FormatPrice(summary.MaxNegativeStrike))
			output.Printf("  Bias:          %s\n", output.Bias(summary.Bias))
			return nil
		},
	}

	addChainFlags(cmd)
	cmd.Flags().Bool("full", false, "print the per-strike GEX table")
	return cmd
}
