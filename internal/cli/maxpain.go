package cli

import (
	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/maxpain"
)

func newMaxPainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maxpain",
		Short: "Compute the max pain strike and pain curve",
		Long: `Computes the option-writer loss at every candidate settlement strike
and reports the strike minimizing it, plus OI-based support and
resistance levels.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, err := app.loadChain(cmd)
			if err != nil {
				return err
			}

			result, err := maxpain.Calculate(snap)
			if err != nil {
				return err
			}
			levels, err := maxpain.FindSupportResistance(snap, app.Config.Analytics.NumLevels)
			if err != nil {
				return err
			}
			score := maxpain.PainScore(snap.UnderlyingSpot, result)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"max_pain": result,
					"levels":   levels,
					"score":    score,
				})
			}

			chainHeader(output, snap)

			if full, _ := cmd.Flags().GetBool("full"); full {
				table := NewTable(output, "Strike", "Call Loss", "Put Loss", "Total Pain")
				for _, point := range result.PainCurve {
					strike := FormatPrice(point.Strike)
					if point.Strike == result.MaxPainStrike {
						strike = output.BoldText(strike + " *")
					}
					table.AddRow(strike,
						FormatCompact(point.CallLoss),
						FormatCompact(point.PutLoss),
						FormatCompact(point.TotalPain))
				}
				table.Render()
				output.Println()
			}

			output.Bold("Max Pain")
			output.Printf("  Strike:         %s\n", FormatPrice(result.MaxPainStrike))
			drift := result.MaxPainStrike - snap.UnderlyingSpot
			output.Printf("  Spot Distance:  %s\n", output.SignedValue(drift, FormatPrice(drift)))
			output.Printf("  Pain Score:     %.3f\n", score.PainScore)
			output.Println()

			output.Bold("Support / Resistance")
			for _, level := range levels.Resistance {
				output.Printf("  R  %s\n", output.Red(FormatPrice(level)))
			}
			for _, level := range levels.Support {
				output.Printf("  S  %s\n", output.Green(FormatPrice(level)))
			}
			return nil
		},
	}

	addChainFlags(cmd)
	cmd.Flags().Bool("full", false, "print the full pain curve")
	return cmd
}
