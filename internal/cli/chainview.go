package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/pkg/utils"
)

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Display the raw option chain",
		Long: `Prints the option chain as an NSE-style two-sided table with the
ATM strike highlighted, calls on the left and puts on the right.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			snap, err := app.loadChain(cmd)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(snap)
			}

			days := utils.DaysToExpiry(snap.Timestamp, snap.ExpiryDate)
			color.Cyan("%s Option Chain  %s (%dd)", snap.Symbol, FormatDate(snap.ExpiryDate), days)
			color.Yellow("Spot: %s  Lot: %d  Captured: %s",
				FormatPrice(snap.UnderlyingSpot), snap.LotSize, FormatDateTime(snap.Timestamp))
			fmt.Println()

			itm := color.New(color.FgGreen).SprintfFunc()
			atm := color.New(color.FgYellow, color.Bold).SprintfFunc()
			plain := fmt.Sprintf

			fmt.Printf("%12s %10s %8s %8s │ %-8s │ %-8s %-8s %-10s %-12s\n",
				"CALL OI", "CALL VOL", "CALL IV", "CALL LTP", "STRIKE", "PUT LTP", "PUT IV", "PUT VOL", "PUT OI")

			atmStrike := nearestStrike(snap.Strikes(), snap.UnderlyingSpot)
			for _, row := range snap.Rows {
				paint := plain
				switch {
				case row.Strike == atmStrike:
					paint = atm
				case row.Strike < snap.UnderlyingSpot:
					paint = itm
				}

				line := fmt.Sprintf("%12s %10s %8s %8s │ %-8s │ %-8s %-8s %-10s %-12s",
					FormatOI(row.CallOI), FormatVolume(row.CallVolume), FormatIV(row.CallIV),
					FormatPrice(row.CallLTP), FormatPrice(row.Strike), FormatPrice(row.PutLTP),
					FormatIV(row.PutIV), FormatVolume(row.PutVolume), FormatOI(row.PutOI))
				fmt.Println(paint("%s", line))
			}

			fmt.Println()
			color.Yellow("💡 ITM call strikes in green, ATM strike highlighted")
			return nil
		},
	}

	addChainFlags(cmd)
	return cmd
}

func nearestStrike(strikes []float64, spot float64) float64 {
	if len(strikes) == 0 {
		return 0
	}
	best := strikes[0]
	for _, s := range strikes[1:] {
		if abs(s-spot) < abs(best-spot) {
			best = s
		}
	}
	return best
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
