package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/greeks"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
	"github.com/kangrills/nifty-expiry-predictor/pkg/utils"
)

func optionTypeFromFlag(raw string) (models.OptionType, error) {
	switch raw {
	case "ce", "CE", "call", "c":
		return models.Call, nil
	case "pe", "PE", "put", "p":
		return models.Put, nil
	default:
		return "", fmt.Errorf("invalid option type %q, want ce or pe", raw)
	}
}

func newGreeksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Compute Black-Scholes greeks for one contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			spot, _ := cmd.Flags().GetFloat64("spot")
			strike, _ := cmd.Flags().GetFloat64("strike")
			days, _ := cmd.Flags().GetFloat64("days")
			iv, _ := cmd.Flags().GetFloat64("iv")
			rate, _ := cmd.Flags().GetFloat64("rate")
			typeRaw, _ := cmd.Flags().GetString("type")

			optType, err := optionTypeFromFlag(typeRaw)
			if err != nil {
				return err
			}
			if rate == 0 {
				rate = app.Config.Analytics.RiskFreeRate
			}
			if !cmd.Flags().Changed("days") {
				now := time.Now()
				days = float64(utils.DaysToExpiry(now, utils.NextWeeklyExpiry(now)))
			}

			result, err := greeks.Compute(greeks.Params{
				Spot:         spot,
				Strike:       strike,
				TimeToExpiry: days / 365.0,
				Volatility:   iv,
				RiskFreeRate: rate,
				Type:         optType,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Bold("%s %s @ %s  (%.1fd, IV %s, r %.2f%%)",
				string(optType), FormatPrice(strike), FormatPrice(spot), days, FormatIV(iv), rate*100)
			output.Printf("  Price:  %s\n", FormatPrice(result.Price))
			output.Printf("  Delta:  %.4f\n", result.Delta)
			output.Printf("  Gamma:  %.6f\n", result.Gamma)
			output.Printf("  Theta:  %.2f / day\n", result.Theta)
			output.Printf("  Vega:   %.2f / vol pt\n", result.Vega)
			output.Printf("  Rho:    %.2f / rate pt\n", result.Rho)
			return nil
		},
	}

	cmd.Flags().Float64("spot", 0, "underlying spot price")
	cmd.Flags().Float64("strike", 0, "strike price")
	cmd.Flags().Float64("days", 0, "calendar days to expiry (default: next weekly expiry)")
	cmd.Flags().Float64("iv", 0, "volatility as a decimal, e.g. 0.18")
	cmd.Flags().Float64("rate", 0, "risk-free rate (default: from config)")
	cmd.Flags().String("type", "ce", "option type: ce or pe")
	cmd.MarkFlagRequired("spot")
	cmd.MarkFlagRequired("strike")
	cmd.MarkFlagRequired("iv")
	return cmd
}

func newIVCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iv",
		Short: "Solve implied volatility from an option premium",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			price, _ := cmd.Flags().GetFloat64("price")
			spot, _ := cmd.Flags().GetFloat64("spot")
			strike, _ := cmd.Flags().GetFloat64("strike")
			days, _ := cmd.Flags().GetFloat64("days")
			rate, _ := cmd.Flags().GetFloat64("rate")
			typeRaw, _ := cmd.Flags().GetString("type")

			optType, err := optionTypeFromFlag(typeRaw)
			if err != nil {
				return err
			}
			if rate == 0 {
				rate = app.Config.Analytics.RiskFreeRate
			}

			solver := greeks.IVSolver{
				MaxIterations: app.Config.Analytics.IVMaxIterations,
				Tolerance:     app.Config.Analytics.IVTolerance,
				InitialGuess:  app.Config.Analytics.IVInitialGuess,
				UpperBound:    app.Config.Analytics.IVUpperBound,
			}
			iv, err := solver.Solve(price, spot, strike, days/365.0, rate, optType)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]float64{"implied_volatility": iv})
			}

			output.Bold("%s %s @ %s  premium %s (%.1fd)",
				string(optType), FormatPrice(strike), FormatPrice(spot), FormatPrice(price), days)
			output.Printf("  Implied Volatility: %s\n", FormatIV(iv))
			return nil
		},
	}

	cmd.Flags().Float64("price", 0, "observed option premium")
	cmd.Flags().Float64("spot", 0, "underlying spot price")
	cmd.Flags().Float64("strike", 0, "strike price")
	cmd.Flags().Float64("days", 0, "calendar days to expiry")
	cmd.Flags().Float64("rate", 0, "risk-free rate (default: from config)")
	cmd.Flags().String("type", "ce", "option type: ce or pe")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("spot")
	cmd.MarkFlagRequired("strike")
	cmd.MarkFlagRequired("days")
	return cmd
}
