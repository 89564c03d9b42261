package greeks

import (
	"math"

	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// Solver bounds. Below vegaFloor the Newton step is numerically
// meaningless and the solver switches to bisection.
const (
	vegaFloor    = 1e-8
	ivLowerBound = 1e-4
)

// IVSolver inverts the Black-Scholes price for volatility.
type IVSolver struct {
	MaxIterations int
	Tolerance     float64
	InitialGuess  float64
	UpperBound    float64
}

// DefaultIVSolver returns a solver with the standard budget.
func DefaultIVSolver() IVSolver {
	return IVSolver{
		MaxIterations: 100,
		Tolerance:     1e-6,
		InitialGuess:  0.20,
		UpperBound:    5.0,
	}
}

// ImpliedVolatility solves for the volatility matching marketPrice
// using the default solver budget.
func ImpliedVolatility(marketPrice, spot, strike, timeToExpiry, rate float64, optType models.OptionType) (float64, error) {
	return DefaultIVSolver().Solve(marketPrice, spot, strike, timeToExpiry, rate, optType)
}

// Solve runs a bounded Newton-Raphson attempt seeded at InitialGuess,
// falling back to bisection on (0, UpperBound) when the derivative is
// too flat or an iterate escapes the bracket. It never silently
// returns a non-converged guess: exhausting the budget yields a
// ConvergenceError carrying the last iterate and residual.
func (s IVSolver) Solve(marketPrice, spot, strike, timeToExpiry, rate float64, optType models.OptionType) (float64, error) {
	if marketPrice <= 0 {
		return 0, errors.NewValidationError("market_price", marketPrice, "market price must be positive")
	}

	vol := s.InitialGuess
	var diff float64

	for i := 0; i < s.MaxIterations; i++ {
		result, err := Compute(Params{
			Spot:         spot,
			Strike:       strike,
			TimeToExpiry: timeToExpiry,
			Volatility:   vol,
			RiskFreeRate: rate,
			Type:         optType,
		})
		if err != nil {
			return 0, err
		}

		diff = result.Price - marketPrice
		if math.Abs(diff) < s.Tolerance {
			return vol, nil
		}

		// Vega per unit volatility, not the per-point convention
		vega := result.Vega * 100
		if vega < vegaFloor {
			return s.bisect(marketPrice, spot, strike, timeToExpiry, rate, optType, s.MaxIterations-i)
		}

		next := vol - diff/vega
		if next <= ivLowerBound || next >= s.UpperBound {
			return s.bisect(marketPrice, spot, strike, timeToExpiry, rate, optType, s.MaxIterations-i)
		}
		vol = next
	}

	return 0, errors.NewConvergenceError(s.MaxIterations, vol, diff)
}

// bisect searches (ivLowerBound, UpperBound) for the matching
// volatility. Price is monotonically increasing in volatility, so a
// plain bisection on the residual sign suffices.
func (s IVSolver) bisect(marketPrice, spot, strike, timeToExpiry, rate float64, optType models.OptionType, budget int) (float64, error) {
	lo, hi := ivLowerBound, s.UpperBound
	var mid, diff float64

	for i := 0; i < budget; i++ {
		mid = (lo + hi) / 2
		price, err := Price(Params{
			Spot:         spot,
			Strike:       strike,
			TimeToExpiry: timeToExpiry,
			Volatility:   mid,
			RiskFreeRate: rate,
			Type:         optType,
		})
		if err != nil {
			return 0, err
		}

		diff = price - marketPrice
		if math.Abs(diff) < s.Tolerance {
			return mid, nil
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	return 0, errors.NewConvergenceError(budget, mid, diff)
}
