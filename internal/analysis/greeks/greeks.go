// Package greeks provides Black-Scholes pricing, greeks and an
// implied-volatility solver for European index options.
package greeks

import (
	"math"

	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// DefaultRiskFreeRate approximates the Indian government bond rate.
const DefaultRiskFreeRate = 0.07

// Params holds the inputs for a single Black-Scholes evaluation.
type Params struct {
	Spot         float64
	Strike       float64
	TimeToExpiry float64 // years
	Volatility   float64 // decimal, e.g. 0.20
	RiskFreeRate float64 // annual, decimal
	Type         models.OptionType
}

// Compute calculates price and greeks for one option.
//
// Zero or negative time to expiry or volatility is not an error: the
// option has collapsed to intrinsic value, so the result carries the
// intrinsic price, a binary delta and zero for the remaining greeks.
// Naive formula evaluation would divide by zero here.
func Compute(p Params) (models.GreeksResult, error) {
	if p.Spot <= 0 {
		return models.GreeksResult{}, errors.NewValidationError("spot", p.Spot, "spot price must be positive")
	}
	if p.Strike <= 0 {
		return models.GreeksResult{}, errors.NewValidationError("strike", p.Strike, "strike must be positive")
	}
	if p.Type != models.Call && p.Type != models.Put {
		return models.GreeksResult{}, errors.NewValidationError("option_type", string(p.Type), "must be CE or PE")
	}

	if p.TimeToExpiry <= 0 || p.Volatility <= 0 {
		return degenerate(p), nil
	}

	d1, d2 := d1d2(p.Spot, p.Strike, p.TimeToExpiry, p.Volatility, p.RiskFreeRate)
	sqrtT := math.Sqrt(p.TimeToExpiry)
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)

	result := models.GreeksResult{D1: d1, D2: d2}

	// Gamma and vega are identical for calls and puts
	result.Gamma = normPDF(d1) / (p.Spot * p.Volatility * sqrtT)
	result.Vega = p.Spot * normPDF(d1) * sqrtT / 100

	// Annualized decay, reported per calendar day
	timeDecay := -p.Spot * normPDF(d1) * p.Volatility / (2 * sqrtT)

	if p.Type == models.Call {
		result.Price = p.Spot*normCDF(d1) - p.Strike*discount*normCDF(d2)
		result.Delta = normCDF(d1)
		result.Theta = (timeDecay - p.RiskFreeRate*p.Strike*discount*normCDF(d2)) / 365
		result.Rho = p.Strike * p.TimeToExpiry * discount * normCDF(d2) / 100
	} else {
		result.Price = p.Strike*discount*normCDF(-d2) - p.Spot*normCDF(-d1)
		result.Delta = normCDF(d1) - 1
		result.Theta = (timeDecay + p.RiskFreeRate*p.Strike*discount*normCDF(-d2)) / 365
		result.Rho = -p.Strike * p.TimeToExpiry * discount * normCDF(-d2) / 100
	}

	return result, nil
}

// Price returns only the Black-Scholes price for the given inputs.
func Price(p Params) (float64, error) {
	result, err := Compute(p)
	if err != nil {
		return 0, err
	}
	return result.Price, nil
}

func degenerate(p Params) models.GreeksResult {
	result := models.GreeksResult{}
	if p.Type == models.Call {
		result.Price = math.Max(0, p.Spot-p.Strike)
		if p.Spot > p.Strike {
			result.Delta = 1
		}
	} else {
		result.Price = math.Max(0, p.Strike-p.Spot)
		if p.Spot < p.Strike {
			result.Delta = -1
		}
	}
	return result
}

func d1d2(spot, strike, t, vol, rate float64) (float64, float64) {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*t) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	return d1, d2
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
