// Package gex computes dealer gamma exposure profiles from an option
// chain snapshot.
package gex

import (
	"math"

	"github.com/kangrills/nifty-expiry-predictor/internal/analysis/greeks"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// DefaultMultiplier scales GEX to a 1% spot move.
const DefaultMultiplier = 0.01

// Calculator computes gamma exposure for option chains.
type Calculator struct {
	RiskFreeRate float64
	Multiplier   float64
}

// NewCalculator creates a GEX calculator with the given rate policy.
func NewCalculator(riskFreeRate, multiplier float64) Calculator {
	if multiplier == 0 {
		multiplier = DefaultMultiplier
	}
	return Calculator{RiskFreeRate: riskFreeRate, Multiplier: multiplier}
}

// ChainGex computes the per-strike GEX decomposition in strike order.
//
// Gamma is identical for calls and puts, so a single evaluation at the
// strike's implied volatility serves both legs. Call GEX is positive
// and put GEX negative by the dealer-positioning sign convention. A
// strike with no published IV on either leg contributes zero.
func (c Calculator) ChainGex(snap *models.OptionChainSnapshot, daysToExpiry int) ([]models.GexLevel, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	timeToExpiry := float64(daysToExpiry) / 365.0
	spot := snap.UnderlyingSpot
	scale := float64(snap.LotSize) * spot * spot * c.Multiplier

	levels := make([]models.GexLevel, len(snap.Rows))
	cumulative := 0.0

	for i, row := range snap.Rows {
		gamma := 0.0
		if vol := strikeVol(row); vol > 0 {
			result, err := greeks.Compute(greeks.Params{
				Spot:         spot,
				Strike:       row.Strike,
				TimeToExpiry: timeToExpiry,
				Volatility:   vol,
				RiskFreeRate: c.RiskFreeRate,
				Type:         models.Call,
			})
			if err != nil {
				return nil, err
			}
			gamma = result.Gamma
		}

		callGex := gamma * float64(row.CallOI) * scale
		putGex := -gamma * float64(row.PutOI) * scale
		netGex := callGex + putGex
		cumulative += netGex

		levels[i] = models.GexLevel{
			Strike:        row.Strike,
			CallOI:        row.CallOI,
			PutOI:         row.PutOI,
			Gamma:         gamma,
			CallGex:       callGex,
			PutGex:        putGex,
			NetGex:        netGex,
			CumulativeGex: cumulative,
		}
	}

	return levels, nil
}

// strikeVol picks the implied volatility used for the strike's single
// gamma evaluation: call IV when published, else put IV.
func strikeVol(row models.StrikeRow) float64 {
	if row.CallIV > 0 {
		return row.CallIV
	}
	return row.PutIV
}

// Levels aggregates a per-strike profile into regime information for
// the given spot.
func (c Calculator) Levels(levels []models.GexLevel, spot float64) models.GexSummary {
	summary := models.GexSummary{Spot: spot}
	if len(levels) == 0 {
		summary.Regime = models.RegimeNeutral
		summary.Bias = models.BiasNeutral
		return summary
	}

	maxPos, maxNeg := levels[0], levels[0]
	for _, level := range levels {
		summary.NetGex += level.NetGex
		if level.Strike > spot {
			summary.GexAboveSpot += level.NetGex
		} else if level.Strike < spot {
			summary.GexBelowSpot += level.NetGex
		}
		if level.NetGex > maxPos.NetGex {
			maxPos = level
		}
		if level.NetGex < maxNeg.NetGex {
			maxNeg = level
		}
	}
	summary.MaxPositiveStrike = maxPos.Strike
	summary.MaxNegativeStrike = maxNeg.Strike

	summary.FlipLevel = flipLevel(levels)

	switch {
	case summary.NetGex > 0:
		summary.Regime = models.RegimePositive
	case summary.NetGex < 0:
		summary.Regime = models.RegimeNegative
	default:
		summary.Regime = models.RegimeNeutral
	}

	summary.Bias = classifyBias(summary.Regime, summary.FlipLevel, spot)

	return summary
}

// flipLevel finds the spot level where the cumulative GEX curve crosses
// zero, interpolating linearly between the bracketing strikes. A zero
// cumulative value carries no sign information on its own (wing strikes
// with no OI or no published IV leave the curve untouched), so zeros
// only count as a crossing when the curve holds strictly opposite signs
// on either side of them. Returns nil when the curve never crosses.
func flipLevel(levels []models.GexLevel) *float64 {
	start := 0
	for start < len(levels) && levels[start].CumulativeGex == 0 {
		start++
	}
	if start == len(levels) {
		return nil
	}

	positive := levels[start].CumulativeGex > 0
	prev := start
	zeroRun := -1
	for i := start + 1; i < len(levels); i++ {
		cum := levels[i].CumulativeGex
		switch {
		case cum == 0:
			if zeroRun < 0 {
				zeroRun = i
			}
		case (cum > 0) == positive:
			// Same sign again; any zeros in between were a touch,
			// not a crossing.
			zeroRun = -1
			prev = i
		default:
			if zeroRun >= 0 {
				// The curve sat at exactly zero before flipping sign.
				flip := levels[zeroRun].Strike
				return &flip
			}
			a, b := levels[prev].CumulativeGex, cum
			weight := math.Abs(a) / (math.Abs(a) + math.Abs(b))
			flip := levels[prev].Strike + (levels[i].Strike-levels[prev].Strike)*weight
			return &flip
		}
	}
	return nil
}

// classifyBias maps (regime, side of flip) onto a fixed label set. The
// mapping is total: every valid input produces exactly one label.
func classifyBias(regime models.GexRegime, flip *float64, spot float64) models.TradingBias {
	switch regime {
	case models.RegimePositive:
		if flip != nil && spot < *flip {
			return models.BiasMeanRevertingSupported
		}
		return models.BiasMeanReverting
	case models.RegimeNegative:
		if flip != nil && spot >= *flip {
			return models.BiasTrendingDownRisk
		}
		return models.BiasTrending
	default:
		return models.BiasNeutral
	}
}
