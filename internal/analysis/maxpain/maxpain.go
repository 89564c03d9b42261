// Package maxpain computes the option-writer pain curve and the max
// pain settlement strike for an option chain.
package maxpain

import (
	"math"
	"sort"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// Calculate builds the pain curve over every listed strike as a
// candidate settlement and returns the argmin strike with the curve.
//
// The curve is evaluated with prefix sums of OI and OI-weighted
// strikes, which gives the same argmin as the naive double loop in a
// single pass over the sorted chain. Ties resolve to the smallest
// strike.
func Calculate(snap *models.OptionChainSnapshot) (models.MaxPainResult, error) {
	if err := snap.Validate(); err != nil {
		return models.MaxPainResult{}, err
	}

	n := len(snap.Rows)

	// callOIBelow[j]: call OI and OI-weighted strike sums over strikes
	// strictly below strike j; putOIAbove[j]: the mirror above.
	callOIBelow := make([]float64, n+1)
	callWeightBelow := make([]float64, n+1)
	for i, row := range snap.Rows {
		callOIBelow[i+1] = callOIBelow[i] + float64(row.CallOI)
		callWeightBelow[i+1] = callWeightBelow[i] + float64(row.CallOI)*row.Strike
	}

	putOIAbove := make([]float64, n+1)
	putWeightAbove := make([]float64, n+1)
	for i := n - 1; i >= 0; i-- {
		row := snap.Rows[i]
		putOIAbove[i] = putOIAbove[i+1] + float64(row.PutOI)
		putWeightAbove[i] = putWeightAbove[i+1] + float64(row.PutOI)*row.Strike
	}

	result := models.MaxPainResult{
		PainCurve: make([]models.PainPoint, n),
	}

	minPain := math.Inf(1)
	for j, row := range snap.Rows {
		settlement := row.Strike
		callLoss := settlement*callOIBelow[j] - callWeightBelow[j]
		putLoss := putWeightAbove[j+1] - settlement*putOIAbove[j+1]
		totalPain := callLoss + putLoss

		result.PainCurve[j] = models.PainPoint{
			Strike:    settlement,
			CallLoss:  callLoss,
			PutLoss:   putLoss,
			TotalPain: totalPain,
		}

		if totalPain < minPain {
			minPain = totalPain
			result.MaxPainStrike = settlement
		}
	}

	return result, nil
}

// FindSupportResistance identifies the top OI-concentration strikes.
// Resistance comes from call OI (sorted descending), support from put
// OI (sorted ascending). These levels are reported alongside, not
// derived from, the pain curve.
func FindSupportResistance(snap *models.OptionChainSnapshot, numLevels int) (models.SupportResistance, error) {
	if err := snap.Validate(); err != nil {
		return models.SupportResistance{}, err
	}
	if numLevels > len(snap.Rows) {
		numLevels = len(snap.Rows)
	}

	byCallOI := make([]models.StrikeRow, len(snap.Rows))
	copy(byCallOI, snap.Rows)
	sort.SliceStable(byCallOI, func(i, j int) bool {
		return byCallOI[i].CallOI > byCallOI[j].CallOI
	})

	byPutOI := make([]models.StrikeRow, len(snap.Rows))
	copy(byPutOI, snap.Rows)
	sort.SliceStable(byPutOI, func(i, j int) bool {
		return byPutOI[i].PutOI > byPutOI[j].PutOI
	})

	levels := models.SupportResistance{
		Resistance: make([]float64, numLevels),
		Support:    make([]float64, numLevels),
	}
	for i := 0; i < numLevels; i++ {
		levels.Resistance[i] = byCallOI[i].Strike
		levels.Support[i] = byPutOI[i].Strike
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels.Resistance)))
	sort.Float64s(levels.Support)

	return levels, nil
}

// Score describes where spot sits on the pain curve.
type Score struct {
	DistanceFromMaxPain float64
	DistancePercent     float64
	CurrentPain         float64
	MinPain             float64
	PainScore           float64
}

// PainScore measures how far the current spot is from the max pain
// strike, in points and as excess pain over the curve minimum.
func PainScore(spot float64, result models.MaxPainResult) Score {
	score := Score{
		DistanceFromMaxPain: spot - result.MaxPainStrike,
	}
	if result.MaxPainStrike != 0 {
		score.DistancePercent = score.DistanceFromMaxPain / result.MaxPainStrike * 100
	}
	if len(result.PainCurve) == 0 {
		return score
	}

	closest := result.PainCurve[0]
	minPain := math.Inf(1)
	for _, point := range result.PainCurve {
		if math.Abs(point.Strike-spot) < math.Abs(closest.Strike-spot) {
			closest = point
		}
		if point.TotalPain < minPain {
			minPain = point.TotalPain
		}
	}

	score.CurrentPain = closest.TotalPain
	score.MinPain = minPain
	if minPain > 0 {
		score.PainScore = (score.CurrentPain - minPain) / minPain
	}
	return score
}
