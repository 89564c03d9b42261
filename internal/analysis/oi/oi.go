// Package oi analyzes open-interest positioning: put-call ratio,
// OI walls and per-strike buildup classification.
package oi

import (
	"math"
	"sort"

	"github.com/kangrills/nifty-expiry-predictor/internal/errors"
	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// Thresholds are the configurable PCR sentiment cut-offs. The reading
// is contrarian: heavy put writing is taken as bullish.
type Thresholds struct {
	Bullish float64
	Bearish float64
}

// DefaultThresholds returns the standard PCR cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Bullish: 1.2, Bearish: 0.8}
}

// CalculatePCR computes the put-call ratio over the whole chain using
// open interest or traded volume. A zero call denominator yields 0.
func CalculatePCR(snap *models.OptionChainSnapshot, method models.PCRMethod) (float64, error) {
	if err := snap.Validate(); err != nil {
		return 0, err
	}

	var callTotal, putTotal int64
	switch method {
	case models.PCRByOI:
		for _, row := range snap.Rows {
			callTotal += row.CallOI
			putTotal += row.PutOI
		}
	case models.PCRByVolume:
		for _, row := range snap.Rows {
			callTotal += row.CallVolume
			putTotal += row.PutVolume
		}
	default:
		return 0, errors.NewValidationError("method", string(method), "must be 'oi' or 'volume'")
	}

	if callTotal == 0 {
		return 0, nil
	}
	return float64(putTotal) / float64(callTotal), nil
}

// InterpretPCR maps a ratio onto a sentiment bucket.
func InterpretPCR(pcr float64, th Thresholds) models.Sentiment {
	switch {
	case pcr > th.Bullish:
		return models.SentimentBullish
	case pcr < th.Bearish:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

// FindWalls returns the top numWalls strikes by call OI (resistance)
// and put OI (support), each ordered by descending OI with ties broken
// by proximity to spot.
func FindWalls(snap *models.OptionChainSnapshot, numWalls int) (callWalls, putWalls []models.OiWall, err error) {
	if err := snap.Validate(); err != nil {
		return nil, nil, err
	}
	if numWalls > len(snap.Rows) {
		numWalls = len(snap.Rows)
	}

	spot := snap.UnderlyingSpot
	closer := func(a, b float64) bool {
		return math.Abs(a-spot) < math.Abs(b-spot)
	}

	rows := make([]models.StrikeRow, len(snap.Rows))
	copy(rows, snap.Rows)

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CallOI != rows[j].CallOI {
			return rows[i].CallOI > rows[j].CallOI
		}
		return closer(rows[i].Strike, rows[j].Strike)
	})
	callWalls = make([]models.OiWall, numWalls)
	for i := 0; i < numWalls; i++ {
		callWalls[i] = models.OiWall{Strike: rows[i].Strike, OI: rows[i].CallOI}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PutOI != rows[j].PutOI {
			return rows[i].PutOI > rows[j].PutOI
		}
		return closer(rows[i].Strike, rows[j].Strike)
	})
	putWalls = make([]models.OiWall, numWalls)
	for i := 0; i < numWalls; i++ {
		putWalls[i] = models.OiWall{Strike: rows[i].Strike, OI: rows[i].PutOI}
	}

	return callWalls, putWalls, nil
}

// ClassifyBuildup labels each strike's call and put legs from the sign
// of the session price change and the OI change. A leg with a missing
// price or no change on either input is reported indeterminate, never
// guessed.
func ClassifyBuildup(snap *models.OptionChainSnapshot) ([]models.StrikeBuildup, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	buildup := make([]models.StrikeBuildup, len(snap.Rows))
	for i, row := range snap.Rows {
		buildup[i] = models.StrikeBuildup{
			Strike: row.Strike,
			Call:   classifyLeg(row.CallLTP, row.CallLTPChange, row.CallOIChange),
			Put:    classifyLeg(row.PutLTP, row.PutLTPChange, row.PutOIChange),
		}
	}
	return buildup, nil
}

func classifyLeg(ltp, priceChange float64, oiChange int64) models.BuildupCategory {
	if ltp <= 0 || priceChange == 0 || oiChange == 0 {
		return models.Indeterminate
	}

	priceUp := priceChange > 0
	oiUp := oiChange > 0

	switch {
	case priceUp && oiUp:
		return models.LongBuildup
	case !priceUp && oiUp:
		return models.ShortBuildup
	case !priceUp && !oiUp:
		return models.LongUnwinding
	default:
		return models.ShortCovering
	}
}

// Distribution splits the chain's open interest by moneyness.
func Distribution(snap *models.OptionChainSnapshot) models.OiDistribution {
	var dist models.OiDistribution
	for _, row := range snap.Rows {
		switch {
		case row.Strike < snap.UnderlyingSpot:
			dist.ITMCallOI += row.CallOI
			dist.OTMPutOI += row.PutOI
		case row.Strike > snap.UnderlyingSpot:
			dist.OTMCallOI += row.CallOI
			dist.ITMPutOI += row.PutOI
		default:
			// ATM is out of the money on both sides
			dist.OTMCallOI += row.CallOI
			dist.OTMPutOI += row.PutOI
		}
	}
	return dist
}

// Summarize runs the full open-interest analysis for one snapshot.
func Summarize(snap *models.OptionChainSnapshot, method models.PCRMethod, th Thresholds, numWalls int) (models.OiSummary, error) {
	pcr, err := CalculatePCR(snap, method)
	if err != nil {
		return models.OiSummary{}, err
	}

	callWalls, putWalls, err := FindWalls(snap, numWalls)
	if err != nil {
		return models.OiSummary{}, err
	}

	buildup, err := ClassifyBuildup(snap)
	if err != nil {
		return models.OiSummary{}, err
	}

	return models.OiSummary{
		PCR:          pcr,
		Method:       method,
		Sentiment:    InterpretPCR(pcr, th),
		CallWalls:    callWalls,
		PutWalls:     putWalls,
		Buildup:      buildup,
		Distribution: Distribution(snap),
	}, nil
}
