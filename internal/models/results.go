package models

import "time"

// GreeksResult holds Black-Scholes outputs for a single option contract.
// D1 and D2 are the intermediates the greeks were derived from.
type GreeksResult struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64 // per calendar day
	Vega  float64 // per 1-point vol move
	Rho   float64 // per 1-point rate move
	D1    float64
	D2    float64
}

// GexLevel is the gamma exposure decomposition for one strike.
type GexLevel struct {
	Strike        float64
	CallOI        int64
	PutOI         int64
	Gamma         float64
	CallGex       float64
	PutGex        float64
	NetGex        float64
	CumulativeGex float64
}

// GexSummary aggregates the per-strike levels into regime information.
// FlipLevel is nil when the cumulative curve never changes sign.
type GexSummary struct {
	NetGex            float64
	GexAboveSpot      float64
	GexBelowSpot      float64
	FlipLevel         *float64
	MaxPositiveStrike float64
	MaxNegativeStrike float64
	Regime            GexRegime
	Bias              TradingBias
	Spot              float64
}

// PainPoint is the option-writer loss if the chain settles at Strike.
type PainPoint struct {
	Strike    float64
	CallLoss  float64
	PutLoss   float64
	TotalPain float64
}

// MaxPainResult holds the full pain curve and the argmin strike.
type MaxPainResult struct {
	MaxPainStrike float64
	PainCurve     []PainPoint
}

// SupportResistance holds OI-concentration levels around the chain.
// Resistance strikes are sorted descending, support ascending.
type SupportResistance struct {
	Resistance []float64
	Support    []float64
}

// OiWall is a strike with disproportionately large open interest.
type OiWall struct {
	Strike float64
	OI     int64
}

// StrikeBuildup is the buildup classification for one strike.
type StrikeBuildup struct {
	Strike float64
	Call   BuildupCategory
	Put    BuildupCategory
}

// OiDistribution splits open interest by moneyness relative to spot.
type OiDistribution struct {
	ITMCallOI int64
	OTMCallOI int64
	ITMPutOI  int64
	OTMPutOI  int64
}

// OiSummary is the open-interest sentiment picture for one snapshot.
type OiSummary struct {
	PCR          float64
	Method       PCRMethod
	Sentiment    Sentiment
	CallWalls    []OiWall
	PutWalls     []OiWall
	Buildup      []StrikeBuildup
	Distribution OiDistribution
}

// ChainAnalysis bundles the independent engine outputs for one snapshot.
type ChainAnalysis struct {
	Symbol       string
	Spot         float64
	Timestamp    time.Time
	ExpiryDate   time.Time
	DaysToExpiry int
	GexLevels    []GexLevel
	Gex          GexSummary
	MaxPain      MaxPainResult
	Levels       SupportResistance
	OI           OiSummary
}
