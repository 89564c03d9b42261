// Package models provides domain models for option-chain analytics.
package models

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	NFO Exchange = "NFO" // F&O
)

// OptionType distinguishes calls from puts. The Black-Scholes math is one
// formula family parameterized by this tag, not a type hierarchy.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// Sentiment is the contrarian reading of the put-call ratio.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// GexRegime classifies the sign of chain-level net gamma exposure.
type GexRegime string

const (
	RegimePositive GexRegime = "positive"
	RegimeNegative GexRegime = "negative"
	RegimeNeutral  GexRegime = "neutral"
)

// TradingBias is the deterministic mapping of (regime, side of flip level).
type TradingBias string

const (
	BiasMeanReverting          TradingBias = "mean_reverting"
	BiasMeanRevertingSupported TradingBias = "mean_reverting_supported"
	BiasTrending               TradingBias = "trending"
	BiasTrendingDownRisk       TradingBias = "trending_down_risk"
	BiasNeutral                TradingBias = "neutral"
)

// BuildupCategory classifies a strike's price/OI change combination.
type BuildupCategory string

const (
	LongBuildup   BuildupCategory = "long_buildup"
	ShortBuildup  BuildupCategory = "short_buildup"
	LongUnwinding BuildupCategory = "long_unwinding"
	ShortCovering BuildupCategory = "short_covering"
	Indeterminate BuildupCategory = "indeterminate"
)

// PCRMethod selects the put-call ratio numerator and denominator.
type PCRMethod string

const (
	PCRByOI     PCRMethod = "oi"
	PCRByVolume PCRMethod = "volume"
)
