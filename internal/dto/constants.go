package dto

type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendSame    Trend = "same"
	TrendUnknown Trend = "unknown"
)

type MarketTrend string

const (
	MarketBullish MarketTrend = "Bullish"
	MarketBearish MarketTrend = "Bearish"
	MarketNeutral MarketTrend = "Neutral"
)
