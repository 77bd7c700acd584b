package market

import "time"

// SentinelPrice 表示该区间从未收到过报价。
const SentinelPrice = -1.0

// Candlestick represents OHLC data for one bucket.
type Candlestick struct {
	OpenTimestamp  time.Time
	CloseTimestamp time.Time
	OpenPrice      float64
	HighPrice      float64
	LowPrice       float64
	ClosingPrice   float64
}

// IsSentinel reports whether the candlestick carries no data.
func (c Candlestick) IsSentinel() bool {
	return c.OpenPrice == SentinelPrice &&
		c.HighPrice == SentinelPrice &&
		c.LowPrice == SentinelPrice &&
		c.ClosingPrice == SentinelPrice
}

func sentinelCandlestick(from, to time.Time) Candlestick {
	return Candlestick{
		OpenTimestamp:  from,
		CloseTimestamp: to,
		OpenPrice:      SentinelPrice,
		HighPrice:      SentinelPrice,
		LowPrice:       SentinelPrice,
		ClosingPrice:   SentinelPrice,
	}
}
