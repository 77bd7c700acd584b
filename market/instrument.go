package market

import "time"

// Instrument 是注册表中的一条记录，由 ADD 事件创建、DELETE 事件移除。
type Instrument struct {
	ISIN        string
	Description string
}

// Quote represents a price update for one instrument.
type Quote struct {
	ISIN  string
	Price float64
}

// TimestampedQuote 是写入窗口时打上接收时间的报价（时间由 Clock 提供，而非上游）。
type TimestampedQuote struct {
	Quote
	Timestamp time.Time
}
