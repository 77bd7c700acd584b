package market

import "time"

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock 默认使用 UTC 墙钟时间。
var SystemClock Clock = systemClock{}
