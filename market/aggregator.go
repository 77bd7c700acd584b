package market

import (
	"sort"
	"time"
)

// Boundaries 生成 [now-window, now] 上步长为 bucket 的区间边界。
// 步进值严格小于 now 时才收集，最后总是追加 now 本身，
// 因此边界严格递增，且最后一个区间可能短于 bucket。
func Boundaries(now time.Time, window, bucket time.Duration) []time.Time {
	start := now.Add(-window)
	out := make([]time.Time, 0, bucketCount(window, bucket)+1)
	if bucket > 0 {
		for b := start; b.Before(now); b = b.Add(bucket) {
			out = append(out, b)
		}
	}
	return append(out, now)
}

// Candlesticks 把窗口内的报价按区间聚合为 OHLC。
// quotes 必须按插入（时间）顺序排列。窗口为空时返回空切片；
// 空区间在首位时输出哨兵值，否则沿用前一根的价格。
func Candlesticks(quotes []TimestampedQuote, now time.Time, window, bucket time.Duration) []Candlestick {
	if len(quotes) == 0 {
		return []Candlestick{}
	}
	bounds := Boundaries(now, window, bucket)
	buckets := make([][]float64, len(bounds)-1)
	for _, q := range quotes {
		idx := bucketIndex(bounds, q.Timestamp)
		if idx < 0 {
			continue
		}
		buckets[idx] = append(buckets[idx], q.Price)
	}

	out := make([]Candlestick, 0, len(buckets))
	for i, prices := range buckets {
		from, to := bounds[i], bounds[i+1]
		switch {
		case len(prices) > 0:
			out = append(out, ohlc(prices, from, to))
		case i == 0:
			out = append(out, sentinelCandlestick(from, to))
		default:
			prev := out[i-1]
			prev.OpenTimestamp = from
			prev.CloseTimestamp = to
			out = append(out, prev)
		}
	}
	return out
}

// bucketIndex 返回 ts 所属区间的下标：最大的 boundary <= ts。
// 早于首个边界或落在最后一个边界（now）及之后的报价返回 -1。
func bucketIndex(bounds []time.Time, ts time.Time) int {
	idx := sort.Search(len(bounds), func(i int) bool {
		return bounds[i].After(ts)
	}) - 1
	if idx < 0 || idx >= len(bounds)-1 {
		return -1
	}
	return idx
}

func ohlc(prices []float64, from, to time.Time) Candlestick {
	c := Candlestick{
		OpenTimestamp:  from,
		CloseTimestamp: to,
		OpenPrice:      prices[0],
		HighPrice:      prices[0],
		LowPrice:       prices[0],
		ClosingPrice:   prices[len(prices)-1],
	}
	for _, p := range prices[1:] {
		if p > c.HighPrice {
			c.HighPrice = p
		}
		if p < c.LowPrice {
			c.LowPrice = p
		}
	}
	return c
}

func bucketCount(window, bucket time.Duration) int {
	if bucket <= 0 || window <= 0 {
		return 0
	}
	n := int(window / bucket)
	if window%bucket != 0 {
		n++
	}
	return n
}
