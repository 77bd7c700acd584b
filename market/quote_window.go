package market

import "time"

// QuoteWindow 按插入顺序保存某个 instrument 最近的报价。
// 淘汰只在 Append 时发生：保留的元素与最新写入元素的时间差不超过 span，
// 与墙钟 now 无关；查询不会淘汰任何数据。
type QuoteWindow struct {
	span   time.Duration
	quotes []TimestampedQuote
}

func NewQuoteWindow(span time.Duration) *QuoteWindow {
	return &QuoteWindow{span: span}
}

// Append 写入新报价，并从头部淘汰与其相差超过 span 的旧报价。
func (w *QuoteWindow) Append(q TimestampedQuote) {
	if len(w.quotes) == 0 {
		w.quotes = append(w.quotes, q)
		return
	}
	drop := 0
	for drop < len(w.quotes) && absDuration(q.Timestamp.Sub(w.quotes[drop].Timestamp)) > w.span {
		drop++
	}
	if drop > 0 {
		// 复制到新切片，避免底层数组无限增长
		kept := make([]TimestampedQuote, len(w.quotes)-drop, len(w.quotes)-drop+1)
		copy(kept, w.quotes[drop:])
		w.quotes = kept
	}
	w.quotes = append(w.quotes, q)
}

// Len returns the number of retained quotes.
func (w *QuoteWindow) Len() int {
	return len(w.quotes)
}

// Head returns the oldest retained quote.
func (w *QuoteWindow) Head() (TimestampedQuote, bool) {
	if len(w.quotes) == 0 {
		return TimestampedQuote{}, false
	}
	return w.quotes[0], true
}

// Each 按插入顺序遍历；fn 返回 false 时停止。
func (w *QuoteWindow) Each(fn func(TimestampedQuote) bool) {
	for _, q := range w.quotes {
		if !fn(q) {
			return
		}
	}
}

// Quotes returns a copy of the retained quotes, oldest first.
func (w *QuoteWindow) Quotes() []TimestampedQuote {
	out := make([]TimestampedQuote, len(w.quotes))
	copy(out, w.quotes)
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
