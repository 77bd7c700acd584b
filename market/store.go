package market

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Store 维护 instrument 注册表与每个 ISIN 的报价窗口。
// 所有公开方法共享同一把锁，互斥执行。
type Store struct {
	window time.Duration
	bucket time.Duration
	clock  Clock

	mu          sync.Mutex
	instruments map[string]Instrument
	windows     map[string]*QuoteWindow
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock 注入时间源，测试中使用脚本化时钟。
func WithClock(c Clock) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// StoreStats is a point-in-time view of the store size.
type StoreStats struct {
	Instruments    int
	Windows        int
	RetainedQuotes int
}

func NewStore(window, bucket time.Duration, opts ...StoreOption) (*Store, error) {
	if window <= 0 {
		return nil, errors.New("window must be > 0")
	}
	if bucket <= 0 {
		return nil, errors.New("bucket must be > 0")
	}
	s := &Store{
		window:      window,
		bucket:      bucket,
		clock:       SystemClock,
		instruments: make(map[string]Instrument),
		windows:     make(map[string]*QuoteWindow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Window returns the configured window duration.
func (s *Store) Window() time.Duration { return s.window }

// Bucket returns the configured bucket duration.
func (s *Store) Bucket() time.Duration { return s.bucket }

// AddInstrument 注册 instrument 并重置其报价窗口（重复 ADD 会清空历史）。
func (s *Store) AddInstrument(inst Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments[inst.ISIN] = inst
	s.windows[inst.ISIN] = NewQuoteWindow(s.window)
}

// DeleteInstrument 移除 instrument 及其窗口；未知 ISIN 为空操作。
func (s *Store) DeleteInstrument(isin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instruments, isin)
	delete(s.windows, isin)
}

// AddQuote 用当前时间给报价打戳并写入窗口；未注册的 ISIN 会懒创建窗口。
func (s *Store) AddQuote(q Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[q.ISIN]
	if !ok {
		w = NewQuoteWindow(s.window)
		s.windows[q.ISIN] = w
	}
	w.Append(TimestampedQuote{Quote: q, Timestamp: s.clock.Now()})
}

// Candlesticks 返回 isin 最近窗口内的 K 线；未知或无报价的 ISIN 返回空切片。
func (s *Store) Candlesticks(isin string) []Candlestick {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[isin]
	if !ok || w.Len() == 0 {
		return []Candlestick{}
	}
	return Candlesticks(w.quotes, s.clock.Now(), s.window, s.bucket)
}

// Instruments returns the registered instruments sorted by ISIN.
func (s *Store) Instruments() []Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Instrument, 0, len(s.instruments))
	for _, inst := range s.instruments {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ISIN < out[j].ISIN })
	return out
}

func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := StoreStats{Instruments: len(s.instruments), Windows: len(s.windows)}
	for _, w := range s.windows {
		st.RetainedQuotes += w.Len()
	}
	return st
}
