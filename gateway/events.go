package gateway

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// 上游 instrument 流的事件类型；其他类型在进入 Store 之前被忽略。
const (
	InstrumentAdd    = "ADD"
	InstrumentDelete = "DELETE"
	QuoteEventType   = "QUOTE"
)

// ErrMissingISIN 表示消息中缺少 isin 字段。
var ErrMissingISIN = errors.New("missing isin")

// InstrumentEvent 对应 instruments 流的一条消息。
type InstrumentEvent struct {
	Type string         `json:"type"`
	Data InstrumentData `json:"data"`
}

type InstrumentData struct {
	ISIN        string `json:"isin"`
	Description string `json:"description"`
}

// QuoteEvent 对应 quotes 流的一条消息。
type QuoteEvent struct {
	Type string    `json:"type"`
	Data QuoteData `json:"data"`
}

type QuoteData struct {
	ISIN  string  `json:"isin"`
	Price float64 `json:"price"`
}

// ParseInstrumentEvent 解析 instrument 事件。
func ParseInstrumentEvent(raw []byte) (InstrumentEvent, error) {
	var ev InstrumentEvent
	if err := sonic.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("decode instrument event: %w", err)
	}
	if ev.Data.ISIN == "" {
		return ev, ErrMissingISIN
	}
	return ev, nil
}

// ParseQuoteEvent 解析报价事件，不校验 type 字段。
func ParseQuoteEvent(raw []byte) (QuoteEvent, error) {
	var ev QuoteEvent
	if err := sonic.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("decode quote event: %w", err)
	}
	if ev.Data.ISIN == "" {
		return ev, ErrMissingISIN
	}
	return ev, nil
}
