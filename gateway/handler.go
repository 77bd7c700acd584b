package gateway

import (
	"go.uber.org/zap"

	"candlestick-service/infrastructure/logger"
	"candlestick-service/infrastructure/monitor"
	"candlestick-service/market"
)

// InstrumentSink 接收 instrument 生命周期事件（通常是 *market.Store）。
type InstrumentSink interface {
	AddInstrument(market.Instrument)
	DeleteInstrument(isin string)
}

// QuoteSink 接收报价。
type QuoteSink interface {
	AddQuote(market.Quote)
}

// InstrumentHandler 解析 instruments 流消息并写入 Store。
type InstrumentHandler struct {
	sink    InstrumentSink
	logger  *logger.Logger
	monitor *monitor.Monitor
}

func NewInstrumentHandler(sink InstrumentSink, l *logger.Logger, m *monitor.Monitor) *InstrumentHandler {
	return &InstrumentHandler{sink: sink, logger: l, monitor: m}
}

// OnRawMessage 处理一条原始 ws 消息。
func (h *InstrumentHandler) OnRawMessage(msg []byte) {
	ev, err := ParseInstrumentEvent(msg)
	if err != nil {
		h.monitor.RecordDecodeError("instruments")
		h.logger.Warn("drop instrument message", zap.Error(err), zap.ByteString("raw", msg))
		return
	}
	h.monitor.RecordInstrumentEvent(ev.Type)
	switch ev.Type {
	case InstrumentAdd:
		h.sink.AddInstrument(market.Instrument{ISIN: ev.Data.ISIN, Description: ev.Data.Description})
		h.logger.LogInstrument("added", ev.Data.ISIN, map[string]interface{}{"description": ev.Data.Description})
	case InstrumentDelete:
		h.sink.DeleteInstrument(ev.Data.ISIN)
		h.logger.LogInstrument("deleted", ev.Data.ISIN, nil)
	default:
		h.logger.Debug("ignore instrument event", zap.String("type", ev.Type), zap.String("isin", ev.Data.ISIN))
	}
}

// QuoteHandler 解析 quotes 流消息并写入 Store。
type QuoteHandler struct {
	sink    QuoteSink
	logger  *logger.Logger
	monitor *monitor.Monitor
}

func NewQuoteHandler(sink QuoteSink, l *logger.Logger, m *monitor.Monitor) *QuoteHandler {
	return &QuoteHandler{sink: sink, logger: l, monitor: m}
}

func (h *QuoteHandler) OnRawMessage(msg []byte) {
	ev, err := ParseQuoteEvent(msg)
	if err != nil {
		h.monitor.RecordDecodeError("quotes")
		h.logger.Warn("drop quote message", zap.Error(err), zap.ByteString("raw", msg))
		return
	}
	h.sink.AddQuote(market.Quote{ISIN: ev.Data.ISIN, Price: ev.Data.Price})
	h.monitor.RecordQuote()
}
