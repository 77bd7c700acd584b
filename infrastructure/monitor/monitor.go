package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 写入路径
	quotesReceived   prometheus.Counter
	instrumentEvents *prometheus.CounterVec
	decodeErrors     *prometheus.CounterVec

	// 存储状态
	activeInstruments prometheus.Gauge
	quoteWindows      prometheus.Gauge
	retainedQuotes    prometheus.Gauge

	// 查询路径
	queryLatency prometheus.Histogram
	httpRequests *prometheus.CounterVec

	// 上游连接
	wsConnections *prometheus.CounterVec
	wsDisconnects *prometheus.CounterVec
	wsConnected   *prometheus.GaugeVec
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "candles",
		Subsystem: "service",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		quotesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "quotes_received_total",
			Help:      "收到的报价总数",
		}),
		instrumentEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "instrument_events_total",
				Help:      "instrument 事件总数（按类型）",
			},
			[]string{"type"},
		),
		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decode_errors_total",
				Help:      "无法解析的上游消息数",
			},
			[]string{"stream"},
		),

		activeInstruments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "active_instruments",
			Help:      "已注册的 instrument 数量",
		}),
		quoteWindows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "quote_windows",
			Help:      "报价窗口数量（含未注册 ISIN）",
		}),
		retainedQuotes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "retained_quotes",
			Help:      "所有窗口中保留的报价数",
		}),

		queryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "candlestick_query_seconds",
			Help:      "K线聚合耗时分布（秒）",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "HTTP请求总数",
			},
			[]string{"route", "code"},
		),

		wsConnections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ws_connections_total",
				Help:      "WebSocket连接次数",
			},
			[]string{"stream"},
		),
		wsDisconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ws_disconnects_total",
				Help:      "WebSocket断开次数",
			},
			[]string{"stream"},
		),
		wsConnected: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ws_connected",
				Help:      "WebSocket当前是否连接(0/1)",
			},
			[]string{"stream"},
		),
	}
}

func (m *Monitor) RecordQuote() {
	m.quotesReceived.Inc()
}

func (m *Monitor) RecordInstrumentEvent(eventType string) {
	m.instrumentEvents.WithLabelValues(eventType).Inc()
}

func (m *Monitor) RecordDecodeError(stream string) {
	m.decodeErrors.WithLabelValues(stream).Inc()
}

// UpdateStoreStats 更新存储规模指标
func (m *Monitor) UpdateStoreStats(instruments, windows, quotes int) {
	m.activeInstruments.Set(float64(instruments))
	m.quoteWindows.Set(float64(windows))
	m.retainedQuotes.Set(float64(quotes))
}

func (m *Monitor) RecordQueryLatency(seconds float64) {
	m.queryLatency.Observe(seconds)
}

func (m *Monitor) RecordHTTPRequest(route, code string) {
	m.httpRequests.WithLabelValues(route, code).Inc()
}

func (m *Monitor) RecordWSConnection(stream string) {
	m.wsConnections.WithLabelValues(stream).Inc()
	m.wsConnected.WithLabelValues(stream).Set(1)
}

func (m *Monitor) RecordWSDisconnect(stream string) {
	m.wsDisconnects.WithLabelValues(stream).Inc()
	m.wsConnected.WithLabelValues(stream).Set(0)
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
