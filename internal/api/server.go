package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"candlestick-service/infrastructure/logger"
	"candlestick-service/infrastructure/monitor"
	"candlestick-service/market"
)

// CandlestickSource 是查询路径依赖的只读视图（通常是 *market.Store）。
type CandlestickSource interface {
	Candlesticks(isin string) []market.Candlestick
	Instruments() []market.Instrument
}

type candlestickResponse struct {
	OpenTimestamp  time.Time `json:"openTimestamp"`
	CloseTimestamp time.Time `json:"closeTimestamp"`
	OpenPrice      float64   `json:"openPrice"`
	HighPrice      float64   `json:"highPrice"`
	LowPrice       float64   `json:"lowPrice"`
	ClosingPrice   float64   `json:"closingPrice"`
}

type instrumentResponse struct {
	ISIN        string `json:"isin"`
	Description string `json:"description"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server 提供 K 线查询 HTTP 接口。
type Server struct {
	src     CandlestickSource
	logger  *logger.Logger
	monitor *monitor.Monitor
	mux     *http.ServeMux
}

func NewServer(src CandlestickSource, l *logger.Logger, m *monitor.Monitor) *Server {
	s := &Server{
		src:     src,
		logger:  l,
		monitor: m,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /candlesticks", s.handleCandlesticks)
	s.mux.HandleFunc("GET /instruments", s.handleInstruments)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler 返回带 request id 与访问日志的 handler。
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

func (s *Server) handleCandlesticks(w http.ResponseWriter, r *http.Request) {
	isin := r.URL.Query().Get("isin")
	if isin == "" {
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "missing isin"})
		return
	}

	start := time.Now()
	candles := s.src.Candlesticks(isin)
	s.monitor.RecordQueryLatency(time.Since(start).Seconds())

	out := make([]candlestickResponse, 0, len(candles))
	for _, c := range candles {
		out = append(out, candlestickResponse{
			OpenTimestamp:  c.OpenTimestamp,
			CloseTimestamp: c.CloseTimestamp,
			OpenPrice:      c.OpenPrice,
			HighPrice:      c.HighPrice,
			LowPrice:       c.LowPrice,
			ClosingPrice:   c.ClosingPrice,
		})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	instruments := s.src.Instruments()
	out := make([]instrumentResponse, 0, len(instruments))
	for _, inst := range instruments {
		out = append(out, instrumentResponse{ISIN: inst.ISIN, Description: inst.Description})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	raw, err := sonic.Marshal(body)
	if err != nil {
		s.logger.Error("encode response",
			zap.Error(err),
			zap.String("request_id", RequestIDFromContext(r.Context())))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
