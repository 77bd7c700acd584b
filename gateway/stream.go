package gateway

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"candlestick-service/infrastructure/alert"
	"candlestick-service/infrastructure/logger"
	"candlestick-service/infrastructure/monitor"
)

// MessageHandler 处理一条原始 ws 消息。
type MessageHandler interface {
	OnRawMessage([]byte)
}

// StreamConfig 描述一个上游 WebSocket 流。
type StreamConfig struct {
	Name         string
	URL          string
	MaxRetries   int           // 连续拨号失败上限，<=0 表示无限重试
	RetryBackoff time.Duration // 线性退避基数
	ReadTimeout  time.Duration // 0 表示不设读超时
}

// Stream 连接上游 WebSocket 流并把消息交给 handler，断线自动重连。
type Stream struct {
	cfg     StreamConfig
	handler MessageHandler
	Dialer  *websocket.Dialer

	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	onFatalError func(error)
	connected    atomic.Bool
}

func NewStream(cfg StreamConfig, handler MessageHandler, l *logger.Logger, m *monitor.Monitor, alerts *alert.Manager) *Stream {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 3 * time.Second
	}
	return &Stream{
		cfg:     cfg,
		handler: handler,
		Dialer:  websocket.DefaultDialer,
		logger:  l,
		monitor: m,
		alerts:  alerts,
	}
}

// SetFatalErrorHandler 设置致命错误回调（重试耗尽时通知主程序退出）
func (s *Stream) SetFatalErrorHandler(fn func(error)) {
	s.onFatalError = fn
}

// Name returns the stream name used in logs and metrics.
func (s *Stream) Name() string { return s.cfg.Name }

// Connected reports whether a connection is currently open.
func (s *Stream) Connected() bool { return s.connected.Load() }

// Run 阻塞运行直到 ctx 取消或重试耗尽。
func (s *Stream) Run(ctx context.Context) error {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, _, err := s.Dialer.DialContext(ctx, s.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.cfg.MaxRetries > 0 && retries >= s.cfg.MaxRetries {
				fatal := fmt.Errorf("%s stream reconnection failed after %d retries: %w", s.cfg.Name, retries, err)
				s.logger.LogError(fatal, map[string]interface{}{"stream": s.cfg.Name, "url": s.cfg.URL})
				s.sendAlert(alert.LevelCritical, "stream gave up reconnecting", map[string]interface{}{"error": err.Error()})
				if s.onFatalError != nil {
					s.onFatalError(fatal)
				}
				return fatal
			}
			retries++
			backoff := time.Duration(retries) * s.cfg.RetryBackoff
			s.logger.Warn("ws dial failed",
				zap.String("stream", s.cfg.Name),
				zap.Int("attempt", retries),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			continue
		}

		retries = 0
		s.connected.Store(true)
		s.monitor.RecordWSConnection(s.cfg.Name)
		s.logger.LogStream("connected", s.cfg.Name, map[string]interface{}{"url": s.cfg.URL})
		if s.alerts != nil {
			s.alerts.Clear(s.cfg.Name, alert.LevelWarning)
		}

		err = s.readLoop(ctx, conn)

		s.connected.Store(false)
		s.monitor.RecordWSDisconnect(s.cfg.Name)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.LogStream("disconnected", s.cfg.Name, map[string]interface{}{"error": err.Error()})
		s.sendAlert(alert.LevelWarning, "stream disconnected", map[string]interface{}{"error": err.Error()})
		if !sleepCtx(ctx, s.cfg.RetryBackoff) {
			return ctx.Err()
		}
	}
}

// readLoop 读取消息直到出错；ctx 取消时关闭连接以打断阻塞读。
func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	s.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		s.extendDeadline(conn)
		return nil
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.extendDeadline(conn)
		s.handler.OnRawMessage(msg)
	}
}

func (s *Stream) extendDeadline(conn *websocket.Conn) {
	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
}

func (s *Stream) sendAlert(level alert.Level, message string, fields map[string]interface{}) {
	if s.alerts == nil {
		return
	}
	fields["stream"] = s.cfg.Name
	if err := s.alerts.SendAlert(alert.Alert{Level: level, Key: s.cfg.Name, Message: message, Fields: fields}); err != nil {
		s.logger.Warn("send alert failed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
