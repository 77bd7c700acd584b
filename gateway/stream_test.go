package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlestick-service/infrastructure/alert"
	"candlestick-service/infrastructure/logger"
	"candlestick-service/infrastructure/monitor"
)

type chanHandler chan []byte

func (c chanHandler) OnRawMessage(msg []byte) {
	select {
	case c <- msg:
	default:
	}
}

// partnerServer 模拟上游流：每个连接依次发送 frames，然后按 closeAfter 决定是否断开。
func partnerServer(t *testing.T, frames []string, closeAfter bool, conns *int32) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		atomic.AddInt32(conns, 1)
		for _, f := range frames {
			if err := c.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if closeAfter {
			return
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamDeliversMessagesUntilCancelled(t *testing.T) {
	var conns int32
	srv := partnerServer(t, []string{`{"n":1}`, `{"n":2}`}, false, &conns)
	msgs := make(chanHandler, 8)
	s := NewStream(StreamConfig{Name: "quotes", URL: wsURL(srv), RetryBackoff: 10 * time.Millisecond},
		msgs, logger.NewNop(), monitor.New(monitor.DefaultConfig()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	for _, want := range []string{`{"n":1}`, `{"n":2}`} {
		select {
		case got := <-msgs:
			assert.Equal(t, want, string(got))
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
	assert.True(t, s.Connected())

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after cancel")
	}
	assert.False(t, s.Connected())
}

func TestStreamReconnectsAndAlerts(t *testing.T) {
	var conns int32
	srv := partnerServer(t, []string{`x`}, true, &conns)
	msgs := make(chanHandler, 64)
	mock := alert.NewMockChannel("mock")
	alerts := alert.NewManager([]alert.Channel{mock}, time.Hour)
	s := NewStream(StreamConfig{Name: "instruments", URL: wsURL(srv), RetryBackoff: 10 * time.Millisecond},
		msgs, logger.NewNop(), monitor.New(monitor.DefaultConfig()), alerts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&conns) >= 3 }, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return mock.Count() >= 1 }, time.Second, 10*time.Millisecond)
	got := mock.GetAlerts()[0]
	assert.Equal(t, alert.LevelWarning, got.Level)
	assert.Equal(t, "instruments", got.Fields["stream"])
}

func TestStreamGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	mock := alert.NewMockChannel("mock")
	alerts := alert.NewManager([]alert.Channel{mock}, time.Hour)
	s := NewStream(StreamConfig{Name: "quotes", URL: url, MaxRetries: 2, RetryBackoff: 5 * time.Millisecond},
		make(chanHandler, 1), logger.NewNop(), monitor.New(monitor.DefaultConfig()), alerts)

	var fatal error
	s.SetFatalErrorHandler(func(err error) { fatal = err })

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, err, fatal)
	assert.False(t, errors.Is(err, context.Canceled))
	require.Equal(t, 1, mock.Count())
	assert.Equal(t, alert.LevelCritical, mock.GetAlerts()[0].Level)
}
