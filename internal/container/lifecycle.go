package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"candlestick-service/config"
	"candlestick-service/gateway"
	"candlestick-service/infrastructure/logger"
	"candlestick-service/infrastructure/monitor"
	"candlestick-service/market"
)

// Lifecycle 生命周期接口
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
	}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll 按顺序启动所有组件
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			// 启动失败，回滚已启动的组件
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].Stop()
			}
			return fmt.Errorf("start component %d failed: %w", i, err)
		}
	}
	return nil
}

// StopAll 逆序停止所有组件
func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	// 逆序停止
	for i := len(m.components) - 1; i >= 0; i-- {
		if err := m.components[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// CheckHealth 检查所有组件健康状态
func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("component %d unhealthy: %w", i, err)
		}
	}
	return nil
}

// httpServerComponent HTTP服务器组件
type httpServerComponent struct {
	name    string
	handler http.Handler
	addr    string
	logger  *logger.Logger
	server  **http.Server
	started bool
	mu      sync.Mutex

	listenAddr string
}

// Addr 返回实际监听地址（addr 为 ":0" 时有用）。
func (h *httpServerComponent) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listenAddr
}

func (h *httpServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}

	srv := &http.Server{
		Addr:    h.addr,
		Handler: h.handler,
	}
	*h.server = srv

	// 先同步监听，端口占用等错误直接返回
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("%s listen failed: %w", h.name, err)
	}
	h.listenAddr = ln.Addr().String()

	go func() {
		h.logger.Info("http server listening", zap.String("component", h.name), zap.String("addr", h.listenAddr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.LogError(err, map[string]interface{}{
				"component": h.name,
				"action":    "listen",
			})
		}
	}()

	h.started = true
	return nil
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || *h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := (*h.server).Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}

	h.logger.Info("http server stopped", zap.String("component", h.name))
	h.started = false
	return nil
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	return nil
}

// backgroundTask 在独立 goroutine 中运行 run，Stop 时取消并等待退出。
type backgroundTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func (b *backgroundTask) start(ctx context.Context, run func(ctx context.Context)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		run(runCtx)
	}(b.done)
	return true
}

func (b *backgroundTask) stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (b *backgroundTask) running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

// streamComponent 运行一个上游 WebSocket 流。
type streamComponent struct {
	stream *gateway.Stream
	logger *logger.Logger
	task   backgroundTask
}

func (s *streamComponent) Start(ctx context.Context) error {
	s.task.start(ctx, func(ctx context.Context) {
		if err := s.stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.LogError(err, map[string]interface{}{"stream": s.stream.Name()})
		}
	})
	return nil
}

func (s *streamComponent) Stop() error {
	s.task.stop()
	s.logger.LogStream("stopped", s.stream.Name(), nil)
	return nil
}

func (s *streamComponent) Health() error {
	if !s.task.running() {
		return fmt.Errorf("%s stream not running", s.stream.Name())
	}
	return nil
}

// statsSource 是 statsReporter 依赖的存储视图。
type statsSource interface {
	Stats() market.StoreStats
}

// statsReporter 定期把存储规模写入 Prometheus gauge。
type statsReporter struct {
	store    statsSource
	monitor  *monitor.Monitor
	interval time.Duration
	task     backgroundTask
}

func (r *statsReporter) Start(ctx context.Context) error {
	if r.interval <= 0 {
		r.interval = 5 * time.Second
	}
	r.task.start(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		r.report()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.report()
			}
		}
	})
	return nil
}

func (r *statsReporter) report() {
	st := r.store.Stats()
	r.monitor.UpdateStoreStats(st.Instruments, st.Windows, st.RetainedQuotes)
}

func (r *statsReporter) Stop() error {
	r.task.stop()
	return nil
}

func (r *statsReporter) Health() error { return nil }

// configWatcherComponent 监听配置文件变更。
type configWatcherComponent struct {
	watcher  config.Watcher
	onUpdate func(config.AppConfig)
	task     backgroundTask
}

func (w *configWatcherComponent) Start(ctx context.Context) error {
	w.task.start(ctx, func(ctx context.Context) {
		if err := w.watcher.Start(ctx, w.onUpdate); err != nil && !errors.Is(err, context.Canceled) && w.watcher.OnError != nil {
			w.watcher.OnError(err)
		}
	})
	return nil
}

func (w *configWatcherComponent) Stop() error {
	w.task.stop()
	return nil
}

func (w *configWatcherComponent) Health() error { return nil }
