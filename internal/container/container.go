package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"candlestick-service/config"
	"candlestick-service/gateway"
	"candlestick-service/infrastructure/alert"
	"candlestick-service/infrastructure/logger"
	"candlestick-service/infrastructure/monitor"
	"candlestick-service/internal/api"
	"candlestick-service/market"
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置
	cfg        *config.AppConfig
	configPath string

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	// 核心服务
	store *market.Store
	api   *api.Server

	// 上游流
	instrumentStream *gateway.Stream
	quoteStream      *gateway.Stream

	// HTTP服务器
	apiServer     *http.Server
	metricsServer *http.Server
	apiComponent  *httpServerComponent

	// 生命周期管理
	lifecycle *LifecycleManager
	fatal     chan error
}

// New 创建新的Container实例
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewFromConfig(cfg, configPath), nil
}

// NewFromConfig 使用已加载的配置创建 Container；configPath 为空时不监听配置变更。
func NewFromConfig(cfg config.AppConfig, configPath string) *Container {
	return &Container{
		cfg:        &cfg,
		configPath: configPath,
		lifecycle:  NewLifecycleManager(),
		fatal:      make(chan error, 2),
	}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}

	c.buildStreams()
	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}

	c.monitor = monitor.New(monitor.DefaultConfig())
	c.alerts = alert.NewManager([]alert.Channel{alert.NewLogChannel("log", c.logger)}, c.cfg.Alert.Throttle)

	c.logger.Info("infrastructure built")
	return nil
}

func (c *Container) buildCoreServices() error {
	window := c.cfg.Candles.WindowDuration()
	bucket := c.cfg.Candles.BucketDuration()

	var err error
	c.store, err = market.NewStore(window, bucket)
	if err != nil {
		return fmt.Errorf("create store failed: %w", err)
	}
	if !c.cfg.Candles.EvenlyDivided() {
		c.logger.Warn("bucket does not divide window evenly, first candlestick will be shorter",
			zap.Duration("window", window),
			zap.Duration("bucket", bucket))
	}

	c.api = api.NewServer(c.store, c.logger, c.monitor)

	c.logger.Info("core services built",
		zap.Duration("window", window),
		zap.Duration("bucket", bucket))
	return nil
}

func (c *Container) buildStreams() {
	sc := c.cfg.Streams
	c.instrumentStream = gateway.NewStream(gateway.StreamConfig{
		Name:         "instruments",
		URL:          sc.Instruments.URL,
		MaxRetries:   sc.MaxRetries,
		RetryBackoff: sc.RetryBackoff,
		ReadTimeout:  sc.Instruments.ReadTimeout,
	}, gateway.NewInstrumentHandler(c.store, c.logger, c.monitor), c.logger, c.monitor, c.alerts)

	c.quoteStream = gateway.NewStream(gateway.StreamConfig{
		Name:         "quotes",
		URL:          sc.Quotes.URL,
		MaxRetries:   sc.MaxRetries,
		RetryBackoff: sc.RetryBackoff,
		ReadTimeout:  sc.Quotes.ReadTimeout,
	}, gateway.NewQuoteHandler(c.store, c.logger, c.monitor), c.logger, c.monitor, c.alerts)

	for _, s := range []*gateway.Stream{c.instrumentStream, c.quoteStream} {
		s.SetFatalErrorHandler(c.reportFatal)
	}
}

func (c *Container) reportFatal(err error) {
	select {
	case c.fatal <- err:
	default:
	}
}

func (c *Container) registerLifecycleComponents() {
	if c.monitor != nil && c.cfg.Metrics.Addr != "" {
		c.lifecycle.Register(&httpServerComponent{
			name:    "metrics_server",
			handler: c.monitor.Handler(),
			addr:    c.cfg.Metrics.Addr,
			logger:  c.logger,
			server:  &c.metricsServer,
		})
	}
	c.lifecycle.Register(&statsReporter{
		store:    c.store,
		monitor:  c.monitor,
		interval: 5 * time.Second,
	})
	if c.configPath != "" {
		c.lifecycle.Register(&configWatcherComponent{
			watcher: config.Watcher{
				Path:     c.configPath,
				Cooldown: time.Second,
				OnError: func(err error) {
					c.logger.LogError(err, map[string]interface{}{"component": "config_watcher"})
				},
			},
			onUpdate: c.applyConfig,
		})
	}
	// 先接入口数据，再对外提供查询
	c.lifecycle.Register(&streamComponent{stream: c.instrumentStream, logger: c.logger})
	c.lifecycle.Register(&streamComponent{stream: c.quoteStream, logger: c.logger})
	c.apiComponent = &httpServerComponent{
		name:    "api_server",
		handler: c.api.Handler(),
		addr:    c.cfg.HTTP.Addr,
		logger:  c.logger,
		server:  &c.apiServer,
	}
	c.lifecycle.Register(c.apiComponent)
}

// applyConfig 热更新：只有日志级别会立即生效，窗口参数需要重启。
func (c *Container) applyConfig(next config.AppConfig) {
	if err := c.logger.SetLevel(next.Log.Level); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "set_level"})
	} else {
		c.logger.Info("log level updated", zap.String("level", next.Log.Level))
	}
	if next.Candles != c.cfg.Candles {
		c.logger.Warn("candles config changed, restart required to apply",
			zap.Int("window", next.Candles.Window),
			zap.Int("bucket", next.Candles.Bucket),
			zap.String("unit", next.Candles.Unit))
	}
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	c.logger.Info("container started")
	return nil
}

func (c *Container) Stop() error {
	c.logger.Info("stopping container...")

	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}

	if c.logger != nil {
		c.logger.Close()
	}
	return err
}

// Fatal 在任一上游流重试耗尽时收到错误。
func (c *Container) Fatal() <-chan error {
	return c.fatal
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

// Store exposes the quote store, mainly for tests and tooling.
func (c *Container) Store() *market.Store {
	return c.store
}

// APIAddr 返回查询接口的实际监听地址，未启动时为空。
func (c *Container) APIAddr() string {
	if c.apiComponent == nil {
		return ""
	}
	return c.apiComponent.Addr()
}

func (c *Container) Logger() *logger.Logger {
	return c.logger
}
