package alert

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"candlestick-service/infrastructure/logger"
)

// LogChannel 把告警写入结构化日志
type LogChannel struct {
	logger *logger.Logger
	name   string
}

func NewLogChannel(name string, l *logger.Logger) *LogChannel {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogChannel{logger: l, name: name}
}

func (c *LogChannel) Send(alert Alert) error {
	fields := make([]zap.Field, 0, len(alert.Fields)+2)
	fields = append(fields, zap.String("level", string(alert.Level)), zap.Time("alert_ts", alert.Timestamp))
	for k, v := range alert.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch alert.Level {
	case LevelCritical:
		c.logger.Error("alert: "+alert.Message, fields...)
	case LevelWarning:
		c.logger.Warn("alert: "+alert.Message, fields...)
	default:
		c.logger.Info("alert: "+alert.Message, fields...)
	}
	return nil
}

func (c *LogChannel) Name() string {
	return c.name
}

// MockChannel 模拟告警通道（用于测试），并发安全
type MockChannel struct {
	name      string
	mu        sync.Mutex
	alerts    []Alert
	shouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *MockChannel) Name() string {
	return c.name
}

// GetAlerts 获取所有接收到的告警（副本）
func (c *MockChannel) GetAlerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

func (c *MockChannel) SetShouldError(shouldErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldErr = shouldErr
}

func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}
