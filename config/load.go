package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"candlestick-service/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env" env:"CANDLES_ENV"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Candles CandlesConfig `yaml:"candles"`
	Streams StreamsConfig `yaml:"streams"`
	Log     logger.Config `yaml:"log"`
	Alert   AlertConfig   `yaml:"alert"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"CANDLES_HTTP_ADDR"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"CANDLES_METRICS_ADDR"` // 留空则关闭
}

// CandlesConfig 窗口与区间长度，单位由 Unit 决定。
type CandlesConfig struct {
	Window int    `yaml:"window" env:"CANDLES_WINDOW"`
	Bucket int    `yaml:"bucket" env:"CANDLES_BUCKET"`
	Unit   string `yaml:"unit" env:"CANDLES_UNIT"`
}

type StreamsConfig struct {
	Instruments  StreamEndpoint `yaml:"instruments" envPrefix:"CANDLES_INSTRUMENTS_"`
	Quotes       StreamEndpoint `yaml:"quotes" envPrefix:"CANDLES_QUOTES_"`
	MaxRetries   int            `yaml:"maxRetries" env:"CANDLES_STREAM_MAX_RETRIES"`
	RetryBackoff time.Duration  `yaml:"retryBackoff" env:"CANDLES_STREAM_RETRY_BACKOFF"`
}

type StreamEndpoint struct {
	URL         string        `yaml:"url" env:"URL"`
	ReadTimeout time.Duration `yaml:"readTimeout" env:"READ_TIMEOUT"`
}

type AlertConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Default 返回默认配置（与 configs/config.yaml 保持一致）。
func Default() AppConfig {
	return AppConfig{
		Env:     "dev",
		HTTP:    HTTPConfig{Addr: ":9000"},
		Metrics: MetricsConfig{Addr: ":9100"},
		Candles: CandlesConfig{Window: 30, Bucket: 1, Unit: "minutes"},
		Streams: StreamsConfig{
			Instruments:  StreamEndpoint{URL: "ws://localhost:8032/instruments"},
			Quotes:       StreamEndpoint{URL: "ws://localhost:8032/quotes", ReadTimeout: 30 * time.Second},
			MaxRetries:   5,
			RetryBackoff: 3 * time.Second,
		},
		Log:   logger.DefaultConfig(),
		Alert: AlertConfig{Throttle: 5 * time.Minute},
	}
}

// Load reads YAML config from path on top of Default and applies validation.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides fields from CANDLES_* env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, Validate(cfg)
}

// WindowDuration returns candles.window in the configured unit.
func (c CandlesConfig) WindowDuration() time.Duration {
	u, _ := ParseUnit(c.Unit)
	return time.Duration(c.Window) * u
}

// BucketDuration returns candles.bucket in the configured unit.
func (c CandlesConfig) BucketDuration() time.Duration {
	u, _ := ParseUnit(c.Unit)
	return time.Duration(c.Bucket) * u
}

// EvenlyDivided reports whether the bucket divides the window without remainder.
func (c CandlesConfig) EvenlyDivided() bool {
	return c.Bucket > 0 && c.Window%c.Bucket == 0
}

// ParseUnit 把时间单位名转换为 time.Duration。
func ParseUnit(unit string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ms", "millisecond", "milliseconds":
		return time.Millisecond, nil
	case "s", "second", "seconds":
		return time.Second, nil
	case "m", "minute", "minutes":
		return time.Minute, nil
	case "h", "hour", "hours":
		return time.Hour, nil
	}
	return 0, ErrInvalid(fmt.Sprintf("unsupported time unit %q", unit))
}
