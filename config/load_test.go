package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const sampleConfig = `
env: dev
http:
  addr: ":9000"
metrics:
  addr: ":9100"
candles:
  window: 9
  bucket: 3
  unit: seconds
streams:
  instruments:
    url: ws://partner:8032/instruments
  quotes:
    url: ws://partner:8032/quotes
    readTimeout: 15s
  maxRetries: 3
  retryBackoff: 2s
log:
  level: info
  outputs: [stdout]
  format: json
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Candles.WindowDuration() != 9*time.Second || cfg.Candles.BucketDuration() != 3*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg.Candles)
	}
	if cfg.Streams.Quotes.ReadTimeout != 15*time.Second || cfg.Streams.RetryBackoff != 2*time.Second {
		t.Fatalf("unexpected stream cfg: %+v", cfg.Streams)
	}
	if cfg.Streams.Instruments.URL != "ws://partner:8032/instruments" {
		t.Fatalf("unexpected instruments url %s", cfg.Streams.Instruments.URL)
	}
	// 未出现在文件中的字段保留默认值
	if cfg.Alert.Throttle != 5*time.Minute {
		t.Fatalf("expected default alert throttle, got %s", cfg.Alert.Throttle)
	}
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "env: prod\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Candles.WindowDuration() != 30*time.Minute || cfg.Candles.BucketDuration() != time.Minute {
		t.Fatalf("unexpected default durations: %+v", cfg.Candles)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	t.Setenv("CANDLES_HTTP_ADDR", ":8080")
	t.Setenv("CANDLES_WINDOW", "12")
	t.Setenv("CANDLES_QUOTES_URL", "wss://quotes.example/stream")
	t.Setenv("CANDLES_LOG_LEVEL", "debug")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Candles.Window != 12 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Streams.Quotes.URL != "wss://quotes.example/stream" || cfg.Log.Level != "debug" {
		t.Fatalf("nested env overrides not applied: %+v %+v", cfg.Streams.Quotes, cfg.Log)
	}
	if cfg.Streams.Instruments.URL != "ws://partner:8032/instruments" {
		t.Fatalf("unset env var must not clobber yaml value")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(AppConfig{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cases := map[string]func(*AppConfig){
		"bad unit":         func(c *AppConfig) { c.Candles.Unit = "fortnights" },
		"zero window":      func(c *AppConfig) { c.Candles.Window = 0 },
		"zero bucket":      func(c *AppConfig) { c.Candles.Bucket = 0 },
		"bucket > window":  func(c *AppConfig) { c.Candles.Bucket = 31 },
		"http scheme":      func(c *AppConfig) { c.Streams.Quotes.URL = "http://partner/quotes" },
		"missing url":      func(c *AppConfig) { c.Streams.Instruments.URL = "" },
		"negative retries": func(c *AppConfig) { c.Streams.MaxRetries = -1 },
		"zero backoff":     func(c *AppConfig) { c.Streams.RetryBackoff = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		err := Validate(cfg)
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			continue
		}
		var inv ErrInvalid
		if !errors.As(err, &inv) {
			t.Errorf("%s: expected ErrInvalid in chain, got %T", name, err)
		}
	}
}

func TestUnevenDivisionIsAllowed(t *testing.T) {
	cfg := Default()
	cfg.Candles.Window, cfg.Candles.Bucket = 10, 3
	if err := Validate(cfg); err != nil {
		t.Fatalf("uneven division should validate: %v", err)
	}
	if cfg.Candles.EvenlyDivided() {
		t.Fatalf("10/3 is not evenly divided")
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"ms": time.Millisecond, "Seconds": time.Second, "minutes": time.Minute, " h ": time.Hour,
	} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestShippedConfigMatchesDefault(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("configs/config.yaml drifted from Default():\n got %+v\nwant %+v", cfg, Default())
	}
}
