package config

import (
	"fmt"
	"net/url"
)

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and mutually consistent.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return ErrInvalid("env is required")
	}
	if cfg.HTTP.Addr == "" {
		return ErrInvalid("http.addr is required")
	}
	if _, err := ParseUnit(cfg.Candles.Unit); err != nil {
		return fmt.Errorf("candles.unit: %w", err)
	}
	if cfg.Candles.Window <= 0 {
		return ErrInvalid("candles.window must be > 0")
	}
	if cfg.Candles.Bucket <= 0 {
		return ErrInvalid("candles.bucket must be > 0")
	}
	if cfg.Candles.Bucket > cfg.Candles.Window {
		return ErrInvalid("candles.bucket must be <= candles.window")
	}
	for name, ep := range map[string]StreamEndpoint{
		"instruments": cfg.Streams.Instruments,
		"quotes":      cfg.Streams.Quotes,
	} {
		if err := validateStreamURL(ep.URL); err != nil {
			return fmt.Errorf("streams.%s.url: %w", name, err)
		}
		if ep.ReadTimeout < 0 {
			return ErrInvalid(fmt.Sprintf("streams.%s.readTimeout must be >= 0", name))
		}
	}
	if cfg.Streams.MaxRetries < 0 {
		return ErrInvalid("streams.maxRetries must be >= 0")
	}
	if cfg.Streams.RetryBackoff <= 0 {
		return ErrInvalid("streams.retryBackoff must be > 0")
	}
	if cfg.Alert.Throttle < 0 {
		return ErrInvalid("alert.throttle must be >= 0")
	}
	return nil
}

func validateStreamURL(raw string) error {
	if raw == "" {
		return ErrInvalid("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return ErrInvalid(fmt.Sprintf("scheme must be ws or wss, got %q", u.Scheme))
	}
	return nil
}
