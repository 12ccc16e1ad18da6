package client

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout bounds a single HTTP attempt. Prefer context deadlines for
// whole operations.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.rest.SetTimeout(d)
		return nil
	}
}

// WithRetry sets how often reads are retried and the first backoff interval.
// maxRetries=0 disables retries.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) error {
		if initial <= 0 {
			return fmt.Errorf("retry interval must be > 0")
		}
		c.retry.maxRetries = maxRetries
		c.retry.initial = initial
		return nil
	}
}

// WithClientApp sends the X-Client-App header so single-memory reads are
// logged against that app.
func WithClientApp(appID string) Option {
	return func(c *Client) error {
		c.rest.SetHeader("X-Client-App", appID)
		return nil
	}
}

// WithDebugLogging logs every request and response through log at debug
// level. Bodies are included; do not enable in production.
func WithDebugLogging(log zerolog.Logger) Option {
	return func(c *Client) error {
		c.rest.SetLogger(restyLogger{log}).SetDebug(true)
		return nil
	}
}

// restyLogger adapts zerolog to resty.Logger.
type restyLogger struct{ log zerolog.Logger }

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
