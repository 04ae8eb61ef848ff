package middleware

import (
	"time"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// LoggerConfig defines the config for the logger middleware
type LoggerConfig struct {
	// Next skips logging when it returns true.
	Next func(c *fiber.Ctx) bool

	// Logger defaults to the package logger at request time.
	Logger *zerolog.Logger
}

// NewLogger logs one line per request. Server errors log at error level,
// client errors at warn.
func NewLogger(config ...LoggerConfig) fiber.Handler {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		log := cfg.Logger
		if log == nil {
			log = logger.With("http")
		}

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError || (err != nil && status < fiber.StatusBadRequest):
			event = log.Error()
		case status >= fiber.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("ip", c.IP()).
			Dur("latency", latency).
			Err(err).
			Msg("request")

		return err
	}
}

// RequestLogger logs every request except the ones Skip excludes.
func RequestLogger() fiber.Handler {
	return NewLogger(LoggerConfig{
		Next: func(c *fiber.Ctx) bool { return Skip(c.Path()) },
	})
}
