package server

import (
	"net/http"
	"strconv"
	"time"
)

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port uint16 `env:"PORT" envDefault:"9000"`

	BlockedWords  []string      `env:"BLOCKED_WORDS" envSeparator:","`
	SendDelay     time.Duration `env:"MODERATION_SEND_DELAY" envDefault:"45s"`
	ReportDelay   time.Duration `env:"MODERATION_REPORT_DELAY" envDefault:"5s"`
	BlockDuration time.Duration `env:"BLOCK_DURATION" envDefault:"30m"`

	SendRate  float64 `env:"SEND_RATE" envDefault:"2"`
	SendBurst int     `env:"SEND_BURST" envDefault:"5"`
}

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring Server instance
type config struct {
	httpServer    *http.Server
	afterShutdown []func()
}

// WithEnvConfig enables processing exported EnvConfig struct to act as a source of config parameters for http.Server
func WithEnvConfig(cfg EnvConfig) Option {
	return optionFunc(func(c *config) {
		c.httpServer.Addr = cfg.Host + ":" + strconv.FormatUint(uint64(cfg.Port), 10)
	})
}

// ReadTimeout sets read timeout for http.Server
func ReadTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.httpServer.ReadTimeout = d
	})
}

// RegisterAfterShutdown registers a function to call after http.Server shutdown
// f will not be called in separated goroutine
func RegisterAfterShutdown(f func()) Option {
	return optionFunc(func(c *config) {
		c.afterShutdown = append(c.afterShutdown, f)
	})
}
