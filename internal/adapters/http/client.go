package http

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"

	logadapter "github.com/bft-labs/snapmerge/internal/adapters/log"
	"github.com/bft-labs/snapmerge/pkg/log"
)

// Default retry settings.
const (
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 500 * time.Millisecond
	DefaultRetryWaitMax = 10 * time.Second
	DefaultTimeout      = 30 * time.Second
)

// RetryConfig configures NewRetryClient.
type RetryConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// NewRetryClient creates a retrying client that retries connection errors
// and 5xx or 429 responses with exponential backoff.
func NewRetryClient(cfg RetryConfig, logger log.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		c.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		c.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		c.HTTPClient.Timeout = cfg.Timeout
	}
	c.Logger = logadapter.NewLeveled(logger)
	return c
}
