// Package probe checks that a listing endpoint answers plain HTTP requests
// before the browser is asked to work on it.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/pubharvest/internal/logger"
)

// Config holds configuration for the prober.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrUnhealthy indicates the endpoint answered with a non-success status.
var ErrUnhealthy = errors.New("endpoint unhealthy")

// Colly probes endpoints with a throwaway colly collector per request. The
// response body is discarded; only the status matters.
type Colly struct {
	config Config
}

// New creates a prober.
func New(cfg Config) *Colly {
	defaults := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &Colly{config: cfg}
}

// Probe requests url and returns the response status. Any status outside
// 2xx is reported as ErrUnhealthy together with the status; transport
// failures return status 0.
func (p *Colly) Probe(ctx context.Context, url string) (int, error) {
	c := colly.NewCollector(
		colly.UserAgent(p.config.UserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(p.config.Timeout)

	status := 0
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	logger.Debug("probing endpoint", "url", url)
	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}

	switch {
	case status != 0 && (status < 200 || status > 299):
		return status, fmt.Errorf("%w: %s returned status %d", ErrUnhealthy, url, status)
	case fetchErr != nil:
		return status, fmt.Errorf("probe %s: %w", url, fetchErr)
	}
	logger.Debug("endpoint healthy", "url", url, "status", status)
	return status, nil
}
