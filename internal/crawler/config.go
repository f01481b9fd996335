package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/pubharvest/internal/listing"
)

// Config is the immutable description of one publication source.
type Config struct {
	Source    string   // Name used in logs
	Host      string   // Scheme and host, e.g. https://www.ecb.europa.eu
	Endpoints []string // Listing paths relative to Host, crawled in order

	BlockPrefix   string
	SettleTimeout time.Duration // Max wait for the listing to render after navigation
	RevealTimeout time.Duration // Max wait for a lazily-loaded block
	PollInterval  time.Duration
	Throttle      time.Duration // Minimum spacing between extracted records

	// DateFloor, when non-zero, drops records published before it.
	DateFloor time.Time
}

// DefaultEndpoints are the ECB research publication series.
var DefaultEndpoints = []string{
	"/pub/research/working-papers/html/index.en.html",
	"/pub/research/discussion-papers/html/index.en.html",
	"/pub/research/occasional-papers/html/index.en.html",
	"/pub/research/legal-working-papers/html/index.en.html",
	"/pub/research/statistics-papers/html/index.en.html",
	"/pub/economic-research/resbull/html/index.en.html",
}

// DefaultConfig returns the configuration of the ECB publication source.
func DefaultConfig() Config {
	return Config{
		Source:        "ecb",
		Host:          "https://www.ecb.europa.eu",
		Endpoints:     append([]string(nil), DefaultEndpoints...),
		BlockPrefix:   listing.DefaultBlockPrefix,
		SettleTimeout: 15 * time.Second,
		RevealTimeout: 3 * time.Second,
		PollInterval:  250 * time.Millisecond,
		Throttle:      time.Second,
	}
}

// Validate reports configuration that cannot produce a crawl.
func (c Config) Validate() error {
	u, err := url.Parse(c.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid host %q: must be an absolute URL", c.Host)
	}
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("no listing endpoints configured")
	}
	for _, ep := range c.Endpoints {
		if strings.TrimSpace(ep) == "" {
			return fmt.Errorf("empty listing endpoint")
		}
	}
	if c.SettleTimeout < 0 || c.RevealTimeout < 0 || c.PollInterval < 0 || c.Throttle < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// URL returns the absolute address of a listing endpoint.
func (c Config) URL(endpoint string) string {
	return c.host() + endpoint
}

func (c Config) host() string {
	return strings.TrimRight(c.Host, "/")
}

func (c Config) listing() listing.Config {
	return listing.Config{
		Host:          c.host(),
		BlockPrefix:   c.BlockPrefix,
		RevealTimeout: c.RevealTimeout,
		PollInterval:  c.PollInterval,
		Throttle:      c.Throttle,
	}
}
