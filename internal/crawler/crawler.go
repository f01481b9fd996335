// Package crawler runs a harvest over every listing endpoint of a source.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/pubharvest/internal/browser"
	"github.com/jmylchreest/pubharvest/internal/document"
	"github.com/jmylchreest/pubharvest/internal/listing"
	"github.com/jmylchreest/pubharvest/internal/logger"
)

// ErrEndpointUnreachable indicates the liveness probe failed for an endpoint.
var ErrEndpointUnreachable = errors.New("endpoint unreachable")

// Prober checks that a URL answers plain HTTP with a success status.
type Prober interface {
	Probe(ctx context.Context, url string) (int, error)
}

// State is the phase an endpoint crawl is in.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateVerifying  State = "verifying"
	StateScrolling  State = "scrolling"
	StateExtracting State = "extracting"
	StateDone       State = "done"
)

// EndpointReport describes how far one endpoint got and what it yielded.
type EndpointReport struct {
	URL      string
	State    State // Last state reached
	Status   int   // Probe status, 0 when not probed
	Blocks   int
	Records  int
	Dropped  int // Records rejected by the extractor
	Filtered int // Records older than the date floor
	Err      error
	Duration time.Duration
}

// Run is the result of one Crawl call.
type Run struct {
	Records   []document.Record
	Endpoints []EndpointReport
}

// Failed returns the reports of endpoints that ended in an error.
func (r Run) Failed() []EndpointReport {
	var failed []EndpointReport
	for _, ep := range r.Endpoints {
		if ep.Err != nil {
			failed = append(failed, ep)
		}
	}
	return failed
}

// Crawler drives one browser tab across a source's listing endpoints.
type Crawler struct {
	driver    browser.Driver
	prober    Prober
	config    Config
	scroller  *listing.Scroller
	extractor *listing.Extractor
	log       *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger overrides the source-tagged package logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		c.log = l
	}
}

// New creates a Crawler. The driver is used exclusively by this crawler for
// the lifetime of each Crawl call.
func New(d browser.Driver, p Prober, cfg Config, opts ...Option) (*Crawler, error) {
	if d == nil {
		return nil, fmt.Errorf("browser driver is required")
	}
	if p == nil {
		return nil, fmt.Errorf("prober is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Crawler{
		driver: d,
		prober: p,
		config: cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.ForSource(cfg.Source)
	}
	c.scroller = listing.NewScroller(cfg.listing(), c.log)
	c.extractor = listing.NewExtractor(cfg.listing(), c.log)
	return c, nil
}

// Crawl visits every endpoint in order and returns the records found, in
// endpoint order and document order within an endpoint.
//
// Endpoint failures are logged and reported in Run.Endpoints; they never
// stop the run. The only error returned is the context's, in which case Run
// holds everything collected before cancellation.
func (c *Crawler) Crawl(ctx context.Context) (Run, error) {
	run := Run{
		Records:   make([]document.Record, 0),
		Endpoints: make([]EndpointReport, 0, len(c.config.Endpoints)),
	}
	start := time.Now()
	c.log.Debug("crawl starting", "host", c.config.Host, "endpoints", len(c.config.Endpoints))

	for _, endpoint := range c.config.Endpoints {
		if err := ctx.Err(); err != nil {
			c.log.Warn("crawl cancelled", "records", len(run.Records), "error", err)
			return run, err
		}

		report, records := c.crawlEndpoint(ctx, endpoint)
		run.Records = append(run.Records, records...)
		run.Endpoints = append(run.Endpoints, report)
	}

	if err := ctx.Err(); err != nil {
		return run, err
	}

	c.log.Info("crawl complete",
		"records", len(run.Records),
		"endpoints", len(run.Endpoints),
		"failed", len(run.Failed()),
		"duration", time.Since(start).Round(time.Millisecond))
	return run, nil
}

// crawlEndpoint runs Loading → Verifying → Scrolling → Extracting for one
// endpoint. Every failure, panics included, stays inside this call.
func (c *Crawler) crawlEndpoint(ctx context.Context, endpoint string) (report EndpointReport, records []document.Record) {
	url := c.config.URL(endpoint)
	log := c.log.With("url", url)
	report = EndpointReport{URL: url, State: StateIdle}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("panic while %s: %v", report.State, r)
			records = nil
		}
		report.Duration = time.Since(start)
		if report.Err != nil {
			log.Error("endpoint failed", "state", report.State, "status", report.Status, "error", report.Err)
			return
		}
		log.Info("endpoint harvested",
			"blocks", report.Blocks,
			"records", report.Records,
			"dropped", report.Dropped,
			"filtered", report.Filtered,
			"duration", report.Duration.Round(time.Millisecond))
	}()

	c.enter(log, &report, StateLoading)
	if err := c.driver.Navigate(ctx, url); err != nil {
		report.Err = err
		return report, nil
	}
	settle := browser.Poll{Timeout: c.config.SettleTimeout, Interval: c.config.PollInterval}
	if _, err := browser.WaitFor(ctx, c.driver, settle, listing.HasList); err != nil {
		if !errors.Is(err, browser.ErrTimeoutReached) {
			report.Err = err
			return report, nil
		}
		// The probe tells an error page from a changed layout; the
		// scroller reports the latter.
		log.Warn("listing did not render", "settle_timeout", c.config.SettleTimeout, "error", err)
	}

	c.enter(log, &report, StateVerifying)
	status, err := c.prober.Probe(ctx, url)
	report.Status = status
	if err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrEndpointUnreachable, err)
		return report, nil
	}

	c.enter(log, &report, StateScrolling)
	if _, err := c.scroller.Reveal(ctx, c.driver); err != nil {
		report.Err = err
		return report, nil
	}

	c.enter(log, &report, StateExtracting)
	page, err := c.extractor.Extract(ctx, c.driver)
	report.Blocks = page.Blocks
	report.Dropped = len(page.Dropped)
	records = c.applyDateFloor(log, page.Records, &report)
	report.Records = len(records)
	if err != nil {
		// Records harvested before the failure are complete and kept.
		report.Err = err
		return report, records
	}

	c.enter(log, &report, StateDone)
	return report, records
}

func (c *Crawler) enter(log *slog.Logger, report *EndpointReport, state State) {
	log.Debug("endpoint state", "from", report.State, "to", state)
	report.State = state
}

// applyDateFloor keeps records published on or after the configured floor.
func (c *Crawler) applyDateFloor(log *slog.Logger, records []document.Record, report *EndpointReport) []document.Record {
	floor := c.config.DateFloor
	if floor.IsZero() {
		return records
	}
	kept := make([]document.Record, 0, len(records))
	for _, rec := range records {
		if rec.PubDate.Before(floor) {
			report.Filtered++
			log.Debug("record before date floor", "title", rec.Title, "pub_date", rec.PubDate.Format(document.DateLayout))
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}
