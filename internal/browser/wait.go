package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultPollInterval is used when a Poll leaves Interval unset.
const DefaultPollInterval = 250 * time.Millisecond

// Poll bounds a WaitFor call. A zero Timeout checks the condition once.
type Poll struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Condition reports whether a rendered document is in the expected state.
type Condition func(doc *goquery.Document) bool

// WaitFor re-reads the rendered markup until cond holds or the poll times
// out. The last parsed document is returned in both cases so callers can
// inspect why the condition failed; a timeout wraps ErrTimeoutReached.
func WaitFor(ctx context.Context, d Driver, poll Poll, cond Condition) (*goquery.Document, error) {
	interval := poll.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(poll.Timeout)

	for attempt := 1; ; attempt++ {
		doc, err := Snapshot(ctx, d)
		if err != nil {
			return nil, err
		}
		if cond(doc) {
			return doc, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return doc, fmt.Errorf("%w after %d attempts (%s)", ErrTimeoutReached, attempt, poll.Timeout)
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return doc, ctx.Err()
		case <-timer.C:
		}
	}
}

// Snapshot parses the currently rendered markup.
func Snapshot(ctx context.Context, d Driver) (*goquery.Document, error) {
	html, err := d.Markup(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered markup: %w", err)
	}
	return doc, nil
}
