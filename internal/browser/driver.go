// Package browser drives a single rendered browser tab for harvesting
// JavaScript-rendered listings.
package browser

import (
	"context"
	"errors"

	"github.com/chromedp/cdproto/cdp"
)

// Driver is the browser automation surface the harvester consumes. A Driver
// wraps one stateful tab and is not meant for concurrent use.
type Driver interface {
	// Navigate loads url in the tab.
	Navigate(ctx context.Context, url string) error

	// Markup returns the currently rendered document as HTML.
	Markup(ctx context.Context) (string, error)

	// FindByID resolves the element carrying the given id attribute.
	// It returns ErrElementNotFound when no such element is rendered.
	FindByID(ctx context.Context, id string) (Element, error)

	// ScrollIntoView scrolls el into the viewport.
	ScrollIntoView(ctx context.Context, el Element) error
}

// Element is a handle on a rendered DOM element.
type Element struct {
	ID string

	nodeID cdp.NodeID
}

var (
	// ErrElementNotFound indicates no rendered element matched the lookup.
	ErrElementNotFound = errors.New("element not found")
	// ErrTimeoutReached indicates an expected DOM condition did not hold
	// within the allotted time.
	ErrTimeoutReached = errors.New("timeout reached")
)
