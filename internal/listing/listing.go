// Package listing reveals and harvests lazily-rendered publication listings.
//
// A listing page nests its entries as
//
//	main > div.definition-list.-filter > dl.ecb-basicList... > div#snippet<N>
//
// where each snippet block holds alternating dt (date) and dd (body)
// elements and block N+1 is only injected once block N was scrolled into
// view.
package listing

import (
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/pubharvest/internal/browser"
)

// Ancestor chain a listing page must render, outermost first.
const (
	mainSelector      = "main"
	containerSelector = "div.definition-list.-filter"
	listSelector      = "dl.ecb-basicList.wpSeries.ecb-lazyload.pub-list-filter"
)

var (
	// ErrPageStructureMissing indicates the listing container chain is absent.
	ErrPageStructureMissing = errors.New("listing structure missing")
	// ErrRecordDateInvalid indicates a missing or malformed isodate attribute.
	ErrRecordDateInvalid = errors.New("record date invalid")
	// ErrTitleMissing indicates an entry without a usable title anchor.
	ErrTitleMissing = errors.New("record title missing")
)

// Config controls how a listing page is walked.
type Config struct {
	Host          string        // Prefixed to every relative publication link
	BlockPrefix   string        // Block id prefix, "snippet" by default
	RevealTimeout time.Duration // How long to wait for a block before treating it as absent
	PollInterval  time.Duration
	Throttle      time.Duration // Minimum spacing between extracted records, counted from the start of a page
}

// DefaultBlockPrefix is the id prefix of listing blocks.
const DefaultBlockPrefix = "snippet"

func (c Config) blockPrefix() string {
	if c.BlockPrefix == "" {
		return DefaultBlockPrefix
	}
	return c.BlockPrefix
}

func (c Config) revealPoll() browser.Poll {
	return browser.Poll{Timeout: c.RevealTimeout, Interval: c.PollInterval}
}

// blockID returns the element id of block n.
func (c Config) blockID(n int) string {
	return fmt.Sprintf("%s%d", c.blockPrefix(), n)
}

// FindList returns the listing's dl element, or an empty selection when the
// ancestor chain is incomplete.
func FindList(doc *goquery.Document) *goquery.Selection {
	return doc.Find(mainSelector).First().
		Find(containerSelector).First().
		Find(listSelector).First()
}

// HasList reports whether doc renders the listing container chain.
func HasList(doc *goquery.Document) bool {
	return FindList(doc).Length() > 0
}

func findBlock(list *goquery.Selection, id string) *goquery.Selection {
	return list.Find(fmt.Sprintf(`div[id=%q]`, id)).First()
}

// blockCondition holds once block id is rendered, or once the listing chain
// has disappeared so the caller can report it without waiting.
func blockCondition(id string) browser.Condition {
	return func(doc *goquery.Document) bool {
		list := FindList(doc)
		return list.Length() == 0 || findBlock(list, id).Length() > 0
	}
}
