// Package browsertest provides an in-memory browser.Driver that imitates a
// lazily-loaded publication listing.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmylchreest/pubharvest/internal/browser"
)

// Page is a listing served by the fake driver. Blocks[i] is the inner HTML
// of the block with id "snippet<i>". Only the first Initial blocks (at least
// one when Blocks is non-empty) are rendered after navigation; scrolling
// block i into view renders block i+1.
type Page struct {
	Blocks  []string
	Initial int

	// Raw, when set, is served verbatim instead of the listing skeleton.
	Raw string
}

// Driver is a fake browser.Driver. The zero value is not usable; use New.
type Driver struct {
	mu       sync.Mutex
	pages    map[string]*Page
	current  *Page
	revealed int

	// NavigateErr, when set, is returned by every Navigate call.
	NavigateErr error
	// MarkupHook, when set, is called before each Markup with the number of
	// Markup calls so far; a returned error fails the call.
	MarkupHook func(calls int) error

	navigated   []string
	scrolled    []string
	markupCalls int
}

// New returns a driver serving pages keyed by absolute URL.
func New(pages map[string]*Page) *Driver {
	if pages == nil {
		pages = make(map[string]*Page)
	}
	return &Driver{pages: pages}
}

// Navigate switches to the page registered for url. Unknown URLs render an
// empty document.
func (d *Driver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.navigated = append(d.navigated, url)
	if d.NavigateErr != nil {
		return d.NavigateErr
	}

	d.current = d.pages[url]
	d.revealed = 0
	if d.current != nil {
		d.revealed = min(max(d.current.Initial, 1), len(d.current.Blocks))
	}
	return nil
}

// Markup renders the current page.
func (d *Driver) Markup(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.markupCalls++
	if d.MarkupHook != nil {
		if err := d.MarkupHook(d.markupCalls); err != nil {
			return "", err
		}
	}

	if d.current == nil {
		return "<html><head></head><body></body></html>", nil
	}
	if d.current.Raw != "" {
		return d.current.Raw, nil
	}
	return Listing(d.current.Blocks[:d.revealed]...), nil
}

// FindByID resolves rendered blocks only.
func (d *Driver) FindByID(_ context.Context, id string) (browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.blockIndex(id); !ok {
		return browser.Element{}, fmt.Errorf("%w: #%s", browser.ErrElementNotFound, id)
	}
	return browser.Element{ID: id}, nil
}

// ScrollIntoView records the scroll and renders the next block.
func (d *Driver) ScrollIntoView(_ context.Context, el browser.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.blockIndex(el.ID)
	if !ok {
		return fmt.Errorf("%w: #%s", browser.ErrElementNotFound, el.ID)
	}
	d.scrolled = append(d.scrolled, el.ID)
	d.revealed = max(d.revealed, min(i+2, len(d.current.Blocks)))
	return nil
}

func (d *Driver) blockIndex(id string) (int, bool) {
	if d.current == nil || d.current.Raw != "" {
		return 0, false
	}
	var i int
	if _, err := fmt.Sscanf(id, "snippet%d", &i); err != nil {
		return 0, false
	}
	return i, i >= 0 && i < d.revealed && id == fmt.Sprintf("snippet%d", i)
}

// Navigated returns the URLs passed to Navigate, in order.
func (d *Driver) Navigated() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigated...)
}

// Scrolled returns the ids of the elements scrolled into view, in order.
func (d *Driver) Scrolled() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.scrolled...)
}

// Listing renders a listing page holding the given blocks.
func Listing(blocks ...string) string {
	var sb strings.Builder
	sb.WriteString(`<html><head><title>Publications</title></head><body><main>`)
	sb.WriteString(`<div class="definition-list -filter">`)
	sb.WriteString(`<dl class="ecb-basicList wpSeries ecb-lazyload pub-list-filter">`)
	for i, b := range blocks {
		fmt.Fprintf(&sb, `<div id="snippet%d">%s</div>`, i, b)
	}
	sb.WriteString(`</dl></div></main></body></html>`)
	return sb.String()
}

// Entry describes one publication in a block.
type Entry struct {
	Date     string // isodate attribute; omitted when empty
	Title    string
	Href     string
	Abstract string   // omitted when empty
	Authors  []string // authors sub-block omitted when nil
	NoTitle  bool     // drop the title sub-block entirely
}

// Term renders the dt element of e.
func (e Entry) Term() string {
	if e.Date == "" {
		return `<dt><div class="date">n/a</div></dt>`
	}
	return fmt.Sprintf(`<dt isodate="%s"><div class="date">%s</div></dt>`, e.Date, e.Date)
}

// Description renders the dd element of e.
func (e Entry) Description() string {
	var sb strings.Builder
	sb.WriteString(`<dd><div class="category">Working Paper Series</div>`)
	if !e.NoTitle {
		fmt.Fprintf(&sb, `<div class="title"><a href="%s">%s</a></div>`, e.Href, e.Title)
	}
	if e.Authors != nil {
		sb.WriteString(`<div class="authors"><ul>`)
		for _, a := range e.Authors {
			fmt.Fprintf(&sb, `<li><a href="/authors/x">%s</a></li>`, a)
		}
		sb.WriteString(`</ul></div>`)
	}
	if e.Abstract != "" {
		sb.WriteString(`<div class="accordion"><div class="header">Details</div>`)
		fmt.Fprintf(&sb, `<div class="content-box"><dl><dt>Abstract</dt><dd>%s</dd></dl></div></div>`, e.Abstract)
	}
	sb.WriteString(`</dd>`)
	return sb.String()
}

// Block renders entries as alternating dt/dd pairs.
func Block(entries ...Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.Term())
		sb.WriteString(e.Description())
	}
	return sb.String()
}
