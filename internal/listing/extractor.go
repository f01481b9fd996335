package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/pubharvest/internal/browser"
	"github.com/jmylchreest/pubharvest/internal/document"
	"github.com/jmylchreest/pubharvest/internal/logger"
)

// Page is what one listing page yielded.
type Page struct {
	Records []document.Record
	Dropped []error // Record-level failures, in document order
	Blocks  int     // Blocks visited
}

// Extractor turns a revealed listing page into records.
type Extractor struct {
	config  Config
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewExtractor creates an extractor. A nil log uses the package logger.
func NewExtractor(cfg Config, log *slog.Logger) *Extractor {
	if log == nil {
		log = logger.With()
	}
	limit := rate.Inf
	if cfg.Throttle > 0 {
		limit = rate.Every(cfg.Throttle)
	}
	return &Extractor{
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Extract re-walks the blocks of the current page with the same sequential
// rule as Scroller.Reveal and converts each dt/dd pair into a record.
//
// Records that cannot be built are logged and listed in Page.Dropped; they
// never stop the walk. The returned error is page-level only
// (ErrPageStructureMissing, driver failures, cancellation), in which case
// Page still holds everything harvested before it.
func (e *Extractor) Extract(ctx context.Context, d browser.Driver) (Page, error) {
	var page Page
	if e.config.Throttle > 0 {
		// Empty the bucket so the first record of the page is paused too.
		e.limiter.Allow()
	}
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return page, err
		}

		id := e.config.blockID(n)
		doc, err := browser.WaitFor(ctx, d, e.config.revealPoll(), blockCondition(id))
		if err != nil && !errors.Is(err, browser.ErrTimeoutReached) {
			return page, err
		}

		list := FindList(doc)
		if list.Length() == 0 {
			return page, fmt.Errorf("%w: while extracting %s", ErrPageStructureMissing, id)
		}
		block := findBlock(list, id)
		if block.Length() == 0 {
			return page, nil
		}

		page.Blocks++
		if err := e.extractBlock(ctx, id, block, &page); err != nil {
			return page, err
		}
	}
}

// extractBlock pairs the i-th direct dt with the i-th direct dd. Surplus
// elements on either side are ignored.
func (e *Extractor) extractBlock(ctx context.Context, id string, block *goquery.Selection, page *Page) error {
	terms := block.ChildrenFiltered("dt")
	descs := block.ChildrenFiltered("dd")
	pairs := min(terms.Length(), descs.Length())
	if terms.Length() != descs.Length() {
		e.log.Debug("unbalanced block",
			"block", id,
			"terms", terms.Length(),
			"descriptions", descs.Length(),
			"pairs", pairs)
	}

	for i := 0; i < pairs; i++ {
		rec, err := e.extractPair(terms.Eq(i), descs.Eq(i))
		if err != nil {
			err = fmt.Errorf("%s entry %d: %w", id, i, err)
			e.log.Error("dropping record", "block", id, "entry", i, "error", err)
			page.Dropped = append(page.Dropped, err)
			continue
		}

		e.log.Debug(rec.Summary())
		page.Records = append(page.Records, rec)

		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) extractPair(term, desc *goquery.Selection) (document.Record, error) {
	anchor := desc.Find("div.title").First().Find("a").First()
	if anchor.Length() == 0 {
		return document.Record{}, fmt.Errorf("%w: no title anchor", ErrTitleMissing)
	}
	title := cleanText(anchor.Text())
	if title == "" {
		return document.Record{}, fmt.Errorf("%w: empty title", ErrTitleMissing)
	}
	href := strings.TrimSpace(anchor.AttrOr("href", ""))
	if href == "" {
		return document.Record{}, fmt.Errorf("%w: title anchor has no href", ErrTitleMissing)
	}

	isodate, ok := term.Attr("isodate")
	if !ok {
		return document.Record{}, fmt.Errorf("%w: no isodate attribute", ErrRecordDateInvalid)
	}
	pubDate, err := document.ParseDate(strings.TrimSpace(isodate))
	if err != nil {
		return document.Record{}, fmt.Errorf("%w: %q", ErrRecordDateInvalid, isodate)
	}

	rec := document.Record{
		Title:    title,
		Abstract: abstractOf(desc),
		WebLink:  e.config.Host + href,
		PubDate:  pubDate,
	}
	if authors := authorsOf(desc); len(authors) > 0 {
		rec.OtherData = map[string]any{document.AuthorsKey: authors}
	}

	if err := rec.Validate(); err != nil {
		return document.Record{}, err
	}
	return rec, nil
}

// abstractOf returns the text of the description nested in the accordion's
// content box, or nil when there is none.
func abstractOf(desc *goquery.Selection) *string {
	dd := desc.Find("div.accordion").First().
		Find("div.content-box").First().
		Find("dd").First()
	if dd.Length() == 0 {
		return nil
	}
	text := cleanText(dd.Text())
	if text == "" {
		return nil
	}
	return &text
}

// authorsOf returns the author names listed in the authors sub-block, in
// order. Items whose text is blank after whitespace normalization are
// skipped rather than kept as empty names.
func authorsOf(desc *goquery.Selection) []string {
	list := desc.Find("div.authors").First().Find("ul").First()
	var authors []string
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		if name := cleanText(li.Text()); name != "" {
			authors = append(authors, name)
		}
	})
	return authors
}

// cleanText normalizes whitespace in text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
