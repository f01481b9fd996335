package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/pubharvest/internal/browser"
	"github.com/jmylchreest/pubharvest/internal/logger"
)

// Scroller forces every lazily-rendered block of a listing page into the DOM.
type Scroller struct {
	config Config
	log    *slog.Logger
}

// NewScroller creates a scroller. A nil log uses the package logger.
func NewScroller(cfg Config, log *slog.Logger) *Scroller {
	if log == nil {
		log = logger.With()
	}
	return &Scroller{config: cfg, log: log}
}

// Reveal walks blocks 0, 1, 2, ... on the already-loaded page, scrolling each
// into view so the site injects the next one, and stops at the first block
// that does not appear. It returns how many blocks were scrolled.
//
// A page without the listing container fails with ErrPageStructureMissing;
// a page with zero blocks is not an error.
func (s *Scroller) Reveal(ctx context.Context, d browser.Driver) (int, error) {
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		id := s.config.blockID(n)
		doc, err := browser.WaitFor(ctx, d, s.config.revealPoll(), blockCondition(id))
		if err != nil && !errors.Is(err, browser.ErrTimeoutReached) {
			return n, err
		}

		list := FindList(doc)
		if list.Length() == 0 {
			return n, fmt.Errorf("%w: while revealing %s", ErrPageStructureMissing, id)
		}
		if findBlock(list, id).Length() == 0 {
			s.log.Debug("listing fully revealed", "blocks", n)
			return n, nil
		}

		el, err := d.FindByID(ctx, id)
		if errors.Is(err, browser.ErrElementNotFound) {
			// Parsed markup and live DOM disagree; the block went away.
			s.log.Debug("block vanished before scrolling", "block", id)
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := d.ScrollIntoView(ctx, el); err != nil {
			return n, err
		}
		s.log.Debug("block scrolled into view", "block", id)
	}
}
