package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/pubharvest/internal/logger"
)

// Config holds configuration for the Chrome driver.
type Config struct {
	UserAgent string
	Timeout   time.Duration // Deadline for a single browser operation
	Headless  bool
	Stealth   bool   // Enable anti-bot detection evasion
	ExecPath  string // Chrome binary; discovered when empty
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: defaultUserAgent,
		Timeout:   40 * time.Second,
		Headless:  true,
	}
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Chrome implements Driver on top of a single chromedp tab.
type Chrome struct {
	config Config

	mu          sync.Mutex
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewChrome launches a browser and opens the tab every later call runs in.
func NewChrome(cfg Config) (*Chrome, error) {
	defaults := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	var opts []chromedp.ExecAllocatorOption
	if cfg.Stealth {
		opts = append(chromedp.DefaultExecAllocatorOptions[:], StealthExecAllocatorOptions()...)
	} else {
		opts = append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1920, 1080),
		)
	}
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))

	execPath := cfg.ExecPath
	if execPath == "" {
		execPath = FindChromePath()
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	opts = append(opts, chromedp.UserAgent(cfg.UserAgent))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// The first Run starts the browser process and attaches the tab.
	startup := []chromedp.Action{}
	if cfg.Stealth {
		startup = append(startup, InjectStealthScript())
	}
	if err := chromedp.Run(tabCtx, startup...); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("chrome driver started",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"exec_path", execPath,
		"timeout", cfg.Timeout)

	return &Chrome{
		config:      cfg,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// run executes actions in the tab, bounded by the operation timeout and
// cancelled together with ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	runCtx, cancel := context.WithTimeout(c.tabCtx, c.config.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: browser operation exceeded %s", ErrTimeoutReached, c.config.Timeout)
	}
	return err
}

// Navigate loads url and waits for the load event.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	logger.Debug("chrome navigating", "url", url)
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Markup returns the outer HTML of the rendered document.
func (c *Chrome) Markup(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// FindByID resolves a rendered element by id without waiting for it.
func (c *Chrome) FindByID(ctx context.Context, id string) (Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes("#"+id, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return Element{}, fmt.Errorf("find #%s: %w", id, err)
	}
	if len(nodes) == 0 {
		return Element{}, fmt.Errorf("%w: #%s", ErrElementNotFound, id)
	}
	return Element{ID: id, nodeID: nodes[0].NodeID}, nil
}

// ScrollIntoView scrolls el into the viewport, which is what triggers the
// listing's lazy loading of the following blocks.
func (c *Chrome) ScrollIntoView(ctx context.Context, el Element) error {
	if el.nodeID == 0 {
		resolved, err := c.FindByID(ctx, el.ID)
		if err != nil {
			return err
		}
		el = resolved
	}
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.ScrollIntoViewIfNeeded().WithNodeID(el.nodeID).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("scroll #%s into view: %w", el.ID, err)
	}
	return nil
}

// Close closes the tab and shuts the browser down.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelTab != nil {
		c.cancelTab()
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
	}
	return nil
}
