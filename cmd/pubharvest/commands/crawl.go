package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/pubharvest/internal/browser"
	"github.com/jmylchreest/pubharvest/internal/crawler"
	"github.com/jmylchreest/pubharvest/internal/document"
	"github.com/jmylchreest/pubharvest/internal/logger"
	"github.com/jmylchreest/pubharvest/internal/output"
	"github.com/jmylchreest/pubharvest/internal/probe"
)

// errNothingHarvested is returned when every endpoint failed.
var errNothingHarvested = errors.New("no endpoint could be harvested")

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Harvest records from the configured listings",
	Long: `Open each listing endpoint in a headless browser, reveal every lazily
loaded block and print the harvested records.

Endpoints that fail (unreachable, unexpected markup, timeouts) are logged
and skipped; the run continues with the next one. Interrupting the run
writes out what was collected so far.`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	defaults := crawler.DefaultConfig()
	flags := crawlCmd.Flags()

	// Source
	flags.String("host", defaults.Host, "scheme and host the endpoints are relative to")
	flags.StringSliceP("endpoint", "e", nil, "listing path to crawl, repeatable (default: all ECB research series)")
	flags.String("block-prefix", defaults.BlockPrefix, "id prefix of lazily-loaded listing blocks")
	flags.String("since", "", "skip publications before this date (YYYY-MM-DD)")

	// Timing
	flags.Duration("settle-timeout", defaults.SettleTimeout, "max wait for a listing to render")
	flags.Duration("reveal-timeout", defaults.RevealTimeout, "max wait for the next block after scrolling")
	flags.Duration("poll-interval", defaults.PollInterval, "how often to re-check the page while waiting")
	flags.Duration("throttle", defaults.Throttle, "pause between extracted records")
	flags.Duration("timeout", browser.DefaultConfig().Timeout, "deadline for a single browser or probe request")

	// Browser
	flags.Bool("headless", true, "run Chrome without a window")
	flags.Bool("stealth", false, "enable anti-bot detection evasion")
	flags.String("chrome-path", "", "Chrome binary (default: search PATH)")
	flags.String("user-agent", "", "user agent for the browser and the probe")

	// Output
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", string(output.FormatJSON), "output format: json, jsonl, yaml")
	flags.Bool("compact", false, "write JSON without indentation")

	for key, flag := range map[string]string{
		"host":           "host",
		"endpoints":      "endpoint",
		"block_prefix":   "block-prefix",
		"since":          "since",
		"settle_timeout": "settle-timeout",
		"reveal_timeout": "reveal-timeout",
		"poll_interval":  "poll-interval",
		"throttle":       "throttle",
		"timeout":        "timeout",
		"headless":       "headless",
		"stealth":        "stealth",
		"chrome_path":    "chrome-path",
		"user_agent":     "user-agent",
		"output":         "output",
		"format":         "format",
		"compact":        "compact",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("json_log"),
	})

	s, err := loadSettings(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.DebugContext(ctx, "starting browser", "headless", s.browser.Headless, "stealth", s.browser.Stealth)
	chrome, err := browser.NewChrome(s.browser)
	if err != nil {
		return err
	}
	defer func() {
		if err := chrome.Close(); err != nil {
			logger.Warn("closing browser", "error", err)
		}
	}()

	c, err := crawler.New(chrome, probe.New(s.probe), s.crawl)
	if err != nil {
		return err
	}

	start := time.Now()
	run, crawlErr := c.Crawl(ctx)
	elapsed := time.Since(start)

	// Records collected before an interrupt are still written.
	if err := writeRecords(s.output, s.format, run.Records, output.WithPretty(!s.compact)); err != nil {
		logger.ErrorContext(ctx, "writing records failed", "output", s.output, "error", err)
		return err
	}
	logger.InfoContext(ctx, "records written", "records", len(run.Records), "format", s.format, "output", s.output)

	if !viper.GetBool("quiet") {
		summarize(cmd.ErrOrStderr(), run, s, elapsed)
	}

	if crawlErr != nil {
		return crawlErr
	}
	if len(run.Endpoints) > 0 && len(run.Failed()) == len(run.Endpoints) {
		return errNothingHarvested
	}
	return nil
}

func writeRecords(path string, format output.Format, recs []document.Record, opts ...output.WriterOption) error {
	w, closeFn, err := output.Open(path)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(w, format, opts...)
	if err != nil {
		_ = closeFn()
		return err
	}
	if err := writer.WriteAll(recs); err != nil {
		_ = closeFn()
		return fmt.Errorf("write records: %w", err)
	}
	if err := writer.Close(); err != nil {
		_ = closeFn()
		return fmt.Errorf("write records: %w", err)
	}
	return closeFn()
}

// summarize prints a human-readable report of a run.
func summarize(w io.Writer, run crawler.Run, s settings, elapsed time.Duration) {
	var dropped, filtered int
	for _, ep := range run.Endpoints {
		dropped += ep.Dropped
		filtered += ep.Filtered
	}

	ok := len(run.Endpoints) - len(run.Failed())
	fmt.Fprintf(w, "Harvested %s records from %d of %d endpoints in %s\n",
		humanize.Comma(int64(len(run.Records))), ok, len(s.crawl.Endpoints), elapsed.Round(time.Millisecond))

	for _, ep := range run.Endpoints {
		if ep.Err != nil {
			fmt.Fprintf(w, "  FAIL %s (%s): %v\n", ep.URL, ep.State, ep.Err)
			continue
		}
		fmt.Fprintf(w, "  ok   %s: %s records from %s blocks\n",
			ep.URL, humanize.Comma(int64(ep.Records)), humanize.Comma(int64(ep.Blocks)))
	}

	if dropped > 0 {
		fmt.Fprintf(w, "Dropped %s malformed entries\n", humanize.Comma(int64(dropped)))
	}
	if !s.crawl.DateFloor.IsZero() {
		fmt.Fprintf(w, "Skipped %s records published before %s (%s)\n",
			humanize.Comma(int64(filtered)), s.crawl.DateFloor.Format(document.DateLayout), humanize.Time(s.crawl.DateFloor))
	}
	if s.output != "" && s.output != "-" {
		if fi, err := os.Stat(s.output); err == nil {
			fmt.Fprintf(w, "Wrote %s to %s\n", humanize.Bytes(uint64(fi.Size())), s.output)
		}
	}
}
