package commands

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jmylchreest/pubharvest/internal/browser"
	"github.com/jmylchreest/pubharvest/internal/crawler"
	"github.com/jmylchreest/pubharvest/internal/document"
	"github.com/jmylchreest/pubharvest/internal/output"
	"github.com/jmylchreest/pubharvest/internal/probe"
)

// settings is everything a crawl needs, resolved from flags, environment
// and config file.
type settings struct {
	crawl   crawler.Config
	browser browser.Config
	probe   probe.Config
	output  string
	format  output.Format
	compact bool
}

// loadSettings overlays whatever v has set on the built-in defaults.
func loadSettings(v *viper.Viper) (settings, error) {
	s := settings{
		crawl:   crawler.DefaultConfig(),
		browser: browser.DefaultConfig(),
		probe:   probe.DefaultConfig(),
		format:  output.FormatJSON,
	}

	if v.IsSet("host") {
		s.crawl.Host = v.GetString("host")
	}
	if eps := v.GetStringSlice("endpoints"); v.IsSet("endpoints") && len(eps) > 0 {
		s.crawl.Endpoints = eps
	}
	if v.IsSet("block_prefix") {
		s.crawl.BlockPrefix = v.GetString("block_prefix")
	}

	durations := map[string]*time.Duration{
		"settle_timeout": &s.crawl.SettleTimeout,
		"reveal_timeout": &s.crawl.RevealTimeout,
		"poll_interval":  &s.crawl.PollInterval,
		"throttle":       &s.crawl.Throttle,
		"timeout":        &s.browser.Timeout,
	}
	for key, dst := range durations {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	s.probe.Timeout = s.browser.Timeout

	if since := v.GetString("since"); since != "" {
		floor, err := document.ParseDate(since)
		if err != nil {
			return s, fmt.Errorf("invalid since %q: want YYYY-MM-DD", since)
		}
		s.crawl.DateFloor = floor
	}

	if v.IsSet("headless") {
		s.browser.Headless = v.GetBool("headless")
	}
	s.browser.Stealth = v.GetBool("stealth")
	s.browser.ExecPath = v.GetString("chrome_path")
	if ua := v.GetString("user_agent"); ua != "" {
		s.browser.UserAgent = ua
		s.probe.UserAgent = ua
	}

	s.output = v.GetString("output")
	s.compact = v.GetBool("compact")
	if f := v.GetString("format"); f != "" {
		format, err := output.ParseFormat(f)
		if err != nil {
			return s, err
		}
		s.format = format
	}

	if err := s.crawl.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
