package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jmylchreest/pubharvest/internal/crawler"
	"github.com/jmylchreest/pubharvest/internal/document"
	"github.com/jmylchreest/pubharvest/internal/output"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := loadSettings(viper.New())
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}

	defaults := crawler.DefaultConfig()
	if s.crawl.Host != defaults.Host {
		t.Errorf("Host = %q, want %q", s.crawl.Host, defaults.Host)
	}
	if len(s.crawl.Endpoints) != len(crawler.DefaultEndpoints) {
		t.Errorf("expected %d endpoints, got %d", len(crawler.DefaultEndpoints), len(s.crawl.Endpoints))
	}
	if s.crawl.Throttle != time.Second {
		t.Errorf("Throttle = %v, want 1s", s.crawl.Throttle)
	}
	if !s.crawl.DateFloor.IsZero() {
		t.Error("date floor should be disabled by default")
	}
	if !s.browser.Headless {
		t.Error("browser should default to headless")
	}
	if s.format != output.FormatJSON {
		t.Errorf("format = %q, want json", s.format)
	}
	if s.probe.Timeout != s.browser.Timeout {
		t.Error("probe should share the browser timeout")
	}
}

func TestLoadSettings_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("host", "https://mirror.example.org")
	v.Set("endpoints", []string{"/a.html", "/b.html"})
	v.Set("throttle", "250ms")
	v.Set("settle_timeout", "2s")
	v.Set("since", "2019-01-01")
	v.Set("headless", false)
	v.Set("user_agent", "pubharvest-test")
	v.Set("format", "yaml")
	v.Set("output", "out.yaml")
	v.Set("compact", true)

	s, err := loadSettings(v)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if got := s.crawl.URL(s.crawl.Endpoints[1]); got != "https://mirror.example.org/b.html" {
		t.Errorf("URL() = %q", got)
	}
	if s.crawl.Throttle != 250*time.Millisecond || s.crawl.SettleTimeout != 2*time.Second {
		t.Errorf("durations not applied: %+v", s.crawl)
	}
	if want := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC); !s.crawl.DateFloor.Equal(want) {
		t.Errorf("DateFloor = %v, want %v", s.crawl.DateFloor, want)
	}
	if s.browser.Headless {
		t.Error("headless override not applied")
	}
	if s.browser.UserAgent != "pubharvest-test" || s.probe.UserAgent != "pubharvest-test" {
		t.Error("user agent should apply to browser and probe")
	}
	if !s.compact {
		t.Error("compact override not applied")
	}
	if s.format != output.FormatYAML || s.output != "out.yaml" {
		t.Errorf("output settings = %q %q", s.format, s.output)
	}
}

func TestLoadSettings_Environment(t *testing.T) {
	t.Setenv("PUBHARVEST_THROTTLE", "0s")
	t.Setenv("PUBHARVEST_SINCE", "2020-06-30")

	v := viper.New()
	configure(v)

	s, err := loadSettings(v)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if s.crawl.Throttle != 0 {
		t.Errorf("Throttle = %v, want 0", s.crawl.Throttle)
	}
	if s.crawl.DateFloor.Format(document.DateLayout) != "2020-06-30" {
		t.Errorf("DateFloor = %v", s.crawl.DateFloor)
	}
}

func TestLoadSettings_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubharvest.yaml")
	cfg := "endpoints:\n  - /pub/research/working-papers/html/index.en.html\nreveal_timeout: 5s\nformat: jsonl\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	v := viper.New()
	v.Set("config", path)
	configure(v)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	s, err := loadSettings(v)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if len(s.crawl.Endpoints) != 1 {
		t.Errorf("expected 1 endpoint, got %v", s.crawl.Endpoints)
	}
	if s.crawl.RevealTimeout != 5*time.Second {
		t.Errorf("RevealTimeout = %v", s.crawl.RevealTimeout)
	}
	if s.format != output.FormatJSONL {
		t.Errorf("format = %q", s.format)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"since not a date", "since", "June 2020"},
		{"unknown format", "format", "csv"},
		{"relative host", "host", "www.ecb.europa.eu"},
		{"negative throttle", "throttle", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			if _, err := loadSettings(v); err == nil {
				t.Errorf("expected error for %s=%v", tt.key, tt.val)
			}
		})
	}
}

func TestWriteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	recs := []document.Record{{
		Title:   "Paper",
		WebLink: "https://www.ecb.europa.eu/pub/pdf/paper.pdf",
		PubDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}

	if err := writeRecords(path, output.FormatJSON, recs); err != nil {
		t.Fatalf("writeRecords() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"title": "Paper"`) {
		t.Errorf("unexpected output:\n%s", data)
	}
}

func TestWriteRecords_Compact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	recs := []document.Record{{
		Title:   "Paper",
		WebLink: "https://www.ecb.europa.eu/pub/pdf/paper.pdf",
		PubDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}}

	if err := writeRecords(path, output.FormatJSON, recs, output.WithPretty(false)); err != nil {
		t.Fatalf("writeRecords() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), `[{"title":"Paper"`) || strings.Count(string(data), "\n") != 1 {
		t.Errorf("expected one compact line, got:\n%s", data)
	}
}

func TestSummarize(t *testing.T) {
	s, err := loadSettings(viper.New())
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	s.crawl.Endpoints = []string{"/a", "/b"}
	s.crawl.DateFloor = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	run := crawler.Run{
		Records: make([]document.Record, 1234),
		Endpoints: []crawler.EndpointReport{
			{URL: "https://www.ecb.europa.eu/a", State: crawler.StateVerifying, Status: 500, Err: errors.New("endpoint unreachable")},
			{URL: "https://www.ecb.europa.eu/b", State: crawler.StateDone, Blocks: 12, Records: 1234, Dropped: 3, Filtered: 7},
		},
	}

	buf := &bytes.Buffer{}
	summarize(buf, run, s, 1500*time.Millisecond)
	out := buf.String()

	for _, want := range []string{
		"Harvested 1,234 records from 1 of 2 endpoints in 1.5s",
		"FAIL https://www.ecb.europa.eu/a (verifying): endpoint unreachable",
		"ok   https://www.ecb.europa.eu/b: 1,234 records from 12 blocks",
		"Dropped 3 malformed entries",
		"Skipped 7 records published before 2019-01-01",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
