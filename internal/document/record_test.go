package document

import (
	"strings"
	"testing"
	"time"
)

func validRecord() Record {
	return Record{
		Title:   "Monetary policy and inflation",
		WebLink: "https://www.ecb.europa.eu/pub/x.html",
		PubDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validRecord().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
		field  string
	}{
		{"title", func(r *Record) { r.Title = "" }, "Title"},
		{"web link", func(r *Record) { r.WebLink = "" }, "WebLink"},
		{"malformed web link", func(r *Record) { r.WebLink = "not a url" }, "WebLink"},
		{"pub date", func(r *Record) { r.PubDate = time.Time{} }, "PubDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should name field %s", err, tt.field)
			}
		})
	}
}

func TestAuthors(t *testing.T) {
	r := validRecord()
	if r.Authors() != nil {
		t.Error("expected nil authors without other data")
	}

	r.OtherData = map[string]any{AuthorsKey: []string{"A. Smith", "B. Jones"}}
	got := r.Authors()
	if len(got) != 2 || got[0] != "A. Smith" || got[1] != "B. Jones" {
		t.Errorf("Authors() = %v", got)
	}
}

func TestSummary(t *testing.T) {
	want := "Find document | name: Monetary policy and inflation | link to web: https://www.ecb.europa.eu/pub/x.html | publication date: 2024-03-05"
	if got := validRecord().Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2021-12-31")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Year() != 2021 || d.Month() != time.December || d.Day() != 31 {
		t.Errorf("ParseDate() = %v", d)
	}

	for _, bad := range []string{"", "31/12/2021", "2021-13-01", "2021-12-31T00:00:00Z"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}
