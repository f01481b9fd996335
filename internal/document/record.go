// Package document defines the bibliographic record produced by a harvest.
package document

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the machine-readable publication date format on listing
// pages.
const DateLayout = "2006-01-02"

// AuthorsKey is the OtherData entry holding the ordered author names.
const AuthorsKey = "authors"

// Record is one publication entry.
//
// Text, LocalLink and LoadDate are always nil when a record leaves the
// harvester; they belong to later full-text, download and ingestion stages.
type Record struct {
	Title     string         `json:"title" yaml:"title" validate:"required"`
	Abstract  *string        `json:"abstract" yaml:"abstract"`
	Text      *string        `json:"text" yaml:"text"`
	WebLink   string         `json:"web_link" yaml:"web_link" validate:"required,url"`
	LocalLink *string        `json:"local_link" yaml:"local_link"`
	OtherData map[string]any `json:"other_data,omitempty" yaml:"other_data,omitempty"`
	PubDate   time.Time      `json:"pub_date" yaml:"pub_date" validate:"required"`
	LoadDate  *time.Time     `json:"load_date" yaml:"load_date"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks the fields every emitted record must carry.
func (r Record) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(r); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid record: %s failed %q", e.Field(), e.Tag())
		}
		return fmt.Errorf("invalid record: %w", err)
	}
	return nil
}

// Authors returns the author list, or nil when the listing carried none.
func (r Record) Authors() []string {
	authors, _ := r.OtherData[AuthorsKey].([]string)
	return authors
}

// Summary is the one-line description used when logging a found record.
func (r Record) Summary() string {
	return fmt.Sprintf("Find document | name: %s | link to web: %s | publication date: %s",
		r.Title, r.WebLink, r.PubDate.Format(DateLayout))
}

// ParseDate parses a listing date attribute.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
