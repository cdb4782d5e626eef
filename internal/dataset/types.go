// Package dataset parses the per-year archive documents and the bundled verse
// collections, and caches the active bundled collection in memory.
package dataset

import (
	"strings"
	"unicode/utf8"

	"github.com/runnerr0/dailyverse/internal/sanitize"
)

// Record is one entry of a bundled collection: a primary text from the Old
// Testament with its reference and a secondary text from the New Testament
// with its reference.
type Record struct {
	PrimaryText   string
	PrimaryRef    string
	SecondaryText string
	SecondaryRef  string
}

// PrimaryLen returns the rune length of the primary text.
func (r Record) PrimaryLen() int { return utf8.RuneCountInString(r.PrimaryText) }

// SecondaryLen returns the rune length of the secondary text.
func (r Record) SecondaryLen() int { return utf8.RuneCountInString(r.SecondaryText) }

// TotalLength is the combined rune length of both texts.
func (r Record) TotalLength() int { return r.PrimaryLen() + r.SecondaryLen() }

// Entry formats the record for display on the given date.
func (r Record) Entry(date string) *Entry {
	return &Entry{
		Date:          date,
		PrimaryText:   sanitize.FieldText(r.PrimaryText),
		PrimaryRef:    strings.TrimSpace(r.PrimaryRef),
		SecondaryText: sanitize.FieldText(r.SecondaryText),
		SecondaryRef:  strings.TrimSpace(r.SecondaryRef),
	}
}

// Entry is the verse shown for one day.
type Entry struct {
	Date          string `json:"date"`
	PrimaryText   string `json:"primary_text"`
	PrimaryRef    string `json:"primary_ref"`
	SecondaryText string `json:"secondary_text"`
	SecondaryRef  string `json:"secondary_ref"`
}
