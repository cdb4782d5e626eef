// Package notify plans the daily reminder: when it fires next and what it
// says.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/dailyverse/internal/dataset"
)

const (
	// DefaultHour and DefaultMinute replace unparsable parts of a time.
	DefaultHour   = 8
	DefaultMinute = 0
	// DefaultTime is the reminder time when none is configured.
	DefaultTime = "08:00"

	// DefaultMessage is shown when no verse is available offline.
	DefaultMessage = "Open dailyverse to read today's verse."
)

// ParseTime splits an "HH:MM" string. Each part that is missing, not a
// number or out of range falls back to its default independently.
func ParseTime(s string) (hour, minute int) {
	hour, minute = DefaultHour, DefaultMinute
	parts := strings.Split(strings.TrimSpace(s), ":")

	if h, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && h >= 0 && h < 24 {
		hour = h
	}
	if len(parts) > 1 {
		if m, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && m >= 0 && m < 60 {
			minute = m
		}
	}
	return hour, minute
}

// FormatTime renders hour and minute as "HH:MM".
func FormatTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// NextTrigger returns the next moment at hour:minute in now's location:
// today if that is still ahead of now, tomorrow otherwise.
func NextTrigger(now time.Time, hour, minute int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return t
}

// Summary is the notification body for entry: "text (reference)", just the
// text when the reference is blank, or fallback when there is no entry.
func Summary(entry *dataset.Entry, fallback string) string {
	if entry == nil {
		return fallback
	}
	text := strings.TrimSpace(entry.PrimaryText)
	ref := strings.TrimSpace(entry.PrimaryRef)
	if ref == "" {
		return text
	}
	return text + " (" + ref + ")"
}

// Plan describes the next reminder.
type Plan struct {
	Enabled bool      `json:"enabled"`
	Time    string    `json:"time"`
	Next    time.Time `json:"next"`
	Text    string    `json:"text"`
}

// NewPlan builds the reminder plan for the configured time string.
func NewPlan(now time.Time, enabled bool, hhmm string, entry *dataset.Entry) Plan {
	hour, minute := ParseTime(hhmm)
	return Plan{
		Enabled: enabled,
		Time:    FormatTime(hour, minute),
		Next:    NextTrigger(now, hour, minute),
		Text:    Summary(entry, DefaultMessage),
	}
}
