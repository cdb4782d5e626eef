package dataset

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/runnerr0/dailyverse/internal/sanitize"
)

// Element names of the per-year archive format.
const (
	dayElement            = "Losungen"
	dateElement           = "Datum"
	dayTextElement        = "Losungstext"
	dayRefElement         = "Losungsvers"
	dayTeachingElement    = "Lehrtext"
	dayTeachingRefElement = "Lehrtextvers"
	dateKeyLength         = 10
)

// Element names of the bundled collection format.
const (
	bundledEntryElement  = "BibelVers"
	bundledPrimaryText   = "TextAltesTestament"
	bundledPrimaryRef    = "TextAltesTestamentQuelle"
	bundledSecondaryText = "TextNeuesTestament"
	bundledSecondaryRef  = "TextNeuesTestamentQuelle"
)

var (
	// ErrMissingRoot means the sanitized document does not contain the
	// expected record element at all, usually a truncated download.
	ErrMissingRoot = errors.New("dataset: expected element missing")
	// ErrDateNotFound means the document parsed but has no record for the date.
	ErrDateNotFound = errors.New("dataset: date not found")
	// ErrMalformed wraps tokenizer failures that survived sanitizing.
	ErrMalformed = errors.New("dataset: malformed document")
)

// newDecoder returns a decoder over already normalized UTF-8 text. The prolog
// may still declare the original charset, so charset conversion is a no-op.
func newDecoder(text string) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return dec
}

// ParseDay streams a per-year archive document and returns the entry whose
// date equals target (YYYY-MM-DD). Parsing stops at the first match.
func ParseDay(r io.Reader, target string) (*Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read archive document: %w", err)
	}

	text := sanitize.Normalize(raw)
	if !strings.Contains(strings.ToLower(text), "<"+strings.ToLower(dayElement)) {
		return nil, ErrMissingRoot
	}

	dec := newDecoder(text)
	var (
		inDay  bool
		date   string
		fields map[string]string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrDateNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if name == dayElement {
				inDay = true
				date = ""
				fields = make(map[string]string, 4)
				continue
			}
			if !inDay {
				continue
			}
			switch name {
			case dateElement, dayTextElement, dayRefElement, dayTeachingElement, dayTeachingRefElement:
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
				if name == dateElement {
					date = dateKey(s)
				} else {
					fields[name] = s
				}
			}
		case xml.EndElement:
			if t.Name.Local != dayElement || !inDay {
				continue
			}
			inDay = false
			if date == target {
				return &Entry{
					Date:          date,
					PrimaryText:   sanitize.FieldText(fields[dayTextElement]),
					PrimaryRef:    strings.TrimSpace(fields[dayRefElement]),
					SecondaryText: sanitize.FieldText(fields[dayTeachingElement]),
					SecondaryRef:  strings.TrimSpace(fields[dayTeachingRefElement]),
				}, nil
			}
		}
	}
}

func dateKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > dateKeyLength {
		return s[:dateKeyLength]
	}
	return s
}

// ParseBundled reads a bundled collection: a flat sequence of entry elements
// in document order. No date filtering happens here.
func ParseBundled(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bundled document: %w", err)
	}

	dec := newDecoder(sanitize.Normalize(raw))
	var (
		records []Record
		current *Record
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == bundledEntryElement {
				current = &Record{}
				continue
			}
			if current == nil {
				continue
			}
			var target *string
			switch t.Name.Local {
			case bundledPrimaryText:
				target = &current.PrimaryText
			case bundledPrimaryRef:
				target = &current.PrimaryRef
			case bundledSecondaryText:
				target = &current.SecondaryText
			case bundledSecondaryRef:
				target = &current.SecondaryRef
			default:
				continue
			}
			var s string
			if err := dec.DecodeElement(&s, &t); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			*target = strings.TrimSpace(s)
		case xml.EndElement:
			if t.Name.Local == bundledEntryElement && current != nil {
				records = append(records, *current)
				current = nil
			}
		}
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}
