// Package sanitize repairs raw XML documents before tokenizing and cleans the
// free-text fields extracted from them.
package sanitize

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// prologScanLimit is how many leading bytes are searched for an encoding
// declaration.
const prologScanLimit = 400

var (
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
	encodingPattern = regexp.MustCompile(`(?i)encoding=['"]([^'"]+)['"]`)
)

// DetectEncoding reports the character encoding of an XML document and its
// canonical name. A UTF-8 byte-order mark wins; otherwise the prolog is
// searched for an encoding declaration. Anything unresolvable falls back to
// UTF-8.
func DetectEncoding(b []byte) (encoding.Encoding, string) {
	if bytes.HasPrefix(b, utf8BOM) {
		return unicode.UTF8, "UTF-8"
	}

	preview := b
	if len(preview) > prologScanLimit {
		preview = preview[:prologScanLimit]
	}
	latin1, err := charmap.ISO8859_1.NewDecoder().Bytes(preview)
	if err != nil {
		return unicode.UTF8, "UTF-8"
	}

	m := encodingPattern.FindSubmatch(latin1)
	if m == nil {
		return unicode.UTF8, "UTF-8"
	}
	return lookupEncoding(strings.TrimSpace(string(m[1])))
}

// lookupEncoding resolves a declared label through the IANA registry first and
// the WHATWG label set second.
func lookupEncoding(label string) (encoding.Encoding, string) {
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		if name, err := ianaindex.IANA.Name(enc); err == nil {
			return enc, name
		}
		return enc, label
	}
	if enc, err := htmlindex.Get(label); err == nil && enc != nil {
		if name, err := htmlindex.Name(enc); err == nil {
			return enc, name
		}
		return enc, label
	}
	return unicode.UTF8, "UTF-8"
}

// Decode converts b to a UTF-8 string using the detected encoding. A leading
// byte-order mark is dropped and invalid sequences are replaced, so the result
// is always valid UTF-8.
func Decode(b []byte) string {
	enc, _ := DetectEncoding(b)
	b = bytes.TrimPrefix(b, utf8BOM)

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

// Normalize runs the full pre-tokenizer pipeline: encoding detection and
// decoding, invalid character stripping and bare ampersand repair.
func Normalize(b []byte) string {
	return EscapeBareAmpersands(StripInvalidXMLChars(Decode(b)))
}
