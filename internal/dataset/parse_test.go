package dataset

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDay struct {
	date, text, ref, teaching, teachingRef string
}

// archiveDoc renders a per-year document in the archive layout.
func archiveDoc(decl string, days ...testDay) string {
	var sb strings.Builder
	sb.WriteString(decl)
	sb.WriteString("\n<FreeXml>\n")
	for _, d := range days {
		fmt.Fprintf(&sb, "<Losungen>\n<Datum>%sT00:00:00</Datum>\n<Wtag>Montag</Wtag>\n"+
			"<Sonntag/>\n<Losungstext>%s</Losungstext>\n<Losungsvers>%s</Losungsvers>\n"+
			"<Lehrtext>%s</Lehrtext>\n<Lehrtextvers>%s</Lehrtextvers>\n</Losungen>\n",
			d.date, d.text, d.ref, d.teaching, d.teachingRef)
	}
	sb.WriteString("</FreeXml>\n")
	return sb.String()
}

const utf8Decl = `<?xml version="1.0" encoding="UTF-8"?>`

var sampleDays = []testDay{
	{"2025-01-01", "Losungstext: Der Herr ist mein Hirte", "Psalm 23,1", "Lehrtext: Ich bin der gute Hirte", "Johannes 10,11"},
	{"2025-01-02", "Fürchte dich nicht", " Jesaja 41,10 ", "Siehe, ich bin bei euch", "Matthäus 28,20"},
}

func TestParseDay_FindsDate(t *testing.T) {
	doc := archiveDoc(utf8Decl, sampleDays...)

	entry, err := ParseDay(strings.NewReader(doc), "2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", entry.Date)
	assert.Equal(t, "Fürchte dich nicht", entry.PrimaryText)
	assert.Equal(t, "Jesaja 41,10", entry.PrimaryRef)
	assert.Equal(t, "Siehe, ich bin bei euch", entry.SecondaryText)
	assert.Equal(t, "Matthäus 28,20", entry.SecondaryRef)
}

func TestParseDay_SanitizesFreeTextOnly(t *testing.T) {
	doc := archiveDoc(utf8Decl, testDay{
		"2025-03-04", "Losungstext: Der Herr ist mein Hirte", "Vers: Psalm 23,1",
		"Lehrtext:/   Ich bin   der gute Hirte", "Johannes 10,11",
	})

	entry, err := ParseDay(strings.NewReader(doc), "2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, "Der Herr ist mein Hirte", entry.PrimaryText)
	assert.Equal(t, "Vers: Psalm 23,1", entry.PrimaryRef)
	assert.Equal(t, "Ich bin der gute Hirte", entry.SecondaryText)
}

func TestParseDay_DecodesDeclaredLatin1(t *testing.T) {
	doc := archiveDoc(`<?xml version="1.0" encoding="ISO-8859-1"?>`,
		testDay{"2025-05-05", "Gr\xfc\xdfe & Segen", "Psalm 1,1", "Gnade", "R\xf6mer 1,7"})

	entry, err := ParseDay(strings.NewReader(doc), "2025-05-05")
	require.NoError(t, err)
	assert.Equal(t, "Grüße & Segen", entry.PrimaryText)
	assert.Equal(t, "Römer 1,7", entry.SecondaryRef)
}

func TestParseDay_RepairsControlCharsAndAmpersands(t *testing.T) {
	doc := archiveDoc(utf8Decl, testDay{"2025-06-01", "Brot\x0b & Wein", "Psalm 104,15", "Leib &amp; Blut", "1. Korinther 11,24"})

	entry, err := ParseDay(strings.NewReader(doc), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "Brot & Wein", entry.PrimaryText)
	assert.Equal(t, "Leib & Blut", entry.SecondaryText)
}

func TestParseDay_DateNotFound(t *testing.T) {
	doc := archiveDoc(utf8Decl, sampleDays...)

	entry, err := ParseDay(strings.NewReader(doc), "2025-12-31")
	assert.Nil(t, entry)
	assert.True(t, errors.Is(err, ErrDateNotFound))
}

func TestParseDay_MissingRoot(t *testing.T) {
	entry, err := ParseDay(strings.NewReader(utf8Decl+"<html><body>Not Found</body></html>"), "2025-01-01")
	assert.Nil(t, entry)
	assert.True(t, errors.Is(err, ErrMissingRoot))
}

func TestParseDay_RootMarkerIsCaseInsensitive(t *testing.T) {
	_, err := ParseDay(strings.NewReader("<LOSUNGEN></LOSUNGEN>"), "2025-01-01")
	assert.True(t, errors.Is(err, ErrDateNotFound))
}

func TestParseDay_TruncatedDocumentIsMalformed(t *testing.T) {
	doc := archiveDoc(utf8Decl, sampleDays...)
	truncated := doc[:strings.Index(doc, "<Lehrtext>")+5]

	entry, err := ParseDay(strings.NewReader(truncated), "2025-01-02")
	assert.Nil(t, entry)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParseDay_StopsAtFirstMatch(t *testing.T) {
	doc := archiveDoc(utf8Decl, sampleDays[0])
	// Garbage after the matching record is never tokenized.
	doc = strings.Replace(doc, "</FreeXml>", "<broken attr=></FreeXml>", 1)

	entry, err := ParseDay(strings.NewReader(doc), "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "Der Herr ist mein Hirte", entry.PrimaryText)
}

func TestParseBundled_DocumentOrder(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<BibelVerse>
  <BibelVers>
    <TextAltesTestament> Erster </TextAltesTestament>
    <TextAltesTestamentQuelle>A 1</TextAltesTestamentQuelle>
    <TextNeuesTestament>Zweiter</TextNeuesTestament>
    <TextNeuesTestamentQuelle>B 2</TextNeuesTestamentQuelle>
  </BibelVers>
  <BibelVers>
    <TextAltesTestament>Dritter & Vierter</TextAltesTestament>
    <TextAltesTestamentQuelle>C 3</TextAltesTestamentQuelle>
    <TextNeuesTestament>Fünfter</TextNeuesTestament>
    <TextNeuesTestamentQuelle>D 4</TextNeuesTestamentQuelle>
  </BibelVers>
</BibelVerse>`

	records, err := ParseBundled(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Record{"Erster", "A 1", "Zweiter", "B 2"}, records[0])
	assert.Equal(t, "Dritter & Vierter", records[1].PrimaryText)
	assert.Equal(t, "D 4", records[1].SecondaryRef)
}

func TestParseBundled_EmptyAndMalformed(t *testing.T) {
	records, err := ParseBundled(strings.NewReader(`<BibelVerse></BibelVerse>`))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = ParseBundled(strings.NewReader(`<BibelVerse><BibelVers><TextAltesTestament>x`))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestRecord_LengthsCountRunes(t *testing.T) {
	r := Record{PrimaryText: "Grüße", SecondaryText: "Öl"}
	assert.Equal(t, 5, r.PrimaryLen())
	assert.Equal(t, 2, r.SecondaryLen())
	assert.Equal(t, 7, r.TotalLength())
}

func TestRecord_Entry(t *testing.T) {
	r := Record{
		PrimaryText:   "Losungstext:  Der Herr   ist mein Hirte",
		PrimaryRef:    "  Psalm 23,1 ",
		SecondaryText: "Gott ist die Liebe",
		SecondaryRef:  "1. Johannes 4,16",
	}
	e := r.Entry("2025-02-03")
	assert.Equal(t, &Entry{
		Date:          "2025-02-03",
		PrimaryText:   "Der Herr ist mein Hirte",
		PrimaryRef:    "Psalm 23,1",
		SecondaryText: "Gott ist die Liebe",
		SecondaryRef:  "1. Johannes 4,16",
	}, e)
}
