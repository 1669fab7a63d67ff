// Package normalize turns raw post bodies into single-line corpus records.
//
// The corpus format is a bare two-field comma-delimited line with no quoting,
// so the text field may never contain a comma or a line break. The rules are
// lossy: markup is dropped, line breaks become spaces and commas become
// semicolons. Every capture path must go through this package so the corpus
// stays consistent.
package normalize

import (
	"regexp"
	"strings"
)

// Delimiter separates the author and text fields of a corpus line
const Delimiter = ","

// Substitute replaces Delimiter inside the text field
const Substitute = ";"

var tagPattern = regexp.MustCompile(`<.*?>`)

var lineBreaks = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// Record is a normalized post ready to be appended to the corpus
type Record struct {
	Author string
	Text   string
}

// Line renders the record as one corpus line without the trailing newline
func (r Record) Line() string {
	return r.Author + Delimiter + r.Text
}

// CleanText strips markup and delimiter-hostile characters from raw.
// The result is a fixed point: CleanText(CleanText(x)) == CleanText(x).
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	// Line breaks go first so a tag spanning lines is still removed in one pass.
	text := lineBreaks.Replace(raw)
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, Delimiter, Substitute)
	return strings.TrimSpace(text)
}

// Normalizer labels cleaned text with a fixed author
type Normalizer struct {
	author string
}

// New creates a Normalizer for author. The author label itself must already
// be free of delimiters; config validation enforces that.
func New(author string) *Normalizer {
	return &Normalizer{author: author}
}

// Author returns the label applied to every record
func (n *Normalizer) Author() string {
	return n.author
}

// Normalize cleans raw and returns a record, or false when nothing but
// whitespace remains.
func (n *Normalizer) Normalize(raw string) (Record, bool) {
	text := CleanText(raw)
	if text == "" {
		return Record{}, false
	}
	return Record{Author: n.author, Text: text}, true
}

// NormalizeAll normalizes raw bodies in order and drops the empty ones
func (n *Normalizer) NormalizeAll(raws []string) []Record {
	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := n.Normalize(raw); ok {
			records = append(records, rec)
		}
	}
	return records
}
