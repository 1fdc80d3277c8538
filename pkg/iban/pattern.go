// Package iban finds IBAN-shaped runs in OCR text lines and normalizes them
// to a canonical 24-digit string.
package iban

import (
	"regexp"
	"strings"
)

// CanonicalLength is the number of digits in a canonical account string
// (country prefix and separators stripped).
const CanonicalLength = 24

// ibanRE matches an optional two letter country prefix followed by seven
// alphanumeric groups (2,4,4,4,4,4,2), each optionally separated by a single
// space, period, slash or hyphen. Submatch 1 is the prefix, 2..8 the groups.
var ibanRE = regexp.MustCompile(`(?i)\b(?:([a-z]{2}))?` +
	`([0-9a-z]{2})[ ./-]?` +
	`([0-9a-z]{4})[ ./-]?` +
	`([0-9a-z]{4})[ ./-]?` +
	`([0-9a-z]{4})[ ./-]?` +
	`([0-9a-z]{4})[ ./-]?` +
	`([0-9a-z]{4})[ ./-]?` +
	`([0-9a-z]{2})\b`)

// Match is the result of a successful extraction: the byte span of the
// IBAN-shaped run inside the original line and its canonical digits.
type Match struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Country string `json:"country,omitempty"`
	Digits  string `json:"digits"`
}

// IsWholeLine reports whether the match spans the whole (trimmed) line rather
// than being embedded in surrounding text.
func (m Match) IsWholeLine(line string) bool {
	lead := len(line) - len(strings.TrimLeft(line, " \t"))
	trail := len(strings.TrimRight(line, " \t"))
	return m.Start <= lead && m.End >= trail
}

// Text returns the matched run as it appeared in line.
func (m Match) Text(line string) string {
	if m.Start < 0 || m.End > len(line) || m.Start > m.End {
		return ""
	}
	return line[m.Start:m.End]
}

// IsValidPattern reports whether line contains an IBAN-shaped run. No
// character correction is attempted.
func IsValidPattern(line string) bool {
	return ibanRE.MatchString(line)
}

// Extract looks for an IBAN-shaped run in line and returns its span and the
// canonical digit string. Look-alike glyphs are coerced to digits; a run with
// a character that cannot be coerced is rejected as a whole.
func Extract(line string) (Match, bool) {
	loc := ibanRE.FindStringSubmatchIndex(line)
	if loc == nil {
		return Match{}, false
	}
	var raw strings.Builder
	raw.Grow(CanonicalLength)
	for g := 2; g <= 8; g++ {
		raw.WriteString(line[loc[2*g]:loc[2*g+1]])
	}
	if raw.Len() != CanonicalLength {
		return Match{}, false
	}
	digits, ok := coerceDigits(raw.String())
	if !ok {
		return Match{}, false
	}
	m := Match{Start: loc[0], End: loc[1], Digits: digits}
	if loc[2] >= 0 {
		m.Country = strings.ToUpper(line[loc[2]:loc[3]])
	}
	return m, true
}

// Country returns the upper-cased country prefix of the first IBAN-shaped run
// in line, or "" when there is none.
func Country(line string) string {
	m, ok := Extract(line)
	if !ok {
		return ""
	}
	return m.Country
}

// Candidate pairs a recognized line with what was extracted from it.
type Candidate struct {
	Line  string `json:"line"`
	Match Match  `json:"match"`
}

// ExtractAll applies Extract to every line, keeping input order. Lines that
// do not yield a canonical string are skipped; duplicates are kept.
func ExtractAll(lines []string) []Candidate {
	var out []Candidate
	for _, l := range lines {
		if m, ok := Extract(l); ok {
			out = append(out, Candidate{Line: l, Match: m})
		}
	}
	return out
}
