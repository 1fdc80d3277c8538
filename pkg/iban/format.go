package iban

import "strings"

// Format groups digits in blocks of four for display, prefixed with the
// country code when known: "TR33 0006 1005 1978 6457 8413 26".
func Format(digits, country string) string {
	s := strings.ToUpper(country) + digits
	var parts []string
	for len(s) > 4 {
		parts = append(parts, s[:4])
		s = s[4:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
