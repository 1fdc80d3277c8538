package ocr

import "strings"

// snippet returns a shortened version of text (ASCII only) for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// normalizeLine collapses runs of whitespace inside one OCR line.
func normalizeLine(t string) string {
	t = strings.ReplaceAll(t, "\t", " ")
	return strings.Join(strings.Fields(t), " ")
}
