package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// amountRe matches common money formats: a currency symbol or code next to
// a number with optional thousands separators and decimals.
var amountRe = regexp.MustCompile(`(?i)(?:[$€£]|USD|EUR|GBP)\s*([0-9][0-9.,]*)|([0-9][0-9.,]*)\s*(?:USD|EUR|GBP|dollars)`)

// preferredAmountRe anchors an amount to billing vocabulary so that e.g. a
// late fee mentioned elsewhere in the notice does not win.
var preferredAmountRe = regexp.MustCompile(`(?i)(?:amount\s+due|total\s+due|balance\s+due|payment\s+of|minimum\s+payment)\D{0,12}(?:[$€£]|USD|EUR|GBP)?\s*([0-9][0-9.,]*)`)

// parseAmount extracts the billed amount from text, preferring amounts next
// to billing keywords. Returns false if no parseable amount exists.
func parseAmount(text string) (float64, bool) {
	if m := preferredAmountRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return v, true
		}
	}

	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, ok := parseNumber(raw); ok {
			return v, true
		}
	}

	return 0, false
}

// parseNumber converts a raw numeric string to a two-decimal amount,
// resolving the separator ambiguity: a comma followed by exactly three
// digits with a decimal point later is a thousands separator; otherwise a
// lone comma acts as the decimal separator.
func parseNumber(raw string) (float64, bool) {
	raw = strings.Trim(raw, ".,")
	if raw == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")

	switch {
	case lastComma < 0:
		// Plain or dot-decimal form; drop nothing.
	case lastDot > lastComma:
		// 1,234.56 - commas are thousands separators.
		raw = strings.ReplaceAll(raw, ",", "")
	case lastDot < 0 && len(raw)-lastComma-1 == 3:
		// 1,234 or 1,234,567 - commas are thousands separators.
		raw = strings.ReplaceAll(raw, ",", "")
	default:
		// 99,00 - comma is the decimal separator.
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}

	// Two-decimal fixed precision.
	return math.Round(v*100) / 100, true
}
