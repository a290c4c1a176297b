package extract

import (
	"regexp"
	"strings"
	"time"
)

// duePhraseRe captures the text following billing due-date vocabulary.
var duePhraseRe = regexp.MustCompile(`(?i)(?:due\s+(?:by|on|date)?|payment\s+due(?:\s+(?:by|on|date))?)[:\s]+([A-Za-z0-9,/\- ]{4,40})`)

// dateRe finds date-shaped substrings in free text.
var dateRe = regexp.MustCompile(`(?i)\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{4})\b`)

// dateLayouts are tried in order against each candidate substring.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// parseDueDate extracts the due date, preferring dates that follow a due
// phrase over bare dates elsewhere in the notice.
func parseDueDate(text string) (time.Time, bool) {
	if m := duePhraseRe.FindStringSubmatch(text); m != nil {
		if d, ok := firstDate(m[1]); ok {
			return d, true
		}
	}
	return firstDate(text)
}

// firstDate returns the first parseable date-shaped substring.
func firstDate(text string) (time.Time, bool) {
	for _, candidate := range dateRe.FindAllString(text, -1) {
		if d, ok := parseDate(candidate); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	normalized := normalizeMonth(raw)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, normalized); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// normalizeMonth expands abbreviated month names and strips the trailing
// period so one set of layouts covers "Mar.", "Mar" and "March".
func normalizeMonth(raw string) string {
	fields := strings.Fields(raw)
	for i, f := range fields {
		trimmed := strings.TrimRight(f, ".")
		key := strings.ToLower(trimmed)
		if len(key) >= 3 {
			if full, ok := monthNames[key[:3]]; ok && isMonthPrefix(key, full) {
				suffix := ""
				if strings.HasSuffix(trimmed, ",") {
					suffix = ","
				}
				fields[i] = full + suffix
			}
		}
	}
	return strings.Join(fields, " ")
}

var monthNames = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

func isMonthPrefix(key, full string) bool {
	key = strings.TrimSuffix(key, ",")
	return strings.HasPrefix(strings.ToLower(full), key)
}
