package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date patterns in fixed priority order. The first pattern that matches
// anywhere in the text wins; its leftmost match is used. If the matched
// substring fails to parse (impossible day/month), the next *pattern* is
// tried, not the next match of the same pattern.
var datePatterns = []struct {
	re    *regexp.Regexp
	parse func(m []string) (time.Time, error)
}{
	{
		// DD/MM/YYYY or DD-MM-YYYY, two-digit years accepted.
		re: regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`),
		parse: func(m []string) (time.Time, error) {
			return makeDate(m[3], m[2], m[1])
		},
	},
	{
		// YYYY/MM/DD or YYYY-MM-DD.
		re: regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`),
		parse: func(m []string) (time.Time, error) {
			return makeDate(m[1], m[2], m[3])
		},
	},
	{
		// Month DD, YYYY (full or abbreviated month name).
		re: regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4}|\d{2})\b`),
		parse: func(m []string) (time.Time, error) {
			return makeDate(m[3], monthNumber(m[1]), m[2])
		},
	},
	{
		// DD Month YYYY.
		re: regexp.MustCompile(`(?i)\b(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{4}|\d{2})\b`),
		parse: func(m []string) (time.Time, error) {
			return makeDate(m[3], monthNumber(m[2]), m[1])
		},
	},
}

// ReportDate finds the report date in free text and normalizes it to
// ISO-8601 (YYYY-MM-DD). It never fails: when no pattern matches, the
// current processing date is returned.
func ReportDate(text string) string {
	return reportDate(text, time.Now())
}

func reportDate(text string, now time.Time) string {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		t, err := p.parse(m)
		if err != nil {
			continue
		}
		return t.Format("2006-01-02")
	}
	return now.Format("2006-01-02")
}

// makeDate builds a date from string components, expanding two-digit years
// by prefixing "20" and rejecting normalized overflow (e.g. day 32).
func makeDate(year, month, day string) (time.Time, error) {
	if len(year) == 2 {
		year = "20" + year
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, err
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %d-%d-%d", y, mo, d)
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return time.Time{}, fmt.Errorf("invalid date %d-%d-%d", y, mo, d)
	}
	return t, nil
}

var monthNumbers = map[string]string{
	"jan": "1", "feb": "2", "mar": "3", "apr": "4", "may": "5", "jun": "6",
	"jul": "7", "aug": "8", "sep": "9", "oct": "10", "nov": "11", "dec": "12",
}

func monthNumber(name string) string {
	return monthNumbers[strings.ToLower(name[:3])]
}
