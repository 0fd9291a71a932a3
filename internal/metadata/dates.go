package metadata

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateScanWindow bounds the date search to the head of the document, where
// proposal dates live. Dates deep in the body are usually milestones, not the
// proposal date.
const dateScanWindow = 2000

var (
	longDateRe  = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthYearRe = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{4})\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ExtractDate finds the proposal date in the head of the document. Patterns
// are tried most-specific first; a month-year match falls back to the first
// of the month. Returns nil when nothing parses — absence is a soft miss.
func ExtractDate(text string) *time.Time {
	head := text
	if len(head) > dateScanWindow {
		head = head[:dateScanWindow]
	}

	if m := longDateRe.FindStringSubmatch(head); m != nil {
		month := monthsByPrefix[strings.ToLower(m[1])[:3]]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d := validDate(year, month, day); d != nil {
			return d
		}
	}

	if m := slashDateRe.FindStringSubmatch(head); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d := validDate(year, time.Month(month), day); d != nil {
			return d
		}
	}

	if m := isoDateRe.FindStringSubmatch(head); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if d := validDate(year, time.Month(month), day); d != nil {
			return d
		}
	}

	if m := monthYearRe.FindStringSubmatch(head); m != nil {
		month := monthsByPrefix[strings.ToLower(m[1])]
		year, _ := strconv.Atoi(m[2])
		if d := validDate(year, month, 1); d != nil {
			return d
		}
	}

	return nil
}

// validDate builds a UTC date, rejecting out-of-range components that a
// regex alone lets through (month 13, day 32, implausible years).
func validDate(year int, month time.Month, day int) *time.Time {
	if year < 1990 || year > 2100 || month < time.January || month > time.December || day < 1 || day > 31 {
		return nil
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month || d.Day() != day {
		return nil
	}
	return &d
}
