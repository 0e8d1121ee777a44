package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"

	// Largest absolute epoch offset a calendar date may have (100M days).
	maxEpochMillis = 8_640_000_000_000_000
)

var (
	dateCharsRegex     = regexp.MustCompile(`[^\d/\-.]`)
	dateTimeCharsRegex = regexp.MustCompile(`[^\d/\-.: ]`)
	allDigitsRegex     = regexp.MustCompile(`^\d+$`)

	dayMonthYearRegex = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})$`)
	yearMonthDayRegex = regexp.MustCompile(`^(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})$`)
	compactDateRegex  = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	canonicalDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
)

// orderTimeLayouts are tried in order when an order time is not already
// canonical. Slash dates with a four-digit year last are month first.
var orderTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1-2-2006 15:04:05",
	"1-2-2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006 15:04:05",
	"January 2, 2006",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
	time.UnixDate,
}

// OrderTime formats a transaction timestamp as YYYY-MM-DD HH:MM:SS. Values
// already in that shape are kept as they are; anything that cannot be parsed
// becomes "".
func OrderTime(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if cleaned := dateTimeCharsRegex.ReplaceAllString(trimmed, ""); canonicalDateTime.MatchString(cleaned) {
		return cleaned
	}

	for _, layout := range orderTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(dateTimeLayout)
		}
	}

	return ""
}

// Date formats a contact date (birthday, anniversary) as YYYY-MM-DD.
//
// Separated dates are read day-month-year first, then year-month-day. Eight
// bare digits are read as YYYYMMDD. Any other all-digit value of eight or
// more digits is an epoch timestamp in milliseconds. Impossible calendar
// dates such as 31/02/2020 yield "".
func Date(raw string) string {
	v, _ := CheckDate(raw)
	return v
}

// CheckDate is Date with a validity flag.
func CheckDate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	cleaned := dateCharsRegex.ReplaceAllString(trimmed, "")

	if m := dayMonthYearRegex.FindStringSubmatch(cleaned); m != nil {
		return calendarDate(m[3], m[2], m[1])
	}
	if m := yearMonthDayRegex.FindStringSubmatch(cleaned); m != nil {
		return calendarDate(m[1], m[2], m[3])
	}
	if m := compactDateRegex.FindStringSubmatch(cleaned); m != nil {
		if v, ok := calendarDate(m[1], m[2], m[3]); ok {
			return v, true
		}
	}

	if len(trimmed) >= 8 && allDigitsRegex.MatchString(trimmed) {
		return epochDate(trimmed)
	}

	return "", false
}

// calendarDate validates the parts strictly; time.Date would roll
// 2020-02-31 over into March.
func calendarDate(year, month, day string) (string, bool) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return "", false
	}
	if m < 1 || m > 12 || d < 1 {
		return "", false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(dateLayout), true
}

func epochDate(digits string) (string, bool) {
	ms, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || ms > maxEpochMillis {
		return "", false
	}
	t := time.UnixMilli(ms).UTC()
	if t.Year() > 9999 {
		return "", false
	}
	return t.Format(dateLayout), true
}
