package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DayFirst is the convention applied to every ambiguous numeric date:
// "03/04/2024" is 3 April 2024, as in Indian bank exports. It is never
// inferred per row.
const DayFirst = "DD/MM/YYYY"

// ErrEmptyDate is returned when a date cell carries no value.
var ErrEmptyDate = errors.New("date is empty")

var (
	// DD/MM/YYYY, DD-MM-YYYY, DD.MM.YYYY and two-digit year variants
	dateDayFirst = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})$`)
	// YYYY-MM-DD or YYYY/MM/DD
	dateISO = regexp.MustCompile(`^(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})$`)
	// 15 Jan 2024, 15-Jan-24, 15th January, 2024
	dateDayMonthName = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?[\s/.,\-]+([A-Za-z]+)\.?[\s/.,\-]+(\d{4}|\d{2})$`)
	// Jan 15, 2024 or January 15 2024
	dateMonthNameDay = regexp.MustCompile(`^([A-Za-z]+)\.?[\s/.,\-]+(\d{1,2})(?:st|nd|rd|th)?[\s/.,\-]+(\d{4}|\d{2})$`)
	// Spreadsheet serial (45306 or 45306.5) or compact YYYYMMDD
	dateNumeric = regexp.MustCompile(`^\d+(\.\d+)?$`)
	// Trailing time of day, optionally with seconds, AM/PM or a zone
	timeSuffix = regexp.MustCompile(`(?i)(?:[\sT]+)\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?\s*(?:AM|PM)?\s*(?:Z|[+\-]\d{2}:?\d{2})?$`)
)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// maxSerialDate bounds spreadsheet serial numbers (9999-12-31).
const maxSerialDate = 2958465

// ParseDate reads a statement date cell and returns it as a UTC calendar date.
// Numeric day/month dates are always read day-first (see DayFirst).
func ParseDate(s string) (time.Time, error) {
	s = CleanText(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	s = timeSuffix.ReplaceAllString(s, "")

	if dateNumeric.MatchString(s) {
		return parseNumericDate(s)
	}
	if m := dateISO.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3], s)
	}
	if m := dateDayFirst.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[2], m[1], s)
	}
	if m := dateDayMonthName.FindStringSubmatch(s); m != nil {
		month, ok := lookupMonth(m[2])
		if !ok {
			return time.Time{}, fmt.Errorf("date %q: unknown month %q", s, m[2])
		}
		return buildDate(m[3], strconv.Itoa(month), m[1], s)
	}
	if m := dateMonthNameDay.FindStringSubmatch(s); m != nil {
		month, ok := lookupMonth(m[1])
		if !ok {
			return time.Time{}, fmt.Errorf("date %q: unknown month %q", s, m[1])
		}
		return buildDate(m[3], strconv.Itoa(month), m[2], s)
	}

	return time.Time{}, fmt.Errorf("date %q is not in a recognized format", s)
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseNumericDate(s string) (time.Time, error) {
	if len(s) == 8 && (strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20")) {
		return buildDate(s[0:4], s[4:6], s[6:8], s)
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	if serial < 1 || serial > maxSerialDate {
		return time.Time{}, fmt.Errorf("date %q is outside the spreadsheet serial range", s)
	}

	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return DateOnly(t), nil
}

func buildDate(year, month, day, raw string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: bad year", raw)
	}
	if len(year) == 2 {
		y += 2000
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("date %q: month out of range", raw)
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > daysIn(time.Month(m), y) {
		return time.Time{}, fmt.Errorf("date %q: day out of range", raw)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// lookupMonth accepts full names and any abbreviation of at least three
// letters ("Jan", "Sept").
func lookupMonth(name string) (int, bool) {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0, false
	}
	for i, full := range monthNames {
		if strings.HasPrefix(full, name) {
			return i + 1, true
		}
	}
	return 0, false
}
