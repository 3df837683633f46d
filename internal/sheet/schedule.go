package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSchedule is returned when a date or time cell cannot be parsed
var ErrInvalidSchedule = errors.New("invalid schedule")

// ParseSchedule combines a date cell and an optional time cell into an
// absolute instant in loc. It returns nil when the date is empty.
//
// Accepted dates: YYYY/MM/DD, YYYY-MM-DD, DD/MM/YYYY when the first part is
// greater than 12 (MM/DD/YYYY otherwise) and DD-MM-YYYY. Times are HH:MM or
// HH:MM:SS; without a time the post is scheduled at midnight.
func ParseSchedule(date, clock string, loc *time.Location) (*time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	year, month, day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	hour, minute, second, err := parseClock(clock)
	if err != nil {
		return nil, err
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	// time.Date normalizes overflow, so 31/02 would silently become March
	if t.Day() != day || int(t.Month()) != month {
		return nil, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidSchedule, date)
	}
	return &t, nil
}

// FormatSchedule renders a schedule instant the way it is stored and sent
func FormatSchedule(t time.Time) string {
	return t.Format(time.RFC3339)
}

func parseDate(s string) (year, month, day int, err error) {
	sep := "/"
	if !strings.Contains(s, "/") {
		sep = "-"
	}
	// Spreadsheet cells sometimes carry a time component after the date
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}

	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: unrecognized date %q", ErrInvalidSchedule, s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: unrecognized date %q", ErrInvalidSchedule, s)
		}
		nums[i] = n
	}

	switch {
	case len(strings.TrimSpace(parts[0])) == 4:
		year, month, day = nums[0], nums[1], nums[2]
	case sep == "-":
		day, month, year = nums[0], nums[1], nums[2]
	case nums[0] > 12:
		day, month, year = nums[0], nums[1], nums[2]
	default:
		month, day, year = nums[0], nums[1], nums[2]
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1000 {
		return 0, 0, 0, fmt.Errorf("%w: date out of range %q", ErrInvalidSchedule, s)
	}
	return year, month, day, nil
}

func parseClock(s string) (hour, minute, second int, err error) {
	if s == "" {
		return 0, 0, 0, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("%w: unrecognized time %q", ErrInvalidSchedule, s)
	}

	vals := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: unrecognized time %q", ErrInvalidSchedule, s)
		}
		vals[i] = n
	}

	if vals[0] > 23 || vals[1] > 59 || vals[2] > 59 || vals[0] < 0 || vals[1] < 0 || vals[2] < 0 {
		return 0, 0, 0, fmt.Errorf("%w: time out of range %q", ErrInvalidSchedule, s)
	}
	return vals[0], vals[1], vals[2], nil
}
