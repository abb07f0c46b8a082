package normalizer

import (
	"amokanban/pkg/model"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultTime = "19:00"

// Unix second bounds of years 0001 and 9999.
const (
	minEpoch = -62135596800
	maxEpoch = 253402300799
)

var (
	clockPattern   = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)
	numericPattern = regexp.MustCompile(`^([+-]?\d+)(\.\d+)?$`)
)

// DateTime is a booking time of day plus an optional calendar date.
type DateTime struct {
	Time string
	Date model.Date
}

// ParseDateTime reads a date/time custom field value. It accepts unix seconds
// (a fractional part is truncated), "DD.MM.YYYY HH:MM" and "DD.MM.YYYY". Anything else, and any part that does
// not parse, yields DefaultTime and no date. Epoch values are converted in loc
// (UTC when nil).
func ParseDateTime(raw string, loc *time.Location) DateTime {
	result := DateTime{Time: DefaultTime}

	value := strings.TrimSpace(raw)
	if value == "" {
		return result
	}
	if loc == nil {
		loc = time.UTC
	}

	if m := numericPattern.FindStringSubmatch(value); m != nil {
		secs, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || secs < minEpoch || secs > maxEpoch {
			return result
		}
		t := time.Unix(secs, 0).In(loc)
		if t.Year() < 1 || t.Year() > 9999 {
			return result
		}
		result.Time = t.Format("15:04")
		result.Date = model.Date(t.Format(time.DateOnly))
		return result
	}

	if left, right, ok := strings.Cut(value, " "); ok {
		if strings.Contains(left, ".") {
			result.Date = parseDottedDate(left)
		}
		if clock, ok := parseClock(strings.TrimSpace(right)); ok {
			result.Time = clock
		}
		return result
	}

	if strings.Contains(value, ".") {
		result.Date = parseDottedDate(value)
	}
	return result
}

func isInteger(s string) bool {
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseDottedDate converts DD.MM.YYYY to YYYY-MM-DD, or "" when the value is
// not a real calendar date.
func parseDottedDate(s string) model.Date {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return ""
	}

	nums := make([]int, 3)
	for i, p := range parts {
		if p == "" || !isInteger(p) || p[0] == '-' || p[0] == '+' {
			return ""
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return ""
		}
		nums[i] = n
	}

	formatted := fmt.Sprintf("%04d-%02d-%02d", nums[2], nums[1], nums[0])
	if _, err := time.Parse(time.DateOnly, formatted); err != nil {
		return ""
	}
	return model.Date(formatted)
}

func parseClock(s string) (string, bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
