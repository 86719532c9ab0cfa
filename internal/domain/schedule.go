package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage form of a calendar date.
const DateLayout = "2006-01-02"

// Weekday is the canonical day index stored on availability rules: 0=Sunday … 6=Saturday.
type Weekday int16

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// WeekdayOf is the only conversion from a calendar date to a rule weekday.
func WeekdayOf(date time.Time) Weekday {
	return Weekday(date.Weekday())
}

func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int16(w))
	}
	return time.Weekday(w).String()
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight in loc.
// Impossible dates such as 2026-02-30 are rejected.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

// TimeOfDay is a wall-clock time in minutes since midnight.
type TimeOfDay int

const MinutesPerDay = 24 * 60

var errInvalidTimeOfDay = errors.New("time must be HH:MM between 00:00 and 23:59")

// ParseTimeOfDay accepts a strict 24h HH:MM value.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, errInvalidTimeOfDay
	}
	h, ok := twoDigits(s[0], s[1])
	if !ok || h > 23 {
		return 0, errInvalidTimeOfDay
	}
	m, ok := twoDigits(s[3], s[4])
	if !ok || m > 59 {
		return 0, errInvalidTimeOfDay
	}
	return TimeOfDay(h*60 + m), nil
}

func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On returns the instant t on the given date, in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *TimeOfDay) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*t = 0
		return nil
	default:
		return fmt.Errorf("time of day: unsupported type %T", src)
	}
	// Postgres TIME columns come back as HH:MM:SS.
	if len(s) == 8 && s[5] == ':' {
		s = s[:5]
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is a half-open [Start, End) span within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (i Interval) Valid() bool {
	return i.Start < i.End
}

func (i Interval) Minutes() int {
	return int(i.End - i.Start)
}

// Overlaps reports whether i and o share any instant. Touching intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Within reports whether i is fully inside o.
func (i Interval) Within(o Interval) bool {
	return i.Start >= o.Start && i.End <= o.End
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}
