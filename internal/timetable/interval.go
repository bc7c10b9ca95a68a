// Package timetable implements the scheduling domain core: time intervals,
// assignment conflict detection, capacity validation and conflict resolution.
// Everything in this package is pure; nothing here touches storage.
package timetable

import (
	"fmt"
	"strings"

	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

// Weekday identifies a teaching day. Sunday is not a teaching day.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
}

var weekdayValues = map[string]Weekday{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
}

// String returns the capitalised day name.
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// Valid reports whether d names a teaching day.
func (d Weekday) Valid() bool {
	_, ok := weekdayNames[d]
	return ok
}

// ParseWeekday resolves a day name regardless of case.
func ParseWeekday(name string) (Weekday, error) {
	if d, ok := weekdayValues[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	return 0, appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("unknown weekday %q", name))
}

const minutesPerDay = 24 * 60

// Interval is a half-open [Start, End) range of minutes within one weekday.
type Interval struct {
	Day   Weekday `json:"day" db:"day_of_week"`
	Start int     `json:"start_min" db:"start_min"`
	End   int     `json:"end_min" db:"end_min"`
}

// NewInterval validates and builds an Interval.
func NewInterval(day Weekday, start, end int) (Interval, error) {
	iv := Interval{Day: day, Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate checks the interval invariants.
func (iv Interval) Validate() error {
	if !iv.Day.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("day %d is not a teaching day", int(iv.Day)))
	}
	if iv.Start < 0 || iv.End >= minutesPerDay {
		return appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("interval %d-%d outside minute-of-day range", iv.Start, iv.End))
	}
	if iv.Start >= iv.End {
		return appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("interval start %d must precede end %d", iv.Start, iv.End))
	}
	return nil
}

// Overlaps reports whether two intervals intersect. Touching endpoints do not
// overlap: [9:00,10:00) and [10:00,11:00) are disjoint.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Day == other.Day && iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether the minute-of-day point falls inside the interval.
func (iv Interval) Contains(pointMin int) bool {
	return pointMin >= iv.Start && pointMin < iv.End
}

// Minutes returns the interval length.
func (iv Interval) Minutes() int {
	return iv.End - iv.Start
}

// String renders the interval in the export cell format, e.g. "Monday 09:00-10:30".
func (iv Interval) String() string {
	return fmt.Sprintf("%s %s-%s", iv.Day, FormatClock(iv.Start), FormatClock(iv.End))
}

// FormatClock renders a minute-of-day value as HH:MM.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseClock converts an HH:MM string to minute-of-day.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("malformed clock value %q", raw))
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("clock value %q out of range", raw))
	}
	return h*60 + m, nil
}

// ParseInterval parses a schedule cell of the form "Monday 09:00-10:30".
func ParseInterval(raw string) (Interval, error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) != 2 {
		return Interval{}, appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("malformed schedule cell %q", raw))
	}
	day, err := ParseWeekday(fields[0])
	if err != nil {
		return Interval{}, err
	}
	bounds := strings.SplitN(fields[1], "-", 2)
	if len(bounds) != 2 {
		return Interval{}, appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("malformed time range %q", fields[1]))
	}
	start, err := ParseClock(bounds[0])
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(bounds[1])
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(day, start, end)
}
