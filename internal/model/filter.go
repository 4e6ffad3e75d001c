package model

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// FilterSpec scopes the events of one report request. Zero values mean
// "no constraint". StartDate and EndDate are whole UTC days and both bounds
// are inclusive.
type FilterSpec struct {
	StartDate time.Time
	EndDate   time.Time
	Owner     string
	Entity    EntityRef
	EventType string
	Category  string
	// WeekStart is the Monday 00:00 UTC of a selected ISO week.
	WeekStart time.Time
}

// TimeBounds turns the inclusive day range into a half-open timestamp range.
// A zero side is returned as zero.
func (f FilterSpec) TimeBounds() (from, to time.Time) {
	if !f.StartDate.IsZero() {
		from = StartOfDay(f.StartDate)
	}
	if !f.EndDate.IsZero() {
		to = StartOfDay(f.EndDate).AddDate(0, 0, 1)
	}
	return from, to
}

// Empty reports whether the date bounds exclude every event.
func (f FilterSpec) Empty() bool {
	if f.StartDate.IsZero() || f.EndDate.IsZero() {
		return false
	}
	return StartOfDay(f.StartDate).After(StartOfDay(f.EndDate))
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISOWeek formats the ISO-8601 week of t as YYYY-Www.
func ISOWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// ParseISOWeek returns the Monday 00:00 UTC that starts the given ISO week
// and the Monday after it.
func ParseISOWeek(raw string) (from, to time.Time, err error) {
	var year, week int
	if n, scanErr := fmt.Sscanf(raw, "%4d-W%2d", &year, &week); scanErr != nil || n != 2 || len(raw) != 8 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid iso week %q", raw)
	}
	if week < 1 || week > 53 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid iso week %q", raw)
	}

	// January 4th is always in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	from = jan4.AddDate(0, 0, -offset+(week-1)*7)
	if y, w := from.ISOWeek(); y != year || w != week {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid iso week %q", raw)
	}
	return from, from.AddDate(0, 0, 7), nil
}
