package shared

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// WeekNumber returns the ISO-8601 week of t as observed in loc.
//
// A nil loc means UTC.
func WeekNumber(t time.Time, loc *time.Location) int {
	_, week := inLocation(t, loc).ISOWeek()
	return week
}

// PeriodKey returns the ISO year and week of t in loc as "YYYY-Www", e.g. "2024-W01".
//
// The ISO year differs from the calendar year around new year: 2024-12-30 is "2025-W01".
func PeriodKey(t time.Time, loc *time.Location) string {
	year, week := inLocation(t, loc).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}
