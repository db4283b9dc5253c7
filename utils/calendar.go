package utils

import (
	"time"

	"github.com/rs/zerolog/log"
)

// LoadLocation returns the named time zone, falling back to UTC when the zone
// database does not know it.
func LoadLocation(name string) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		log.Error().Err(err).Str("timezone", name).Msg("Can not load Location, falling back to UTC")
		return time.UTC
	}
	return location
}

// CalendarDate truncates t to midnight of its calendar day in loc. The result is
// expressed in UTC so that day arithmetic is not affected by DST changes.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b in loc. It works on day numbers so
// spans beyond the range of time.Duration stay exact.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	return dayNumber(CalendarDate(b, loc)) - dayNumber(CalendarDate(a, loc))
}

const secondsPerDay = 24 * 60 * 60

// dayNumber counts days since the Unix epoch for a midnight UTC date.
func dayNumber(date time.Time) int {
	seconds := date.Unix()
	days := seconds / secondsPerDay
	if seconds%secondsPerDay < 0 {
		days--
	}
	return int(days)
}

func SameCalendarDate(a, b time.Time, loc *time.Location) bool {
	return CalendarDate(a, loc).Equal(CalendarDate(b, loc))
}
