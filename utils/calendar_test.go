package utils

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestLoadLocation(t *testing.T) {
	location := LoadLocation("Europe/Berlin")
	assert.Equal(t, "Europe/Berlin", location.String())

	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
}

func TestDaysBetween(t *testing.T) {
	berlin := LoadLocation("Europe/Berlin")

	a := time.Date(2024, 1, 1, 23, 30, 0, 0, berlin)
	b := time.Date(2024, 1, 2, 0, 15, 0, 0, berlin)
	assert.Equal(t, 1, DaysBetween(a, b, berlin))
	assert.Equal(t, 0, DaysBetween(a, a.Add(10*time.Minute), berlin))

	// 2024-03-31 has 23 hours in Berlin
	c := time.Date(2024, 3, 30, 12, 0, 0, 0, berlin)
	d := time.Date(2024, 4, 1, 12, 0, 0, 0, berlin)
	assert.Equal(t, 2, DaysBetween(c, d, berlin))
	assert.Equal(t, -2, DaysBetween(d, c, berlin))
}

func TestDaysBetweenBeyondDurationRange(t *testing.T) {
	start := time.Time{}
	end := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, 738885, DaysBetween(start, end, time.UTC))
	assert.Equal(t, -738885, DaysBetween(end, start, time.UTC))
	assert.Equal(t, 1, DaysBetween(time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC), time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC))
}

func TestSameCalendarDateUsesLocation(t *testing.T) {
	berlin := LoadLocation("Europe/Berlin")

	utcLate := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	nextMorning := time.Date(2024, 1, 2, 8, 0, 0, 0, berlin)

	assert.Equal(t, true, SameCalendarDate(utcLate, nextMorning, berlin))
	assert.Equal(t, false, SameCalendarDate(utcLate, nextMorning, time.UTC))
}
