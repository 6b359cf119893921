package util

import (
	"math"
	"strconv"
	"time"
)

// unixEpochJD is the Julian Day of 1970-01-01T00:00:00Z.
const unixEpochJD = 2440587.5

// ParseTime tries RFC3339, RFC3339Nano and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ValidDate reports whether year-month-day names a real Gregorian calendar day.
func ValidDate(year, month, day int) bool {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// DecimalHourUTC builds a UTC instant from a calendar day and a fractional hour.
// Nanoseconds are rounded so 12.5 is exactly 12:30.
func DecimalHourUTC(year, month, day int, hour float64) time.Time {
	ns := math.Round(hour * float64(time.Hour))
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Add(time.Duration(ns))
}

// JulianDay returns the (UT) Julian Day number of t.
func JulianDay(t time.Time) float64 {
	return unixEpochJD + float64(t.UnixNano())/float64(24*time.Hour)
}
