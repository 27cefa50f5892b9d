// Package timeutil provides the wall clock used by the seeder and ISO-8601 helpers.
package timeutil

import "time"

// iso8601Format always prints a numeric offset, never "Z".
const iso8601Format = "2006-01-02T15:04:05-07:00"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.T
}

// Now returns the current UTC time.
func Now() time.Time {
	return time.Now().UTC()
}

// ISO8601 formats t as 2006-01-02T15:04:05+00:00.
func ISO8601(t time.Time) string {
	return t.Format(iso8601Format)
}

// ParseISO8601 parses a value produced by ISO8601. RFC 3339 "Z" offsets are accepted too.
func ParseISO8601(s string) (time.Time, error) {
	if t, err := time.Parse(iso8601Format, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
