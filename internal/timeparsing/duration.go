// Package timeparsing resolves the relative-time expressions accepted by
// tract log --query's time comparisons (spec.md §4.13's audit queries and
// the query language's created field): compact durations
// like "+7d" or "-6h", natural-language expressions like "next monday",
// bare dates, and RFC3339 timestamps, all relative to a caller-supplied
// reference time so results stay deterministic under test.
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmyHDWMY])$`)

// IsCompactDuration reports whether s matches the compact duration
// grammar (sign? digits unit), without parsing it.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

// ParseCompactDuration parses a compact duration expression such as
// "+7d", "-6h", or "3m" (no sign means positive) relative to now.
// Supported units: h(our), d(ay), w(eek), m(onth), y(ear).
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	m := compactDurationRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount: %w", err)
	}
	if m[1] == "-" {
		n = -n
	}

	switch m[3] {
	case "h", "H":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "d", "D":
		return now.AddDate(0, 0, n), nil
	case "w", "W":
		return now.AddDate(0, 0, n*7), nil
	case "m", "M":
		return now.AddDate(0, n, 0), nil
	case "y", "Y":
		return now.AddDate(n, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown duration unit: %s", m[3])
	}
}
