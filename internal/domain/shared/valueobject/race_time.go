package valueobject

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimePlaceholder is rendered for missing or invalid race times
const TimePlaceholder = "--"

const (
	hundredthsPerSecond = 100
	hundredthsPerMinute = 60 * hundredthsPerSecond

	// maxMinutes keeps minutes*6000 + 5999 within int64
	maxMinutes = (math.MaxInt64 - (hundredthsPerMinute - 1)) / hundredthsPerMinute
)

// RaceTime is a race time as a non-negative count of hundredths of a second.
// It is the canonical stored and sorted form; strings are only an edge format.
type RaceTime int64

// Hundredths returns the raw hundredths count
func (t RaceTime) Hundredths() int64 {
	return int64(t)
}

// String renders the time as M:SS.HH or S.HH
func (t RaceTime) String() string {
	return FormatHundredths(int64(t))
}

// ParseRaceTime parses a human-entered time such as "1:05.32", "28.91" or "45".
//
// The grammar is an optional "minutes:" prefix followed by seconds, where
// seconds is an integer in [0, 60) optionally followed by "." and a fraction.
// One fractional digit is right-padded with 0; digits past the second are
// dropped without rounding. ok is false for empty input and for anything
// malformed; no error is returned so callers choose how to report it.
func ParseRaceTime(input string) (RaceTime, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}

	var minutes int64
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return 0, false
		}
		m, ok := parseDigits(parts[0])
		if !ok || m > maxMinutes {
			return 0, false
		}
		minutes = m
		s = parts[1]
	}

	var seconds, hundredths int64
	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return 0, false
		}
		sec, ok := parseSeconds(parts[0])
		if !ok {
			return 0, false
		}
		if _, ok := parseDigits(parts[1]); !ok {
			return 0, false
		}
		frac := parts[1]
		if len(frac) == 1 {
			frac += "0"
		}
		h, _ := parseDigits(frac[:2])
		seconds, hundredths = sec, h
	} else {
		sec, ok := parseSeconds(s)
		if !ok {
			return 0, false
		}
		seconds = sec
	}

	total := minutes*hundredthsPerMinute + seconds*hundredthsPerSecond + hundredths
	if total < 0 {
		return 0, false
	}
	return RaceTime(total), true
}

// MustParseRaceTime parses a race time and panics if it is malformed
func MustParseRaceTime(input string) RaceTime {
	t, ok := ParseRaceTime(input)
	if !ok {
		panic(fmt.Sprintf("invalid race time %q", input))
	}
	return t
}

// FormatHundredths renders hundredths as "M:SS.HH" when at least a minute,
// otherwise "S.HH" with no padding on the seconds. Negative values render
// as TimePlaceholder.
func FormatHundredths(value int64) string {
	if value < 0 {
		return TimePlaceholder
	}
	totalSeconds := value / hundredthsPerSecond
	hundredths := value % hundredthsPerSecond
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60

	if minutes > 0 {
		return fmt.Sprintf("%d:%02d.%02d", minutes, seconds, hundredths)
	}
	return fmt.Sprintf("%d.%02d", seconds, hundredths)
}

// FormatHundredthsOr renders value, or placeholder when value is nil or negative
func FormatHundredthsOr(value *int64, placeholder string) string {
	if value == nil || *value < 0 {
		return placeholder
	}
	return FormatHundredths(*value)
}

func parseSeconds(s string) (int64, bool) {
	n, ok := parseDigits(s)
	if !ok || n >= 60 {
		return 0, false
	}
	return n, true
}

// parseDigits accepts only ASCII digits, rejecting signs and whitespace
func parseDigits(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
