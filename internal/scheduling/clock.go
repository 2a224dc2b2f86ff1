package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock time of day expressed as whole minutes since midnight,
// always in [0, 1440). The canonical external form is a zero-padded HH:MM:SS
// string; seconds are floored away on parse.
type Clock int

// ParseClock converts an HH:MM:SS (or HH:MM) string into a Clock.
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("parse clock %q: want HH:MM:SS", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("parse clock %q: bad hour", raw)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("parse clock %q: bad minute", raw)
	}
	if len(parts) == 3 {
		secs, err := strconv.Atoi(parts[2])
		if err != nil || secs < 0 || secs > 59 {
			return 0, fmt.Errorf("parse clock %q: bad second", raw)
		}
	}
	return Clock(hours*60 + mins), nil
}

// String renders the canonical zero-padded HH:MM:SS form.
func (c Clock) String() string {
	m := int(c) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d:00", m/60, m%60)
}

// Add shifts the clock by the given number of minutes, wrapping modulo 24h.
func (c Clock) Add(minutes int) Clock {
	m := (int(c) + minutes) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return Clock(m)
}

// MinutesBetween returns the absolute difference between two clocks in minutes.
func MinutesBetween(a, b Clock) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
