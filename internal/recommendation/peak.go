package recommendation

import (
	"fmt"
	"strings"
	"time"

	"github.com/chargeroute/chargeroute/internal/station"
)

// TimeOfDay is a wall-clock time with minute granularity, stored as
// minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parsing time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// TimeOfDayOf returns the wall-clock time of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// String formats the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// IsWithinWindow reports whether current falls inside w. Both ends are
// inclusive. A window whose start is after its end wraps past midnight.
// Windows with unparsable bounds never match.
func IsWithinWindow(current TimeOfDay, w station.PeakWindow) bool {
	start, err := ParseTimeOfDay(w.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseTimeOfDay(w.EndTime)
	if err != nil {
		return false
	}

	if start > end {
		return current >= start || current <= end
	}
	return current >= start && current <= end
}

// FindActiveWindow returns the first window, in input order, containing current.
func FindActiveWindow(current TimeOfDay, windows []station.PeakWindow) (station.PeakWindow, bool) {
	for _, w := range windows {
		if IsWithinWindow(current, w) {
			return w, true
		}
	}
	return station.PeakWindow{}, false
}

// FilterForDay returns the windows tagged with day, compared case-insensitively.
func FilterForDay(windows []station.PeakWindow, day string) []station.PeakWindow {
	var out []station.PeakWindow
	for _, w := range windows {
		if strings.EqualFold(strings.TrimSpace(w.Day), day) {
			out = append(out, w)
		}
	}
	return out
}
