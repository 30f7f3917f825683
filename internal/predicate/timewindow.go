package predicate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|days?|d|weeks?|wks?|w|months?|mos?)\b`)

// ParseTimeConstraint reads durations such as "48 hours",
// "48_hours_post_abandonment", "7_days" or "2 weeks". Months are 30 days.
// Values under a minute or beyond the Duration range are rejected.
func ParseTimeConstraint(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || n <= 0 {
		return 0, false
	}

	var unit time.Duration
	switch {
	case strings.HasPrefix(m[2], "h"):
		unit = time.Hour
	case strings.HasPrefix(m[2], "d"):
		unit = 24 * time.Hour
	case strings.HasPrefix(m[2], "w"):
		unit = 7 * 24 * time.Hour
	default:
		unit = 30 * 24 * time.Hour
	}
	d := n * float64(unit)
	if d < float64(time.Minute) || d >= float64(math.MaxInt64) {
		return 0, false
	}
	return time.Duration(d), true
}

// lookbackWindow returns the cart lookback: the time constraint wins only
// when it is narrower than the default.
func lookbackWindow(constraint string, def time.Duration) time.Duration {
	if d, ok := ParseTimeConstraint(constraint); ok && d < def {
		return d
	}
	return def
}

// formatWindow prints whole hours below three days and whole days above.
func formatWindow(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d%time.Hour == 0 && (d < 3*day || d%day != 0):
		n := int64(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	case d%day == 0:
		n := int64(d / day)
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	default:
		return d.String()
	}
}
