package util

import (
	"strconv"
	"strings"
	"time"
)

// HumanDuration renders a duration as coarse hours and minutes for user-facing
// messages. Anything under a minute collapses to "a few seconds".
func HumanDuration(d time.Duration) string {
	if d < time.Minute {
		return "a few seconds"
	}

	total := int(d / time.Minute)
	hours := total / 60
	minutes := total % 60

	parts := make([]string, 0, 2)
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
