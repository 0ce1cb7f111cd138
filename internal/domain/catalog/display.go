package catalog

import (
	"fmt"
	"math"
	"strings"
)

// CategoryLabel maps a raw category to its display label.
// Matching is case-insensitive; unknown categories pass through unchanged
// and an empty category becomes "Unknown".
func CategoryLabel(category string) string {
	switch strings.ToLower(category) {
	case "episodes":
		return "Episode"
	case "clips":
		return "Clip"
	case "music":
		return "Music Video"
	case "shorts":
		return "Short Film"
	case "":
		return "Unknown"
	default:
		return category
	}
}

// FormatDuration renders seconds as "m:ss". There is no hour component,
// so 3725 seconds renders as "62:05". Non-positive durations render as "".
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return ""
	}
	minutes := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
