package curriculum

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration converts a lesson duration to seconds.
// "MM:SS" and "H:MM:SS" are accepted, a bare number counts minutes, anything else is zero.
func ParseDuration(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	parts := strings.Split(raw, ":")
	values := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		values[i] = n
	}
	switch len(values) {
	case 1:
		return values[0] * 60
	case 2:
		return values[0]*60 + values[1]
	case 3:
		return values[0]*3600 + values[1]*60 + values[2]
	default:
		return 0
	}
}

// FormatTotal renders seconds as "{h}h {m}m", dropping leftover seconds.
func FormatTotal(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

// TotalDuration sums every lesson duration across modules.
func TotalDuration(modules []DraftModule) string {
	total := 0
	for _, m := range modules {
		for _, l := range m.Lessons {
			total += ParseDuration(l.Duration)
		}
	}
	return FormatTotal(total)
}

// HumanSize renders a byte count the way attachment sizes are displayed.
func HumanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGT"[exp])
}
