package core

import (
	"fmt"
	"time"
)

// FormatFileSize formats a byte count for log lines.
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	size := float64(bytes)
	for _, suffix := range []string{"KB", "MB", "GB"} {
		size /= unit
		if size < unit || suffix == "GB" {
			return fmt.Sprintf("%.1f %s", size, suffix)
		}
	}

	return fmt.Sprintf("%.1f GB", size)
}

// FormatDuration renders a duration as whole seconds with minute/hour parts
// spelled out, for the final status line.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
