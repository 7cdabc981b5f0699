package output

import (
	"fmt"
	"time"
)

// FormatDuration renders an elapsed time the way a human reads it:
// milliseconds under a second, fractional seconds under a minute.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm %ds", ms/60_000, (ms%60_000)/1000)
	}
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(n)
	idx := 0
	for size >= 1024 && idx < len(units)-1 {
		size /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d %s", n, units[idx])
	}
	return fmt.Sprintf("%.1f %s", size, units[idx])
}
