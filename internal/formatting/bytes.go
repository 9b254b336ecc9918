// Package formatting renders values for the terminal UI.
package formatting

import (
	"math"
	"strconv"
)

var units = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes converts a byte count to a human-readable string using base-1024
// units. Negative precision values are clamped to zero.
func FormatBytes(n int64, precision int) string {
	if n <= 0 {
		return "0 B"
	}
	if precision < 0 {
		precision = 0
	}

	f := float64(n)
	i := int(math.Floor(math.Log(f) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}

	size := f / math.Pow(1024, float64(i))
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// FormatMegabytes always renders in MB with two decimals, the way file sizes
// are shown next to a selected document ("0.25 MB").
func FormatMegabytes(n int64) string {
	return strconv.FormatFloat(float64(n)/1024/1024, 'f', 2, 64) + " MB"
}

// FormatSeconds renders an optional processing duration.
func FormatSeconds(s *float64) string {
	if s == nil {
		return "-"
	}
	return strconv.FormatFloat(*s, 'f', 1, 64) + "s"
}
