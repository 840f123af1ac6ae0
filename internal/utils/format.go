package utils

import "github.com/dustin/go-humanize"

// FormatBytes renders a byte count with binary (1024-based) units, using the
// smallest unit that keeps the value at or above one.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}
