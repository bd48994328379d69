// Package sizeunit converts zfs-style human sizes ("512K", "3.2G") to KiB.
package sizeunit

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Unknown is returned when a size cannot be converted
const Unknown = -1.0

// labels in ascending order, each 1024 times the previous
var labels = []byte{'K', 'M', 'G', 'T', 'P', 'E'}

// ToK converts a size string ending in K, M, G, T, P or E to kibibytes.
// Returns Unknown and false if the label or the number is not recognized.
func ToK(display string) (float64, bool) {
	display = strings.TrimSpace(display)
	if len(display) < 2 {
		return Unknown, false
	}

	label := display[len(display)-1]
	digits := display[:len(display)-1]
	if !isDecimal(digits) {
		return Unknown, false
	}
	num, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return Unknown, false
	}

	for _, l := range labels {
		if l == label {
			if math.IsInf(num, 0) || math.IsNaN(num) {
				return Unknown, false
			}
			return num, true
		}
		num *= 1024
	}
	return Unknown, false
}

// isDecimal accepts plain unsigned decimals such as "512" or "3.2". ParseFloat
// alone would also take "NaN", "Inf", "1e3" and hex floats.
func isDecimal(s string) bool {
	dot := false
	digit := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digit = true
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digit
}

// FormatK renders a KiB value with humanized IEC units (for diagnostics)
func FormatK(k float64) string {
	if k < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(k * 1024))
}
