// Package value parses DCSM channel value tokens into the byte they
// represent on the wire.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse converts a value token to its byte value:
//
//	"full"  -> 255
//	"half"  -> 128
//	"out"   -> 0
//	"P%"    -> round-towards-zero(P/100 * 255), P a decimal (may be fractional)
//	"N"     -> N, 0-255
func Parse(s string) (byte, error) {
	switch s {
	case "full":
		return 255, nil
	case "half":
		return 128, nil
	case "out":
		return 0, nil
	}

	if strings.HasSuffix(s, "%") {
		pct, err := strconv.ParseFloat(s[:len(s)-1], 64)
		if err != nil {
			return 0, fmt.Errorf("value: invalid percentage %q: %w", s, err)
		}
		v := int(pct / 100.0 * 255.0)
		if v < 0 || v > 255 {
			return 0, fmt.Errorf("value: percentage %q out of range", s)
		}
		return byte(v), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("value: invalid value %q: %w", s, err)
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("value: value %q out of range", s)
	}
	return byte(n), nil
}
