package shipments

import (
	"strconv"
	"strings"
)

// ParseDimensions splits an "LxWxH" centimeter string into its three
// components. ok is false when the string does not hold exactly three
// parseable positive numbers.
func ParseDimensions(s string) (l, w, h float64, ok bool) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	vals := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v < 0 {
			return 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], true
}

// CBM converts a dimension string to cubic meters. Malformed input
// contributes zero so shipment totals stay computable.
func CBM(dimensions string) float64 {
	l, w, h, ok := ParseDimensions(dimensions)
	if !ok {
		return 0
	}
	return l * w * h / 1e6
}
