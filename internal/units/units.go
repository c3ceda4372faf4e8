// Package units provides shared constants, parsing and validation for angle units
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit constants
const (
	Deg    = "deg"
	Arcmin = "arcmin"
	Arcsec = "arcsec"
	Rad    = "rad"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Deg, Arcmin, Arcsec, Rad}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ToDegrees converts an angle in the given unit to degrees.
// Unknown units are treated as degrees.
func ToDegrees(value float64, unit string) float64 {
	switch unit {
	case Arcmin:
		return value / 60
	case Arcsec:
		return value / 3600
	case Rad:
		return value * 180 / math.Pi
	default:
		return value
	}
}

// ParseAngle parses an angle string such as "3arcmin", "0.5deg", "12arcsec"
// or "0.01rad" and returns it in degrees. A bare number is read as degrees.
func ParseAngle(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty angle")
	}
	unit := Deg
	num := s
	for _, u := range ValidUnits {
		if strings.HasSuffix(s, u) {
			unit = u
			num = strings.TrimSpace(strings.TrimSuffix(s, u))
			break
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid angle %q (valid units: %s): %w", s, GetValidUnitsString(), err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("angle %q is not finite", s)
	}
	return ToDegrees(v, unit), nil
}

// FormatAngle renders degrees using the largest unit that keeps the value >= 1.
func FormatAngle(deg float64) string {
	a := math.Abs(deg)
	switch {
	case a == 0 || a >= 1:
		return strconv.FormatFloat(deg, 'g', -1, 64) + Deg
	case a >= 1.0/60:
		return strconv.FormatFloat(deg*60, 'g', 6, 64) + Arcmin
	default:
		return strconv.FormatFloat(deg*3600, 'g', 6, 64) + Arcsec
	}
}
