package utils

import (
	"fmt"
)

// FormatCoordinates renders a GPS position as a fallback address string,
// used when reverse geocoding is unavailable.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("Localização compartilhada (%.5f, %.5f)", lat, lon)
}
