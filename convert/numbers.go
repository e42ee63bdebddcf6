package convert

import (
	"math"
	"strconv"
)

func TwoDecimals(number float64) float64 {
	return RoundFloat64(number, 2)
}

func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(int(decimals))) / math.Pow10(int(decimals))
}

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// DegToCompass maps a wind direction in degrees to one of eight compass points.
func DegToCompass(deg float64) string {
	if math.IsNaN(deg) {
		return ""
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Round(deg/45)) % len(compassPoints)
	return compassPoints[idx]
}

// FormatValue renders a value with one decimal, NaN as a dash.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
