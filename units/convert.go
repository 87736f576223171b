package units

// ConvertToSeconds converts a duration given in unit to seconds. Recognized
// units are s, ms, min, h and Ms; any other unit returns value unchanged.
func ConvertToSeconds(unit string, value float64) float64 {
	switch unit {
	case "min":
		return value * 60
	case "h":
		return value * 3600
	case "ms":
		return value / 1000
	case "Ms":
		return value * 1000000
	default:
		return value
	}
}

// ConvertToKelvin converts a temperature given in unit to Kelvin. Recognized
// units are K, °K, mK, MK, C, °C, F and °F; any other unit returns value
// unchanged.
func ConvertToKelvin(unit string, value float64) float64 {
	switch unit {
	case "C", "°C":
		return value + 273.15
	case "F", "°F":
		return (value-32)*5/9 + 273.15
	case "mK":
		return value / 1000
	case "MK":
		return value * 1000000
	default:
		return value
	}
}
