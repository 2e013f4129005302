package models

import "time"

// WeatherConditions is the current forecast period for a survey site
type WeatherConditions struct {
	Location      string
	Temperature   float64 // Fahrenheit
	WindSpeedText string  // NOAA format, e.g. "5 to 10 mph"
	WindMaxMph    float64 // upper end of WindSpeedText
	Conditions    string  // e.g., "Mostly Clear", "Chance Showers"
	UpdatedAt     time.Time
}
