package models

import (
	"regexp"
	"strconv"
)

// Survey field names shared by the forms and the observation list
const (
	FieldLocation        = "location"
	FieldLatitude        = "latitude"
	FieldLongitude       = "longitude"
	FieldWaterTemp       = "waterTemp"
	FieldStartingAirTemp = "startingAirTemp"
	FieldEndingAirTemp   = "endingAirTemp"
	FieldSkyCondition    = "skyCondition"
	FieldWindSpeed       = "windSpeed"
	FieldFrogCallDensity = "frogCallDensity"
	FieldNotes           = "notes"
	FieldComments        = "comments"
)

// SkyConditions are the accepted values for FieldSkyCondition
var SkyConditions = []string{
	"Clear or only a few clouds",
	"Partly cloudy or variable",
	"Broken clouds or overcast",
	"Fog",
	"Drizzle or light rain (not affecting hearing)",
	"Snow",
	"Showers (is affecting hearing ability)",
}

// WindSpeed is one Beaufort band offered for FieldWindSpeed
type WindSpeed struct {
	Label  string
	MinMph float64
	MaxMph float64 // upper bound, exclusive; 0 means open ended
}

// WindSpeeds lists the Beaufort bands in ascending order
var WindSpeeds = []WindSpeed{
	{Label: "Calm (<1 mph)", MinMph: 0, MaxMph: 1},
	{Label: "Light Air (1-3 mph)", MinMph: 1, MaxMph: 4},
	{Label: "Light Breeze (4-7 mph)", MinMph: 4, MaxMph: 8},
	{Label: "Gentle Breeze (8-12 mph)", MinMph: 8, MaxMph: 13},
	{Label: "Moderate Breeze (13-18 mph)", MinMph: 13, MaxMph: 19},
	{Label: "Fresh Breeze (19-24 mph)", MinMph: 19, MaxMph: 25},
	{Label: "Strong Breeze (25-31 mph)", MinMph: 25, MaxMph: 32},
	{Label: "Moderate Gale (32-38 mph)", MinMph: 32, MaxMph: 39},
	{Label: "Fresh Gale (39-46 mph)", MinMph: 39, MaxMph: 47},
	{Label: "Strong Gale (47-54 mph)", MinMph: 47, MaxMph: 55},
	{Label: "Whole Gale (55-63 mph)", MinMph: 55, MaxMph: 64},
	{Label: "Storm (64-72 mph)", MinMph: 64, MaxMph: 73},
	{Label: "Hurricane (73+ mph)", MinMph: 73},
}

// WindSpeedLabels returns the option labels for FieldWindSpeed
func WindSpeedLabels() []string {
	labels := make([]string, len(WindSpeeds))
	for i, w := range WindSpeeds {
		labels[i] = w.Label
	}
	return labels
}

// WindSpeedFor returns the Beaufort label covering mph
func WindSpeedFor(mph float64) string {
	if mph < 0 {
		mph = 0
	}
	for _, w := range WindSpeeds {
		if mph >= w.MinMph && (w.MaxMph == 0 || mph < w.MaxMph) {
			return w.Label
		}
	}
	return WindSpeeds[len(WindSpeeds)-1].Label
}

// CallDensities are the accepted values for call density fields
var CallDensities = []string{
	"0 - None",
	"1 - Individual calls, no overlapping",
	"2 - Individual calls, some overlapping",
	"3 - Full chorus, constant, continuous",
}

var densityPattern = regexp.MustCompile(`\d+`)

// CallDensityLevel extracts the 0-3 ordinal from a call density value
func CallDensityLevel(value string) (int, bool) {
	m := densityPattern.FindString(value)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 0 || n > 3 {
		return 0, false
	}
	return n, true
}

// Contains reports whether value is one of options
func Contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
