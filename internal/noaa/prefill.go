package noaa

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ngmaloney/croak-counter/internal/models"
)

var windNumber = regexp.MustCompile(`\d+(\.\d+)?`)

// parseWindMax returns the largest number in a NOAA wind string such as
// "5 to 10 mph". Returns 0 if there is none.
func parseWindMax(s string) float64 {
	var max float64
	for _, m := range windNumber.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(m, 64)
		if err == nil && v > max {
			max = v
		}
	}
	return max
}

// skyKeywords is checked in order; the first match wins
var skyKeywords = []struct {
	words []string
	sky   string
}{
	{[]string{"fog", "haze", "mist"}, "Fog"},
	{[]string{"snow", "flurries", "sleet"}, "Snow"},
	{[]string{"drizzle", "light rain"}, "Drizzle or light rain (not affecting hearing)"},
	{[]string{"shower", "rain", "thunderstorm"}, "Showers (is affecting hearing ability)"},
	{[]string{"partly"}, "Partly cloudy or variable"},
	{[]string{"cloudy", "overcast"}, "Broken clouds or overcast"},
	{[]string{"clear", "sunny", "fair"}, "Clear or only a few clouds"},
}

// SkyConditionFor maps a NOAA short forecast onto a survey sky condition
func SkyConditionFor(shortForecast string) (string, bool) {
	s := strings.ToLower(shortForecast)
	for _, k := range skyKeywords {
		for _, w := range k.words {
			if strings.Contains(s, w) {
				return k.sky, true
			}
		}
	}
	return "", false
}

// PrefillFields turns current conditions into survey field values
func PrefillFields(cond *models.WeatherConditions) models.Fields {
	out := models.Fields{
		models.FieldStartingAirTemp: fmt.Sprintf("%.0f", cond.Temperature),
	}
	if cond.WindSpeedText != "" {
		out[models.FieldWindSpeed] = models.WindSpeedFor(cond.WindMaxMph)
	}
	if sky, ok := SkyConditionFor(cond.Conditions); ok {
		out[models.FieldSkyCondition] = sky
	}
	return out
}
