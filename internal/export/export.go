// Package export writes observations out in GIS formats.
package export

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// point returns the observation's location, or false if its coordinates
// are missing or out of range
func point(o models.Observation) (orb.Point, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(o.Latitude), 64)
	if err != nil || lat < -90 || lat > 90 {
		return orb.Point{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(o.Longitude), 64)
	if err != nil || lon < -180 || lon > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// Density returns the call density of an observation as 0-3.
// Advanced surveys report the loudest species. Returns -1 if nothing was rated.
func Density(o models.Observation) int {
	if o.SurveyType != models.SurveyAdvanced {
		if n, ok := models.CallDensityLevel(o.Data[models.FieldFrogCallDensity]); ok {
			return n
		}
		return -1
	}

	best := -1
	for _, s := range models.Frogs {
		if n, ok := models.CallDensityLevel(o.Data[s.FieldName]); ok && n > best {
			best = n
		}
	}
	return best
}
