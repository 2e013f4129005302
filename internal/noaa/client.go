package noaa

import (
	"context"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// WeatherClient defines the interface for fetching weather data from NOAA
type WeatherClient interface {
	// GetCurrentConditions retrieves the current forecast period for a survey site
	GetCurrentConditions(ctx context.Context, lat, lon float64) (*models.WeatherConditions, error)
}
