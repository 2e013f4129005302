package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// NOAAWeatherClient implements WeatherClient using the NOAA Weather API
type NOAAWeatherClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewWeatherClient creates a new NOAA weather client against api.weather.gov
func NewWeatherClient() *NOAAWeatherClient {
	return NewWeatherClientWithBaseURL("https://api.weather.gov")
}

// NewWeatherClientWithBaseURL creates a client for an alternate API host
func NewWeatherClientWithBaseURL(baseURL string) *NOAAWeatherClient {
	return &NOAAWeatherClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "CroakCounter/1.0 (github.com/ngmaloney/croak-counter)",
	}
}

// GetCurrentConditions retrieves the first hourly forecast period for a location
func (c *NOAAWeatherClient) GetCurrentConditions(ctx context.Context, lat, lon float64) (*models.WeatherConditions, error) {
	// First, get the grid point for this location
	gridPoint, err := c.getGridPoint(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed to get grid point: %w", err)
	}

	forecastURL := fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast/hourly",
		c.baseURL, gridPoint.GridID, gridPoint.GridX, gridPoint.GridY)

	req, err := http.NewRequestWithContext(ctx, "GET", forecastURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var forecastResp forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecastResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(forecastResp.Properties.Periods) == 0 {
		return nil, fmt.Errorf("no forecast periods for %.4f,%.4f", lat, lon)
	}

	period := forecastResp.Properties.Periods[0]
	temp := float64(period.Temperature)
	if period.TemperatureUnit == "C" {
		temp = temp*9/5 + 32
	}

	return &models.WeatherConditions{
		Location:      fmt.Sprintf("%.2f, %.2f", lat, lon),
		Temperature:   temp,
		WindSpeedText: period.WindSpeed,
		WindMaxMph:    parseWindMax(period.WindSpeed),
		Conditions:    period.ShortForecast,
		UpdatedAt:     time.Now(),
	}, nil
}

// getGridPoint gets the NOAA grid point for a lat/lon
func (c *NOAAWeatherClient) getGridPoint(ctx context.Context, lat, lon float64) (*gridPoint, error) {
	url := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get grid point (status %d): %s", resp.StatusCode, string(body))
	}

	var pointResp pointResponse
	if err := json.NewDecoder(resp.Body).Decode(&pointResp); err != nil {
		return nil, err
	}

	return &gridPoint{
		GridID: pointResp.Properties.GridID,
		GridX:  pointResp.Properties.GridX,
		GridY:  pointResp.Properties.GridY,
	}, nil
}

// Internal types for NOAA API responses

type gridPoint struct {
	GridID string
	GridX  int
	GridY  int
}

type pointResponse struct {
	Properties struct {
		GridID string `json:"gridId"`
		GridX  int    `json:"gridX"`
		GridY  int    `json:"gridY"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []struct {
			Name            string `json:"name"`
			StartTime       string `json:"startTime"`
			Temperature     int    `json:"temperature"`
			TemperatureUnit string `json:"temperatureUnit"`
			WindSpeed       string `json:"windSpeed"`
			WindDirection   string `json:"windDirection"`
			ShortForecast   string `json:"shortForecast"`
		} `json:"periods"`
	} `json:"properties"`
}
