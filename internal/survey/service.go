package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ngmaloney/croak-counter/internal/draft"
	"github.com/ngmaloney/croak-counter/internal/geocoding"
	"github.com/ngmaloney/croak-counter/internal/ledger"
	"github.com/ngmaloney/croak-counter/internal/models"
	"github.com/ngmaloney/croak-counter/internal/noaa"
	"github.com/ngmaloney/croak-counter/internal/upload"
)

// ErrInvalid is returned by Submit when the draft fails validation
var ErrInvalid = errors.New("survey has missing or invalid fields")

// ErrNoSelection is returned when an upload is requested for no records
var ErrNoSelection = errors.New("no observations selected")

// Geocoder resolves a place name to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocoding.Location, error)
}

// Service orchestrates drafts, the ledger and the external services
type Service struct {
	ledger   *ledger.Ledger
	uploader upload.Client
	weather  noaa.WeatherClient
	geocoder Geocoder
	logger   *slog.Logger
}

// NewService creates a survey service. uploader and weather may be nil.
func NewService(l *ledger.Ledger, uploader upload.Client, weather noaa.WeatherClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:   l,
		uploader: uploader,
		weather:  weather,
		logger:   logger,
	}
}

// SetGeocoder enables LocateSite
func (s *Service) SetGeocoder(g Geocoder) {
	s.geocoder = g
}

// Ledger returns the observation ledger
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Submit validates the draft and, if it passes, records it in the ledger
// and clears the draft. On validation failure the errors are stored on the
// draft and returned alongside ErrInvalid.
func (s *Service) Submit(d *draft.Draft, form Form) (models.Observation, map[string]string, error) {
	fields := d.Fields()

	if errs := Validate(form, fields); len(errs) > 0 {
		d.SetFieldErrors(errs)
		return models.Observation{}, errs, ErrInvalid
	}

	obs := s.ledger.Create(fields, models.ObservationMeta{
		Site:       strings.TrimSpace(fields[models.FieldLocation]),
		Latitude:   strings.TrimSpace(fields[models.FieldLatitude]),
		Longitude:  strings.TrimSpace(fields[models.FieldLongitude]),
		SurveyType: form.Type,
	})
	d.Discard()

	s.logger.Info("survey submitted", "id", obs.ID, "form", form.Name, "site", obs.Site)
	return obs, nil, nil
}

// Upload sends the selected observations and marks them uploaded only once
// the service confirms. Failures come back in the result, never as a status
// change.
func (s *Service) Upload(ctx context.Context, ids []string) models.UploadResult {
	obs := s.ledger.Select(ids)
	if len(obs) == 0 {
		return models.UploadResult{Error: ErrNoSelection.Error()}
	}
	if s.uploader == nil {
		return models.UploadResult{Error: upload.ErrNoEndpoint.Error()}
	}

	result, err := s.uploader.Upload(ctx, obs)
	if err != nil {
		s.logger.Warn("upload failed", "count", len(obs), "error", err)
		return models.UploadResult{Error: err.Error()}
	}
	if !result.Success {
		s.logger.Warn("upload rejected", "count", len(obs), "error", result.Error)
		return result
	}

	sent := make([]string, len(obs))
	for i, o := range obs {
		sent[i] = o.ID
	}
	n := s.ledger.MarkUploadedMany(sent, result)
	s.logger.Info("observations uploaded", "count", n)
	return result
}

// UploadPending uploads every observation not yet uploaded
func (s *Service) UploadPending(ctx context.Context) (int, models.UploadResult) {
	pending := s.ledger.Pending()
	ids := make([]string, len(pending))
	for i, o := range pending {
		ids[i] = o.ID
	}
	if len(ids) == 0 {
		return 0, models.UploadResult{Success: true}
	}
	return len(ids), s.Upload(ctx, ids)
}

// PrefillWeather fills blank weather fields of the draft from the current
// NOAA forecast at the draft's coordinates. It returns the fields it set.
func (s *Service) PrefillWeather(ctx context.Context, d *draft.Draft) ([]string, error) {
	if s.weather == nil {
		return nil, errors.New("weather lookup is not configured")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(d.Field(models.FieldLatitude)), 64)
	if err != nil {
		return nil, fmt.Errorf("latitude is required for a weather lookup")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(d.Field(models.FieldLongitude)), 64)
	if err != nil {
		return nil, fmt.Errorf("longitude is required for a weather lookup")
	}

	cond, err := s.weather.GetCurrentConditions(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}

	current := d.Fields()
	var set []string
	for name, value := range noaa.PrefillFields(cond) {
		if !current.Has(name) || !current.Blank(name) {
			continue
		}
		if err := d.UpdateField(name, value); err == nil {
			set = append(set, name)
		}
	}
	return set, nil
}

// LocateSite looks up the draft's location name and fills blank latitude
// and longitude fields. It returns the fields it set.
func (s *Service) LocateSite(ctx context.Context, d *draft.Draft) ([]string, error) {
	if s.geocoder == nil {
		return nil, errors.New("site lookup is not configured")
	}

	site := strings.TrimSpace(d.Field(models.FieldLocation))
	if site == "" {
		return nil, errors.New("enter a location to look up")
	}

	loc, err := s.geocoder.Geocode(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("looking up %q: %w", site, err)
	}

	current := d.Fields()
	values := map[string]string{
		models.FieldLatitude:  strconv.FormatFloat(loc.Latitude, 'f', 5, 64),
		models.FieldLongitude: strconv.FormatFloat(loc.Longitude, 'f', 5, 64),
	}
	var set []string
	for _, name := range []string{models.FieldLatitude, models.FieldLongitude} {
		if !current.Blank(name) {
			continue
		}
		if err := d.UpdateField(name, values[name]); err == nil {
			set = append(set, name)
		}
	}
	s.logger.Debug("site located", "site", site, "match", loc.Name, "fields", len(set))
	return set, nil
}
