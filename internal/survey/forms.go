// Package survey defines the call index survey forms and the submit flow
// that moves a finished draft into the observation ledger.
package survey

import "github.com/ngmaloney/croak-counter/internal/models"

// Form describes one survey form: its draft key, fields and rules
type Form struct {
	Name     string
	Title    string
	DraftKey string
	Type     models.SurveyType
	Order    []string          // display order of the fields
	Labels   map[string]string // human readable names, used in error messages
	Options  map[string][]string
	Required []string
}

// Defaults returns the empty field set of the form
func (f Form) Defaults() models.Fields {
	out := make(models.Fields, len(f.Order))
	for _, name := range f.Order {
		out[name] = ""
	}
	return out
}

// Label returns the display label of a field
func (f Form) Label(name string) string {
	if l, ok := f.Labels[name]; ok {
		return l
	}
	return name
}

var baseLabels = map[string]string{
	models.FieldLocation:        "location",
	models.FieldLatitude:        "latitude",
	models.FieldLongitude:       "longitude",
	models.FieldWaterTemp:       "water temperature",
	models.FieldStartingAirTemp: "starting temperature",
	models.FieldEndingAirTemp:   "ending temperature",
	models.FieldSkyCondition:    "sky condition",
	models.FieldWindSpeed:       "wind speed",
	models.FieldFrogCallDensity: "call density",
	models.FieldNotes:           "notes",
}

var baseOrder = []string{
	models.FieldLocation,
	models.FieldLatitude,
	models.FieldLongitude,
	models.FieldWaterTemp,
	models.FieldStartingAirTemp,
	models.FieldEndingAirTemp,
	models.FieldSkyCondition,
	models.FieldWindSpeed,
}

func baseOptions() map[string][]string {
	return map[string][]string{
		models.FieldSkyCondition:    models.SkyConditions,
		models.FieldWindSpeed:       models.WindSpeedLabels(),
		models.FieldFrogCallDensity: models.CallDensities,
	}
}

func copyLabels() map[string]string {
	out := make(map[string]string, len(baseLabels))
	for k, v := range baseLabels {
		out[k] = v
	}
	return out
}

// Beginner is the call index survey with a single overall call density
func Beginner() Form {
	order := append(append([]string{}, baseOrder...), models.FieldFrogCallDensity, models.FieldNotes)
	return Form{
		Name:     "beginnerSurvey",
		Title:    "Call Index Survey",
		DraftKey: "beginnerSurveyDraft",
		Type:     models.SurveyBeginner,
		Order:    order,
		Labels:   copyLabels(),
		Options:  baseOptions(),
		Required: []string{
			models.FieldLocation,
			models.FieldStartingAirTemp,
			models.FieldEndingAirTemp,
			models.FieldSkyCondition,
			models.FieldWindSpeed,
			models.FieldFrogCallDensity,
		},
	}
}

// Advanced rates each species separately instead of an overall density
func Advanced() Form {
	order := append([]string{}, baseOrder...)
	labels := copyLabels()
	options := baseOptions()
	for _, s := range models.Frogs {
		order = append(order, s.FieldName)
		labels[s.FieldName] = s.Name
		options[s.FieldName] = models.CallDensities
	}
	order = append(order, models.FieldNotes)

	return Form{
		Name:     "advancedSurvey",
		Title:    "Advanced Survey",
		DraftKey: "advancedSurveyDraft",
		Type:     models.SurveyAdvanced,
		Order:    order,
		Labels:   labels,
		Options:  options,
		Required: []string{
			models.FieldLocation,
			models.FieldLatitude,
			models.FieldLongitude,
			models.FieldStartingAirTemp,
			models.FieldEndingAirTemp,
			models.FieldSkyCondition,
			models.FieldWindSpeed,
		},
	}
}

// ByType returns the form for a survey type
func ByType(t models.SurveyType) (Form, bool) {
	switch t {
	case models.SurveyBeginner:
		return Beginner(), true
	case models.SurveyAdvanced:
		return Advanced(), true
	}
	return Form{}, false
}
