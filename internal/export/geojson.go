package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// FeatureCollection builds a point feature per observation. Observations
// without usable coordinates are skipped.
func FeatureCollection(obs []models.Observation) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, o := range obs {
		pt, ok := point(o)
		if !ok {
			continue
		}

		feature := geojson.NewFeature(pt)
		feature.ID = o.ID
		feature.Properties["site"] = o.Site
		feature.Properties["date"] = o.Date.Format(time.RFC3339)
		feature.Properties["surveyType"] = string(o.SurveyType)
		feature.Properties["status"] = string(o.Status)
		if d := Density(o); d >= 0 {
			feature.Properties["density"] = d
		}
		for k, v := range o.Data {
			if _, taken := feature.Properties[k]; taken || v == "" {
				continue
			}
			feature.Properties[k] = v
		}
		fc.Append(feature)
	}
	return fc
}

// GeoJSON writes obs to w as a FeatureCollection and returns the number of
// features written
func GeoJSON(w io.Writer, obs []models.Observation) (int, error) {
	fc := FeatureCollection(obs)

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encoding geojson: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return 0, fmt.Errorf("writing geojson: %w", err)
	}
	return len(fc.Features), nil
}
