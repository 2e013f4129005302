package export

import (
	"fmt"
	"time"

	"github.com/jonas-p/go-shp"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// Attribute columns of the exported shapefile, in order
const (
	colID = iota
	colDate
	colSite
	colStatus
	colType
	colDensity
)

var shapeFields = []shp.Field{
	shp.StringField("ID", 40),
	shp.StringField("DATE", 20),
	shp.StringField("SITE", 120),
	shp.StringField("STATUS", 10),
	shp.StringField("TYPE", 10),
	shp.NumberField("DENSITY", 2),
}

// Shapefile writes obs as a POINT shapefile at path (plus the .shx and .dbf
// siblings) and returns the number of points written
func Shapefile(path string, obs []models.Observation) (int, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, fmt.Errorf("creating shapefile: %w", err)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return 0, fmt.Errorf("setting fields: %w", err)
	}

	count := 0
	for _, o := range obs {
		pt, ok := point(o)
		if !ok {
			continue
		}

		row := int(w.Write(&shp.Point{X: pt.Lon(), Y: pt.Lat()}))
		attrs := map[int]interface{}{
			colID:     o.ID,
			colDate:   o.Date.UTC().Format(time.DateTime),
			colSite:   truncate(o.Site, 120),
			colStatus: string(o.Status),
			colType:   string(o.SurveyType),
		}
		if d := Density(o); d >= 0 {
			attrs[colDensity] = d
		}
		for col, v := range attrs {
			if err := w.WriteAttribute(row, col, v); err != nil {
				return count, fmt.Errorf("writing attribute %d of %s: %w", col, o.ID, err)
			}
		}
		count++
	}

	return count, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
