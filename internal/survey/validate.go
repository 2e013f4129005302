package survey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// Validate checks fields against the form and returns field name -> message.
// An empty map means the survey can be submitted.
func Validate(form Form, fields models.Fields) map[string]string {
	errs := make(map[string]string)

	for _, name := range form.Required {
		if fields.Blank(name) {
			errs[name] = fmt.Sprintf("Please enter %s", form.Label(name))
		}
	}

	checkCoordinate(errs, fields, models.FieldLatitude, 90)
	checkCoordinate(errs, fields, models.FieldLongitude, 180)

	for name, options := range form.Options {
		if _, seen := errs[name]; seen || fields.Blank(name) {
			continue
		}
		if !models.Contains(options, fields[name]) {
			errs[name] = fmt.Sprintf("Please choose a valid %s", form.Label(name))
		}
	}

	return errs
}

func checkCoordinate(errs map[string]string, fields models.Fields, name string, limit float64) {
	if _, seen := errs[name]; seen || fields.Blank(name) {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[name]), 64)
	if err != nil || v < -limit || v > limit {
		errs[name] = fmt.Sprintf("%s must be a number between %g and %g", name, -limit, limit)
	}
}
