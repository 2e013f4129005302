package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Fields is a flat mapping of survey field name to value.
// A missing key and an empty string mean the same thing.
type Fields map[string]string

// Clone returns an independent copy of the field set
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Has reports whether name is part of the field set
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Blank reports whether the named field is empty once whitespace is trimmed
func (f Fields) Blank(name string) bool {
	return strings.TrimSpace(f[name]) == ""
}

// SurveyType distinguishes the call index survey forms
type SurveyType string

const (
	SurveyBeginner SurveyType = "beginner"
	SurveyAdvanced SurveyType = "advanced"
)

// Valid reports whether t is a known survey type
func (t SurveyType) Valid() bool {
	return t == SurveyBeginner || t == SurveyAdvanced
}

// Status is the lifecycle state of a stored observation.
// The only transition is StatusSaved -> StatusUploaded.
type Status string

const (
	StatusSaved    Status = "saved"
	StatusUploaded Status = "uploaded"
)

// Observation is a finalized survey record kept in the local ledger
type Observation struct {
	ID         string     `json:"id"`
	Date       time.Time  `json:"date"`
	Site       string     `json:"site"`
	Latitude   string     `json:"latitude"`
	Longitude  string     `json:"longitude"`
	SurveyType SurveyType `json:"surveyType"`
	Status     Status     `json:"status"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	Data       Fields     `json:"data"`
}

// UnmarshalJSON reads date and uploadedAt in any of the ISO-8601 forms
// ParseTime accepts
func (o *Observation) UnmarshalJSON(b []byte) error {
	type plain Observation
	var aux struct {
		plain
		Date       string  `json:"date"`
		UploadedAt *string `json:"uploadedAt,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*o = Observation(aux.plain)
	o.Date = time.Time{}
	o.UploadedAt = nil
	if aux.Date != "" {
		t, err := ParseTime(aux.Date)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		o.Date = t
	}
	if aux.UploadedAt != nil && *aux.UploadedAt != "" {
		t, err := ParseTime(*aux.UploadedAt)
		if err != nil {
			return fmt.Errorf("uploadedAt: %w", err)
		}
		o.UploadedAt = &t
	}
	return nil
}

// timeLayouts are tried in order; the zoneless forms are read as UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 date or date-time
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Clone returns a deep copy so callers can't mutate ledger state through it
func (o Observation) Clone() Observation {
	c := o
	if o.UploadedAt != nil {
		t := *o.UploadedAt
		c.UploadedAt = &t
	}
	if o.Data != nil {
		c.Data = o.Data.Clone()
	}
	return c
}

// Uploaded reports whether the record has been accepted by the remote service
func (o Observation) Uploaded() bool {
	return o.Status == StatusUploaded
}

// ObservationMeta carries the top-level attributes stamped on a new observation
type ObservationMeta struct {
	Site       string
	Latitude   string
	Longitude  string
	SurveyType SurveyType
}

// ObservationPatch is a partial edit of an observation.
// Data is merged key by key; empty top-level values keep the prior value.
type ObservationPatch struct {
	Site      string
	Latitude  string
	Longitude string
	Data      Fields
}

// UploadResult is the response contract of the upload endpoint
type UploadResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
