package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// observationItem wraps an Observation for use in a list
type observationItem struct {
	obs      models.Observation
	selected bool
}

// FilterValue implements list.Item
func (o observationItem) FilterValue() string {
	return o.obs.Site
}

// Title implements list.DefaultItem
func (o observationItem) Title() string {
	mark := "[ ]"
	if o.selected {
		mark = "[x]"
	}
	site := o.obs.Site
	if site == "" {
		site = "(no site)"
	}
	return fmt.Sprintf("%s %s", mark, site)
}

// Description implements list.DefaultItem
func (o observationItem) Description() string {
	status := "saved"
	if o.obs.Uploaded() {
		status = "uploaded"
		if o.obs.UploadedAt != nil {
			status += " " + o.obs.UploadedAt.Local().Format("Jan 2 15:04")
		}
	}
	return fmt.Sprintf("%s • %s survey • %s",
		o.obs.Date.Local().Format("Mon Jan 2 2006 15:04"), o.obs.SurveyType, status)
}

// observationItems builds list items, marking those in selected
func observationItems(obs []models.Observation, selected map[string]bool) []list.Item {
	items := make([]list.Item, len(obs))
	for i, o := range obs {
		items[i] = observationItem{obs: o, selected: selected[o.ID]}
	}
	return items
}

// createObservationList creates a list.Model from observations
func createObservationList(obs []models.Observation, selected map[string]bool, width, height int) list.Model {
	l := list.New(observationItems(obs, selected), list.NewDefaultDelegate(), width, height)
	l.Title = "Observations"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(true)

	return l
}
