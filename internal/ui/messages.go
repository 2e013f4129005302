package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ngmaloney/croak-counter/internal/draft"
	"github.com/ngmaloney/croak-counter/internal/models"
	"github.com/ngmaloney/croak-counter/internal/survey"
)

// Message types for async operations

// draftSavedMsg is sent when the draft autosave has written to storage
type draftSavedMsg struct {
	at time.Time
}

// connectivityMsg is sent when the upload endpoint goes on or offline
type connectivityMsg struct {
	online bool
}

// uploadDoneMsg is sent when an upload attempt completes
type uploadDoneMsg struct {
	count  int
	result models.UploadResult
}

// prefilledMsg is sent when a lookup has filled fields of the draft
type prefilledMsg struct {
	source string
	fields []string
	err    error
}

// waitForSave blocks until the draft reports a save
func waitForSave(saved <-chan time.Time) tea.Cmd {
	return func() tea.Msg {
		at, ok := <-saved
		if !ok {
			return nil
		}
		return draftSavedMsg{at: at}
	}
}

// waitForConnectivity blocks until the monitor reports a change
func waitForConnectivity(status <-chan bool) tea.Cmd {
	return func() tea.Msg {
		online, ok := <-status
		if !ok {
			return nil
		}
		return connectivityMsg{online: online}
	}
}

// uploadObservations uploads ids in the background
func uploadObservations(svc *survey.Service, ids []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		result := svc.Upload(ctx, ids)
		return uploadDoneMsg{count: len(ids), result: result}
	}
}

// prefillWeather fetches current conditions into the draft
func prefillWeather(svc *survey.Service, d *draft.Draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fields, err := svc.PrefillWeather(ctx, d)
		return prefilledMsg{source: "the NOAA forecast", fields: fields, err: err}
	}
}

// locateSite looks up coordinates for the draft's location
func locateSite(svc *survey.Service, d *draft.Draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		fields, err := svc.LocateSite(ctx, d)
		return prefilledMsg{source: "the site lookup", fields: fields, err: err}
	}
}
