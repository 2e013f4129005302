package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ngmaloney/croak-counter/internal/draft"
	"github.com/ngmaloney/croak-counter/internal/ledger"
	"github.com/ngmaloney/croak-counter/internal/models"
	"github.com/ngmaloney/croak-counter/internal/storage"
	"github.com/ngmaloney/croak-counter/internal/survey"
)

// AppState represents the current state of the application
type AppState int

const (
	StateForm          AppState = iota // Filling in the survey
	StateConfirmClear                  // Asking before the form is wiped
	StateList                          // Browsing saved observations
	StateConfirmDelete                 // Asking before observations are removed
	StateEdit                          // Editing one observation
	StateUploading                     // Waiting on the upload endpoint
)

const clearPrompt = "Are you sure you want to clear the form?"

// Options wires the model to its dependencies
type Options struct {
	Store        storage.KeyValueStore
	Service      *survey.Service
	Form         survey.Form
	Connectivity <-chan bool // optional; from upload.Monitor
	Logger       *slog.Logger
	DraftOptions []draft.Option
}

// Model represents the application's state
type Model struct {
	state  AppState
	width  int
	height int
	err    error
	status string

	// Survey form
	form      survey.Form
	draft     *draft.Draft
	inputs    []textinput.Model
	focus     int
	required  map[string]bool
	saved     chan time.Time
	lastSaved time.Time

	// Observation list
	service  *survey.Service
	obsList  list.Model
	selected map[string]bool

	// Edit
	editID     string
	editFields []editField
	editInputs []textinput.Model
	editFocus  int

	// Upload
	spinner      spinner.Model
	connectivity <-chan bool
	online       bool
	onlineKnown  bool

	logger *slog.Logger
}

// editField is one attribute of a saved observation shown in the edit view
type editField struct {
	name     string
	label    string
	topLevel bool // site and coordinates live outside Data
	initial  string
	options  []string
}

// siteField names the observation's site in the edit view
const siteField = "site"

// buildEditFields lists what can be edited for obs: site and coordinates,
// then the data fields of its survey form and the comments
func buildEditFields(obs models.Observation) []editField {
	form, ok := survey.ByType(obs.SurveyType)
	if !ok {
		form = survey.Beginner()
	}

	fields := []editField{
		{name: siteField, label: "site", topLevel: true, initial: obs.Site},
		{name: models.FieldLatitude, label: "latitude", topLevel: true, initial: obs.Latitude},
		{name: models.FieldLongitude, label: "longitude", topLevel: true, initial: obs.Longitude},
	}
	for _, name := range form.Order {
		switch name {
		case models.FieldLocation, models.FieldLatitude, models.FieldLongitude:
			continue
		}
		fields = append(fields, editField{
			name:    name,
			label:   form.Label(name),
			initial: obs.Data[name],
			options: form.Options[name],
		})
	}
	return append(fields, editField{
		name:    models.FieldComments,
		label:   "comments",
		initial: obs.Data[models.FieldComments],
	})
}

// NewModel creates a new application model with the form's draft hydrated
// from the store
func NewModel(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	saved := make(chan time.Time, 1)
	notify := func(at time.Time) {
		select {
		case saved <- at:
		default:
		}
	}

	draftOpts := append([]draft.Option{
		draft.WithLogger(logger),
		draft.WithSaveHook(notify),
	}, opts.DraftOptions...)
	d := draft.New(opts.Store, opts.Form.DraftKey, opts.Form.Defaults(), draftOpts...)

	required := make(map[string]bool, len(opts.Form.Required))
	for _, name := range opts.Form.Required {
		required[name] = true
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	m := Model{
		state:        StateForm,
		form:         opts.Form,
		draft:        d,
		required:     required,
		saved:        saved,
		service:      opts.Service,
		selected:     make(map[string]bool),
		spinner:      s,
		connectivity: opts.Connectivity,
		logger:       logger,
	}
	m.inputs = m.newFormInputs()
	m.focusField(0)
	return m
}

func (m Model) newFormInputs() []textinput.Model {
	inputs := make([]textinput.Model, len(m.form.Order))
	for i, name := range m.form.Order {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 200
		ti.Width = 48
		if _, ok := m.form.Options[name]; ok {
			ti.Placeholder = "←/→ to choose"
		}
		ti.SetValue(m.draft.Field(name))
		inputs[i] = ti
	}
	return inputs
}

// syncInputs reloads every input from the draft
func (m *Model) syncInputs() {
	for i, name := range m.form.Order {
		m.inputs[i].SetValue(m.draft.Field(name))
	}
}

func (m *Model) focusField(i int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	n := len(m.inputs)
	i = ((i % n) + n) % n
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

// Close flushes any pending autosave
func (m Model) Close() {
	m.draft.Close()
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForSave(m.saved)}
	if m.connectivity != nil {
		cmds = append(cmds, waitForConnectivity(m.connectivity))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Handle window size
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		if m.state == StateList {
			m.obsList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil
	}

	// Handle custom messages
	switch msg := msg.(type) {
	case draftSavedMsg:
		m.lastSaved = msg.at
		return m, waitForSave(m.saved)

	case connectivityMsg:
		m.online = msg.online
		m.onlineKnown = true
		return m, waitForConnectivity(m.connectivity)

	case prefilledMsg:
		if msg.err != nil {
			m.status = ""
			m.err = msg.err
			return m, nil
		}
		m.syncInputs()
		if len(msg.fields) == 0 {
			m.status = "Those fields were already filled in"
		} else {
			m.status = fmt.Sprintf("Filled %d fields from %s", len(msg.fields), msg.source)
		}
		return m, nil

	case uploadDoneMsg:
		m.state = StateList
		if msg.result.Success {
			m.err = nil
			m.status = fmt.Sprintf("Uploaded %d observations", msg.count)
			m.selected = make(map[string]bool)
		} else {
			m.status = ""
			m.err = fmt.Errorf("upload failed: %s", msg.result.Error)
		}
		return m, m.refreshList()

	case spinner.TickMsg:
		if m.state != StateUploading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Handle keyboard input
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		// Global keys
		if keyMsg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		// State-specific handling
		switch m.state {
		case StateForm:
			return m.handleFormInput(keyMsg)

		case StateConfirmClear:
			// The answer is what the draft's confirmer returns
			answer := keyMsg.String() == "y" || keyMsg.String() == "Y"
			m.state = StateForm
			if m.draft.ClearForm(clearPrompt, func(string) bool { return answer }) {
				m.syncInputs()
				m.lastSaved = time.Time{}
				m.err = nil
				m.status = "Form cleared"
				return m, m.focusField(0)
			}
			return m, nil

		case StateList:
			return m.handleList(keyMsg)

		case StateConfirmDelete:
			m.state = StateList
			if keyMsg.String() == "y" || keyMsg.String() == "Y" {
				return m.deleteTargets()
			}
			return m, nil

		case StateEdit:
			return m.handleEdit(keyMsg)

		case StateUploading:
			return m, nil
		}
	}

	// Update appropriate component based on state
	switch m.state {
	case StateForm:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	case StateEdit:
		m.editInputs[m.editFocus], cmd = m.editInputs[m.editFocus].Update(msg)
	case StateList:
		m.obsList, cmd = m.obsList.Update(msg)
	}

	return m, cmd
}

// handleFormInput handles keyboard input in form state
func (m Model) handleFormInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "tab", "down":
		return m, m.focusField(m.focus + 1)
	case "shift+tab", "up":
		return m, m.focusField(m.focus - 1)
	case "ctrl+s":
		return m.submit()
	case "ctrl+r":
		m.state = StateConfirmClear
		return m, nil
	case "ctrl+w":
		m.err = nil
		m.status = "Fetching current weather..."
		return m, prefillWeather(m.service, m.draft)
	case "ctrl+l":
		m.err = nil
		m.status = "Looking up site..."
		return m, locateSite(m.service, m.draft)
	case "ctrl+o":
		return m.openList()
	case "left", "right":
		name := m.form.Order[m.focus]
		if options, ok := m.form.Options[name]; ok {
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			value := cycle(options, m.inputs[m.focus].Value(), step)
			m.inputs[m.focus].SetValue(value)
			m.setField(name, value)
			return m, nil
		}
	}

	// Clear messages when typing
	m.err = nil
	m.status = ""

	before := m.inputs[m.focus].Value()
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		m.setField(m.form.Order[m.focus], after)
	}
	return m, cmd
}

func (m *Model) setField(name, value string) {
	if err := m.draft.UpdateField(name, value); err != nil {
		m.logger.Warn("could not update field", "field", name, "error", err)
	}
}

// cycle steps through options from current, wrapping at either end
func cycle(options []string, current string, step int) string {
	if len(options) == 0 {
		return current
	}
	idx := -1
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		if step < 0 {
			return options[len(options)-1]
		}
		return options[0]
	}
	n := len(options)
	return options[((idx+step)%n+n)%n]
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	obs, errs, err := m.service.Submit(m.draft, m.form)
	if errors.Is(err, survey.ErrInvalid) {
		m.status = ""
		m.err = fmt.Errorf("%d fields need attention", len(errs))
		for i, name := range m.form.Order {
			if _, bad := errs[name]; bad {
				return m, m.focusField(i)
			}
		}
		return m, nil
	}
	if err != nil {
		m.err = err
		return m, nil
	}

	m.syncInputs()
	m.lastSaved = time.Time{}
	m.err = nil
	m.status = fmt.Sprintf("Observation saved for %s", obs.Site)
	return m, m.focusField(0)
}

func (m Model) openList() (tea.Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	m.state = StateList
	m.err = nil
	m.status = ""

	width, height := m.width-4, m.height-8
	if width < 20 {
		width = 80
	}
	if height < 5 {
		height = 20
	}
	m.obsList = createObservationList(m.service.Ledger().Entries(), m.selected, width, height)
	return m, nil
}

// refreshList rebuilds the list items from the ledger
func (m *Model) refreshList() tea.Cmd {
	return m.obsList.SetItems(observationItems(m.service.Ledger().Entries(), m.selected))
}

// targets returns the selected ids in list order, or the highlighted one
func (m Model) targets() []string {
	var ids []string
	for _, item := range m.obsList.Items() {
		if o, ok := item.(observationItem); ok && m.selected[o.obs.ID] {
			ids = append(ids, o.obs.ID)
		}
	}
	if len(ids) == 0 {
		if o, ok := m.obsList.SelectedItem().(observationItem); ok {
			ids = append(ids, o.obs.ID)
		}
	}
	return ids
}

// handleList handles keyboard input in list state
func (m Model) handleList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc", "q", "ctrl+o":
		m.state = StateForm
		m.err = nil
		m.status = ""
		return m, m.focusField(m.focus)

	case " ":
		if o, ok := m.obsList.SelectedItem().(observationItem); ok {
			if m.selected[o.obs.ID] {
				delete(m.selected, o.obs.ID)
			} else {
				m.selected[o.obs.ID] = true
			}
			return m, m.refreshList()
		}
		return m, nil

	case "a":
		entries := m.service.Ledger().Entries()
		all := len(entries) > 0 && len(m.selected) == len(entries)
		m.selected = make(map[string]bool)
		if !all {
			for _, o := range entries {
				m.selected[o.ID] = true
			}
		}
		return m, m.refreshList()

	case "d":
		if len(m.targets()) > 0 {
			m.state = StateConfirmDelete
		}
		return m, nil

	case "u":
		return m.startUpload(m.targets())

	case "U":
		var ids []string
		for _, o := range m.service.Ledger().Pending() {
			ids = append(ids, o.ID)
		}
		return m.startUpload(ids)

	case "e", "enter":
		if o, ok := m.obsList.SelectedItem().(observationItem); ok {
			return m.startEdit(o.obs)
		}
		return m, nil
	}

	m.obsList, cmd = m.obsList.Update(msg)
	return m, cmd
}

func (m Model) deleteTargets() (tea.Model, tea.Cmd) {
	ids := m.targets()
	removed := 0
	for _, id := range ids {
		if err := m.service.Ledger().Remove(id); err == nil {
			removed++
		}
		delete(m.selected, id)
	}
	m.err = nil
	m.status = fmt.Sprintf("Deleted %d observations", removed)
	return m, m.refreshList()
}

// startUpload sends the not yet uploaded records among ids
func (m Model) startUpload(ids []string) (tea.Model, tea.Cmd) {
	var pending []string
	for _, o := range m.service.Ledger().Select(ids) {
		if !o.Uploaded() {
			pending = append(pending, o.ID)
		}
	}
	if len(pending) == 0 {
		m.err = nil
		m.status = "Nothing to upload"
		return m, nil
	}

	m.state = StateUploading
	m.err = nil
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, uploadObservations(m.service, pending))
}

func (m Model) startEdit(obs models.Observation) (tea.Model, tea.Cmd) {
	m.editFields = buildEditFields(obs)
	m.editInputs = make([]textinput.Model, len(m.editFields))
	for i, f := range m.editFields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 500
		ti.Width = 48
		if len(f.options) > 0 {
			ti.Placeholder = "←/→ to choose"
		}
		ti.SetValue(f.initial)
		m.editInputs[i] = ti
	}
	m.editID = obs.ID
	m.editFocus = 0
	m.state = StateEdit
	m.err = nil
	m.status = ""
	return m, m.editInputs[0].Focus()
}

// editIndex returns the position of the named edit field, or -1
func (m Model) editIndex(name string) int {
	for i, f := range m.editFields {
		if f.name == name {
			return i
		}
	}
	return -1
}

// handleEdit handles keyboard input in edit state
func (m Model) handleEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.state = StateList
		return m, nil
	case "tab", "down", "shift+tab", "up":
		step := 1
		if msg.String() == "shift+tab" || msg.String() == "up" {
			step = -1
		}
		n := len(m.editInputs)
		m.editInputs[m.editFocus].Blur()
		m.editFocus = ((m.editFocus+step)%n + n) % n
		return m, m.editInputs[m.editFocus].Focus()
	case "left", "right":
		if options := m.editFields[m.editFocus].options; len(options) > 0 {
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			m.editInputs[m.editFocus].SetValue(cycle(options, m.editInputs[m.editFocus].Value(), step))
			return m, nil
		}
	case "enter", "ctrl+s":
		return m.saveEdit()
	}

	m.editInputs[m.editFocus], cmd = m.editInputs[m.editFocus].Update(msg)
	return m, cmd
}

// editPatch collects the fields whose input differs from the stored value
func (m Model) editPatch() models.ObservationPatch {
	patch := models.ObservationPatch{Data: models.Fields{}}
	for i, f := range m.editFields {
		value := strings.TrimSpace(m.editInputs[i].Value())
		if value == strings.TrimSpace(f.initial) {
			continue
		}
		switch {
		case f.name == siteField:
			patch.Site = value
		case f.name == models.FieldLatitude && f.topLevel:
			patch.Latitude = value
		case f.name == models.FieldLongitude && f.topLevel:
			patch.Longitude = value
		default:
			patch.Data[f.name] = value
		}
	}
	return patch
}

func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	patch := m.editPatch()

	m.state = StateList
	if err := m.service.Ledger().Update(m.editID, patch); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			m.err = fmt.Errorf("observation no longer exists")
		} else {
			m.err = err
		}
		return m, m.refreshList()
	}
	m.err = nil
	m.status = "Observation updated"
	return m, m.refreshList()
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case StateForm:
		return m.viewForm()
	case StateConfirmClear:
		return m.viewConfirm(clearPrompt, "Y: Clear • any other key: Keep editing")
	case StateList:
		return m.viewList()
	case StateConfirmDelete:
		prompt := fmt.Sprintf("Delete %d observations? This cannot be undone.", len(m.targets()))
		return m.viewConfirm(prompt, "Y: Delete • any other key: Cancel")
	case StateEdit:
		return m.viewEdit()
	case StateUploading:
		return m.viewUploading()
	}

	return ""
}

func (m Model) header(title string) string {
	parts := []string{titleStyle.Render("🐸 " + title)}
	if m.onlineKnown {
		if m.online {
			parts = append(parts, successStyle.Render("● online"))
		} else {
			parts = append(parts, mutedStyle.Render("○ offline"))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) saveIndicator() string {
	if m.draft.State() == draft.StatePendingAutosave {
		return warningStyle.Render("● Unsaved changes")
	}
	if !m.lastSaved.IsZero() {
		return successStyle.Render("✓ Saved at " + m.lastSaved.Format("15:04:05"))
	}
	return mutedStyle.Render("Not saved yet")
}

func (m Model) messageLine() string {
	if m.err != nil {
		return errorStyle.Render("✗ " + m.err.Error())
	}
	if m.status != "" {
		return successStyle.Render(m.status)
	}
	return ""
}

// visibleRange returns the window of form rows that fits the terminal
func (m Model) visibleRange() (int, int) {
	n := len(m.inputs)
	rows := m.height - 12
	if rows <= 0 || rows >= n {
		return 0, n
	}
	start := m.focus - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

// viewForm renders the survey form
func (m Model) viewForm() string {
	fieldErrors := m.draft.Errors()

	var rows []string
	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		name := m.form.Order[i]
		label := m.form.Label(name)
		if m.required[name] {
			label += requiredStyle.Render(" *")
		}
		style := labelStyle
		if i == m.focus {
			style = activeLabelStyle
		}
		rows = append(rows, style.Render(label)+m.inputs[i].View())
		if msg, ok := fieldErrors[name]; ok {
			rows = append(rows, fieldErrorStyle.Render(msg))
		}
	}

	var sections []string
	sections = append(sections, m.header(m.form.Title))
	sections = append(sections, m.saveIndicator())
	sections = append(sections, "")
	sections = append(sections, formBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))

	if line := m.messageLine(); line != "" {
		sections = append(sections, line)
	}

	help := helpStyle.Render("Tab/↑↓: Move • ←/→: Choose • Ctrl+S: Submit • Ctrl+W: Weather • Ctrl+L: Locate • Ctrl+R: Clear • Ctrl+O: Observations • Ctrl+C: Quit")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewConfirm(prompt, help string) string {
	box := confirmBoxStyle.Render(prompt)
	return lipgloss.JoinVertical(lipgloss.Left, m.header(m.form.Title), "", box, helpStyle.Render(help))
}

// viewList renders the observation list
func (m Model) viewList() string {
	pending := len(m.service.Ledger().Pending())
	subtitle := mutedStyle.Render(fmt.Sprintf("%d observations • %d not uploaded • %d selected",
		m.service.Ledger().Len(), pending, len(m.selected)))

	var sections []string
	sections = append(sections, m.header("Observations"))
	sections = append(sections, subtitle)
	sections = append(sections, "")
	sections = append(sections, m.obsList.View())

	if line := m.messageLine(); line != "" {
		sections = append(sections, line)
	}

	help := helpStyle.Render("Space: Select • A: All • U: Upload • Shift+U: Upload all • E: Edit • D: Delete • Esc: Back to form")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewEdit renders the observation edit form
func (m Model) viewEdit() string {
	var rows []string
	for i, f := range m.editFields {
		style := labelStyle
		if i == m.editFocus {
			style = activeLabelStyle
		}
		rows = append(rows, style.Render(f.label)+m.editInputs[i].View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header("Edit observation"),
		"",
		formBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
		helpStyle.Render("Tab/↑↓: Move • ←/→: Choose • Enter: Save • Esc: Cancel"),
	)
}

func (m Model) viewUploading() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header("Observations"),
		"",
		fmt.Sprintf("%s Uploading observations...", m.spinner.View()),
	)
}
