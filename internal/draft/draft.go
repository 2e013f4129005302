// Package draft keeps the working values of one survey form and autosaves
// them to durable storage after the user pauses typing.
package draft

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ngmaloney/croak-counter/internal/models"
	"github.com/ngmaloney/croak-counter/internal/storage"
)

// DefaultDelay is the quiet period after the last edit before an autosave
const DefaultDelay = time.Second

// ErrUnknownField is returned when updating a field the form does not have
var ErrUnknownField = errors.New("unknown draft field")

// State is the autosave state of a draft
type State int

const (
	StateIdle            State = iota // Nothing waiting to be written
	StatePendingAutosave              // An edit is waiting out the quiet period
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingAutosave:
		return "pending-autosave"
	}
	return "unknown"
}

// Confirmer asks the user a yes/no question
type Confirmer func(prompt string) bool

// Option configures a Draft
type Option func(*Draft)

// WithDelay overrides the autosave quiet period
func WithDelay(d time.Duration) Option {
	return func(dr *Draft) { dr.delay = d }
}

// WithClock overrides the time source used for LastSaved
func WithClock(now func() time.Time) Option {
	return func(dr *Draft) { dr.now = now }
}

// WithScheduler overrides the timer implementation
func WithScheduler(s Scheduler) Option {
	return func(dr *Draft) { dr.sched = s }
}

// WithLogger sets the logger for swallowed persistence errors
func WithLogger(l *slog.Logger) Option {
	return func(dr *Draft) { dr.logger = l }
}

// WithSaveHook registers a callback invoked after every successful write.
// It runs outside the draft's lock, possibly on the timer goroutine.
func WithSaveHook(fn func(time.Time)) Option {
	return func(dr *Draft) { dr.onSave = fn }
}

// Draft is the in-progress field set of one form instance, identified by
// its storage key.
type Draft struct {
	mu sync.Mutex

	store    storage.KeyValueStore
	key      string
	defaults models.Fields

	fields    models.Fields
	errors    map[string]string
	lastSaved time.Time

	// timer and gen belong together: a timer only writes if its generation
	// is still current when it fires.
	timer   Timer
	gen     uint64
	pending bool

	delay  time.Duration
	now    func() time.Time
	sched  Scheduler
	logger *slog.Logger
	onSave func(time.Time)
}

// New creates a draft for key, hydrated from store. A stored field set that
// parses is used verbatim; anything else falls back to defaults.
func New(store storage.KeyValueStore, key string, defaults models.Fields, opts ...Option) *Draft {
	d := &Draft{
		store:    store,
		key:      key,
		defaults: defaults.Clone(),
		errors:   make(map[string]string),
		delay:    DefaultDelay,
		now:      time.Now,
		sched:    timeScheduler{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.fields = d.hydrate()
	return d
}

func (d *Draft) hydrate() models.Fields {
	raw, ok, err := d.store.Get(d.key)
	if err != nil {
		d.logger.Warn("could not load saved form data", "key", d.key, "error", err)
		return d.defaults.Clone()
	}
	if !ok {
		return d.defaults.Clone()
	}

	var stored models.Fields
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored == nil {
		d.logger.Warn("could not load saved form data", "key", d.key, "error", err)
		return d.defaults.Clone()
	}
	return stored
}

// Key returns the storage key of the draft
func (d *Draft) Key() string {
	return d.key
}

// Fields returns a copy of the current field values
func (d *Draft) Fields() models.Fields {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields.Clone()
}

// Field returns the current value of name
func (d *Draft) Field(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields[name]
}

// UpdateField sets name to value, clears its validation error, and restarts
// the autosave timer.
func (d *Draft) UpdateField(name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.fields.Has(name) && !d.defaults.Has(name) {
		return ErrUnknownField
	}
	d.fields[name] = value
	delete(d.errors, name)
	d.scheduleAutosave()
	return nil
}

// scheduleAutosave must be called with mu held
func (d *Draft) scheduleAutosave() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Draft) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	at, ok := d.save()
	hook := d.onSave
	d.mu.Unlock()

	if ok && hook != nil {
		hook(at)
	}
}

// save writes the current fields; must be called with mu held
func (d *Draft) save() (time.Time, bool) {
	data, err := json.Marshal(d.fields)
	if err != nil {
		d.logger.Error("could not serialize form data", "key", d.key, "error", err)
		return time.Time{}, false
	}
	if err := d.store.Set(d.key, string(data)); err != nil {
		d.logger.Error("could not save form data", "key", d.key, "error", err)
		return time.Time{}, false
	}
	d.lastSaved = d.now()
	return d.lastSaved, true
}

// cancel drops any pending autosave; must be called with mu held
func (d *Draft) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

// Flush writes a pending autosave immediately. It reports whether a write
// was attempted and succeeded.
func (d *Draft) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	d.cancel()
	at, ok := d.save()
	hook := d.onSave
	d.mu.Unlock()

	if ok && hook != nil {
		hook(at)
	}
	return ok
}

// Close is called when the owning view goes away. Pending edits are
// flushed rather than dropped.
func (d *Draft) Close() {
	d.Flush()
}

// State reports whether an autosave is pending
func (d *Draft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		return StatePendingAutosave
	}
	return StateIdle
}

// LastSaved returns the time of the last successful write, if any
func (d *Draft) LastSaved() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSaved, !d.lastSaved.IsZero()
}

// SetFieldErrors replaces the validation errors wholesale
func (d *Draft) SetFieldErrors(errs map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = make(map[string]string, len(errs))
	for k, v := range errs {
		d.errors[k] = v
	}
}

// Errors returns a copy of the current validation errors
func (d *Draft) Errors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.errors))
	for k, v := range d.errors {
		out[k] = v
	}
	return out
}

// ClearForm asks confirm with prompt and, on yes, deletes the stored draft
// and resets to defaults. A nil confirm skips the question.
func (d *Draft) ClearForm(prompt string, confirm Confirmer) bool {
	// Ask before locking: the answer may take as long as the user likes.
	if confirm != nil && !confirm(prompt) {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancel()
	if err := d.store.Delete(d.key); err != nil {
		d.logger.Error("could not remove saved form data", "key", d.key, "error", err)
	}
	d.fields = d.defaults.Clone()
	d.lastSaved = time.Time{}
	d.errors = make(map[string]string)
	return true
}

// Discard clears the draft without asking, as after a successful submit
func (d *Draft) Discard() {
	d.ClearForm("", nil)
}
