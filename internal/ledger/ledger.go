// Package ledger owns the durable, newest-first list of finalized observations.
package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ngmaloney/croak-counter/internal/models"
	"github.com/ngmaloney/croak-counter/internal/storage"
)

// StorageKey is where the whole ledger is persisted
const StorageKey = "observations"

// BackupKey receives a stored ledger that is not a list before it is first
// overwritten
const BackupKey = StorageKey + ".bak"

// ErrNotFound is returned when no observation has the requested id
var ErrNotFound = errors.New("observation not found")

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the time source for dates and upload stamps
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDFunc overrides id generation
func WithIDFunc(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// WithLogger sets the logger for swallowed persistence errors
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Ledger is the in-memory view of the stored observations. Every mutation
// rewrites the full list.
type Ledger struct {
	mu      sync.Mutex
	store   storage.KeyValueStore
	entries []models.Observation

	// unreadable holds stored elements that did not decode; they are written
	// back after entries so a reload can try them again
	unreadable []json.RawMessage
	// damaged is a stored value that was not a list, moved to BackupKey on
	// the next write
	damaged string

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// New creates a ledger and loads whatever is stored
func New(store storage.KeyValueStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		newID:  newID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.read()
	return l
}

// newID returns a time-ordered UUID so ids sort by creation
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// LoadAll re-reads the stored list, replacing the in-memory copy. Missing or
// malformed data yields an empty ledger. Elements that fail to decode are
// skipped and kept for the next write.
func (l *Ledger) LoadAll() []models.Observation {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.read()
	return cloneAll(l.entries)
}

// read loads the stored list; must be called with mu held
func (l *Ledger) read() {
	l.entries = []models.Observation{}
	l.unreadable = nil
	l.damaged = ""

	raw, ok, err := l.store.Get(StorageKey)
	if err != nil {
		l.logger.Warn("could not load observations", "error", err)
		return
	}
	if !ok {
		return
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil || elems == nil {
		l.logger.Warn("stored observations are not a list", "error", err)
		l.damaged = raw
		return
	}

	for i, elem := range elems {
		var obs models.Observation
		if err := json.Unmarshal(elem, &obs); err != nil {
			l.logger.Warn("skipping unreadable observation", "index", i, "error", err)
			l.unreadable = append(l.unreadable, elem)
			continue
		}
		l.entries = append(l.entries, obs)
	}
}

// persist writes the full list; must be called with mu held
func (l *Ledger) persist() {
	if l.damaged != "" {
		if err := l.store.Set(BackupKey, l.damaged); err != nil {
			l.logger.Error("failed to back up unreadable observations", "error", err)
			return
		}
		l.logger.Warn("moved unreadable observations aside", "key", BackupKey)
		l.damaged = ""
	}

	elems := make([]json.RawMessage, 0, len(l.entries)+len(l.unreadable))
	for _, e := range l.entries {
		data, err := json.Marshal(e)
		if err != nil {
			l.logger.Error("failed to serialize observations", "id", e.ID, "error", err)
			return
		}
		elems = append(elems, data)
	}
	elems = append(elems, l.unreadable...)

	data, err := json.Marshal(elems)
	if err != nil {
		l.logger.Error("failed to serialize observations", "error", err)
		return
	}
	if err := l.store.Set(StorageKey, string(data)); err != nil {
		l.logger.Error("failed to persist observations", "error", err)
	}
}

// Entries returns a copy of the list, newest first
func (l *Ledger) Entries() []models.Observation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneAll(l.entries)
}

// Len returns the number of stored observations
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Get returns the observation with id
func (l *Ledger) Get(id string) (models.Observation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(id); i >= 0 {
		return l.entries[i].Clone(), true
	}
	return models.Observation{}, false
}

func (l *Ledger) index(id string) int {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Create records a submitted survey at the head of the ledger
func (l *Ledger) Create(fields models.Fields, meta models.ObservationMeta) models.Observation {
	l.mu.Lock()
	defer l.mu.Unlock()

	obs := models.Observation{
		ID:         l.newID(),
		Date:       l.now(),
		Site:       meta.Site,
		Latitude:   meta.Latitude,
		Longitude:  meta.Longitude,
		SurveyType: meta.SurveyType,
		Status:     models.StatusSaved,
		Data:       fields.Clone(),
	}

	l.entries = append([]models.Observation{obs}, l.entries...)
	l.persist()
	return obs.Clone()
}

// Update applies a partial edit. Data keys are merged into the existing
// data; blank top-level values keep what was there.
func (l *Ledger) Update(id string, patch models.ObservationPatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return ErrNotFound
	}

	e := &l.entries[i]
	if patch.Site != "" {
		e.Site = patch.Site
	}
	if patch.Latitude != "" {
		e.Latitude = patch.Latitude
	}
	if patch.Longitude != "" {
		e.Longitude = patch.Longitude
	}
	if e.Data == nil {
		e.Data = make(models.Fields, len(patch.Data))
	}
	for k, v := range patch.Data {
		e.Data[k] = v
	}

	l.persist()
	return nil
}

// Remove deletes the observation with id
func (l *Ledger) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return ErrNotFound
	}

	next := make([]models.Observation, 0, len(l.entries)-1)
	next = append(next, l.entries[:i]...)
	next = append(next, l.entries[i+1:]...)
	l.entries = next
	l.persist()
	return nil
}

// MarkUploaded applies an upload result to one observation. A failed result
// leaves the record as saved so it can be retried.
func (l *Ledger) MarkUploaded(id string, result models.UploadResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return ErrNotFound
	}
	if !result.Success {
		return nil
	}
	l.markLocked(i)
	l.persist()
	return nil
}

// MarkUploadedMany applies one upload result to a selection and returns how
// many records were marked. Unknown ids are skipped.
func (l *Ledger) MarkUploadedMany(ids []string, result models.UploadResult) int {
	if !result.Success || len(ids) == 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	want := toSet(ids)
	n := 0
	for i := range l.entries {
		if _, ok := want[l.entries[i].ID]; ok {
			l.markLocked(i)
			n++
		}
	}
	if n > 0 {
		l.persist()
	}
	return n
}

func (l *Ledger) markLocked(i int) {
	at := l.now()
	l.entries[i].Status = models.StatusUploaded
	l.entries[i].UploadedAt = &at
}

// Select returns the observations whose ids are in ids, in ledger order
func (l *Ledger) Select(ids []string) []models.Observation {
	l.mu.Lock()
	defer l.mu.Unlock()

	want := toSet(ids)
	out := make([]models.Observation, 0, len(want))
	for _, e := range l.entries {
		if _, ok := want[e.ID]; ok {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Pending returns observations that have not been uploaded
func (l *Ledger) Pending() []models.Observation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Observation, 0)
	for _, e := range l.entries {
		if e.Status != models.StatusUploaded {
			out = append(out, e.Clone())
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func cloneAll(entries []models.Observation) []models.Observation {
	out := make([]models.Observation, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
