package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ngmaloney/croak-counter/internal/models"
	"github.com/ngmaloney/croak-counter/internal/storage"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestLedger(t *testing.T, store storage.KeyValueStore) *Ledger {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 4, 12, 20, 0, 0, 0, time.UTC)}
	seq := 0
	return New(store,
		WithClock(clock.Now),
		WithIDFunc(func() string {
			seq++
			return fmt.Sprintf("obs-%d", seq)
		}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func beginnerMeta(site string) models.ObservationMeta {
	return models.ObservationMeta{Site: site, Latitude: "44.9", Longitude: "-93.2", SurveyType: models.SurveyBeginner}
}

func stored(t *testing.T, store storage.KeyValueStore) []models.Observation {
	t.Helper()
	raw, ok, err := store.Get(StorageKey)
	if err != nil || !ok {
		t.Fatalf("store.Get(observations) = ok %v, err %v", ok, err)
	}
	var out []models.Observation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("stored ledger is not a list: %v", err)
	}
	return out
}

func TestLoadAll_EmptyCases(t *testing.T) {
	tests := []struct {
		name string
		raw  *string
	}{
		{"missing", nil},
		{"garbage", ptr("not json")},
		{"object", ptr(`{"id":"x"}`)},
		{"null", ptr("null")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			if tt.raw != nil {
				store.Set(StorageKey, *tt.raw)
			}
			l := newTestLedger(t, store)
			got := l.LoadAll()
			if got == nil || len(got) != 0 {
				t.Errorf("LoadAll() = %v, want empty non-nil slice", got)
			}
		})
	}
}

func TestLoadAll_ToleratesOddRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Set(StorageKey, `[
		{"id":"a","date":"2025-06-01T20:00:00.000Z","site":"Otter Lake","status":"saved","data":{}},
		{"id":"b","date":"2025-06-01","site":"Mud Pond","status":"uploaded","uploadedAt":"2025-06-02T08:30","data":{"comments":"x"}},
		{"id":"c","date":"last tuesday","site":"Bog","status":"saved","data":{}}
	]`)
	l := newTestLedger(t, store)

	got := l.LoadAll()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("LoadAll() = %v, want [a b]", got)
	}
	if want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC); !got[1].Date.Equal(want) {
		t.Errorf("b.Date = %v, want %v", got[1].Date, want)
	}
	if got[1].UploadedAt == nil || got[1].UploadedAt.Hour() != 8 {
		t.Errorf("b.UploadedAt = %v", got[1].UploadedAt)
	}

	l.Create(models.Fields{}, beginnerMeta("New Site"))

	var elems []json.RawMessage
	raw, _, _ := store.Get(StorageKey)
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		t.Fatalf("stored ledger is not a list: %v", err)
	}
	if len(elems) != 4 {
		t.Fatalf("stored %d records, want 4 (new, a, b and the unreadable one)", len(elems))
	}
	var last struct {
		ID   string `json:"id"`
		Date string `json:"date"`
	}
	json.Unmarshal(elems[3], &last)
	if last.ID != "c" || last.Date != "last tuesday" {
		t.Errorf("unreadable record rewritten as %s", elems[3])
	}
	if all := l.LoadAll(); len(all) != 3 {
		t.Errorf("reload = %d records, want 3", len(all))
	}
}

func TestCreate_BacksUpDamagedLedger(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Set(StorageKey, `{"id":"x"}`)
	l := newTestLedger(t, store)

	l.Create(models.Fields{}, beginnerMeta("Otter Lake"))

	if backup, ok, _ := store.Get(BackupKey); !ok || backup != `{"id":"x"}` {
		t.Errorf("backup = %q, %v", backup, ok)
	}
	if got := stored(t, store); len(got) != 1 {
		t.Errorf("stored = %v, want the new record", got)
	}

	// Only the first write moves the damaged value aside
	writes := store.Writes(BackupKey)
	l.Create(models.Fields{}, beginnerMeta("Mud Pond"))
	if store.Writes(BackupKey) != writes {
		t.Error("backup rewritten on a later write")
	}
}

func TestLoadAll_ReadError(t *testing.T) {
	store := storage.NewMemoryStore()
	store.GetErr = errors.New("unavailable")
	l := newTestLedger(t, store)
	if len(l.LoadAll()) != 0 {
		t.Error("expected empty ledger on read error")
	}
}

func TestCreate_PrependsAndPersists(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)

	fields := models.Fields{models.FieldLocation: "Otter Lake", models.FieldFrogCallDensity: "2 - Individual calls, some overlapping"}
	first := l.Create(fields, beginnerMeta("Otter Lake"))
	second := l.Create(models.Fields{models.FieldLocation: "Mud Pond"}, beginnerMeta("Mud Pond"))

	if first.Status != models.StatusSaved {
		t.Errorf("Status = %q, want saved", first.Status)
	}
	if first.Data[models.FieldLocation] != "Otter Lake" {
		t.Error("data should be copied from fields")
	}

	// The caller's map is independent of the record
	fields[models.FieldLocation] = "changed"
	if got, _ := l.Get(first.ID); got.Data[models.FieldLocation] != "Otter Lake" {
		t.Error("record data aliased the caller's fields")
	}

	all := l.LoadAll()
	if len(all) != 2 {
		t.Fatalf("len(LoadAll()) = %d, want 2", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", all[0].ID, all[1].ID)
	}
	if all[0].ID == all[1].ID {
		t.Error("ids must be distinct")
	}
	if all[0].Date.Before(all[1].Date) {
		t.Error("newest record should not be older than the one after it")
	}
}

func TestCreate_ManyKeepsReverseOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, l.Create(models.Fields{}, beginnerMeta(fmt.Sprintf("site %d", i))).ID)
	}

	all := l.LoadAll()
	if all[0].ID != ids[4] || all[4].ID != ids[0] {
		t.Errorf("LoadAll()[0] = %s, [N-1] = %s", all[0].ID, all[4].ID)
	}
}

func TestCreate_DefaultIDsAreUnique(t *testing.T) {
	l := New(storage.NewMemoryStore(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := l.Create(models.Fields{}, beginnerMeta("x")).ID
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestUpdate_MergesData(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)

	obs := l.Create(models.Fields{
		models.FieldWindSpeed:    "Calm (<1 mph)",
		models.FieldSkyCondition: "Fog",
	}, beginnerMeta("Otter Lake"))

	if err := l.Update(obs.ID, models.ObservationPatch{Data: models.Fields{models.FieldComments: "x"}}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got := stored(t, store)[0]
	if got.Data[models.FieldComments] != "x" {
		t.Error("patched key missing")
	}
	if got.Data[models.FieldWindSpeed] != "Calm (<1 mph)" || got.Data[models.FieldSkyCondition] != "Fog" {
		t.Errorf("existing data dropped: %v", got.Data)
	}
}

func TestUpdate_TopLevelOnlyWhenNonEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)
	obs := l.Create(models.Fields{}, beginnerMeta("Otter Lake"))

	l.Update(obs.ID, models.ObservationPatch{Site: "", Latitude: "45.1", Longitude: ""})

	got, _ := l.Get(obs.ID)
	if got.Site != "Otter Lake" {
		t.Errorf("Site = %q, want unchanged", got.Site)
	}
	if got.Latitude != "45.1" {
		t.Errorf("Latitude = %q, want 45.1", got.Latitude)
	}
	if got.Longitude != "-93.2" {
		t.Errorf("Longitude = %q, want unchanged", got.Longitude)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)
	l.Create(models.Fields{models.FieldNotes: "a"}, beginnerMeta("Otter Lake"))

	before, _, _ := store.Get(StorageKey)
	writes := store.Writes(StorageKey)

	err := l.Update("missing", models.ObservationPatch{Site: "Elsewhere", Data: models.Fields{"notes": "b"}})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}

	after, _, _ := store.Get(StorageKey)
	if before != after || store.Writes(StorageKey) != writes {
		t.Error("ledger changed after update of missing id")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestRemove(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)
	obs := l.Create(models.Fields{}, beginnerMeta("Otter Lake"))

	if err := l.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrNotFound", err)
	}

	if err := l.Remove(obs.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got := l.LoadAll(); len(got) != 0 {
		t.Errorf("LoadAll() = %v, want empty", got)
	}

	raw, ok, _ := store.Get(StorageKey)
	if !ok {
		t.Fatal("storage key should remain after removing the last record")
	}
	if raw != "[]" {
		t.Errorf("stored = %q, want []", raw)
	}
}

func TestRemove_KeepsOthersInOrder(t *testing.T) {
	l := newTestLedger(t, storage.NewMemoryStore())
	a := l.Create(models.Fields{}, beginnerMeta("a"))
	b := l.Create(models.Fields{}, beginnerMeta("b"))
	c := l.Create(models.Fields{}, beginnerMeta("c"))

	l.Remove(b.ID)
	all := l.Entries()
	if len(all) != 2 || all[0].ID != c.ID || all[1].ID != a.ID {
		t.Errorf("entries after remove = %v", all)
	}
}

func TestMarkUploaded(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)
	obs := l.Create(models.Fields{}, beginnerMeta("Otter Lake"))

	if err := l.MarkUploaded(obs.ID, models.UploadResult{Success: false, Error: "timeout"}); err != nil {
		t.Fatalf("MarkUploaded(failure) error = %v", err)
	}
	got, _ := l.Get(obs.ID)
	if got.Status != models.StatusSaved || got.UploadedAt != nil {
		t.Errorf("failed upload changed record: %+v", got)
	}

	if err := l.MarkUploaded(obs.ID, models.UploadResult{Success: true}); err != nil {
		t.Fatalf("MarkUploaded(success) error = %v", err)
	}
	got = stored(t, store)[0]
	if got.Status != models.StatusUploaded {
		t.Errorf("Status = %q, want uploaded", got.Status)
	}
	if got.UploadedAt == nil || got.UploadedAt.Before(got.Date) {
		t.Errorf("UploadedAt = %v, want >= %v", got.UploadedAt, got.Date)
	}
	first := *got.UploadedAt

	// Again: still uploaded, timestamp overwritten rather than accumulated
	l.MarkUploaded(obs.ID, models.UploadResult{Success: true})
	got, _ = l.Get(obs.ID)
	if got.Status != models.StatusUploaded || !got.UploadedAt.After(first) {
		t.Errorf("repeat upload = %+v", got)
	}

	// Failure after success never moves status backward
	l.MarkUploaded(obs.ID, models.UploadResult{Success: false})
	if got, _ := l.Get(obs.ID); got.Status != models.StatusUploaded {
		t.Error("status moved backward")
	}

	if err := l.MarkUploaded("missing", models.UploadResult{Success: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkUploaded(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSelectionOps(t *testing.T) {
	l := newTestLedger(t, storage.NewMemoryStore())
	a := l.Create(models.Fields{}, beginnerMeta("a"))
	b := l.Create(models.Fields{}, beginnerMeta("b"))
	c := l.Create(models.Fields{}, beginnerMeta("c"))

	sel := l.Select([]string{a.ID, c.ID, "missing"})
	if len(sel) != 2 || sel[0].ID != c.ID || sel[1].ID != a.ID {
		t.Errorf("Select() = %v, want [c a]", sel)
	}

	if n := l.MarkUploadedMany([]string{a.ID, c.ID}, models.UploadResult{Success: false}); n != 0 {
		t.Errorf("MarkUploadedMany(failure) = %d, want 0", n)
	}
	if n := l.MarkUploadedMany([]string{a.ID, c.ID, "missing"}, models.UploadResult{Success: true}); n != 2 {
		t.Errorf("MarkUploadedMany(success) = %d, want 2", n)
	}

	pending := l.Pending()
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Errorf("Pending() = %v, want [b]", pending)
	}
}

func TestWriteFailureKeepsMutation(t *testing.T) {
	store := storage.NewMemoryStore()
	l := newTestLedger(t, store)

	store.FailWrites(errors.New("quota exceeded"))
	obs := l.Create(models.Fields{}, beginnerMeta("Otter Lake"))

	if _, ok := l.Get(obs.ID); !ok {
		t.Error("in-memory ledger should reflect the attempted create")
	}

	// A reload shows the write never landed
	store.FailWrites(nil)
	if len(l.LoadAll()) != 0 {
		t.Error("failed write should not survive a reload")
	}
}

func TestEntries_AreCopies(t *testing.T) {
	l := newTestLedger(t, storage.NewMemoryStore())
	obs := l.Create(models.Fields{models.FieldNotes: "a"}, beginnerMeta("x"))

	entries := l.Entries()
	entries[0].Data[models.FieldNotes] = "mutated"
	entries[0].Status = models.StatusUploaded

	got, _ := l.Get(obs.ID)
	if got.Data[models.FieldNotes] != "a" || got.Status != models.StatusSaved {
		t.Error("Entries() exposed internal state")
	}
}

func ptr(s string) *string { return &s }
