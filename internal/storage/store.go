// Package storage provides the durable key/value capability that drafts and
// the observation ledger persist through.
package storage

// KeyValueStore is a flat string keyed store. Each component owns a
// distinct key; writes are last-write-wins.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

var (
	_ KeyValueStore = (*SQLiteStore)(nil)
	_ KeyValueStore = (*MemoryStore)(nil)
)
