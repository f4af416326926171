// Package storage provides the durable key-value store the offline queue
// and sync engine persist through. Values are JSON-serializable; the
// persisted form is the source of truth after a restart.
package storage

// Fixed keys used by the sync engine
const (
	// KeyMutationQueue holds the serialized mutation queue array
	KeyMutationQueue = "mutation_queue"
	// KeyLastSyncTime holds the completion time of the last sync run
	KeyLastSyncTime = "last_sync_time"
	// KeyReviewStates holds the per-card review states
	KeyReviewStates = "review_states"
)

// Store is durable key-value storage of JSON-serializable values.
type Store interface {
	// Get unmarshals the value for key into dest.
	// Returns false with a nil error when the key is absent.
	Get(key string, dest interface{}) (bool, error)
	// Set marshals value and persists it under key
	Set(key string, value interface{}) error
	// Remove deletes the key; removing an absent key is not an error
	Remove(key string) error
}
