// Package queue implements the durable FIFO queue of state changes made
// while offline. Every mutating operation persists the full queue
// synchronously, so the stored form can be trusted after a crash.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/cardsync/internal/storage"
	"github.com/example/cardsync/pkg/models"
)

// ErrItemNotFound is returned when an id does not match any queued item.
var ErrItemNotFound = errors.New("queue: item not found")

// Options tunes queue behavior.
type Options struct {
	// CoalesceUpdates collapses repeated updates to the same yet-unsynced
	// entity into a single queued item instead of appending a new one.
	// Off by default: the append-only model keeps every edit as its own
	// queue entry.
	CoalesceUpdates bool
}

// MutationQueue is an ordered collection of pending operations persisted
// through a storage.Store under storage.KeyMutationQueue.
type MutationQueue struct {
	mu    sync.Mutex
	store storage.Store
	items []models.MutationQueueItem
	opts  Options
}

// New creates a queue and loads any previously persisted items
func New(store storage.Store) (*MutationQueue, error) {
	return NewWithOptions(store, Options{})
}

// NewWithOptions creates a queue with explicit options and loads persisted items
func NewWithOptions(store storage.Store, opts Options) (*MutationQueue, error) {
	q := &MutationQueue{store: store, opts: opts}
	if err := q.Load(); err != nil {
		return nil, err
	}
	return q, nil
}

// Load replaces the in-memory queue with the persisted one.
// Corrupted entries are skipped with a warning, never fatal.
func (q *MutationQueue) Load() error {
	var raw []models.MutationQueueItem
	found, err := q.store.Get(storage.KeyMutationQueue, &raw)
	if err != nil {
		return fmt.Errorf("failed to load mutation queue: %v", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !found {
		q.items = nil
		return nil
	}

	items := make([]models.MutationQueueItem, 0, len(raw))
	for _, item := range raw {
		if !item.IsValid() {
			log.Printf("Skipping invalid queued mutation: id=%q operation=%q entity=%q",
				item.ID, item.Operation, item.Entity)
			continue
		}
		items = append(items, item)
	}
	q.items = items
	return nil
}

// Save persists the current queue
func (q *MutationQueue) Save() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.persistLocked(q.items)
}

// persistLocked writes items to the store. Callers hold q.mu.
func (q *MutationQueue) persistLocked(items []models.MutationQueueItem) error {
	if items == nil {
		items = []models.MutationQueueItem{}
	}
	if err := q.store.Set(storage.KeyMutationQueue, items); err != nil {
		return fmt.Errorf("failed to persist mutation queue: %v", err)
	}
	return nil
}

// Enqueue appends a new pending mutation and persists the queue.
// The in-memory queue is only updated once the write succeeds.
func (q *MutationQueue) Enqueue(operation models.Operation, entity models.Entity, entityID string, data interface{}) (models.MutationQueueItem, error) {
	if !operation.IsValid() {
		return models.MutationQueueItem{}, fmt.Errorf("queue: invalid operation %q", operation)
	}
	if !entity.IsValid() {
		return models.MutationQueueItem{}, fmt.Errorf("queue: invalid entity %q", entity)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return models.MutationQueueItem{}, fmt.Errorf("failed to encode mutation payload: %v", err)
	}

	item := models.MutationQueueItem{
		ID:        uuid.NewString(),
		Operation: operation,
		Entity:    entity,
		EntityID:  entityID,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.opts.CoalesceUpdates && operation == models.OperationUpdate {
		// Повторное редактирование еще не синхронизированной сущности:
		// обновляем payload на месте, сохраняя позицию и id в очереди.
		for i := range q.items {
			if q.items[i].Operation == operation &&
				q.items[i].Entity == entity &&
				q.items[i].EntityID == entityID {
				updated := make([]models.MutationQueueItem, len(q.items))
				copy(updated, q.items)
				updated[i].Data = payload
				updated[i].Timestamp = item.Timestamp
				if err := q.persistLocked(updated); err != nil {
					return models.MutationQueueItem{}, err
				}
				q.items = updated
				return updated[i], nil
			}
		}
	}

	updated := append(append([]models.MutationQueueItem{}, q.items...), item)
	if err := q.persistLocked(updated); err != nil {
		return models.MutationQueueItem{}, err
	}
	q.items = updated
	return item, nil
}

// DequeueConfirmed removes every item whose id is in ids and persists the
// resulting queue. Unknown ids are ignored.
func (q *MutationQueue) DequeueConfirmed(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	confirmed := make(map[string]bool, len(ids))
	for _, id := range ids {
		confirmed[id] = true
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	remaining := make([]models.MutationQueueItem, 0, len(q.items))
	for _, item := range q.items {
		if !confirmed[item.ID] {
			remaining = append(remaining, item)
		}
	}
	if err := q.persistLocked(remaining); err != nil {
		return err
	}
	q.items = remaining
	return nil
}

// IncrementRetry bumps the retry counter for one item and persists the queue.
// The item stays queued; retry counts only ever grow.
func (q *MutationQueue) IncrementRetry(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID == id {
			updated := make([]models.MutationQueueItem, len(q.items))
			copy(updated, q.items)
			updated[i].RetryCount++
			if err := q.persistLocked(updated); err != nil {
				return err
			}
			q.items = updated
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear empties the queue and persists the empty state
func (q *MutationQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.persistLocked(nil); err != nil {
		return err
	}
	q.items = nil
	return nil
}

// Items returns a snapshot of the queue in FIFO order
func (q *MutationQueue) Items() []models.MutationQueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.MutationQueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// PendingCount returns the number of queued mutations
func (q *MutationQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// HasPendingChanges reports whether any mutation is waiting to sync
func (q *MutationQueue) HasPendingChanges() bool {
	return q.PendingCount() > 0
}
