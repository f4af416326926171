package models

import (
	"encoding/json"
	"time"
)

// Operation is the kind of state change recorded in a queued mutation.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// IsValid reports whether op is a known operation.
func (op Operation) IsValid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Entity is the kind of object a queued mutation applies to.
type Entity string

const (
	EntityDeck Entity = "deck"
	EntityCard Entity = "card"
)

// IsValid reports whether e is a known entity.
func (e Entity) IsValid() bool {
	switch e {
	case EntityDeck, EntityCard:
		return true
	}
	return false
}

// MutationQueueItem is one pending state change captured while offline.
// The JSON field names are the wire format stored in the persistence layer,
// so changing them breaks queues persisted by older versions.
type MutationQueueItem struct {
	ID         string          `json:"id"`
	Operation  Operation       `json:"operation"`
	Entity     Entity          `json:"entity"`
	EntityID   string          `json:"entityId"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
}

// IsValid reports whether the item has a usable operation/entity pair and id
func (m *MutationQueueItem) IsValid() bool {
	return m.ID != "" && m.Operation.IsValid() && m.Entity.IsValid()
}
