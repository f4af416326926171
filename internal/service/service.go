// Package service wires the scheduler, history log, mutation queue and
// sync engine into one explicit object constructed at process start and
// handed to callers. There is no ambient singleton: every dependency
// comes in through the constructor.
package service

import (
	"context"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/cardsync/internal/api"
	"github.com/example/cardsync/internal/connectivity"
	"github.com/example/cardsync/internal/queue"
	"github.com/example/cardsync/internal/spaced_repetition"
	"github.com/example/cardsync/internal/storage"
	syncengine "github.com/example/cardsync/internal/sync"
	"github.com/example/cardsync/pkg/models"
)

// Config tunes the service. Zero values give defaults everywhere.
type Config struct {
	Scheduler    *spaced_repetition.Scheduler
	QueueOptions queue.Options
	Sync         syncengine.Config
	// Clock supplies the current time (default time.Now). Reviews and
	// queue timestamps come from here.
	Clock func() time.Time
}

// Stats is the aggregate view over the bounded review history
type Stats struct {
	TotalReviews           int                       `json:"total_reviews"`
	AverageEaseFactor      float64                   `json:"average_ease_factor"`
	DifficultyDistribution map[models.Difficulty]int `json:"difficulty_distribution"`
	PendingMutations       int                       `json:"pending_mutations"`
}

// Service owns the per-card review states, the history log and the
// mutation queue. All state-changing operations flow through the queue:
// when the device is online a sync run is kicked off right away, when it
// is offline the mutations simply wait for the next reconnect.
type Service struct {
	mu        stdsync.Mutex
	scheduler *spaced_repetition.Scheduler
	history   *spaced_repetition.HistoryLog
	queue     *queue.MutationQueue
	processor *syncengine.Processor
	store     storage.Store
	source    connectivity.Source
	states    map[string]models.CardReviewState
	now       func() time.Time
}

// New creates a service with default configuration
func New(store storage.Store, remote api.RemoteAPI, source connectivity.Source) (*Service, error) {
	return NewWithConfig(store, remote, source, Config{})
}

// NewWithConfig creates a service, loading persisted review states and
// the persisted mutation queue from the store.
func NewWithConfig(store storage.Store, remote api.RemoteAPI, source connectivity.Source, cfg Config) (*Service, error) {
	if cfg.Scheduler == nil {
		cfg.Scheduler = spaced_repetition.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	q, err := queue.NewWithOptions(store, cfg.QueueOptions)
	if err != nil {
		return nil, err
	}

	states := make(map[string]models.CardReviewState)
	if _, err := store.Get(storage.KeyReviewStates, &states); err != nil {
		return nil, fmt.Errorf("failed to load review states: %v", err)
	}

	return &Service{
		scheduler: cfg.Scheduler,
		history:   spaced_repetition.NewHistoryLog(),
		queue:     q,
		processor: syncengine.NewProcessorWithConfig(q, remote, store, source, cfg.Sync),
		store:     store,
		source:    source,
		states:    states,
		now:       cfg.Clock,
	}, nil
}

// Queue exposes the mutation queue for the sync trigger
func (s *Service) Queue() *queue.MutationQueue {
	return s.queue
}

// Processor exposes the sync processor for the sync trigger
func (s *Service) Processor() *syncengine.Processor {
	return s.processor
}

// ReviewCard records one review: the scheduler computes the new state,
// the history log gets its audit record, and the updated state is queued
// for synchronization.
func (s *Service) ReviewCard(cardID string, difficulty models.Difficulty) (models.CardReviewState, error) {
	if cardID == "" {
		return models.CardReviewState{}, fmt.Errorf("service: card id is empty")
	}
	if !difficulty.IsValid() {
		return models.CardReviewState{}, fmt.Errorf("service: invalid difficulty %q", difficulty)
	}

	s.mu.Lock()
	current, ok := s.states[cardID]
	if !ok {
		current = models.NewCardReviewState(cardID)
	}
	next := s.scheduler.ComputeNextReview(current, difficulty, s.now())
	s.states[cardID] = next
	err := s.store.Set(storage.KeyReviewStates, s.states)
	s.mu.Unlock()
	if err != nil {
		return models.CardReviewState{}, fmt.Errorf("failed to persist review states: %v", err)
	}

	s.history.Append(s.scheduler.HistoryEntry(next, difficulty))

	if qerr := s.enqueue(models.OperationUpdate, models.EntityCard, cardID, next); qerr != nil {
		return next, qerr
	}
	return next, nil
}

// ReviewState returns the current memorization state of a card
func (s *Service) ReviewState(cardID string) (models.CardReviewState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[cardID]
	return state, ok
}

// CreateDeck registers a new deck, assigning an id when absent
func (s *Service) CreateDeck(deck models.Deck) (models.Deck, error) {
	if deck.ID == "" {
		deck.ID = uuid.NewString()
	}
	now := s.now().UTC()
	deck.CreatedAt = now
	deck.UpdatedAt = now
	return deck, s.enqueue(models.OperationCreate, models.EntityDeck, deck.ID, deck)
}

// UpdateDeck records a deck edit
func (s *Service) UpdateDeck(deck models.Deck) (models.Deck, error) {
	if deck.ID == "" {
		return models.Deck{}, fmt.Errorf("service: deck id is empty")
	}
	deck.UpdatedAt = s.now().UTC()
	return deck, s.enqueue(models.OperationUpdate, models.EntityDeck, deck.ID, deck)
}

// DeleteDeck records a deck removal
func (s *Service) DeleteDeck(deckID string) error {
	if deckID == "" {
		return fmt.Errorf("service: deck id is empty")
	}
	return s.enqueue(models.OperationDelete, models.EntityDeck, deckID, nil)
}

// CreateCard registers a new card, assigning an id when absent
func (s *Service) CreateCard(card models.Card) (models.Card, error) {
	if card.DeckID == "" {
		return models.Card{}, fmt.Errorf("service: card has no deck id")
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := s.now().UTC()
	card.CreatedAt = now
	card.UpdatedAt = now
	return card, s.enqueue(models.OperationCreate, models.EntityCard, card.ID, card)
}

// UpdateCard records a card edit
func (s *Service) UpdateCard(card models.Card) (models.Card, error) {
	if card.ID == "" {
		return models.Card{}, fmt.Errorf("service: card id is empty")
	}
	card.UpdatedAt = s.now().UTC()
	return card, s.enqueue(models.OperationUpdate, models.EntityCard, card.ID, card)
}

// DeleteCard records a card removal and drops its review state
func (s *Service) DeleteCard(cardID string) error {
	if cardID == "" {
		return fmt.Errorf("service: card id is empty")
	}

	s.mu.Lock()
	if _, ok := s.states[cardID]; ok {
		delete(s.states, cardID)
		if err := s.store.Set(storage.KeyReviewStates, s.states); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to persist review states: %v", err)
		}
	}
	s.mu.Unlock()

	return s.enqueue(models.OperationDelete, models.EntityCard, cardID, nil)
}

// enqueue appends the mutation and, when online, kicks off a sync run in
// the background. Mutations always flow through the queue so per-entity
// ordering is preserved.
func (s *Service) enqueue(operation models.Operation, entity models.Entity, entityID string, data interface{}) error {
	if _, err := s.queue.Enqueue(operation, entity, entityID, data); err != nil {
		return err
	}
	if s.source != nil && s.source.Online() {
		go func() {
			if _, err := s.processor.ProcessQueue(context.Background()); err != nil {
				log.Printf("Background sync failed: %v", err)
			}
		}()
	}
	return nil
}

// ForceSync runs one sync pass immediately and returns its result
func (s *Service) ForceSync(ctx context.Context) (syncengine.Result, error) {
	return s.processor.ProcessQueue(ctx)
}

// PendingCount returns the number of not-yet-synchronized mutations
func (s *Service) PendingCount() int {
	return s.queue.PendingCount()
}

// HasPendingChanges reports whether anything is waiting to sync
func (s *Service) HasPendingChanges() bool {
	return s.queue.HasPendingChanges()
}

// LastSyncTime returns when the last sync run completed, if ever
func (s *Service) LastSyncTime() (time.Time, bool, error) {
	return s.processor.LastSyncTime()
}

// History returns a snapshot of the bounded review history, oldest first
func (s *Service) History() []models.ReviewHistoryEntry {
	return s.history.Entries()
}

// Stats computes the aggregate view over the retained history.
// Recomputed on every call; nothing is cached.
func (s *Service) Stats() Stats {
	return Stats{
		TotalReviews:           s.history.Len(),
		AverageEaseFactor:      s.history.AverageEaseFactor(),
		DifficultyDistribution: s.history.DifficultyDistribution(),
		PendingMutations:       s.queue.PendingCount(),
	}
}
