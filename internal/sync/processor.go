// Package sync drains the offline mutation queue against the remote
// service. One run processes the items queued at its start in FIFO order;
// items enqueued mid-run wait for the next run, so a run can never grow
// unboundedly.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/atomic"

	"github.com/example/cardsync/internal/api"
	"github.com/example/cardsync/internal/connectivity"
	"github.com/example/cardsync/internal/queue"
	"github.com/example/cardsync/internal/storage"
	"github.com/example/cardsync/pkg/models"
)

// Result reports the outcome of one sync run.
type Result struct {
	// Synced holds ids removed from the queue after the remote confirmed them
	Synced []string `json:"synced"`
	// Failed holds ids left queued with their retry counter incremented
	Failed []string `json:"failed"`
}

// RetryPolicy gates how often a failed item keeps being retried.
type RetryPolicy struct {
	// MaxAttempts caps failed attempts per item; 0 retries indefinitely.
	// Items at the cap are skipped but stay queued and visible in
	// PendingCount until confirmed or cleared.
	MaxAttempts int
}

// Config tunes a Processor.
type Config struct {
	// CallTimeout bounds each individual remote call (default api.DefaultTimeout).
	// A timed-out call fails that one item, not the whole run.
	CallTimeout time.Duration
	Retry       RetryPolicy
}

// Processor replays queued mutations against the remote API.
type Processor struct {
	queue  *queue.MutationQueue
	remote api.RemoteAPI
	store  storage.Store
	source connectivity.Source
	config Config

	syncing *atomic.Bool
}

// NewProcessor creates a processor with default configuration.
// source may be nil when the caller guarantees connectivity checks itself.
func NewProcessor(q *queue.MutationQueue, remote api.RemoteAPI, store storage.Store, source connectivity.Source) *Processor {
	return NewProcessorWithConfig(q, remote, store, source, Config{})
}

// NewProcessorWithConfig creates a processor with explicit configuration
func NewProcessorWithConfig(q *queue.MutationQueue, remote api.RemoteAPI, store storage.Store, source connectivity.Source, cfg Config) *Processor {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = api.DefaultTimeout
	}
	return &Processor{
		queue:   q,
		remote:  remote,
		store:   store,
		source:  source,
		config:  cfg,
		syncing: atomic.NewBool(false),
	}
}

// IsSyncing reports whether a run is currently active
func (p *Processor) IsSyncing() bool {
	return p.syncing.Load()
}

// ProcessQueue performs one sync run and returns the synced/failed id sets.
//
// A run request while another run is active is a silent no-op.
// The run never aborts on a single item's failure: failed items get their
// retry counter incremented and stay queued for the next trigger.
func (p *Processor) ProcessQueue(ctx context.Context) (Result, error) {
	result := Result{Synced: []string{}, Failed: []string{}}

	// Одновременно может идти только один проход
	if !p.syncing.CAS(false, true) {
		return result, nil
	}
	defer p.syncing.Store(false)

	if p.source != nil && !p.source.Online() {
		return result, nil
	}

	// Snapshot: items enqueued during the run belong to the next run
	items := p.queue.Items()
	if len(items) == 0 {
		return result, nil
	}

	for _, item := range items {
		if p.config.Retry.MaxAttempts > 0 && item.RetryCount >= p.config.Retry.MaxAttempts {
			log.Printf("Skipping mutation %s: retry limit reached (%d)", item.ID, item.RetryCount)
			continue
		}

		if err := p.apply(ctx, item); err != nil {
			log.Printf("Failed to sync mutation %s (%s %s %s): %v",
				item.ID, item.Operation, item.Entity, item.EntityID, err)
			result.Failed = append(result.Failed, item.ID)
			if rerr := p.queue.IncrementRetry(item.ID); rerr != nil {
				log.Printf("Failed to record retry for mutation %s: %v", item.ID, rerr)
			}
			continue
		}
		result.Synced = append(result.Synced, item.ID)
	}

	if err := p.queue.DequeueConfirmed(result.Synced); err != nil {
		return result, err
	}
	if err := p.store.Set(storage.KeyLastSyncTime, time.Now().UTC()); err != nil {
		return result, fmt.Errorf("failed to record last sync time: %v", err)
	}
	return result, nil
}

// apply dispatches one item to the remote operation matching its
// (operation, entity) pair, bounded by the per-call timeout.
func (p *Processor) apply(ctx context.Context, item models.MutationQueueItem) error {
	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()

	switch item.Entity {
	case models.EntityDeck:
		switch item.Operation {
		case models.OperationCreate:
			return p.remote.CreateDeck(callCtx, item.EntityID, item.Data)
		case models.OperationUpdate:
			return p.remote.UpdateDeck(callCtx, item.EntityID, item.Data)
		case models.OperationDelete:
			return p.remote.DeleteDeck(callCtx, item.EntityID)
		}
	case models.EntityCard:
		switch item.Operation {
		case models.OperationCreate:
			return p.remote.CreateCard(callCtx, item.EntityID, item.Data)
		case models.OperationUpdate:
			return p.remote.UpdateCard(callCtx, item.EntityID, item.Data)
		case models.OperationDelete:
			return p.remote.DeleteCard(callCtx, item.EntityID)
		}
	}
	return fmt.Errorf("no remote operation for %s %s", item.Operation, item.Entity)
}

// LastSyncTime returns the completion time of the last run, if any
func (p *Processor) LastSyncTime() (time.Time, bool, error) {
	var t time.Time
	found, err := p.store.Get(storage.KeyLastSyncTime, &t)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, found, nil
}
