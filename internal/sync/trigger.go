package sync

import (
	"context"
	"log"
	stdsync "sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/cardsync/internal/connectivity"
	"github.com/example/cardsync/internal/queue"
)

// DefaultSyncInterval is how often the periodic trigger runs while online
const DefaultSyncInterval = 1 * time.Minute

// Trigger invokes the processor on connectivity transitions and on a
// periodic timer while online. Going offline cancels the timer; nothing
// is rewound.
type Trigger struct {
	processor *Processor
	queue     *queue.MutationQueue
	source    connectivity.Source
	interval  time.Duration

	mu          stdsync.Mutex
	cron        *gocron.Scheduler
	unsubscribe func()
}

// NewTrigger creates a trigger. A non-positive interval falls back to
// DefaultSyncInterval.
func NewTrigger(processor *Processor, q *queue.MutationQueue, source connectivity.Source, interval time.Duration) *Trigger {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Trigger{
		processor: processor,
		queue:     q,
		source:    source,
		interval:  interval,
	}
}

// Start subscribes to connectivity transitions and, if already online,
// starts the periodic timer.
func (t *Trigger) Start() {
	t.unsubscribe = t.source.Subscribe(func(online bool) {
		if online {
			// Сразу после восстановления связи запускаем один проход
			go t.runOnce()
			t.startPeriodic()
		} else {
			t.stopPeriodic()
		}
	})

	if t.source.Online() {
		t.startPeriodic()
	}
}

// Stop unsubscribes and cancels the periodic timer
func (t *Trigger) Stop() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.stopPeriodic()
}

// runOnce performs a guarded sync pass. The non-empty check lives here;
// the processor itself serializes overlapping runs.
func (t *Trigger) runOnce() {
	if !t.queue.HasPendingChanges() {
		return
	}
	if _, err := t.processor.ProcessQueue(context.Background()); err != nil {
		log.Printf("Sync run failed: %v", err)
	}
}

// startPeriodic starts the gocron job if it isn't already running
func (t *Trigger) startPeriodic() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		return
	}
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(t.interval).Do(t.runOnce); err != nil {
		log.Printf("Failed to schedule periodic sync: %v", err)
		return
	}
	s.StartAsync()
	t.cron = s
}

// stopPeriodic cancels the gocron job if one is running
func (t *Trigger) stopPeriodic() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		t.cron.Stop()
		t.cron = nil
	}
}
