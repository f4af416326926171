// Package connectivity supplies the boolean online/offline signal the
// sync engine reacts to, with a subscribe mechanism for transitions.
package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

// Source is a boolean connectivity signal with transition notifications.
type Source interface {
	// Online reports the current connectivity state
	Online() bool
	// Subscribe registers fn to be called on every online/offline
	// transition. The returned function unsubscribes.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Pinger is the probe used to decide whether the remote service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultProbeInterval is how often the monitor probes the remote service
const DefaultProbeInterval = 30 * time.Second

// signal is the shared subscribe/notify machinery for sources
type signal struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
}

func (s *signal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *signal) Subscribe(fn func(online bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]func(bool))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// set updates the state and notifies subscribers on a transition.
// Callbacks run outside the lock.
func (s *signal) set(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Monitor derives connectivity by periodically probing the remote service.
// It starts offline and flips online after the first successful probe.
type Monitor struct {
	signal
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor probing with the given interval.
// A non-positive interval falls back to DefaultProbeInterval.
func NewMonitor(pinger Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Monitor{
		pinger:   pinger,
		interval: interval,
		timeout:  5 * time.Second,
	}
}

// Start probes immediately and then on every tick until ctx is cancelled
// or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		m.probe(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop cancels probing and waits for the probe goroutine to exit
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// probe pings the remote service once and updates the signal
func (m *Monitor) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.pinger.Ping(pingCtx)
	if err != nil && m.Online() {
		log.Printf("Connectivity lost: %v", err)
	}
	m.set(err == nil)
}

// Manual is a Source driven by the host, for tests and platforms that
// already have their own connectivity signal.
type Manual struct {
	signal
}

// NewManual creates a manual source with the given initial state
func NewManual(online bool) *Manual {
	m := &Manual{}
	m.signal.online = online
	return m
}

// SetOnline updates the state, notifying subscribers on transitions
func (m *Manual) SetOnline(online bool) {
	m.set(online)
}
