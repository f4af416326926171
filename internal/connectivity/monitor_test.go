package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyPinger fails or succeeds depending on its current setting
type flakyPinger struct {
	mu  sync.Mutex
	err error
}

func (p *flakyPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *flakyPinger) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func TestMonitorTracksReachability(t *testing.T) {
	pinger := &flakyPinger{}
	m := NewMonitor(pinger, 10*time.Millisecond)

	assert.False(t, m.Online(), "monitor starts offline")

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)

	pinger.setErr(errors.New("connection refused"))
	require.Eventually(t, func() bool { return !m.Online() }, time.Second, 5*time.Millisecond)

	pinger.setErr(nil)
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
}

func TestMonitorNotifiesOnTransitions(t *testing.T) {
	pinger := &flakyPinger{}
	m := NewMonitor(pinger, 10*time.Millisecond)

	var mu sync.Mutex
	var transitions []bool
	unsubscribe := m.Subscribe(func(online bool) {
		mu.Lock()
		transitions = append(transitions, online)
		mu.Unlock()
	})

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	pinger.setErr(errors.New("down"))
	require.Eventually(t, func() bool { return !m.Online() }, time.Second, 5*time.Millisecond)

	mu.Lock()
	got := append([]bool{}, transitions...)
	mu.Unlock()
	// Только переходы, без повторов одного и того же состояния
	assert.Equal(t, []bool{true, false}, got)

	unsubscribe()
	pinger.setErr(nil)
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Len(t, transitions, 2, "unsubscribed callback must not fire")
	mu.Unlock()
}

func TestManualSource(t *testing.T) {
	m := NewManual(false)
	assert.False(t, m.Online())

	var got []bool
	unsubscribe := m.Subscribe(func(online bool) { got = append(got, online) })

	m.SetOnline(true)
	m.SetOnline(true) // повтор состояния не уведомляет
	m.SetOnline(false)

	assert.True(t, len(got) == 2 && got[0] && !got[1])
	assert.False(t, m.Online())

	unsubscribe()
	m.SetOnline(true)
	assert.Len(t, got, 2)
}
