package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cardsync/internal/connectivity"
	"github.com/example/cardsync/internal/queue"
	"github.com/example/cardsync/internal/storage"
	"github.com/example/cardsync/pkg/models"
)

func newTestTrigger(t *testing.T, remote *fakeRemote, source *connectivity.Manual, interval time.Duration) (*Trigger, *queue.MutationQueue) {
	t.Helper()
	store := storage.NewMemoryStore()
	q, err := queue.New(store)
	require.NoError(t, err)
	p := NewProcessor(q, remote, store, source)
	return NewTrigger(p, q, source, interval), q
}

func TestTriggerSyncsOnReconnect(t *testing.T) {
	remote := newFakeRemote()
	source := connectivity.NewManual(false)
	trigger, q := newTestTrigger(t, remote, source, time.Hour)

	_, err := q.Enqueue(models.OperationCreate, models.EntityDeck, "d1", nil)
	require.NoError(t, err)

	trigger.Start()
	defer trigger.Stop()

	// Пока оффлайн — ничего не происходит
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, remote.callCount())

	// Переход в онлайн запускает немедленный проход
	source.SetOnline(true)
	require.Eventually(t, func() bool { return q.PendingCount() == 0 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, remote.callCount())
}

func TestTriggerReconnectWithEmptyQueueMakesNoCalls(t *testing.T) {
	remote := newFakeRemote()
	source := connectivity.NewManual(false)
	trigger, _ := newTestTrigger(t, remote, source, time.Hour)

	trigger.Start()
	defer trigger.Stop()

	source.SetOnline(true)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, remote.callCount())
}

func TestTriggerPeriodicWhileOnline(t *testing.T) {
	remote := newFakeRemote()
	source := connectivity.NewManual(true)
	trigger, q := newTestTrigger(t, remote, source, 20*time.Millisecond)

	trigger.Start()
	defer trigger.Stop()

	// Элемент, добавленный позже, подхватывается периодическим таймером
	_, err := q.Enqueue(models.OperationCreate, models.EntityCard, "c1", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return q.PendingCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestTriggerOfflineCancelsPeriodicTimer(t *testing.T) {
	remote := newFakeRemote()
	source := connectivity.NewManual(true)
	trigger, q := newTestTrigger(t, remote, source, 20*time.Millisecond)

	trigger.Start()
	defer trigger.Stop()

	source.SetOnline(false)

	// Очередь наполняется в оффлайне; таймер отменен, вызовов нет
	_, err := q.Enqueue(models.OperationCreate, models.EntityDeck, "d1", nil)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, remote.callCount())
	assert.Equal(t, 1, q.PendingCount())
}
