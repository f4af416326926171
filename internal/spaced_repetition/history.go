package spaced_repetition

import (
	"sync"

	"github.com/example/cardsync/pkg/models"
)

// DefaultHistoryLimit is how many review records the log retains
const DefaultHistoryLimit = 100

// HistoryLog is a bounded, append-only record of past scheduling decisions.
// Once the limit is reached the oldest entry is evicted, so the log always
// holds the most recent reviews in insertion order.
type HistoryLog struct {
	mu      sync.Mutex
	limit   int
	entries []models.ReviewHistoryEntry
}

// NewHistoryLog creates a log bounded to DefaultHistoryLimit entries
func NewHistoryLog() *HistoryLog {
	return NewHistoryLogWithLimit(DefaultHistoryLimit)
}

// NewHistoryLogWithLimit creates a log bounded to the given number of entries.
// A non-positive limit falls back to DefaultHistoryLimit.
func NewHistoryLogWithLimit(limit int) *HistoryLog {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryLog{limit: limit}
}

// Append records a review, evicting the oldest entry once the bound is hit
func (l *HistoryLog) Append(entry models.ReviewHistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		// Сдвигаем окно: копируем, чтобы не держать старый backing array
		trimmed := make([]models.ReviewHistoryEntry, l.limit)
		copy(trimmed, l.entries[len(l.entries)-l.limit:])
		l.entries = trimmed
	}
}

// Len returns the number of retained entries
func (l *HistoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the retained entries, oldest first
func (l *HistoryLog) Entries() []models.ReviewHistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ReviewHistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// AverageEaseFactor computes the mean ease factor over the retained log.
// Recomputed on every call so it always reflects the latest state.
// Returns 0 for an empty log.
func (l *HistoryLog) AverageEaseFactor() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range l.entries {
		sum += e.EaseFactor
	}
	return sum / float64(len(l.entries))
}

// DifficultyDistribution counts retained entries per difficulty
func (l *HistoryLog) DifficultyDistribution() map[models.Difficulty]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dist := make(map[models.Difficulty]int, 4)
	for _, e := range l.entries {
		dist[e.Difficulty]++
	}
	return dist
}
