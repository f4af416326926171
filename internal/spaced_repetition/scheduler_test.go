package spaced_repetition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cardsync/pkg/models"
)

var reviewTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func allDifficulties() []models.Difficulty {
	return []models.Difficulty{
		models.DifficultyAgain,
		models.DifficultyHard,
		models.DifficultyMedium,
		models.DifficultyEasy,
	}
}

func TestEaseFactorFloor(t *testing.T) {
	s := New()

	starts := []float64{1.3, 1.35, 1.5, 2.5, 3.8}
	for _, ef := range starts {
		for _, d := range allDifficulties() {
			state := models.CardReviewState{CardID: "c1", EaseFactor: ef, Interval: 4, ReviewCount: 2}
			next := s.ComputeNextReview(state, d, reviewTime)
			assert.GreaterOrEqual(t, next.EaseFactor, 1.3,
				"ease factor below floor for start=%v difficulty=%s", ef, d)
		}
	}
}

func TestRepeatedAgainStaysAtFloor(t *testing.T) {
	s := New()
	state := models.NewCardReviewState("c1")

	// Долбим "again" много раз подряд: фактор не должен уйти ниже 1.3
	for i := 0; i < 20; i++ {
		state = s.ComputeNextReview(state, models.DifficultyAgain, reviewTime)
	}
	assert.Equal(t, 1.3, state.EaseFactor)
	assert.Equal(t, 1.0, state.Interval)
}

func TestAgainResetsInterval(t *testing.T) {
	s := New()

	state := models.CardReviewState{CardID: "c1", EaseFactor: 1.3, Interval: 5, ReviewCount: 5}
	next := s.ComputeNextReview(state, models.DifficultyAgain, reviewTime)

	assert.Equal(t, 1.3, next.EaseFactor)
	assert.Equal(t, 1.0, next.Interval)
	assert.Equal(t, reviewTime.Add(24*time.Hour), next.NextReview)
	assert.Equal(t, 6, next.ReviewCount)
}

func TestAgainIgnoresPriorInterval(t *testing.T) {
	s := New()

	for _, interval := range []float64{0, 1, 30, 365} {
		state := models.CardReviewState{CardID: "c1", EaseFactor: 2.5, Interval: interval, ReviewCount: 3}
		next := s.ComputeNextReview(state, models.DifficultyAgain, reviewTime)
		assert.Equal(t, 1.0, next.Interval, "interval=%v", interval)
		assert.Equal(t, reviewTime.Add(24*time.Hour), next.NextReview, "interval=%v", interval)
	}
}

func TestEasyGrowsFastest(t *testing.T) {
	s := New()
	state := models.CardReviewState{CardID: "c1", EaseFactor: 2.5, Interval: 1, ReviewCount: 0}

	results := make(map[models.Difficulty]models.CardReviewState, 4)
	for _, d := range allDifficulties() {
		results[d] = s.ComputeNextReview(state, d, reviewTime)
	}

	easy := results[models.DifficultyEasy]
	assert.Greater(t, easy.EaseFactor, state.EaseFactor, "easy must increase the ease factor")
	assert.Greater(t, easy.Interval, 1.0)
	assert.True(t, easy.NextReview.After(reviewTime))

	for _, d := range []models.Difficulty{models.DifficultyAgain, models.DifficultyHard, models.DifficultyMedium} {
		assert.Greater(t, easy.Interval, results[d].Interval,
			"easy interval must beat %s", d)
	}
}

func TestEasyLargestFromZeroInterval(t *testing.T) {
	// Новая карточка: interval = 0. Даже здесь easy должен давать
	// строго наибольший интервал из четырех веток.
	s := New()
	state := models.NewCardReviewState("c1")

	results := make(map[models.Difficulty]models.CardReviewState, 4)
	for _, d := range allDifficulties() {
		results[d] = s.ComputeNextReview(state, d, reviewTime)
	}

	easy := results[models.DifficultyEasy].Interval
	for _, d := range []models.Difficulty{models.DifficultyAgain, models.DifficultyHard, models.DifficultyMedium} {
		assert.Greater(t, easy, results[d].Interval, "vs %s", d)
	}
}

func TestTransitions(t *testing.T) {
	s := New()

	tests := []struct {
		name         string
		state        models.CardReviewState
		difficulty   models.Difficulty
		wantEase     float64
		wantInterval float64
	}{
		{
			name:         "hard penalizes ease and grows sub-linearly",
			state:        models.CardReviewState{EaseFactor: 2.5, Interval: 10, ReviewCount: 4},
			difficulty:   models.DifficultyHard,
			wantEase:     2.35,
			wantInterval: 12,
		},
		{
			name:         "hard clamps at floor",
			state:        models.CardReviewState{EaseFactor: 1.35, Interval: 2, ReviewCount: 1},
			difficulty:   models.DifficultyHard,
			wantEase:     1.3,
			wantInterval: 2.4,
		},
		{
			name:         "medium keeps ease and doubles interval",
			state:        models.CardReviewState{EaseFactor: 2.1, Interval: 3, ReviewCount: 2},
			difficulty:   models.DifficultyMedium,
			wantEase:     2.1,
			wantInterval: 6,
		},
		{
			name:         "easy rewards ease with bonus growth",
			state:        models.CardReviewState{EaseFactor: 2.5, Interval: 2, ReviewCount: 1},
			difficulty:   models.DifficultyEasy,
			wantEase:     2.65,
			wantInterval: 7.8,
		},
		{
			name:         "again penalizes ease and resets interval",
			state:        models.CardReviewState{EaseFactor: 2.5, Interval: 30, ReviewCount: 9},
			difficulty:   models.DifficultyAgain,
			wantEase:     2.3,
			wantInterval: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := s.ComputeNextReview(tt.state, tt.difficulty, reviewTime)
			assert.InDelta(t, tt.wantEase, next.EaseFactor, 1e-9)
			assert.InDelta(t, tt.wantInterval, next.Interval, 1e-9)
			assert.Equal(t, tt.state.ReviewCount+1, next.ReviewCount)
			assert.Equal(t, reviewTime, next.LastReviewed)
		})
	}
}

func TestUnknownDifficultyFallsBackToMedium(t *testing.T) {
	s := New()
	state := models.CardReviewState{EaseFactor: 2.0, Interval: 4, ReviewCount: 2}

	got := s.ComputeNextReview(state, models.Difficulty("bogus"), reviewTime)
	want := s.ComputeNextReview(state, models.DifficultyMedium, reviewTime)
	assert.Equal(t, want, got)
}

func TestComputeNextReviewIsPure(t *testing.T) {
	s := New()
	state := models.CardReviewState{CardID: "c1", EaseFactor: 2.5, Interval: 3, ReviewCount: 2}
	before := state

	_ = s.ComputeNextReview(state, models.DifficultyEasy, reviewTime)
	assert.Equal(t, before, state, "input state must not be mutated")
}

func TestNextReviewMatchesInterval(t *testing.T) {
	s := New()
	state := models.CardReviewState{EaseFactor: 2.5, Interval: 5, ReviewCount: 3}

	next := s.ComputeNextReview(state, models.DifficultyMedium, reviewTime)
	require.Equal(t, 10.0, next.Interval)
	assert.Equal(t, reviewTime.Add(10*24*time.Hour), next.NextReview)
}

func TestIntervalCappedUnderRepeatedEasy(t *testing.T) {
	// Интервал растет ~x3.9 за повторение; без верхней границы уже
	// девятый easy подряд переполнил бы time.Duration и дата следующего
	// повторения оказалась бы в прошлом.
	s := New()
	state := models.NewCardReviewState("c1")

	for i := 0; i < 12; i++ {
		state = s.ComputeNextReview(state, models.DifficultyEasy, reviewTime)
		require.LessOrEqual(t, state.Interval, s.MaxInterval, "review %d", i+1)
		require.True(t, state.NextReview.After(reviewTime),
			"review %d: nextReview %v is not after %v (interval=%v)",
			i+1, state.NextReview, reviewTime, state.Interval)
	}
	assert.Equal(t, s.MaxInterval, state.Interval)
	assert.Equal(t, reviewTime.Add(365*24*time.Hour), state.NextReview)
}

func TestMaxIntervalConfigurable(t *testing.T) {
	s := New()
	s.MaxInterval = 30

	state := models.CardReviewState{EaseFactor: 2.5, Interval: 20, ReviewCount: 5}
	next := s.ComputeNextReview(state, models.DifficultyMedium, reviewTime)
	assert.Equal(t, 30.0, next.Interval)
}

func TestNoEaseCeiling(t *testing.T) {
	// Верхней границы нет: многократные easy растят фактор без ограничения
	s := New()
	state := models.NewCardReviewState("c1")

	for i := 0; i < 50; i++ {
		state = s.ComputeNextReview(state, models.DifficultyEasy, reviewTime)
	}
	assert.Greater(t, state.EaseFactor, 2.5+49*s.EasyReward)
}
