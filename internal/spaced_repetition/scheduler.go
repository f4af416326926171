package spaced_repetition

import (
	"time"

	"github.com/example/cardsync/pkg/models"
)

// Scheduler computes review schedules from self-reported recall difficulty.
// All knobs have sensible defaults; see New.
type Scheduler struct {
	// Минимальное значение фактора легкости
	MinEaseFactor float64
	// Penalty applied to the ease factor on an "again" answer
	AgainPenalty float64
	// Penalty applied to the ease factor on a "hard" answer
	HardPenalty float64
	// Reward added to the ease factor on an "easy" answer
	EasyReward float64
	// Interval growth multipliers per difficulty
	HardMultiplier   float64
	MediumMultiplier float64
	EasyMultiplier   float64
	// Extra growth applied on top of EasyMultiplier for "easy" answers
	EasyBonus float64
	// Максимальный интервал повторения в днях
	MaxInterval float64
}

// New creates a scheduler with the default tuning
func New() *Scheduler {
	return &Scheduler{
		MinEaseFactor:    1.3,  // Ниже 1.3 не опускаемся
		AgainPenalty:     0.2,
		HardPenalty:      0.15,
		EasyReward:       0.15,
		HardMultiplier:   1.2,
		MediumMultiplier: 2.0,
		EasyMultiplier:   3.0,
		EasyBonus:        1.3,
		MaxInterval:      365, // Максимальный интервал - 1 год
	}
}

// ComputeNextReview returns the card state after a review at the given time.
// It is a pure function: the input state is not modified, there is no I/O,
// and every input (including an ease factor already at the 1.3 floor)
// produces a valid result. An unrecognized difficulty is treated as
// "medium", the neutral branch.
func (s *Scheduler) ComputeNextReview(current models.CardReviewState, difficulty models.Difficulty, now time.Time) models.CardReviewState {
	next := current

	// Базовый интервал для роста: минимум один день, иначе новые карточки
	// с нулевым интервалом никогда бы не выросли.
	base := current.Interval
	if base < 1 {
		base = 1
	}

	switch difficulty {
	case models.DifficultyAgain:
		// Забыли карточку: штраф к фактору легкости и повтор через день,
		// независимо от накопленного интервала.
		next.EaseFactor = current.EaseFactor - s.AgainPenalty
		next.Interval = 1
	case models.DifficultyHard:
		next.EaseFactor = current.EaseFactor - s.HardPenalty
		next.Interval = base * s.HardMultiplier
	case models.DifficultyEasy:
		next.EaseFactor = current.EaseFactor + s.EasyReward
		next.Interval = base * s.EasyMultiplier * s.EasyBonus
	default:
		// medium и всё нераспознанное: фактор легкости не меняется
		next.Interval = base * s.MediumMultiplier
	}

	// Hard clamp after any arithmetic so repeated "again" answers can
	// never push the factor below the floor.
	if next.EaseFactor < s.MinEaseFactor {
		next.EaseFactor = s.MinEaseFactor
	}
	if next.Interval < 1 {
		next.Interval = 1
	}
	// Ensure maximum interval: exponential growth must not outrun the
	// date arithmetic in daysToDuration.
	if s.MaxInterval > 0 && next.Interval > s.MaxInterval {
		next.Interval = s.MaxInterval
	}

	next.ReviewCount = current.ReviewCount + 1
	next.LastReviewed = now
	next.NextReview = now.Add(daysToDuration(next.Interval))

	return next
}

// HistoryEntry builds the audit record for a review that produced the given state
func (s *Scheduler) HistoryEntry(state models.CardReviewState, difficulty models.Difficulty) models.ReviewHistoryEntry {
	return models.ReviewHistoryEntry{
		CardID:     state.CardID,
		Difficulty: difficulty,
		Timestamp:  state.LastReviewed,
		EaseFactor: state.EaseFactor,
		Interval:   state.Interval,
	}
}

// daysToDuration converts a fractional day count to a time.Duration
func daysToDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
