package models

import "time"

// Difficulty is the user's self-reported recall outcome for a review.
type Difficulty string

const (
	// DifficultyAgain means the card could not be recalled at all
	DifficultyAgain Difficulty = "again"
	// DifficultyHard means the card was recalled with significant effort
	DifficultyHard Difficulty = "hard"
	// DifficultyMedium means the card was recalled with some effort
	DifficultyMedium Difficulty = "medium"
	// DifficultyEasy means the card was recalled effortlessly
	DifficultyEasy Difficulty = "easy"
)

// IsValid reports whether d is one of the four known difficulties.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyAgain, DifficultyHard, DifficultyMedium, DifficultyEasy:
		return true
	}
	return false
}

// CardReviewState holds the per-card memorization state used by the scheduler
type CardReviewState struct {
	CardID       string    `json:"cardId" db:"card_id"`
	EaseFactor   float64   `json:"easeFactor" db:"ease_factor"`     // never below 1.3
	Interval     float64   `json:"interval" db:"interval"`          // days until next review
	ReviewCount  int       `json:"reviewCount" db:"review_count"`
	LastReviewed time.Time `json:"lastReviewed" db:"last_reviewed"`
	NextReview   time.Time `json:"nextReview" db:"next_review"`
}

// NewCardReviewState returns the state a card starts with before its first review
func NewCardReviewState(cardID string) CardReviewState {
	return CardReviewState{
		CardID:     cardID,
		EaseFactor: 2.5,
		Interval:   0,
	}
}

// ReviewHistoryEntry is an immutable record of one scheduling decision
type ReviewHistoryEntry struct {
	CardID     string     `json:"cardId"`
	Difficulty Difficulty `json:"difficulty"`
	Timestamp  time.Time  `json:"timestamp"`
	EaseFactor float64    `json:"easeFactor"`
	Interval   float64    `json:"interval"`
}
