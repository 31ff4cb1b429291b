// Package learner holds per-learner state and the stores that persist it.
package learner

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// ErrNotFound is returned by stores when a learner ID is not registered.
var ErrNotFound = errors.New("learner not found")

const (
	// MasteryWindow is how many of the most recent attempts decide mastery.
	MasteryWindow = 3
	// MasteryMinCorrect is the number of correct answers needed inside the window.
	MasteryMinCorrect = 2
)

// Pace values accepted in a profile.
const (
	PaceSlow   = "slow"
	PaceMedium = "medium"
	PaceFast   = "fast"
)

// Profile is the registration payload supplied by the caller.
type Profile struct {
	Name       string  `json:"name,omitempty"`
	Difficulty float64 `json:"difficulty,omitempty"`
	Pace       string  `json:"pace,omitempty"`
}

// Attempt is one graded answer submission. Attempts are append-only.
type Attempt struct {
	ContentID     string    `json:"content_id"`
	QuestionIndex int       `json:"question_index"`
	Correct       bool      `json:"is_correct"`
	Timestamp     time.Time `json:"timestamp"`
}

// AdaptiveSettings is the learner's running performance estimate.
type AdaptiveSettings struct {
	SuccessRate          float64 `json:"success_rate"`
	DifficultyPreference float64 `json:"difficulty_preference"`
}

// Record is the mutable state of one learner.
type Record struct {
	LearnerID    string               `json:"learner_id"`
	Profile      Profile              `json:"profile"`
	CurrentLevel string               `json:"current_level"`
	Performance  map[string][]Attempt `json:"performance"`
	// ItemOrder lists content IDs in the order they were first attempted.
	ItemOrder []string         `json:"item_order"`
	Settings  AdaptiveSettings `json:"adaptive_settings"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewRecord creates a fresh record at the given starting level.
func NewRecord(id string, profile Profile, level string, settings AdaptiveSettings, createdAt time.Time) *Record {
	return &Record{
		LearnerID:    id,
		Profile:      profile,
		CurrentLevel: level,
		Performance:  make(map[string][]Attempt),
		ItemOrder:    []string{},
		Settings:     settings,
		CreatedAt:    createdAt,
	}
}

// Append adds an attempt to the item's history.
func (r *Record) Append(a Attempt) {
	if r.Performance == nil {
		r.Performance = make(map[string][]Attempt)
	}
	if _, seen := r.Performance[a.ContentID]; !seen {
		r.ItemOrder = append(r.ItemOrder, a.ContentID)
	}
	r.Performance[a.ContentID] = append(r.Performance[a.ContentID], a)
}

// Attempts returns the chronological history for one item.
func (r *Record) Attempts(contentID string) []Attempt {
	return r.Performance[contentID]
}

// ItemStats returns the all-time attempt and correct counts for one item.
func (r *Record) ItemStats(contentID string) (attempts, correct int) {
	for _, a := range r.Performance[contentID] {
		attempts++
		if a.Correct {
			correct++
		}
	}
	return attempts, correct
}

// Mastered reports whether at least MasteryMinCorrect of the last
// MasteryWindow attempts on the item are correct. Fewer attempts than the
// window never count as mastered.
func (r *Record) Mastered(contentID string) bool {
	history := r.Performance[contentID]
	if len(history) < MasteryWindow {
		return false
	}
	correct := 0
	for _, a := range history[len(history)-MasteryWindow:] {
		if a.Correct {
			correct++
		}
	}
	return correct >= MasteryMinCorrect
}

// AllAttempts flattens the history: per-item chronological order,
// concatenated in first-attempt item order.
func (r *Record) AllAttempts() []Attempt {
	var all []Attempt
	for _, id := range r.ItemOrder {
		all = append(all, r.Performance[id]...)
	}
	return all
}

// Clone returns a deep copy so callers can mutate it without touching the store.
func (r *Record) Clone() *Record {
	c := *r
	c.Performance = make(map[string][]Attempt, len(r.Performance))
	for id, attempts := range r.Performance {
		c.Performance[id] = slices.Clone(attempts)
	}
	c.ItemOrder = slices.Clone(r.ItemOrder)
	if c.ItemOrder == nil {
		c.ItemOrder = []string{}
	}
	return &c
}

// LevelDistribution counts records per current level.
func LevelDistribution(records []*Record) map[string]int {
	dist := make(map[string]int)
	for _, r := range records {
		dist[r.CurrentLevel]++
	}
	return dist
}

// Total sums a level distribution.
func Total(dist map[string]int) int {
	n := 0
	for v := range maps.Values(dist) {
		n += v
	}
	return n
}
