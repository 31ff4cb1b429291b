package adaptive

import (
	"fmt"

	"github.com/p-n-ai/pai-adaptive/internal/learner"
)

// Analytics thresholds on the recent success rate. These are independent of
// the selection bands even where the values coincide.
const (
	AnalyticsStrugglingBelow = 0.3
	AnalyticsExcellingAbove  = 0.8
	// RecentWindow is the number of most recent attempts in the recent rate.
	RecentWindow = 10
)

// LearningState labels a learner's recent performance.
type LearningState string

const (
	StateStruggling LearningState = "struggling"
	StateSteady     LearningState = "steady"
	StateExcelling  LearningState = "excelling"
)

// StateFor returns the learning state for a recent success rate.
func StateFor(rate float64) LearningState {
	switch {
	case rate < AnalyticsStrugglingBelow:
		return StateStruggling
	case rate > AnalyticsExcellingAbove:
		return StateExcelling
	default:
		return StateSteady
	}
}

// Advice returns the suggestion that goes with a learning state.
func (s LearningState) Advice() string {
	switch s {
	case StateStruggling:
		return "Review the fundamentals before moving on."
	case StateExcelling:
		return "Try more challenging content."
	default:
		return "Keep up your current pace."
	}
}

// AnalyticsReport summarises a learner's history. Empty is set, with only
// Message and LearnerID filled in, when the learner has no attempts.
type AnalyticsReport struct {
	LearnerID      string                    `json:"learner_id"`
	Empty          bool                      `json:"empty"`
	Message        string                    `json:"message,omitempty"`
	Overall        OverallStats              `json:"overall_performance"`
	Recent         RecentStats               `json:"recent_performance"`
	State          LearningState             `json:"learning_state,omitempty"`
	Recommendation string                    `json:"recommendation,omitempty"`
	Settings       *learner.AdaptiveSettings `json:"adaptive_settings,omitempty"`
}

type OverallStats struct {
	TotalAttempts      int     `json:"total_attempts"`
	CorrectAttempts    int     `json:"correct_attempts"`
	SuccessRatePercent float64 `json:"success_rate"`
	CurrentLevel       string  `json:"current_level"`
}

type RecentStats struct {
	Attempts           int     `json:"recent_attempts"`
	SuccessRatePercent float64 `json:"recent_success_rate"`
}

// Analytics reports a learner's overall and recent performance.
func (e *Engine) Analytics(learnerID string) (*AnalyticsReport, error) {
	id := NormalizeLearnerID(learnerID)

	unlock := e.locks.lock(id)
	rec, err := e.getLearner(id)
	unlock()
	if err != nil {
		return nil, err
	}

	all := rec.AllAttempts()
	if len(all) == 0 {
		return &AnalyticsReport{
			LearnerID: id,
			Empty:     true,
			Message:   "no learning history yet",
			Overall:   OverallStats{CurrentLevel: rec.CurrentLevel},
		}, nil
	}

	recent := all[max(0, len(all)-RecentWindow):]
	recentCorrect := countCorrect(recent)
	state := StateFor(float64(recentCorrect) / float64(len(recent)))
	settings := rec.Settings
	totalCorrect := countCorrect(all)

	return &AnalyticsReport{
		LearnerID: id,
		Overall: OverallStats{
			TotalAttempts:      len(all),
			CorrectAttempts:    totalCorrect,
			SuccessRatePercent: percent(totalCorrect, len(all)),
			CurrentLevel:       rec.CurrentLevel,
		},
		Recent: RecentStats{
			Attempts:           len(recent),
			SuccessRatePercent: percent(recentCorrect, len(recent)),
		},
		State:          state,
		Recommendation: state.Advice(),
		Settings:       &settings,
	}, nil
}

func countCorrect(attempts []learner.Attempt) int {
	n := 0
	for _, a := range attempts {
		if a.Correct {
			n++
		}
	}
	return n
}

// SystemStats aggregates the interaction log and learner store. When no
// learner is registered HasLearners is false and the counts are zero.
type SystemStats struct {
	HasLearners        bool           `json:"has_learners"`
	Message            string         `json:"message,omitempty"`
	TotalLearners      int            `json:"total_learners"`
	TotalInteractions  int            `json:"total_interactions"`
	OverallSuccessRate float64        `json:"overall_success_rate"`
	LevelDistribution  map[string]int `json:"level_distribution"`
	ContentLibrarySize int            `json:"content_library_size"`
}

// SystemStats reports totals across all learners.
func (e *Engine) SystemStats() (*SystemStats, error) {
	dist, err := e.store.LevelDistribution()
	if err != nil {
		return nil, fmt.Errorf("level distribution: %w", err)
	}
	totals, err := e.log.Totals()
	if err != nil {
		return nil, fmt.Errorf("interaction totals: %w", err)
	}

	stats := &SystemStats{
		TotalLearners:      learner.Total(dist),
		TotalInteractions:  totals.Interactions,
		OverallSuccessRate: percent(totals.Correct, totals.Interactions),
		LevelDistribution:  dist,
		ContentLibrarySize: e.catalog.Size(),
	}
	stats.HasLearners = stats.TotalLearners > 0
	if !stats.HasLearners {
		stats.Message = "no learners registered yet"
	}
	return stats, nil
}

// History returns every attempt the learner has made, flattened the same way
// as Analytics.
func (e *Engine) History(learnerID string) ([]learner.Attempt, error) {
	id := NormalizeLearnerID(learnerID)

	unlock := e.locks.lock(id)
	rec, err := e.getLearner(id)
	unlock()
	if err != nil {
		return nil, err
	}
	return rec.AllAttempts(), nil
}
