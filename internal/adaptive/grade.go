package adaptive

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/interaction"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
)

const (
	// LearningRate is the EMA weight given to each new outcome.
	LearningRate = 0.1
	// PreferenceStep is how far one answer moves the difficulty preference.
	PreferenceStep = 0.1
	// LevelUpFraction is the all-time correct fraction every item at a level
	// must reach before the learner advances.
	LevelUpFraction = 0.8
)

// GradeResult is the outcome of SubmitAnswer.
type GradeResult struct {
	Correct       bool               `json:"is_correct"`
	Explanation   string             `json:"explanation"`
	ChosenOption  string             `json:"your_answer"`
	CorrectOption string             `json:"correct_answer"`
	Performance   PerformanceSummary `json:"performance_summary"`
	LevelUp       bool               `json:"level_up"`
	NewLevel      string             `json:"new_level,omitempty"`
}

// PerformanceSummary covers a single content item's history.
type PerformanceSummary struct {
	Attempts           int       `json:"attempts"`
	CorrectCount       int       `json:"correct_count"`
	SuccessRatePercent float64   `json:"success_rate"`
	LastAttempt        time.Time `json:"last_attempt"`
}

// SubmitAnswer grades an answer, records the attempt, adapts the learner's
// settings and evaluates level progression.
func (e *Engine) SubmitAnswer(learnerID, contentID string, questionIndex, selectedOption int) (*GradeResult, error) {
	id := NormalizeLearnerID(learnerID)

	unlock := e.locks.lock(id)
	defer unlock()

	rec, err := e.getLearnerFresh(id)
	if err != nil {
		return nil, err
	}

	item, ok := e.catalog.Item(contentID)
	if !ok {
		return nil, fmt.Errorf("content %q: %w", contentID, ErrUnknownContent)
	}
	if questionIndex < 0 || questionIndex >= len(item.Questions) {
		return nil, fmt.Errorf("content %q has %d questions, got index %d: %w",
			contentID, len(item.Questions), questionIndex, ErrQuestionIndexOutOfRange)
	}
	question := item.Questions[questionIndex]
	if selectedOption < 0 || selectedOption >= len(question.Options) {
		return nil, fmt.Errorf("question has %d options, got index %d: %w",
			len(question.Options), selectedOption, ErrOptionIndexOutOfRange)
	}

	correct := selectedOption == question.CorrectIndex
	attempt := learner.Attempt{
		ContentID:     contentID,
		QuestionIndex: questionIndex,
		Correct:       correct,
		Timestamp:     e.now(),
	}
	rec.Append(attempt)
	rec.Settings = Adapt(rec.Settings, correct)

	previousLevel := rec.CurrentLevel
	levelUp := e.advance(rec)

	if err := e.store.RecordAttempt(id, attempt, rec.Settings, rec.CurrentLevel); err != nil {
		return nil, fmt.Errorf("recording attempt for %q: %w", id, err)
	}

	// The attempt is already committed, so a log failure is reported but not returned.
	if err := e.log.Append(interaction.Event{
		LearnerID:     id,
		ContentID:     contentID,
		QuestionIndex: questionIndex,
		Correct:       correct,
		LevelUp:       levelUp,
		CreatedAt:     attempt.Timestamp,
	}); err != nil {
		slog.Error("failed to log interaction", "learner_id", id, "content_id", contentID, "error", err)
	}

	slog.Info("answer graded",
		"learner_id", id,
		"content_id", contentID,
		"question_index", questionIndex,
		"correct", correct,
		"success_rate", rec.Settings.SuccessRate,
		"difficulty_preference", rec.Settings.DifficultyPreference,
	)

	result := &GradeResult{
		Correct:       correct,
		Explanation:   question.Explanation,
		ChosenOption:  question.Options[selectedOption],
		CorrectOption: question.Options[question.CorrectIndex],
		Performance:   summarize(rec.Attempts(contentID)),
		LevelUp:       levelUp,
	}
	if levelUp {
		result.NewLevel = rec.CurrentLevel
		slog.Info("learner levelled up", "learner_id", id, "from", previousLevel, "to", rec.CurrentLevel)
	}
	return result, nil
}

// Adapt updates the settings for one graded outcome. The difficulty
// preference moves based on the success rate before this outcome is folded
// into the average.
func Adapt(s learner.AdaptiveSettings, correct bool) learner.AdaptiveSettings {
	prev := s.SuccessRate

	outcome := 0.0
	if correct {
		outcome = 1.0
	}
	s.SuccessRate = clamp(prev+LearningRate*(outcome-prev), 0, 1)

	switch {
	case correct && prev > ThrivingAbove:
		s.DifficultyPreference += PreferenceStep
	case !correct && prev < StrugglingBelow:
		s.DifficultyPreference -= PreferenceStep
	}
	s.DifficultyPreference = clamp(s.DifficultyPreference, MinDifficultyPreference, MaxDifficultyPreference)
	return s
}

// advance moves the learner to the next level when every item at the current
// level has been attempted with an all-time correct fraction of at least
// LevelUpFraction. The last level is terminal.
func (e *Engine) advance(rec *learner.Record) bool {
	items := e.catalog.LevelItems(rec.CurrentLevel)
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		attempts, correct := rec.ItemStats(item.ID)
		if attempts == 0 {
			return false
		}
		if float64(correct)/float64(attempts) < LevelUpFraction {
			return false
		}
	}

	next, ok := e.catalog.NextLevel(rec.CurrentLevel)
	if !ok {
		return false
	}
	rec.CurrentLevel = next
	return true
}

func summarize(history []learner.Attempt) PerformanceSummary {
	var s PerformanceSummary
	for _, a := range history {
		s.Attempts++
		if a.Correct {
			s.CorrectCount++
		}
	}
	if s.Attempts > 0 {
		s.SuccessRatePercent = percent(s.CorrectCount, s.Attempts)
		s.LastAttempt = history[len(history)-1].Timestamp
	}
	return s
}

// percent returns n/total as a percentage rounded to one decimal, halves
// away from zero.
func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
