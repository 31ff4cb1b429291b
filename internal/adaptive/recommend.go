package adaptive

import (
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
)

// Selection thresholds on the learner's success rate. Both bounds are
// exclusive: a rate of exactly 0.4 or 0.8 is steady.
const (
	StrugglingBelow = 0.4
	ThrivingAbove   = 0.8
)

// Band classifies a success rate for content selection and difficulty
// adaptation.
type Band int

const (
	BandSteady Band = iota
	BandStruggling
	BandThriving
)

// BandFor returns the selection band for a success rate.
func BandFor(rate float64) Band {
	switch {
	case rate < StrugglingBelow:
		return BandStruggling
	case rate > ThrivingAbove:
		return BandThriving
	default:
		return BandSteady
	}
}

func (b Band) String() string {
	switch b {
	case BandStruggling:
		return "struggling"
	case BandThriving:
		return "thriving"
	default:
		return "steady"
	}
}

// Recommendation is the result of Recommend. When no item at the learner's
// level has all prerequisites mastered, Available is false and Message
// explains why.
type Recommendation struct {
	Available        bool                    `json:"available"`
	Message          string                  `json:"message,omitempty"`
	ContentID        string                  `json:"content_id,omitempty"`
	Content          *curriculum.ContentItem `json:"content,omitempty"`
	Reason           string                  `json:"recommendation_reason,omitempty"`
	EstimatedTime    *TimeEstimate           `json:"estimated_time,omitempty"`
	LearnerLevel     string                  `json:"user_level"`
	PrerequisitesMet bool                    `json:"prerequisites_met"`
	NextTopics       []string                `json:"next_topics,omitempty"`
	LearningPath     []string                `json:"learning_path,omitempty"`
	StudyTips        []string                `json:"study_tips,omitempty"`
}

// Recommend picks the next content item for a learner from the eligible
// items at their current level.
func (e *Engine) Recommend(learnerID string) (*Recommendation, error) {
	id := NormalizeLearnerID(learnerID)

	unlock := e.locks.lock(id)
	rec, err := e.getLearner(id)
	unlock()
	if err != nil {
		return nil, err
	}

	eligible := e.eligibleItems(rec)
	if len(eligible) == 0 {
		slog.Debug("no eligible content", "learner_id", id, "level", rec.CurrentLevel)
		return &Recommendation{
			Available:    false,
			Message:      fmt.Sprintf("no eligible content at level %s", rec.CurrentLevel),
			LearnerLevel: rec.CurrentLevel,
		}, nil
	}

	rate := rec.Settings.SuccessRate
	band := BandFor(rate)
	item := selectItem(eligible, band)
	estimate := EstimateTime(item.Difficulty)

	slog.Debug("content recommended",
		"learner_id", id,
		"content_id", item.ID,
		"band", band.String(),
		"success_rate", rate,
	)

	return &Recommendation{
		Available:        true,
		ContentID:        item.ID,
		Content:          &item,
		Reason:           reasonFor(band),
		EstimatedTime:    &estimate,
		LearnerLevel:     rec.CurrentLevel,
		PrerequisitesMet: e.prerequisitesMet(rec, item),
		NextTopics:       e.nextTopics(item),
		LearningPath:     learningPath(item),
		StudyTips:        studyTips(item),
	}, nil
}

// eligibleItems returns the items at the learner's current level whose
// prerequisites are all mastered, in catalog order.
func (e *Engine) eligibleItems(rec *learner.Record) []curriculum.ContentItem {
	var eligible []curriculum.ContentItem
	for _, item := range e.catalog.LevelItems(rec.CurrentLevel) {
		if e.prerequisitesMet(rec, item) {
			eligible = append(eligible, item)
		}
	}
	return eligible
}

func (e *Engine) prerequisitesMet(rec *learner.Record, item curriculum.ContentItem) bool {
	for _, id := range item.Prerequisites {
		if !rec.Mastered(id) {
			return false
		}
	}
	return true
}

// selectItem applies the selection policy. Struggling learners get the
// easiest item, thriving learners the hardest, first in catalog order
// winning ties. Everyone else gets the middle of the eligible list.
func selectItem(eligible []curriculum.ContentItem, band Band) curriculum.ContentItem {
	switch band {
	case BandStruggling:
		best := eligible[0]
		for _, item := range eligible[1:] {
			if item.Difficulty < best.Difficulty {
				best = item
			}
		}
		return best
	case BandThriving:
		best := eligible[0]
		for _, item := range eligible[1:] {
			if item.Difficulty > best.Difficulty {
				best = item
			}
		}
		return best
	default:
		return eligible[len(eligible)/2]
	}
}
