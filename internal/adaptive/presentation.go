package adaptive

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
)

const (
	// MaxNextTopics caps the suggestions attached to a recommendation.
	MaxNextTopics = 3
	// NextTopicDifficultySpan is how far a same-level suggestion's difficulty
	// may be from the recommended item.
	NextTopicDifficultySpan = 2

	nextLevelPrefix = "[Next level] "
)

// TimeEstimate is the expected time to work through an item.
type TimeEstimate struct {
	MinMinutes int `json:"min_minutes"`
	MaxMinutes int `json:"max_minutes"`
}

// EstimateTime allows five minutes per difficulty point plus a ten minute
// margin.
func EstimateTime(difficulty int) TimeEstimate {
	base := difficulty * 5
	return TimeEstimate{MinMinutes: base, MaxMinutes: base + 10}
}

func (t TimeEstimate) String() string {
	return fmt.Sprintf("%d-%d min", t.MinMinutes, t.MaxMinutes)
}

func reasonFor(b Band) string {
	switch b {
	case BandStruggling:
		return "Start with easier material to build a solid foundation."
	case BandThriving:
		return "You're doing well. Try more challenging material."
	default:
		return "This material fits your current level. Keep progressing step by step."
	}
}

// nextTopics suggests related item titles: same-level items in the same
// category with a similar difficulty, then next-level items that build on
// this one.
func (e *Engine) nextTopics(item curriculum.ContentItem) []string {
	topics := []string{}
	for _, other := range e.catalog.LevelItems(item.Level) {
		if other.ID == item.ID || other.Category != item.Category {
			continue
		}
		if abs(other.Difficulty-item.Difficulty) <= NextTopicDifficultySpan {
			topics = append(topics, other.Title)
		}
	}

	if next, ok := e.catalog.NextLevel(item.Level); ok {
		for _, other := range e.catalog.LevelItems(next) {
			for _, prereq := range other.Prerequisites {
				if prereq == item.ID {
					topics = append(topics, nextLevelPrefix+other.Title)
					break
				}
			}
		}
	}

	if len(topics) > MaxNextTopics {
		topics = topics[:MaxNextTopics]
	}
	return topics
}

func learningPath(item curriculum.ContentItem) []string {
	path := make([]string, 0, len(item.LearningObjectives)+2)
	for i, objective := range item.LearningObjectives {
		path = append(path, fmt.Sprintf("Step %d: %s", i+1, objective))
	}
	path = append(path, fmt.Sprintf("Step %d: Apply the concept to a real example", len(path)+1))
	path = append(path, fmt.Sprintf("Step %d: Check your understanding with practice questions", len(path)+1))
	return path
}

func studyTips(item curriculum.ContentItem) []string {
	var tips []string
	switch {
	case item.Difficulty <= 3:
		tips = []string{
			"Work through the basic concepts one at a time.",
			"Follow the examples and do the calculations yourself.",
			"Explain the concept in your own words.",
		}
	case item.Difficulty <= 6:
		tips = []string{
			"Review the prerequisite concepts first.",
			"Break the problem into smaller steps.",
			"Connect the idea to an everyday example.",
		}
	default:
		tips = []string{
			"Study the theory and reasoning behind the method.",
			"Look for different applications of the technique.",
			"Map out how the concepts relate to each other.",
		}
	}

	switch {
	case strings.Contains(item.Category, "statistics"):
		tips = append(tips, "Keep asking \"why?\" to build statistical intuition.")
	case strings.Contains(item.Category, "probability"):
		tips = append(tips, "Count the possible outcomes systematically.")
	case strings.Contains(item.Category, "analysis"):
		tips = append(tips, "Practice interpreting what the results mean in practice.")
	}
	return tips
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
