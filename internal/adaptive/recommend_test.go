package adaptive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-adaptive/internal/adaptive"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
)

func TestRecommend_NewLearner(t *testing.T) {
	f := newFixture(t, defaultCatalog(t))
	_, err := f.engine.Register("alice", learner.Profile{})
	require.NoError(t, err)

	rec, err := f.engine.Recommend("alice")
	require.NoError(t, err)

	require.True(t, rec.Available)
	assert.Equal(t, "stats_basics", rec.ContentID, "only item without prerequisites")
	assert.Equal(t, "foundation", rec.LearnerLevel)
	assert.True(t, rec.PrerequisitesMet)
	assert.Empty(t, rec.Content.Prerequisites)
	assert.Equal(t, adaptive.TimeEstimate{MinMinutes: 15, MaxMinutes: 25}, *rec.EstimatedTime)
	assert.Equal(t, []string{
		"[Next level] Hypothesis Testing",
		"[Next level] Confidence Intervals",
	}, rec.NextTopics)

	objectives := len(rec.Content.LearningObjectives)
	require.Len(t, rec.LearningPath, objectives+2)
	assert.Equal(t, "Step 1: "+rec.Content.LearningObjectives[0], rec.LearningPath[0])
	assert.Contains(t, rec.LearningPath[objectives+1], "practice questions")

	require.Len(t, rec.StudyTips, 4, "three difficulty tips and one category tip")
	assert.Contains(t, rec.StudyTips[3], "statistical")
}

func TestRecommend_UnknownLearner(t *testing.T) {
	f := newFixture(t, testCatalog(t))

	_, err := f.engine.Recommend("ghost")
	assert.ErrorIs(t, err, adaptive.ErrUnknownLearner)
}

func TestRecommend_SelectionBands(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"struggling picks easiest", 0.39, "easy"},
		{"lower boundary is steady", 0.4, "medium"},
		{"steady picks middle", 0.6, "medium"},
		{"upper boundary is steady", 0.8, "medium"},
		{"thriving picks hardest", 0.81, "hard"},
		{"zero", 0, "easy"},
		{"one", 1, "hard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testCatalog(t))
			_, err := f.engine.Register("alice", learner.Profile{})
			require.NoError(t, err)
			f.setRate(t, "alice", tt.rate)

			rec, err := f.engine.Recommend("alice")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.ContentID)
		})
	}
}

func TestRecommend_TiesAndMiddleIndex(t *testing.T) {
	cat, err := curriculum.New([]curriculum.LevelDocument{
		{Level: "only", Order: 1, Items: []curriculum.ContentItem{
			item("first", 3),
			item("second", 3),
			item("third", 3),
			item("fourth", 3),
		}},
	})
	require.NoError(t, err)

	tests := []struct {
		rate float64
		want string
	}{
		{0.1, "first"},
		{0.9, "first"},
		{0.5, "third"}, // index 4/2
	}
	for _, tt := range tests {
		f := newFixture(t, cat)
		_, err := f.engine.Register("alice", learner.Profile{})
		require.NoError(t, err)
		f.setRate(t, "alice", tt.rate)

		rec, err := f.engine.Recommend("alice")
		require.NoError(t, err)
		assert.Equal(t, tt.want, rec.ContentID, "rate %v", tt.rate)
	}
}

func TestRecommend_NoEligibleContent(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	_, err := f.engine.Register("alice", learner.Profile{})
	require.NoError(t, err)

	rec, err := f.store.Get("alice")
	require.NoError(t, err)
	rec.CurrentLevel = "next"
	require.NoError(t, f.store.Save(rec))

	got, err := f.engine.Recommend("alice")
	require.NoError(t, err, "no eligible content is a result, not an error")
	assert.False(t, got.Available)
	assert.Contains(t, got.Message, "next")
	assert.Nil(t, got.Content)

	// Two correct answers are not mastery yet.
	f.answer(t, "alice", "easy", true)
	f.answer(t, "alice", "easy", true)
	got, err = f.engine.Recommend("alice")
	require.NoError(t, err)
	assert.False(t, got.Available)

	f.answer(t, "alice", "easy", true)
	got, err = f.engine.Recommend("alice")
	require.NoError(t, err)
	require.True(t, got.Available)
	assert.Equal(t, "dependent", got.ContentID)
}

func TestMastery_ThreeCorrect(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	_, err := f.engine.Register("alice", learner.Profile{})
	require.NoError(t, err)

	for range 3 {
		f.answer(t, "alice", "medium", true)
	}

	rec, err := f.store.Get("alice")
	require.NoError(t, err)
	assert.True(t, rec.Mastered("medium"))
}

func TestMastery_Window(t *testing.T) {
	tests := []struct {
		name    string
		answers []bool
		want    bool
	}{
		{"two correct only", []bool{true, true}, false},
		{"two of three", []bool{true, false, true}, true},
		{"one of three", []bool{true, false, false}, false},
		{"recent window decides", []bool{true, true, true, false, false}, false},
		{"recovery", []bool{false, false, true, false, true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testCatalog(t))
			_, err := f.engine.Register("alice", learner.Profile{})
			require.NoError(t, err)
			for _, ok := range tt.answers {
				f.answer(t, "alice", "hard", ok)
			}

			rec, err := f.store.Get("alice")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Mastered("hard"))
		})
	}
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, adaptive.BandStruggling, adaptive.BandFor(0.3999))
	assert.Equal(t, adaptive.BandSteady, adaptive.BandFor(0.4))
	assert.Equal(t, adaptive.BandSteady, adaptive.BandFor(0.8))
	assert.Equal(t, adaptive.BandThriving, adaptive.BandFor(0.8001))
	assert.Equal(t, "thriving", adaptive.BandThriving.String())
}
