// Package adaptive implements the recommendation and mastery-progression
// engine: learner registration, content recommendation, answer grading with
// success-rate adaptation, level progression and analytics.
package adaptive

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/interaction"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
)

const (
	// InitialSuccessRate is the neutral prior for a new learner.
	InitialSuccessRate = 0.5
	// DefaultDifficultyPreference is used when neither the profile nor the
	// engine config supplies one.
	DefaultDifficultyPreference = 5.0

	MinDifficultyPreference = 1.0
	MaxDifficultyPreference = 10.0
)

// EngineConfig holds dependencies for the adaptive engine.
type EngineConfig struct {
	Catalog *curriculum.Catalog
	Store   learner.Store
	Log     interaction.Log
	// DefaultDifficulty is the preference given to learners whose profile
	// does not set one (default 5).
	DefaultDifficulty float64
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine owns the catalog, learner store and interaction log. Mutating
// operations are serialized per learner; different learners proceed
// independently.
type Engine struct {
	catalog           *curriculum.Catalog
	store             learner.Store
	log               interaction.Log
	defaultDifficulty float64
	now               func() time.Time
	locks             keyedMutex
}

// NewEngine creates a new adaptive engine. Catalog is required; Store and
// Log default to in-memory implementations.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	store := cfg.Store
	if store == nil {
		store = learner.NewMemoryStore()
	}
	log := cfg.Log
	if log == nil {
		log = interaction.NewMemoryLog()
	}
	difficulty := cfg.DefaultDifficulty
	if difficulty == 0 {
		difficulty = DefaultDifficultyPreference
	}
	if difficulty < MinDifficultyPreference || difficulty > MaxDifficultyPreference {
		return nil, fmt.Errorf("default difficulty %v outside [%v, %v]", difficulty, MinDifficultyPreference, MaxDifficultyPreference)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		catalog:           cfg.Catalog,
		store:             store,
		log:               log,
		defaultDifficulty: difficulty,
		now:               now,
		locks:             keyedMutex{locks: make(map[string]*sync.Mutex)},
	}, nil
}

// Catalog returns the engine's content catalog.
func (e *Engine) Catalog() *curriculum.Catalog {
	return e.catalog
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Register creates a learner record at the first level. Registering an
// existing ID replaces that learner's record.
func (e *Engine) Register(learnerID string, profile learner.Profile) (RegisterResult, error) {
	id := NormalizeLearnerID(learnerID)
	if id == "" {
		return RegisterResult{}, ErrInvalidLearnerID
	}
	profile, err := e.normalizeProfile(profile)
	if err != nil {
		return RegisterResult{}, err
	}

	unlock := e.locks.lock(id)
	defer unlock()

	rec := learner.NewRecord(id, profile, e.catalog.FirstLevel(), learner.AdaptiveSettings{
		SuccessRate:          InitialSuccessRate,
		DifficultyPreference: profile.Difficulty,
	}, e.now())

	if err := e.store.Save(rec); err != nil {
		return RegisterResult{}, fmt.Errorf("saving learner %q: %w", id, err)
	}

	slog.Info("learner registered",
		"learner_id", id,
		"level", rec.CurrentLevel,
		"difficulty_preference", profile.Difficulty,
	)
	return RegisterResult{
		Status:  "success",
		Message: fmt.Sprintf("learner %s registered", id),
	}, nil
}

func (e *Engine) normalizeProfile(p learner.Profile) (learner.Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Difficulty == 0 {
		p.Difficulty = e.defaultDifficulty
	}
	if p.Difficulty < MinDifficultyPreference || p.Difficulty > MaxDifficultyPreference {
		return p, fmt.Errorf("%w: difficulty %v outside [%v, %v]", ErrInvalidProfile, p.Difficulty, MinDifficultyPreference, MaxDifficultyPreference)
	}
	switch p.Pace {
	case "":
		p.Pace = learner.PaceMedium
	case learner.PaceSlow, learner.PaceMedium, learner.PaceFast:
	default:
		return p, fmt.Errorf("%w: unknown pace %q", ErrInvalidProfile, p.Pace)
	}
	return p, nil
}

// getLearner loads a record, mapping a missing learner to ErrUnknownLearner.
// Callers hold the learner's lock so a cache fill cannot interleave with a
// commit for the same learner.
func (e *Engine) getLearner(id string) (*learner.Record, error) {
	return e.load(id, e.store.Get)
}

// getLearnerFresh is getLearner for the read-modify-write path. It skips any
// cache in front of the store.
func (e *Engine) getLearnerFresh(id string) (*learner.Record, error) {
	return e.load(id, e.store.GetFresh)
}

func (e *Engine) load(id string, get func(string) (*learner.Record, error)) (*learner.Record, error) {
	rec, err := get(id)
	if err != nil {
		if errors.Is(err, learner.ErrNotFound) {
			return nil, fmt.Errorf("learner %q: %w", id, ErrUnknownLearner)
		}
		return nil, fmt.Errorf("loading learner %q: %w", id, err)
	}
	return rec, nil
}

// NormalizeLearnerID trims surrounding whitespace and applies Unicode NFC so
// visually identical IDs map to the same learner.
func NormalizeLearnerID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// keyedMutex hands out one mutex per learner ID.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
