// Package interaction records every graded answer across all learners.
package interaction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event is one graded answer in the global interaction log.
type Event struct {
	ID            uuid.UUID `json:"id"`
	LearnerID     string    `json:"learner_id"`
	ContentID     string    `json:"content_id"`
	QuestionIndex int       `json:"question_index"`
	Correct       bool      `json:"correct"`
	LevelUp       bool      `json:"level_up,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Totals summarises the log.
type Totals struct {
	Interactions int
	Correct      int
}

// Log appends interaction events and reports totals.
type Log interface {
	Append(event Event) error
	Totals() (Totals, error)
}

// Subscriber receives events after they are durably appended.
type Subscriber interface {
	Publish(event Event)
}

// prepare fills in the ID and timestamp and checks required fields.
func prepare(event *Event) error {
	if event.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	if event.ContentID == "" {
		return fmt.Errorf("content_id is required")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return nil
}

// MemoryLog keeps the interaction log in memory.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		events: []Event{},
	}
}

func (l *MemoryLog) Append(event Event) error {
	if err := prepare(&event); err != nil {
		return err
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryLog) Totals() (Totals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := Totals{Interactions: len(l.events)}
	for _, e := range l.events {
		if e.Correct {
			t.Correct++
		}
	}
	return t, nil
}

// Events returns a snapshot of the log.
func (l *MemoryLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresLog inserts events into the interactions table.
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

func (l *PostgresLog) Append(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("interaction log pool is nil")
	}
	if err := prepare(&event); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	_, err := l.pool.Exec(ctx,
		`INSERT INTO interactions (id, learner_id, content_id, question_index, correct, level_up, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		event.LearnerID,
		event.ContentID,
		event.QuestionIndex,
		event.Correct,
		event.LevelUp,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}

	slog.Debug("interaction logged",
		"learner_id", event.LearnerID,
		"content_id", event.ContentID,
		"correct", event.Correct,
	)
	return nil
}

func (l *PostgresLog) Totals() (Totals, error) {
	if l == nil || l.pool == nil {
		return Totals{}, fmt.Errorf("interaction log pool is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var t Totals
	err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE correct) FROM interactions`,
	).Scan(&t.Interactions, &t.Correct)
	if err != nil {
		return Totals{}, fmt.Errorf("count interactions: %w", err)
	}
	return t, nil
}

// Broadcast wraps a Log and fans appended events out to subscribers.
type Broadcast struct {
	Log
	subscribers []Subscriber
}

// NewBroadcast returns a Log that publishes every successfully appended event.
func NewBroadcast(log Log, subscribers ...Subscriber) *Broadcast {
	return &Broadcast{Log: log, subscribers: subscribers}
}

func (b *Broadcast) Append(event Event) error {
	if err := prepare(&event); err != nil {
		return err
	}
	if err := b.Log.Append(event); err != nil {
		return err
	}
	for _, s := range b.subscribers {
		s.Publish(event)
	}
	return nil
}
