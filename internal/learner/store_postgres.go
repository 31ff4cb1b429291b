package learner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation. The schema is
// created by database.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed learner store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(rec *Record) error {
	if rec == nil || rec.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO learners (id, name, pace, initial_difficulty, current_level,
			                       success_rate, difficulty_preference, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   pace = EXCLUDED.pace,
			   initial_difficulty = EXCLUDED.initial_difficulty,
			   current_level = EXCLUDED.current_level,
			   success_rate = EXCLUDED.success_rate,
			   difficulty_preference = EXCLUDED.difficulty_preference,
			   created_at = EXCLUDED.created_at,
			   updated_at = NOW()`,
			rec.LearnerID,
			rec.Profile.Name,
			rec.Profile.Pace,
			rec.Profile.Difficulty,
			rec.CurrentLevel,
			rec.Settings.SuccessRate,
			rec.Settings.DifficultyPreference,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("upsert learner: %w", err)
		}

		// Re-registration replaces the whole record, history included.
		if _, err := tx.Exec(ctx, `DELETE FROM attempts WHERE learner_id = $1`, rec.LearnerID); err != nil {
			return fmt.Errorf("reset attempts: %w", err)
		}

		for _, a := range rec.AllAttempts() {
			if err := insertAttempt(ctx, tx, rec.LearnerID, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) Get(id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rec := &Record{
		LearnerID:   id,
		Performance: make(map[string][]Attempt),
		ItemOrder:   []string{},
	}
	err := s.pool.QueryRow(ctx,
		`SELECT name, pace, initial_difficulty, current_level, success_rate, difficulty_preference, created_at
		 FROM learners
		 WHERE id = $1`,
		id,
	).Scan(
		&rec.Profile.Name,
		&rec.Profile.Pace,
		&rec.Profile.Difficulty,
		&rec.CurrentLevel,
		&rec.Settings.SuccessRate,
		&rec.Settings.DifficultyPreference,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get learner: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT content_id, question_index, correct, created_at
		 FROM attempts
		 WHERE learner_id = $1
		 ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ContentID, &a.QuestionIndex, &a.Correct, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Append(a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	return rec, nil
}

func (s *PostgresStore) GetFresh(id string) (*Record, error) {
	return s.Get(id)
}

func (s *PostgresStore) RecordAttempt(id string, attempt Attempt, settings AdaptiveSettings, level string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx,
			`UPDATE learners
			 SET success_rate = $2, difficulty_preference = $3, current_level = $4, updated_at = NOW()
			 WHERE id = $1`,
			id,
			settings.SuccessRate,
			settings.DifficultyPreference,
			level,
		)
		if err != nil {
			return fmt.Errorf("update learner: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return insertAttempt(ctx, tx, id, attempt)
	})
}

func (s *PostgresStore) LevelDistribution() (map[string]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT current_level, COUNT(*) FROM learners GROUP BY current_level`)
	if err != nil {
		return nil, fmt.Errorf("query level distribution: %w", err)
	}
	defer rows.Close()

	dist := make(map[string]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan level distribution: %w", err)
		}
		dist[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate level distribution: %w", err)
	}
	return dist, nil
}

func insertAttempt(ctx context.Context, tx pgx.Tx, learnerID string, a Attempt) error {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO attempts (learner_id, content_id, question_index, correct, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		learnerID,
		a.ContentID,
		a.QuestionIndex,
		a.Correct,
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}
