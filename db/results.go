package db

import (
	"context"
	"fmt"
	"time"

	"careerquiz/models"
)

// ResultStore is the append-only table of quiz attempts.
type ResultStore struct {
	db *DB
}

// Record appends a and fills in its ID and CreatedAt.
func (s *ResultStore) Record(ctx context.Context, a *models.QuizAttempt) error {
	createdAt := time.Now().UTC()
	err := s.db.QueryRowContext(ctx,
		s.db.rebind(`INSERT INTO results (username, aptitude, interest, personality, total, career, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		a.Username, a.Aptitude, a.Interest, a.Personality, a.Total, a.Career, createdAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	a.CreatedAt = createdAt
	return nil
}

// All returns every attempt in insertion order.
func (s *ResultStore) All(ctx context.Context) ([]models.QuizAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, aptitude, interest, personality, total, career, created_at FROM results ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var attempts []models.QuizAttempt
	for rows.Next() {
		var a models.QuizAttempt
		if err := rows.Scan(&a.ID, &a.Username, &a.Aptitude, &a.Interest, &a.Personality, &a.Total, &a.Career, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return attempts, nil
}
