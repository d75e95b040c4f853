package postgres

import (
	"context"
	"fmt"

	"finpath/internal/domain/goal"
)

type ContributionRepository struct {
	db *DB
}

func NewContributionRepository(db *DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

func (r *ContributionRepository) Record(ctx context.Context, c *goal.Contribution) error {
	query := `
		INSERT INTO goal_contributions (id, goal_id, user_id, amount, due_date, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.GoalID, c.UserID, c.Amount, c.DueDate, c.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("failed to record contribution: %w", err)
	}
	return nil
}

func (r *ContributionRepository) ListByGoalID(ctx context.Context, goalID string) ([]*goal.Contribution, error) {
	query := `
		SELECT id, goal_id, user_id, amount, due_date, confirmed_at
		FROM goal_contributions
		WHERE goal_id = $1
		ORDER BY confirmed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*goal.Contribution
	for rows.Next() {
		var c goal.Contribution
		if err := rows.Scan(&c.ID, &c.GoalID, &c.UserID, &c.Amount, &c.DueDate, &c.ConfirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributions: %w", err)
	}

	return contributions, nil
}
