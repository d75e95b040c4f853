package postgres

import (
	"context"
	"fmt"

	"finpath/internal/domain/goal"
)

type ReminderRepository struct {
	db *DB
}

func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Upsert writes a reminder's state keyed on its deterministic ID. Confirming
// a payment may land before the reminder pipeline has written the row, so a
// missing row is created rather than rejected.
func (r *ReminderRepository) Upsert(ctx context.Context, rem *goal.Reminder) error {
	query := `
		INSERT INTO goal_reminders (id, goal_id, user_id, due_date, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, rem.ID, rem.GoalID, rem.UserID, rem.DueDate, rem.Status, rem.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert reminder: %w", err)
	}
	return nil
}
