package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"finpath/internal/domain/goal"
)

type GoalRepository struct {
	db *DB
}

func NewGoalRepository(db *DB) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = `id, user_id, title, description, target_amount, current_amount,
       duration_months, priority, category, deadline, monthly_contribution,
       feasible, risk_level, completion_months, analyzing, analysis_error,
       insights, recommendations, created_at, updated_at`

func scanGoal(scan func(dest ...any) error) (*goal.Goal, error) {
	var g goal.Goal
	var description, category, analysisError, insights sql.NullString
	var durationMonths, completionMonths sql.NullInt64
	var deadline sql.NullTime
	var feasible sql.NullBool
	var riskLevel sql.NullString
	var recommendations pq.StringArray

	err := scan(
		&g.ID, &g.UserID, &g.Title, &description, &g.TargetAmount, &g.CurrentAmount,
		&durationMonths, &g.Priority, &category, &deadline, &g.MonthlyContribution,
		&feasible, &riskLevel, &completionMonths, &g.Analyzing, &analysisError,
		&insights, &recommendations, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Description = description.String
	g.Category = category.String
	g.AnalysisError = analysisError.String
	g.Insights = insights.String
	if durationMonths.Valid {
		months := int(durationMonths.Int64)
		g.DurationMonths = &months
	}
	if completionMonths.Valid {
		g.CompletionMonths = int(completionMonths.Int64)
	}
	if deadline.Valid {
		d := deadline.Time
		g.Deadline = &d
	}
	if feasible.Valid {
		f := feasible.Bool
		g.Feasible = &f
	}
	if riskLevel.Valid {
		g.RiskLevel = goal.RiskLevel(riskLevel.String)
	}
	g.Recommendations = recommendations
	return &g, nil
}

func (r *GoalRepository) Create(ctx context.Context, g *goal.Goal) error {
	query := `
		INSERT INTO goals (id, user_id, title, description, target_amount, current_amount,
		                   duration_months, priority, category, deadline, monthly_contribution,
		                   feasible, risk_level, completion_months, analyzing, analysis_error,
		                   insights, recommendations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		g.ID, g.UserID, g.Title, nullString(g.Description), g.TargetAmount, g.CurrentAmount,
		nullInt(g.DurationMonths), string(g.Priority), nullString(g.Category), nullTime(g.Deadline),
		g.MonthlyContribution, nullBool(g.Feasible), nullString(string(g.RiskLevel)),
		g.CompletionMonths, g.Analyzing, nullString(g.AnalysisError), nullString(g.Insights),
		pq.StringArray(g.Recommendations), g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) GetByID(ctx context.Context, id string) (*goal.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	g, err := scanGoal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goal.ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return g, nil
}

func (r *GoalRepository) ListByUserID(ctx context.Context, userID string) ([]*goal.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*goal.Goal
	for rows.Next() {
		g, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}

func (r *GoalRepository) Update(ctx context.Context, g *goal.Goal) error {
	query := `
		UPDATE goals
		SET title = $1,
		    description = $2,
		    target_amount = $3,
		    current_amount = $4,
		    duration_months = $5,
		    priority = $6,
		    category = $7,
		    deadline = $8,
		    monthly_contribution = $9,
		    feasible = $10,
		    risk_level = $11,
		    completion_months = $12,
		    analyzing = $13,
		    analysis_error = $14,
		    insights = $15,
		    recommendations = $16,
		    updated_at = $17
		WHERE id = $18
	`

	result, err := r.db.ExecContext(
		ctx, query,
		g.Title, nullString(g.Description), g.TargetAmount, g.CurrentAmount,
		nullInt(g.DurationMonths), string(g.Priority), nullString(g.Category),
		nullTime(g.Deadline), g.MonthlyContribution, nullBool(g.Feasible),
		nullString(string(g.RiskLevel)), g.CompletionMonths, g.Analyzing,
		nullString(g.AnalysisError), nullString(g.Insights),
		pq.StringArray(g.Recommendations), g.UpdatedAt, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return goal.ErrGoalNotFound
	}
	return nil
}

func (r *GoalRepository) UpdateMonthlyContribution(ctx context.Context, id string, contribution float64) error {
	query := `
		UPDATE goals
		SET monthly_contribution = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, contribution, id)
	if err != nil {
		return fmt.Errorf("failed to update monthly contribution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return goal.ErrGoalNotFound
	}
	return nil
}

func (r *GoalRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM goals WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return goal.ErrGoalNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
