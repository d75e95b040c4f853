package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finpath/internal/domain/alert"
)

type AlertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, user_id, transaction_id, category, risk_level, message,
       is_resolved, created_at, resolved_at`

func scanAlert(scan func(dest ...any) error) (*alert.Alert, error) {
	var a alert.Alert
	var transactionID, category sql.NullString
	var resolvedAt sql.NullTime

	err := scan(
		&a.ID, &a.UserID, &transactionID, &category, &a.RiskLevel, &a.Message,
		&a.IsResolved, &a.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	a.TransactionID = transactionID.String
	a.Category = category.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	query := `
		INSERT INTO alerts (id, user_id, transaction_id, category, risk_level, message,
		                    is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		a.ID, a.UserID, nullString(a.TransactionID), nullString(a.Category),
		a.RiskLevel, a.Message, a.IsResolved, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*alert.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAlert(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, alert.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepository) ListByUserID(ctx context.Context, userID string) ([]*alert.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

func (r *AlertRepository) MarkResolved(ctx context.Context, id string) error {
	query := `
		UPDATE alerts
		SET is_resolved = TRUE, resolved_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return alert.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM alerts WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return alert.ErrAlertNotFound
	}
	return nil
}
