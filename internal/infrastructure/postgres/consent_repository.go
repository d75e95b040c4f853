package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finpath/internal/domain/consent"
)

type ConsentRepository struct {
	db *DB
}

func NewConsentRepository(db *DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

const consentColumns = `id, user_id, mobile, status, consent_url, initiated_at, updated_at, last_sync_at`

func scanConsent(scan func(dest ...any) error) (*consent.Consent, error) {
	var c consent.Consent
	var consentURL sql.NullString
	var lastSyncAt sql.NullTime

	err := scan(&c.ID, &c.UserID, &c.Mobile, &c.Status, &consentURL, &c.InitiatedAt, &c.UpdatedAt, &lastSyncAt)
	if err != nil {
		return nil, err
	}

	c.ConsentURL = consentURL.String
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		c.LastSyncAt = &t
	}
	return &c, nil
}

func (r *ConsentRepository) Upsert(ctx context.Context, c *consent.Consent) error {
	query := `
		INSERT INTO consents (id, user_id, mobile, status, consent_url, initiated_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
		    status = EXCLUDED.status,
		    consent_url = EXCLUDED.consent_url,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(
		ctx, query,
		c.ID, c.UserID, c.Mobile, c.Status, nullString(c.ConsentURL), c.InitiatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert consent: %w", err)
	}
	return nil
}

func (r *ConsentRepository) GetByID(ctx context.Context, id string) (*consent.Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanConsent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, consent.ErrConsentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consent: %w", err)
	}
	return c, nil
}

func (r *ConsentRepository) ListByUserID(ctx context.Context, userID string) ([]*consent.Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE user_id = $1
		ORDER BY initiated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consents: %w", err)
	}
	defer rows.Close()

	var consents []*consent.Consent
	for rows.Next() {
		c, err := scanConsent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consent: %w", err)
		}
		consents = append(consents, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating consents: %w", err)
	}

	return consents, nil
}

func (r *ConsentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE consents
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update consent status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return consent.ErrConsentNotFound
	}
	return nil
}

func (r *ConsentRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE consents
		SET last_sync_at = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark consent synced: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return consent.ErrConsentNotFound
	}
	return nil
}
