package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finpath/internal/domain/ledger"
)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, account_id, posted_at, direction, amount, category,
       description, merchant, refined_merchant, reference, confidence_score,
       created_at, updated_at`

func scanTransaction(scan func(dest ...any) error) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var accountID, merchant, refinedMerchant, reference sql.NullString
	var confidence sql.NullFloat64

	err := scan(
		&t.ID, &t.UserID, &accountID, &t.Timestamp, &t.Direction, &t.Amount,
		&t.Category, &t.Description, &merchant, &refinedMerchant, &reference,
		&confidence, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.AccountID = accountID.String
	t.Merchant = merchant.String
	t.RefinedMerchant = refinedMerchant.String
	t.Reference = reference.String
	if confidence.Valid {
		score := confidence.Float64
		t.ConfidenceScore = &score
	}
	return &t, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY posted_at DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *TransactionRepository) ListByUserIDSince(ctx context.Context, userID string, since time.Time) ([]ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND posted_at >= $2
		ORDER BY posted_at DESC, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]ledger.Transaction, error) {
	var transactions []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// Upsert inserts or updates a transaction keyed on the provider's ID.
// Re-syncs from the aggregator replay the same records, so conflicts
// overwrite with the latest provider view.
func (r *TransactionRepository) Upsert(ctx context.Context, params ledger.UpsertTransactionParams) (*ledger.Transaction, error) {
	query := `
		INSERT INTO transactions (id, user_id, account_id, posted_at, direction, amount,
		                          category, description, merchant, refined_merchant,
		                          reference, confidence_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
		    account_id = EXCLUDED.account_id,
		    posted_at = EXCLUDED.posted_at,
		    direction = EXCLUDED.direction,
		    amount = EXCLUDED.amount,
		    category = EXCLUDED.category,
		    description = EXCLUDED.description,
		    merchant = EXCLUDED.merchant,
		    refined_merchant = EXCLUDED.refined_merchant,
		    reference = EXCLUDED.reference,
		    confidence_score = EXCLUDED.confidence_score,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING ` + transactionColumns + `
	`

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, nullString(params.AccountID), params.Timestamp,
		params.Direction, params.Amount, params.Category, params.Description,
		nullString(params.Merchant), nullString(params.RefinedMerchant),
		nullString(params.Reference), nullFloat(params.ConfidenceScore),
	)

	t, err := scanTransaction(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return t, nil
}

// UpdateCategorization applies the categorizer agent's refinement in place.
// NULLIF/COALESCE keep the stored value wherever the agent sent nothing.
func (r *TransactionRepository) UpdateCategorization(ctx context.Context, id string, params ledger.CategorizationParams) (*ledger.Transaction, error) {
	query := `
		UPDATE transactions SET
		    category = COALESCE(NULLIF($2, ''), category),
		    refined_merchant = COALESCE(NULLIF($3, ''), refined_merchant),
		    confidence_score = COALESCE($4, confidence_score),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + transactionColumns + `
	`

	row := r.db.QueryRowContext(ctx, query, id, params.Category,
		params.RefinedMerchant, nullFloat(params.ConfidenceScore))

	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update categorization: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM transactions WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return ledger.ErrTransactionNotFound
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
