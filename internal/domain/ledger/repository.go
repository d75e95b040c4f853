package ledger

import (
	"context"
	"time"
)

// Repository defines the interface for transaction data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id string) (*Transaction, error)

	// ListByUserID retrieves transactions for a user, newest first
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]Transaction, error)

	// ListByUserIDSince retrieves all transactions for a user posted at or after the given time
	ListByUserIDSince(ctx context.Context, userID string, since time.Time) ([]Transaction, error)

	// Upsert creates or updates a transaction keyed on its provider ID
	Upsert(ctx context.Context, params UpsertTransactionParams) (*Transaction, error)

	// UpdateCategorization applies the external categorizer's refinement to an
	// already-ingested transaction
	UpdateCategorization(ctx context.Context, id string, params CategorizationParams) (*Transaction, error)

	// Delete removes a transaction
	Delete(ctx context.Context, id string) error
}
