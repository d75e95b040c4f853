package consent

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrConsentNotFound = errors.New("consent not found")
	ErrConsentInactive = errors.New("consent is not active")
)

// Consent statuses as reported by the account aggregator.
const (
	StatusPending  = "PENDING"
	StatusActive   = "ACTIVE"
	StatusRejected = "REJECTED"
	StatusExpired  = "EXPIRED"
	StatusRevoked  = "REVOKED"
)

// Consent is a bank-linking authorization record. The aggregator owns the
// approval flow; this service tracks the lifecycle and uses active consents
// to pull transaction data.
type Consent struct {
	ID          string     `json:"id"` // aggregator's consent ID
	UserID      string     `json:"userId"`
	Mobile      string     `json:"mobile"`
	Status      string     `json:"status"`
	ConsentURL  string     `json:"consentUrl,omitempty"`
	InitiatedAt time.Time  `json:"initiatedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
}

// Repository defines the interface for consent data access.
type Repository interface {
	// Upsert creates or updates a consent record keyed on the aggregator ID
	Upsert(ctx context.Context, c *Consent) error

	// GetByID retrieves a consent by its aggregator ID
	GetByID(ctx context.Context, id string) (*Consent, error)

	// ListByUserID retrieves all consents for a user
	ListByUserID(ctx context.Context, userID string) ([]*Consent, error)

	// UpdateStatus updates the status of a consent
	UpdateStatus(ctx context.Context, id, status string) error

	// MarkSynced records the completion time of a transaction sync
	MarkSynced(ctx context.Context, id string, at time.Time) error
}
