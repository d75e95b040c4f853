package alert

import "context"

// Repository defines the interface for alert data access.
type Repository interface {
	// Create persists a new alert
	Create(ctx context.Context, a *Alert) error

	// GetByID retrieves an alert by its ID
	GetByID(ctx context.Context, id string) (*Alert, error)

	// ListByUserID retrieves a user's alerts, newest first
	ListByUserID(ctx context.Context, userID string) ([]*Alert, error)

	// MarkResolved marks an alert as resolved
	MarkResolved(ctx context.Context, id string) error

	// Delete removes an alert
	Delete(ctx context.Context, id string) error
}

// Messenger delivers push notifications for new alerts. Implemented by the
// FCM client in the infrastructure layer.
type Messenger interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}
