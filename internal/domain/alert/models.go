package alert

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrInvalidInput  = errors.New("invalid input")
)

// Alert is a persisted security/anomaly alert produced by the external
// anomaly agent. This service stores, serves and resolves alerts; it never
// scores transactions itself.
type Alert struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	TransactionID string     `json:"transactionId,omitempty"`
	Category      string     `json:"category,omitempty"`
	RiskLevel     string     `json:"riskLevel"` // as reported by the anomaly agent
	Message       string     `json:"message"`
	IsResolved    bool       `json:"isResolved"`
	CreatedAt     time.Time  `json:"createdAt"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// IngestParams contains the fields accepted from the anomaly agent.
type IngestParams struct {
	UserID        string
	TransactionID string
	Category      string
	RiskLevel     string
	Message       string
}

// Validate validates the ingest parameters.
func (p IngestParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.Message == "" {
		return errors.New("alert message is required")
	}
	return nil
}
