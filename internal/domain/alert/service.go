package alert

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"finpath/internal/domain/analytics"
)

// Service contains the business logic for alert operations.
type Service struct {
	repo      Repository
	messenger Messenger // may be nil when push delivery is not configured
}

// NewService creates a new alert service.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

// Ingest stores an alert reported by the anomaly agent and pushes high-risk
// ones to the user's devices. Push failures are logged, never fatal: the
// alert record is the source of truth.
func (s *Service) Ingest(ctx context.Context, params IngestParams) (*Alert, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	a := &Alert{
		ID:            uuid.New().String(),
		UserID:        params.UserID,
		TransactionID: params.TransactionID,
		Category:      params.Category,
		RiskLevel:     strings.ToLower(strings.TrimSpace(params.RiskLevel)),
		Message:       params.Message,
		CreatedAt:     time.Now().UTC(),
	}
	if a.RiskLevel == "" {
		a.RiskLevel = "unknown"
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to store alert: %w", err)
	}

	if s.messenger != nil && a.RiskLevel == "high" {
		if err := s.messenger.SendToUser(ctx, a.UserID, "Security alert", a.Message, map[string]string{"alertId": a.ID}); err != nil {
			log.Printf("Warning: failed to push alert %s to user %s: %v", a.ID, a.UserID, err)
		}
	}

	return a, nil
}

// ListAlerts returns the user's alerts, newest first.
func (s *Service) ListAlerts(ctx context.Context, userID string) ([]*Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	return s.repo.ListByUserID(ctx, userID)
}

// Resolve marks a user's alert as resolved after verifying ownership.
func (s *Service) Resolve(ctx context.Context, alertID, userID string) error {
	a, err := s.repo.GetByID(ctx, alertID)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return ErrAlertNotFound
	}
	return s.repo.MarkResolved(ctx, alertID)
}

// Delete removes a user's alert after verifying ownership.
func (s *Service) Delete(ctx context.Context, alertID, userID string) error {
	a, err := s.repo.GetByID(ctx, alertID)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return ErrAlertNotFound
	}
	return s.repo.Delete(ctx, alertID)
}

// InsightsFromAlerts formats unresolved alerts for the insight feed. The
// scoring already happened upstream; this is presentation only.
func InsightsFromAlerts(alerts []*Alert) []analytics.Insight {
	var insights []analytics.Insight
	for _, a := range alerts {
		if a.IsResolved {
			continue
		}
		insights = append(insights, analytics.Insight{
			Severity: analytics.SeverityWarning,
			Title:    fmt.Sprintf("Anomaly detected (%s risk)", a.RiskLevel),
			Message:  a.Message,
		})
	}
	return insights
}
