package goal

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// paymentDateLayouts are accepted for confirm-payment due dates.
var paymentDateLayouts = []string{time.RFC3339, "2006-01-02"}

// Service contains the business logic for goal operations.
type Service struct {
	repo          Repository
	contributions ContributionRepository
	reminders     ReminderRepository
}

// NewService creates a new goal service. The reminder repository may be nil;
// without it confirm-payment skips the reminder completion write.
func NewService(repo Repository, contributions ContributionRepository, reminders ReminderRepository) *Service {
	return &Service{repo: repo, contributions: contributions, reminders: reminders}
}

// CreateGoal creates a goal with a derived monthly contribution and marks it
// pending analysis (Feasible stays nil until the analyzer reports back).
func (s *Service) CreateGoal(ctx context.Context, params CreateParams) (*Goal, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	now := time.Now().UTC()
	g := &Goal{
		ID:             uuid.New().String(),
		UserID:         params.UserID,
		Title:          strings.TrimSpace(params.Title),
		Description:    params.Description,
		TargetAmount:   params.TargetAmount,
		CurrentAmount:  params.CurrentAmount,
		DurationMonths: params.DurationMonths,
		Priority:       priority,
		Category:       params.Category,
		Deadline:       params.Deadline,
		RiskLevel:      RiskUnknown,
		Analyzing:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	g.MonthlyContribution = ComputeMonthlyContribution(g, params.AvailableMonthlySavings)

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return g, nil
}

// GetGoal retrieves a goal and verifies user ownership.
func (s *Service) GetGoal(ctx context.Context, goalID, userID string) (*Goal, error) {
	g, err := s.repo.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if g.UserID != userID {
		return nil, ErrForbidden
	}
	return g, nil
}

// ListGoals returns the user's goals in display order.
func (s *Service) ListGoals(ctx context.Context, userID string) ([]*Goal, error) {
	goals, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SortForDisplay(goals), nil
}

// UpdateGoal applies an edit, recomputes the derived contribution, and marks
// the goal pending re-analysis.
func (s *Service) UpdateGoal(ctx context.Context, goalID, userID string, params UpdateParams) (*Goal, error) {
	g, err := s.GetGoal(ctx, goalID, userID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		if strings.TrimSpace(*params.Title) == "" {
			return nil, fmt.Errorf("%w: goal title is required", ErrInvalidInput)
		}
		g.Title = strings.TrimSpace(*params.Title)
	}
	if params.Description != nil {
		g.Description = *params.Description
	}
	if params.TargetAmount != nil {
		if *params.TargetAmount <= 0 {
			return nil, fmt.Errorf("%w: target amount must be positive", ErrInvalidInput)
		}
		g.TargetAmount = *params.TargetAmount
	}
	if params.CurrentAmount != nil {
		// Explicit corrections may move the amount down; normal progress only
		// ever increases it via ConfirmPayment.
		if *params.CurrentAmount < 0 {
			return nil, fmt.Errorf("%w: current amount cannot be negative", ErrInvalidInput)
		}
		g.CurrentAmount = *params.CurrentAmount
	}
	if params.DurationMonths != nil {
		if *params.DurationMonths <= 0 {
			return nil, fmt.Errorf("%w: duration months must be positive", ErrInvalidInput)
		}
		g.DurationMonths = params.DurationMonths
	}
	if params.Priority != nil {
		g.Priority = *params.Priority
	}
	if params.Category != nil {
		g.Category = *params.Category
	}
	if params.Deadline != nil {
		g.Deadline = params.Deadline
	}

	g.MonthlyContribution = ComputeMonthlyContribution(g, params.AvailableMonthlySavings)
	g.Analyzing = true
	g.Feasible = nil
	g.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	return g, nil
}

// DeleteGoal deletes a goal after verifying ownership.
func (s *Service) DeleteGoal(ctx context.Context, goalID, userID string) error {
	if _, err := s.GetGoal(ctx, goalID, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, goalID)
}

// ConfirmPayment increases a goal's saved amount by a confirmed contribution,
// records the event for history, and completes the matching payment reminder.
// The amount is added without an upper clamp: a goal past its target reads as
// achieved, not capped.
func (s *Service) ConfirmPayment(ctx context.Context, goalID, userID, dueDate string, amount float64) (*Goal, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPaymentInput)
	}
	due, err := parsePaymentDate(dueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentInput, err)
	}

	g, err := s.GetGoal(ctx, goalID, userID)
	if err != nil {
		return nil, err
	}

	g.CurrentAmount += amount
	g.Analyzing = true
	g.Feasible = nil
	g.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}

	contribution := &Contribution{
		ID:          uuid.New().String(),
		GoalID:      g.ID,
		UserID:      userID,
		Amount:      amount,
		DueDate:     due,
		ConfirmedAt: time.Now().UTC(),
	}
	if err := s.contributions.Record(ctx, contribution); err != nil {
		// The payment itself has been applied; a failed audit record is
		// logged, not unwound.
		log.Printf("Warning: failed to record contribution for goal %s: %v", g.ID, err)
	}

	if s.reminders != nil {
		reminder := &Reminder{
			ID:        ReminderID(g.ID, due),
			GoalID:    g.ID,
			UserID:    userID,
			DueDate:   due,
			Status:    ReminderStatusCompleted,
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.reminders.Upsert(ctx, reminder); err != nil {
			log.Printf("Warning: failed to complete reminder %s: %v", reminder.ID, err)
		}
	}

	return g, nil
}

// RebalanceResult reports a batch contribution rebalance.
type RebalanceResult struct {
	Allocations []Allocation `json:"allocations"`
	Succeeded   []string     `json:"succeeded"`
	Failed      []string     `json:"failed,omitempty"`
}

// PartialRebalanceError reports a rebalance where some per-goal writes
// failed. Applied updates are not rolled back; the store resolves concurrent
// writes last-write-wins.
type PartialRebalanceError struct {
	Succeeded []string
	Failed    map[string]error
}

func (e *PartialRebalanceError) Error() string {
	return fmt.Sprintf("rebalance partially failed: %d succeeded, %d failed", len(e.Succeeded), len(e.Failed))
}

// ApplyRebalance computes priority-weighted allocations for all of the
// user's goals and persists each goal's new contribution as an independent
// write. Returns a PartialRebalanceError listing per-goal outcomes when any
// write fails.
func (s *Service) ApplyRebalance(ctx context.Context, userID string, availableMonthlySavings float64) (*RebalanceResult, error) {
	goals, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals for rebalance: %w", err)
	}

	allocations := Rebalance(goals, availableMonthlySavings)
	result := &RebalanceResult{Allocations: allocations}
	failed := make(map[string]error)

	for _, alloc := range allocations {
		if err := s.repo.UpdateMonthlyContribution(ctx, alloc.GoalID, alloc.Amount); err != nil {
			log.Printf("Rebalance: failed to update goal %s: %v", alloc.GoalID, err)
			failed[alloc.GoalID] = err
			result.Failed = append(result.Failed, alloc.GoalID)
			continue
		}
		result.Succeeded = append(result.Succeeded, alloc.GoalID)
	}

	if len(failed) > 0 {
		return result, &PartialRebalanceError{Succeeded: result.Succeeded, Failed: failed}
	}

	return result, nil
}

// ApplyAnalysis writes the analyzer's verdict onto a goal. When the stored
// contribution is zero the analyzer's figure fills it in; a user-set
// contribution is never overwritten by the analyzer.
func (s *Service) ApplyAnalysis(ctx context.Context, goalID string, res *AnalysisResult) error {
	g, err := s.repo.GetByID(ctx, goalID)
	if err != nil {
		return err
	}

	feasible := res.Feasible
	g.Feasible = &feasible
	g.RiskLevel = parseRiskLevel(res.RiskLevel)
	g.CompletionMonths = res.CompletionMonths
	g.Insights = res.Insights
	g.Recommendations = res.Recommendations
	g.Analyzing = false
	g.AnalysisError = ""
	if g.MonthlyContribution <= 0 && res.MonthlyContribution > 0 {
		g.MonthlyContribution = res.MonthlyContribution
	}
	g.UpdatedAt = time.Now().UTC()

	return s.repo.Update(ctx, g)
}

// MarkAnalysisFailed clears the in-flight flag and records the failure so the
// goal does not read as processing forever.
func (s *Service) MarkAnalysisFailed(ctx context.Context, goalID string, cause error) error {
	g, err := s.repo.GetByID(ctx, goalID)
	if err != nil {
		return err
	}

	g.Analyzing = false
	g.AnalysisError = cause.Error()
	g.UpdatedAt = time.Now().UTC()

	return s.repo.Update(ctx, g)
}

// ContributionHistory returns the confirmed payments for a goal, newest first.
func (s *Service) ContributionHistory(ctx context.Context, goalID, userID string) ([]*Contribution, error) {
	if _, err := s.GetGoal(ctx, goalID, userID); err != nil {
		return nil, err
	}

	contributions, err := s.contributions.ListByGoalID(ctx, goalID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].ConfirmedAt.After(contributions[j].ConfirmedAt)
	})
	return contributions, nil
}

func parsePaymentDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("due date is required")
	}
	for _, layout := range paymentDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable due date %q", s)
}

func parseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskUnknown
	}
}
