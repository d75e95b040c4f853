package goal

import "context"

// Repository defines the interface for goal data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// Create persists a new goal
	Create(ctx context.Context, g *Goal) error

	// GetByID retrieves a goal by its ID
	GetByID(ctx context.Context, id string) (*Goal, error)

	// ListByUserID retrieves all goals for a specific user
	ListByUserID(ctx context.Context, userID string) ([]*Goal, error)

	// Update persists the full goal entity
	Update(ctx context.Context, g *Goal) error

	// UpdateMonthlyContribution writes a single goal's derived contribution.
	// Used by rebalancing, which applies per-goal writes last-write-wins.
	UpdateMonthlyContribution(ctx context.Context, id string, contribution float64) error

	// Delete removes a goal
	Delete(ctx context.Context, id string) error
}

// ContributionRepository records confirmed payment events for audit/history.
type ContributionRepository interface {
	Record(ctx context.Context, c *Contribution) error
	ListByGoalID(ctx context.Context, goalID string) ([]*Contribution, error)
}

// ReminderRepository stores payment reminder state. Upsert creates the record
// when the reminder pipeline has not written it yet.
type ReminderRepository interface {
	Upsert(ctx context.Context, rem *Reminder) error
}

// Analyzer is the opaque feasibility analysis collaborator (the AI coach
// backend). The engine only consumes its structured verdict.
type Analyzer interface {
	AnalyzeGoal(ctx context.Context, g *Goal, trigger string) (*AnalysisResult, error)
}

// AnalysisResult is the analyzer's structured verdict on a goal.
type AnalysisResult struct {
	Feasible            bool     `json:"feasible"`
	RiskLevel           string   `json:"risk_level"`
	CompletionMonths    int      `json:"completion_months"`
	MonthlyContribution float64  `json:"monthly_contribution"`
	Insights            string   `json:"ai_insights"`
	Recommendations     []string `json:"recommendations"`
}
