package goal

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrGoalNotFound        = errors.New("goal not found")
	ErrForbidden           = errors.New("access forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidPaymentInput = errors.New("invalid payment input")
	ErrInvalidPriority     = errors.New("invalid priority")
)

// Priority ranks a goal. Two numeric scales hang off it: ContributionWeight
// feeds the single-goal contribution cap, RebalanceScore feeds the
// cross-goal share split. They are intentionally different scales serving
// different operations; do not merge them.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority parses a priority string, defaulting empty input to medium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium", "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return "", ErrInvalidPriority
	}
}

// ContributionWeight is the fraction of available monthly savings a single
// goal of this priority may claim.
func (p Priority) ContributionWeight() float64 {
	switch p {
	case PriorityHigh:
		return 0.6
	case PriorityLow:
		return 0.25
	default:
		return 0.4
	}
}

// RebalanceScore is the relative share weight used when splitting savings
// across all active goals.
func (p Priority) RebalanceScore() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// rank orders priorities for display: high before medium before low.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// RiskLevel is the analyzer's verdict on a goal's feasibility risk.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// Goal is a user-owned savings target. CurrentAmount is stored unclamped:
// exceeding TargetAmount means "achieved", and any clamping to 100% is a
// presentation concern, not a storage rule.
type Goal struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"userId"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	TargetAmount        float64    `json:"targetAmount"`
	CurrentAmount       float64    `json:"currentAmount"`
	DurationMonths      *int       `json:"durationMonths,omitempty"`
	Priority            Priority   `json:"priority"`
	Category            string     `json:"category,omitempty"`
	Deadline            *time.Time `json:"deadline,omitempty"`
	MonthlyContribution float64    `json:"monthlyContribution"`

	// Analyzer-owned fields. Feasible is tri-state: nil while analysis is
	// in flight, then a definite answer.
	Feasible         *bool     `json:"feasible,omitempty"`
	RiskLevel        RiskLevel `json:"riskLevel,omitempty"`
	CompletionMonths int       `json:"completionMonths,omitempty"`
	Analyzing        bool      `json:"analyzing"`
	AnalysisError    string    `json:"analysisError,omitempty"`
	Insights         string    `json:"insights,omitempty"`
	Recommendations  []string  `json:"recommendations,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Remaining is the amount still to be saved, floored at zero for goals that
// have overshot their target.
func (g *Goal) Remaining() float64 {
	if g.CurrentAmount >= g.TargetAmount {
		return 0
	}
	return g.TargetAmount - g.CurrentAmount
}

// Achieved reports whether the goal has reached (or exceeded) its target.
func (g *Goal) Achieved() bool {
	return g.CurrentAmount >= g.TargetAmount
}

// CreateParams contains parameters for creating a new goal.
type CreateParams struct {
	UserID         string
	Title          string
	Description    string
	TargetAmount   float64
	CurrentAmount  float64
	DurationMonths *int
	Priority       Priority
	Category       string
	Deadline       *time.Time

	// AvailableMonthlySavings is the caller-supplied savings baseline used to
	// derive the initial monthly contribution.
	AvailableMonthlySavings float64
}

// Validate validates the create parameters.
func (p CreateParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("goal title is required")
	}
	if p.TargetAmount <= 0 {
		return errors.New("target amount must be positive")
	}
	if p.CurrentAmount < 0 {
		return errors.New("current amount cannot be negative")
	}
	if p.DurationMonths != nil && *p.DurationMonths <= 0 {
		return errors.New("duration months must be positive when set")
	}
	return nil
}

// UpdateParams contains parameters for updating a goal. Nil fields are left
// unchanged.
type UpdateParams struct {
	Title          *string
	Description    *string
	TargetAmount   *float64
	CurrentAmount  *float64
	DurationMonths *int
	Priority       *Priority
	Category       *string
	Deadline       *time.Time

	AvailableMonthlySavings float64
}

// Contribution is a confirmed payment event against a goal, recorded for
// audit/history.
type Contribution struct {
	ID          string    `json:"id"`
	GoalID      string    `json:"goalId"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"`
	DueDate     time.Time `json:"dueDate"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// ReminderStatusCompleted marks a payment reminder the user has acted on.
const ReminderStatusCompleted = "completed"

// Reminder is a scheduled-payment marker for a goal. Reminders are generated
// and delivered by the backend notification pipeline; this engine only
// completes the one matching a confirmed payment.
type Reminder struct {
	ID        string    `json:"id"` // "{goalID}_{YYYY-MM-DD}"
	GoalID    string    `json:"goalId"`
	UserID    string    `json:"userId"`
	DueDate   time.Time `json:"dueDate"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReminderID derives the deterministic reminder key for a goal's due date, so
// confirming a payment lands on the same record the reminder pipeline wrote.
func ReminderID(goalID string, dueDate time.Time) string {
	return goalID + "_" + dueDate.Format("2006-01-02")
}
