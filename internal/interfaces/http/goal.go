package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"finpath/internal/domain/analytics"
	"finpath/internal/domain/goal"
	"finpath/internal/domain/ledger"
	"finpath/internal/interfaces/scheduler"
	"finpath/internal/shared/middleware"
)

// JobSubmitter queues background jobs. Satisfied by the scheduler.
type JobSubmitter interface {
	SubmitJob(job scheduler.Job) error
}

type GoalHandler struct {
	goalService *goal.Service
	ledgerRepo  ledger.Repository
	analyzer    goal.Analyzer
	jobs        JobSubmitter

	// now is injected so the savings-baseline period is deterministic under test
	now func() time.Time
}

func NewGoalHandler(goalService *goal.Service, ledgerRepo ledger.Repository, analyzer goal.Analyzer, jobs JobSubmitter) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
		ledgerRepo:  ledgerRepo,
		analyzer:    analyzer,
		jobs:        jobs,
		now:         time.Now,
	}
}

type CreateGoalRequest struct {
	Title                   string   `json:"title"`
	Description             string   `json:"description,omitempty"`
	TargetAmount            float64  `json:"targetAmount"`
	CurrentAmount           float64  `json:"currentAmount,omitempty"`
	DurationMonths          *int     `json:"durationMonths,omitempty"`
	Priority                string   `json:"priority,omitempty"`
	Category                string   `json:"category,omitempty"`
	Deadline                *string  `json:"deadline,omitempty"` // YYYY-MM-DD
	AvailableMonthlySavings *float64 `json:"availableMonthlySavings,omitempty"`
}

type UpdateGoalRequest struct {
	Title                   *string  `json:"title,omitempty"`
	Description             *string  `json:"description,omitempty"`
	TargetAmount            *float64 `json:"targetAmount,omitempty"`
	CurrentAmount           *float64 `json:"currentAmount,omitempty"`
	DurationMonths          *int     `json:"durationMonths,omitempty"`
	Priority                *string  `json:"priority,omitempty"`
	Category                *string  `json:"category,omitempty"`
	Deadline                *string  `json:"deadline,omitempty"`
	AvailableMonthlySavings *float64 `json:"availableMonthlySavings,omitempty"`
}

type ConfirmPaymentRequest struct {
	Amount  float64 `json:"amount"`
	DueDate string  `json:"dueDate"`
}

type RebalanceRequest struct {
	AvailableMonthlySavings *float64 `json:"availableMonthlySavings,omitempty"`
}

// HandleGoals handles the goal collection: POST creates, GET lists
func (h *GoalHandler) HandleGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.handleCreateGoal(w, r, userID)
	case http.MethodGet:
		h.handleListGoals(w, r, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *GoalHandler) handleCreateGoal(w http.ResponseWriter, r *http.Request, userID string) {
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	priority, err := goal.ParsePriority(req.Priority)
	if err != nil {
		http.Error(w, "Priority must be high, medium, or low", http.StatusBadRequest)
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		http.Error(w, "Invalid deadline format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	if req.AvailableMonthlySavings != nil && *req.AvailableMonthlySavings < 0 {
		http.Error(w, "availableMonthlySavings cannot be negative", http.StatusBadRequest)
		return
	}

	g, err := h.goalService.CreateGoal(r.Context(), goal.CreateParams{
		UserID:                  userID,
		Title:                   req.Title,
		Description:             req.Description,
		TargetAmount:            req.TargetAmount,
		CurrentAmount:           req.CurrentAmount,
		DurationMonths:          req.DurationMonths,
		Priority:                priority,
		Category:                req.Category,
		Deadline:                deadline,
		AvailableMonthlySavings: h.resolveMonthlySavings(r.Context(), userID, req.AvailableMonthlySavings),
	})
	if err != nil {
		if errors.Is(err, goal.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error creating goal for user %s: %v", userID, err)
		http.Error(w, "Failed to create goal", http.StatusInternalServerError)
		return
	}

	h.submitAnalysis(userID, g.ID, "created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(g)
}

func (h *GoalHandler) handleListGoals(w http.ResponseWriter, r *http.Request, userID string) {
	goals, err := h.goalService.ListGoals(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing goals for user %s: %v", userID, err)
		http.Error(w, "Failed to list goals", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(goals)
}

// HandleGoal handles a single goal and its sub-resources:
//
//	GET    /api/goals/{id}
//	PATCH  /api/goals/{id}
//	DELETE /api/goals/{id}
//	POST   /api/goals/{id}/confirm-payment
//	GET    /api/goals/{id}/contributions
func (h *GoalHandler) HandleGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/goals/")
	goalID, sub, _ := strings.Cut(rest, "/")
	if goalID == "" {
		http.Error(w, "Goal ID is required", http.StatusBadRequest)
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.handleGetGoal(w, r, goalID, userID)
		case http.MethodPatch:
			h.handleUpdateGoal(w, r, goalID, userID)
		case http.MethodDelete:
			h.handleDeleteGoal(w, r, goalID, userID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "confirm-payment":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleConfirmPayment(w, r, goalID, userID)
	case "contributions":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleContributions(w, r, goalID, userID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *GoalHandler) handleGetGoal(w http.ResponseWriter, r *http.Request, goalID, userID string) {
	g, err := h.goalService.GetGoal(r.Context(), goalID, userID)
	if err != nil {
		writeGoalError(w, goalID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

func (h *GoalHandler) handleUpdateGoal(w http.ResponseWriter, r *http.Request, goalID, userID string) {
	var req UpdateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.AvailableMonthlySavings != nil && *req.AvailableMonthlySavings < 0 {
		http.Error(w, "availableMonthlySavings cannot be negative", http.StatusBadRequest)
		return
	}

	params := goal.UpdateParams{
		Title:                   req.Title,
		Description:             req.Description,
		TargetAmount:            req.TargetAmount,
		CurrentAmount:           req.CurrentAmount,
		DurationMonths:          req.DurationMonths,
		Category:                req.Category,
		AvailableMonthlySavings: h.resolveMonthlySavings(r.Context(), userID, req.AvailableMonthlySavings),
	}

	if req.Priority != nil {
		priority, err := goal.ParsePriority(*req.Priority)
		if err != nil {
			http.Error(w, "Priority must be high, medium, or low", http.StatusBadRequest)
			return
		}
		params.Priority = &priority
	}

	if req.Deadline != nil {
		deadline, err := parseDeadline(req.Deadline)
		if err != nil {
			http.Error(w, "Invalid deadline format (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		params.Deadline = deadline
	}

	g, err := h.goalService.UpdateGoal(r.Context(), goalID, userID, params)
	if err != nil {
		if errors.Is(err, goal.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeGoalError(w, goalID, err)
		return
	}

	h.submitAnalysis(userID, g.ID, "updated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

func (h *GoalHandler) handleDeleteGoal(w http.ResponseWriter, r *http.Request, goalID, userID string) {
	if err := h.goalService.DeleteGoal(r.Context(), goalID, userID); err != nil {
		writeGoalError(w, goalID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) handleConfirmPayment(w http.ResponseWriter, r *http.Request, goalID, userID string) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	g, err := h.goalService.ConfirmPayment(r.Context(), goalID, userID, req.DueDate, req.Amount)
	if err != nil {
		if errors.Is(err, goal.ErrInvalidPaymentInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeGoalError(w, goalID, err)
		return
	}

	h.submitAnalysis(userID, g.ID, "updated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

func (h *GoalHandler) handleContributions(w http.ResponseWriter, r *http.Request, goalID, userID string) {
	contributions, err := h.goalService.ContributionHistory(r.Context(), goalID, userID)
	if err != nil {
		writeGoalError(w, goalID, err)
		return
	}
	if contributions == nil {
		contributions = []*goal.Contribution{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contributions)
}

// HandleRebalance redistributes monthly contributions across all of the
// user's goals by priority weight. Per-goal write failures are reported with
// 207 Multi-Status rather than failing the whole batch.
func (h *GoalHandler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AvailableMonthlySavings != nil && *req.AvailableMonthlySavings < 0 {
		http.Error(w, "availableMonthlySavings cannot be negative", http.StatusBadRequest)
		return
	}

	result, err := h.goalService.ApplyRebalance(r.Context(), userID, h.resolveMonthlySavings(r.Context(), userID, req.AvailableMonthlySavings))
	if err != nil {
		var partial *goal.PartialRebalanceError
		if errors.As(err, &partial) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusMultiStatus)
			json.NewEncoder(w).Encode(result)
			return
		}
		log.Printf("Error rebalancing goals for user %s: %v", userID, err)
		http.Error(w, "Failed to rebalance goals", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// resolveMonthlySavings returns the caller-supplied savings baseline, or
// derives one from the previous calendar month's net savings in the ledger
// when the request omits the field. A user with no ledger history (or a
// deficit month) falls back to zero.
func (h *GoalHandler) resolveMonthlySavings(ctx context.Context, userID string, explicit *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	if h.ledgerRepo == nil {
		return 0
	}

	period := analytics.PeriodOf(h.now().UTC()).Previous(1)
	since := time.Date(period.Year, period.Month, 1, 0, 0, 0, 0, time.UTC)
	txns, err := h.ledgerRepo.ListByUserIDSince(ctx, userID, since)
	if err != nil {
		log.Printf("Error deriving savings baseline for user %s: %v", userID, err)
		return 0
	}

	agg := analytics.Aggregate(txns, period)
	if agg == nil || agg.TotalSavings <= 0 {
		return 0
	}
	return agg.TotalSavings
}

// submitAnalysis queues a background analysis run. Queue-full is logged, not
// surfaced: the goal itself was already written.
func (h *GoalHandler) submitAnalysis(userID, goalID, trigger string) {
	if h.jobs == nil || h.analyzer == nil {
		return
	}
	job := scheduler.NewGoalAnalysisJob(userID, goalID, trigger, h.goalService, h.analyzer)
	if err := h.jobs.SubmitJob(job); err != nil {
		log.Printf("Failed to queue analysis for goal %s: %v", goalID, err)
	}
}

func writeGoalError(w http.ResponseWriter, goalID string, err error) {
	switch {
	case errors.Is(err, goal.ErrGoalNotFound):
		http.Error(w, "Goal not found", http.StatusNotFound)
	case errors.Is(err, goal.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		log.Printf("Goal operation failed for goal %s: %v", goalID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func parseDeadline(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
