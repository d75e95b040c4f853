package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"finpath/internal/domain/alert"
	"finpath/internal/domain/analytics"
	"finpath/internal/domain/ledger"
	"finpath/internal/shared/middleware"
)

// trailingWindowCap bounds the trailing series so a bad query parameter
// cannot request decades of months.
const trailingWindowCap = 36

// SummaryHandler serves the derived aggregation surfaces: monthly rollups,
// trailing series, category breakdowns, budget status and the insight feed.
// Everything here is recomputed from the ledger on demand.
type SummaryHandler struct {
	ledgerRepo    ledger.Repository
	alertService  *alert.Service
	budgetRatios  analytics.BudgetRatios
	insightConfig analytics.InsightConfig

	// now is injected so period defaults are deterministic under test
	now func() time.Time
}

func NewSummaryHandler(ledgerRepo ledger.Repository, alertService *alert.Service) *SummaryHandler {
	return &SummaryHandler{
		ledgerRepo:    ledgerRepo,
		alertService:  alertService,
		budgetRatios:  analytics.DefaultBudgetRatios(),
		insightConfig: analytics.DefaultInsightConfig(),
		now:           time.Now,
	}
}

type MonthlySummaryResponse struct {
	Period analytics.Period `json:"period"`
	// Summary is null when the ledger has no data for the period; a month
	// with no transactions is not the same as a month that nets to zero
	Summary *analytics.MonthlyAggregate `json:"summary"`
}

// HandleMonthlySummary returns the income/expense/savings rollup for one
// calendar month (the current month unless year and month are given)
func (h *SummaryHandler) HandleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	_, period, txns, ok := h.loadPeriod(w, r)
	if !ok {
		return
	}

	resp := MonthlySummaryResponse{
		Period:  period,
		Summary: analytics.Aggregate(txns, period),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleTrailingSummary returns per-month income/expense points for the
// trailing N months ending at the current month, oldest first
func (h *SummaryHandler) HandleTrailingSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	months := 6
	if monthsStr := r.URL.Query().Get("months"); monthsStr != "" {
		parsed, err := strconv.Atoi(monthsStr)
		if err != nil || parsed <= 0 || parsed > trailingWindowCap {
			http.Error(w, "months must be between 1 and 36", http.StatusBadRequest)
			return
		}
		months = parsed
	}

	anchor := h.now()
	since := time.Date(anchor.Year(), anchor.Month()-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)

	txns, err := h.ledgerRepo.ListByUserIDSince(r.Context(), userID, since)
	if err != nil {
		log.Printf("Error loading transactions for trailing summary (user %s): %v", userID, err)
		http.Error(w, "Failed to load transactions", http.StatusInternalServerError)
		return
	}

	points := analytics.AggregateTrailing(txns, months, anchor)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

// HandleCategoryBreakdown returns debit totals by category for one month
func (h *SummaryHandler) HandleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	_, period, txns, ok := h.loadPeriod(w, r)
	if !ok {
		return
	}

	breakdown := analytics.CategoryBreakdown(txns, period)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(breakdown)
}

type BudgetStatusResponse struct {
	Period analytics.Period       `json:"period"`
	Ratios analytics.BudgetRatios `json:"ratios"`
	// Buckets is null when the period has no ledger data
	Buckets []analytics.BucketStatus `json:"buckets"`
}

// HandleBudgetStatus maps the month's aggregate onto the needs/wants/savings
// allocation model. Custom ratios may be passed as query parameters and must
// sum close to 1.
func (h *SummaryHandler) HandleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	_, period, txns, ok := h.loadPeriod(w, r)
	if !ok {
		return
	}

	ratios, err := parseBudgetRatios(r, h.budgetRatios)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	agg := analytics.Aggregate(txns, period)
	resp := BudgetStatusResponse{
		Period:  period,
		Ratios:  ratios,
		Buckets: analytics.TrackBudget(agg, ratios),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleInsights returns the month's advisory feed: rule-derived insights
// from the aggregation engine plus unresolved anomaly alerts rendered as
// warnings.
func (h *SummaryHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	userID, period, txns, ok := h.loadPeriod(w, r)
	if !ok {
		return
	}

	agg := analytics.Aggregate(txns, period)
	insights := analytics.GenerateInsights(agg, txns, h.insightConfig)

	alerts, err := h.alertService.ListAlerts(r.Context(), userID)
	if err != nil {
		// The derived feed is still useful without the alert feed
		log.Printf("Error listing alerts for insight feed (user %s): %v", userID, err)
	} else {
		insights = append(insights, alert.InsightsFromAlerts(alerts)...)
	}

	if insights == nil {
		insights = []analytics.Insight{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(insights)
}

// loadPeriod authenticates the request, resolves the requested calendar
// period, and loads that period's transactions. Reports false after writing
// an error response.
func (h *SummaryHandler) loadPeriod(w http.ResponseWriter, r *http.Request) (string, analytics.Period, []ledger.Transaction, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", analytics.Period{}, nil, false
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", analytics.Period{}, nil, false
	}

	period, err := h.parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", analytics.Period{}, nil, false
	}

	since := time.Date(period.Year, period.Month, 1, 0, 0, 0, 0, time.UTC)
	txns, err := h.ledgerRepo.ListByUserIDSince(r.Context(), userID, since)
	if err != nil {
		log.Printf("Error loading transactions for user %s: %v", userID, err)
		http.Error(w, "Failed to load transactions", http.StatusInternalServerError)
		return "", analytics.Period{}, nil, false
	}

	return userID, period, txns, true
}

// parsePeriod reads year/month query parameters, defaulting to the current
// calendar month
func (h *SummaryHandler) parsePeriod(r *http.Request) (analytics.Period, error) {
	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")

	if yearStr == "" && monthStr == "" {
		return analytics.PeriodOf(h.now()), nil
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1970 || year > 9999 {
		return analytics.Period{}, errInvalidPeriod
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return analytics.Period{}, errInvalidPeriod
	}

	return analytics.Period{Year: year, Month: time.Month(month)}, nil
}

var errInvalidPeriod = errValue("year and month query parameters must form a valid calendar month")

type errValue string

func (e errValue) Error() string { return string(e) }

func parseBudgetRatios(r *http.Request, defaults analytics.BudgetRatios) (analytics.BudgetRatios, error) {
	needsStr := r.URL.Query().Get("needs")
	wantsStr := r.URL.Query().Get("wants")
	savingsStr := r.URL.Query().Get("savings")

	if needsStr == "" && wantsStr == "" && savingsStr == "" {
		return defaults, nil
	}
	if needsStr == "" || wantsStr == "" || savingsStr == "" {
		return analytics.BudgetRatios{}, errValue("needs, wants, and savings ratios must all be provided")
	}

	needs, err1 := strconv.ParseFloat(needsStr, 64)
	wants, err2 := strconv.ParseFloat(wantsStr, 64)
	savings, err3 := strconv.ParseFloat(savingsStr, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return analytics.BudgetRatios{}, errValue("ratios must be numeric")
	}
	if needs < 0 || wants < 0 || savings < 0 {
		return analytics.BudgetRatios{}, errValue("ratios cannot be negative")
	}

	return analytics.BudgetRatios{Needs: needs, Wants: wants, Savings: savings}, nil
}
