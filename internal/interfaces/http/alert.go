package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"finpath/internal/domain/alert"
	"finpath/internal/shared/middleware"
)

type AlertHandler struct {
	alertService *alert.Service

	// agentAPIKey authenticates the external anomaly agent on the ingest
	// endpoint; agent calls carry no user JWT
	agentAPIKey string
}

func NewAlertHandler(alertService *alert.Service, agentAPIKey string) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		agentAPIKey:  agentAPIKey,
	}
}

type IngestAlertRequest struct {
	UserID        string `json:"userId"`
	TransactionID string `json:"transactionId,omitempty"`
	Category      string `json:"category,omitempty"`
	RiskLevel     string `json:"riskLevel"`
	Message       string `json:"message"`
}

// HandleIngest accepts an anomaly verdict from the external agent, stores it,
// and triggers the push notification for high-risk alerts. Authenticated by
// API key, not user JWT.
func (h *AlertHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.agentAPIKey == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get("X-API-Key")), []byte(h.agentAPIKey)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req IngestAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a, err := h.alertService.Ingest(r.Context(), alert.IngestParams{
		UserID:        req.UserID,
		TransactionID: req.TransactionID,
		Category:      req.Category,
		RiskLevel:     req.RiskLevel,
		Message:       req.Message,
	})
	if err != nil {
		if errors.Is(err, alert.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error ingesting alert for user %s: %v", req.UserID, err)
		http.Error(w, "Failed to ingest alert", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

// HandleListAlerts returns the authenticated user's alerts, newest first
func (h *AlertHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	alerts, err := h.alertService.ListAlerts(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing alerts for user %s: %v", userID, err)
		http.Error(w, "Failed to list alerts", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []*alert.Alert{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

// HandleAlert handles a single alert:
//
//	POST   /api/alerts/{id}/resolve
//	DELETE /api/alerts/{id}
func (h *AlertHandler) HandleAlert(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	alertID, sub, _ := strings.Cut(rest, "/")
	if alertID == "" {
		http.Error(w, "Alert ID is required", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "resolve" && r.Method == http.MethodPost:
		if err := h.alertService.Resolve(r.Context(), alertID, userID); err != nil {
			writeAlertError(w, alertID, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case sub == "" && r.Method == http.MethodDelete:
		if err := h.alertService.Delete(r.Context(), alertID, userID); err != nil {
			writeAlertError(w, alertID, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeAlertError(w http.ResponseWriter, alertID string, err error) {
	switch {
	case errors.Is(err, alert.ErrAlertNotFound):
		http.Error(w, "Alert not found", http.StatusNotFound)
	case errors.Is(err, alert.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Alert operation failed for alert %s: %v", alertID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
