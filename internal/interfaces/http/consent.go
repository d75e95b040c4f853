package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"finpath/internal/domain/consent"
	"finpath/internal/interfaces/scheduler"
	"finpath/internal/shared/middleware"
)

type ConsentHandler struct {
	syncService *consent.SyncService
	jobs        JobSubmitter
}

func NewConsentHandler(syncService *consent.SyncService, jobs JobSubmitter) *ConsentHandler {
	return &ConsentHandler{
		syncService: syncService,
		jobs:        jobs,
	}
}

type InitiateConsentRequest struct {
	Mobile string `json:"mobile"`
}

// HandleConsents handles the consent collection: POST initiates a new
// bank-linking flow with the aggregator, GET lists the user's consents
func (h *ConsentHandler) HandleConsents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.handleInitiate(w, r, userID)
	case http.MethodGet:
		h.handleList(w, r, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConsentHandler) handleInitiate(w http.ResponseWriter, r *http.Request, userID string) {
	var req InitiateConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Mobile) == "" {
		http.Error(w, "Mobile number is required", http.StatusBadRequest)
		return
	}

	c, err := h.syncService.InitiateConsent(r.Context(), userID, req.Mobile)
	if err != nil {
		log.Printf("Error initiating consent for user %s: %v", userID, err)
		http.Error(w, "Failed to initiate consent", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *ConsentHandler) handleList(w http.ResponseWriter, r *http.Request, userID string) {
	consents, err := h.syncService.ListConsents(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing consents for user %s: %v", userID, err)
		http.Error(w, "Failed to list consents", http.StatusInternalServerError)
		return
	}
	if consents == nil {
		consents = []*consent.Consent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(consents)
}

// HandleConsent handles a single consent:
//
//	GET  /api/consents/{id}       refreshes and returns the aggregator status
//	POST /api/consents/{id}/sync  queues an immediate transaction sync
func (h *ConsentHandler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/consents/")
	consentID, sub, _ := strings.Cut(rest, "/")
	if consentID == "" {
		http.Error(w, "Consent ID is required", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.handleStatus(w, r, consentID, userID)
	case sub == "sync" && r.Method == http.MethodPost:
		h.handleSync(w, r, consentID, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConsentHandler) handleStatus(w http.ResponseWriter, r *http.Request, consentID, userID string) {
	c, err := h.syncService.RefreshStatus(r.Context(), consentID)
	if err != nil {
		if errors.Is(err, consent.ErrConsentNotFound) {
			http.Error(w, "Consent not found", http.StatusNotFound)
			return
		}
		log.Printf("Error refreshing consent %s: %v", consentID, err)
		http.Error(w, "Failed to refresh consent status", http.StatusBadGateway)
		return
	}

	if c.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (h *ConsentHandler) handleSync(w http.ResponseWriter, r *http.Request, consentID, userID string) {
	// Verify ownership before queueing
	c, err := h.syncService.GetConsent(r.Context(), consentID)
	if err != nil {
		if errors.Is(err, consent.ErrConsentNotFound) {
			http.Error(w, "Consent not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading consent %s: %v", consentID, err)
		http.Error(w, "Failed to verify consent", http.StatusInternalServerError)
		return
	}
	if c.UserID != userID {
		http.Error(w, "Consent not found", http.StatusNotFound)
		return
	}

	if h.jobs == nil {
		http.Error(w, "Background sync is disabled", http.StatusServiceUnavailable)
		return
	}
	job := scheduler.NewConsentSyncJob(userID, consentID, h.syncService)
	if err := h.jobs.SubmitJob(job); err != nil {
		log.Printf("Failed to queue sync for consent %s: %v", consentID, err)
		http.Error(w, "Sync queue is full, try again later", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "sync_queued"})
}

type ConsentWebhookRequest struct {
	ConsentID string `json:"consentId"`
	Status    string `json:"status"`
}

// HandleWebhook receives consent lifecycle notifications from the aggregator.
// An ACTIVE transition queues the first transaction sync.
func (h *ConsentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConsentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConsentID == "" || req.Status == "" {
		http.Error(w, "consentId and status are required", http.StatusBadRequest)
		return
	}

	if err := h.syncService.UpdateStatus(r.Context(), req.ConsentID, req.Status); err != nil {
		if errors.Is(err, consent.ErrConsentNotFound) {
			http.Error(w, "Consent not found", http.StatusNotFound)
			return
		}
		log.Printf("Error updating consent %s from webhook: %v", req.ConsentID, err)
		http.Error(w, "Failed to update consent", http.StatusInternalServerError)
		return
	}

	if h.jobs != nil && strings.EqualFold(req.Status, consent.StatusActive) {
		// The webhook carries no user context; resolve it from the record
		c, err := h.syncService.GetConsent(r.Context(), req.ConsentID)
		if err != nil {
			log.Printf("Error loading consent %s after webhook: %v", req.ConsentID, err)
		} else {
			job := scheduler.NewConsentSyncJob(c.UserID, c.ID, h.syncService)
			if err := h.jobs.SubmitJob(job); err != nil {
				log.Printf("Failed to queue first sync for consent %s: %v", c.ID, err)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}
