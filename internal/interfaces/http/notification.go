package http

import (
	"encoding/json"
	"log"
	"net/http"

	"finpath/internal/domain/notification"
	"finpath/internal/shared/middleware"
)

type NotificationHandler struct {
	tokenRepo notification.Repository
}

func NewNotificationHandler(tokenRepo notification.Repository) *NotificationHandler {
	return &NotificationHandler{tokenRepo: tokenRepo}
}

type RegisterTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"deviceType"`
}

type DeactivateTokenRequest struct {
	Token string `json:"token"`
}

// HandleRegisterToken registers or refreshes an FCM device token for the
// authenticated user
func (h *NotificationHandler) HandleRegisterToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := notification.CreateDeviceTokenParams{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: req.DeviceType,
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.tokenRepo.UpsertDeviceToken(r.Context(), params)
	if err != nil {
		log.Printf("Error registering device token for user %s: %v", userID, err)
		http.Error(w, "Failed to register device token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(token)
}

// HandleDeactivateToken deactivates a device token, e.g. on logout
func (h *NotificationHandler) HandleDeactivateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req DeactivateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	if err := h.tokenRepo.DeactivateToken(r.Context(), req.Token); err != nil {
		log.Printf("Error deactivating device token: %v", err)
		http.Error(w, "Failed to deactivate device token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
