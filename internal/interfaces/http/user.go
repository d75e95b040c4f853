package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"finpath/internal/domain/user"
	"finpath/internal/shared/middleware"
)

type UserHandler struct {
	userRepo user.Repository
}

func NewUserHandler(userRepo user.Repository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// HandleMe handles both GET and PATCH requests for the current user
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	// Get user ID from context (set by auth middleware)
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGetMe(w, r, userID)
	case http.MethodPatch:
		h.handleUpdateMe(w, r, userID)
	case http.MethodDelete:
		h.handleDeleteMe(w, r, userID)
	default:
		log.Printf("Method not allowed for /api/users/me: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *UserHandler) handleGetMe(w http.ResponseWriter, r *http.Request, userID string) {
	u, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

// handleDeleteMe removes the account. The session cookie is cleared so a
// deleted user is not left holding a token that outlives the row.
func (h *UserHandler) handleDeleteMe(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.userRepo.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting user %s: %v", userID, err)
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) handleUpdateMe(w http.ResponseWriter, r *http.Request, userID string) {
	var params user.UpdateUserParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Printf("Error decoding user update request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.userRepo.Update(r.Context(), userID, params)
	if err != nil {
		log.Printf("Error updating user %s: %v", userID, err)
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}
