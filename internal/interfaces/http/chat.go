package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"finpath/internal/shared/middleware"
)

// ChatClient relays conversational messages to the AI coach service.
type ChatClient interface {
	Chat(ctx context.Context, userID, message string) (string, error)
}

type ChatHandler struct {
	coach ChatClient
}

func NewChatHandler(coach ChatClient) *ChatHandler {
	return &ChatHandler{coach: coach}
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// HandleChat relays a user message to the coach service and returns its
// reply. The coach owns the conversation state; this is a pass-through.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	reply, err := h.coach.Chat(r.Context(), userID, req.Message)
	if err != nil {
		log.Printf("Coach chat failed for user %s: %v", userID, err)
		http.Error(w, "Coach service unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ChatResponse{Response: reply})
}
