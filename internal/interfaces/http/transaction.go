package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"finpath/internal/domain/ledger"
	"finpath/internal/shared/middleware"
)

// TransactionHandler serves read access to the normalized ledger. Transactions
// enter the ledger through the aggregator sync, never through this API; the
// only write surface is the categorizer agent's refinement endpoint.
type TransactionHandler struct {
	ledgerRepo ledger.Repository

	// agentAPIKey authenticates the external categorization agent on the
	// refinement endpoint; agent calls carry no user JWT
	agentAPIKey string
}

func NewTransactionHandler(ledgerRepo ledger.Repository, agentAPIKey string) *TransactionHandler {
	return &TransactionHandler{ledgerRepo: ledgerRepo, agentAPIKey: agentAPIKey}
}

// HandleListTransactions returns the authenticated user's transactions,
// newest first
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Parse pagination parameters
	limit := 50
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	transactions, err := h.ledgerRepo.ListByUserID(r.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("Error listing transactions for user %s: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// HandleGetTransaction returns a specific transaction
func (h *TransactionHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if transactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	txn, err := h.ledgerRepo.GetByID(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting transaction %s: %v", transactionID, err)
		http.Error(w, "Failed to get transaction", http.StatusInternalServerError)
		return
	}

	if txn.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

type CategorizeTransactionRequest struct {
	TransactionID   string   `json:"transactionId"`
	Category        string   `json:"category,omitempty"`
	RefinedMerchant string   `json:"refinedMerchant,omitempty"`
	ConfidenceScore *float64 `json:"confidenceScore,omitempty"`
}

// HandleCategorize accepts a categorization verdict from the external agent
// and applies it to an already-synced transaction. Authenticated by API key,
// not user JWT.
func (h *TransactionHandler) HandleCategorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.agentAPIKey == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get("X-API-Key")), []byte(h.agentAPIKey)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CategorizeTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TransactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}
	if req.Category == "" && req.RefinedMerchant == "" && req.ConfidenceScore == nil {
		http.Error(w, "At least one categorization field is required", http.StatusBadRequest)
		return
	}
	if req.ConfidenceScore != nil && (*req.ConfidenceScore < 0 || *req.ConfidenceScore > 1) {
		http.Error(w, "Confidence score must be between 0 and 1", http.StatusBadRequest)
		return
	}

	txn, err := h.ledgerRepo.UpdateCategorization(r.Context(), req.TransactionID, ledger.CategorizationParams{
		Category:        req.Category,
		RefinedMerchant: req.RefinedMerchant,
		ConfidenceScore: req.ConfidenceScore,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		log.Printf("Error applying categorization to transaction %s: %v", req.TransactionID, err)
		http.Error(w, "Failed to apply categorization", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

// HandleDeleteTransaction deletes a transaction from the ledger
func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if transactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	txn, err := h.ledgerRepo.GetByID(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting transaction %s for deletion: %v", transactionID, err)
		http.Error(w, "Failed to get transaction", http.StatusInternalServerError)
		return
	}

	if txn.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.ledgerRepo.Delete(r.Context(), transactionID); err != nil {
		log.Printf("Error deleting transaction %s: %v", transactionID, err)
		http.Error(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
