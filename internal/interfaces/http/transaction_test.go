package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finpath/internal/domain/ledger"
	"finpath/internal/shared/middleware"
)

// MockLedgerRepo implements ledger.Repository for testing
type MockLedgerRepo struct {
	GetByIDFunc              func(ctx context.Context, id string) (*ledger.Transaction, error)
	ListByUserIDFunc         func(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error)
	ListByUserIDSinceFunc    func(ctx context.Context, userID string, since time.Time) ([]ledger.Transaction, error)
	UpsertFunc               func(ctx context.Context, params ledger.UpsertTransactionParams) (*ledger.Transaction, error)
	UpdateCategorizationFunc func(ctx context.Context, id string, params ledger.CategorizationParams) (*ledger.Transaction, error)
	DeleteFunc               func(ctx context.Context, id string) error
}

func (m *MockLedgerRepo) GetByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ledger.ErrTransactionNotFound
}

func (m *MockLedgerRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *MockLedgerRepo) ListByUserIDSince(ctx context.Context, userID string, since time.Time) ([]ledger.Transaction, error) {
	if m.ListByUserIDSinceFunc != nil {
		return m.ListByUserIDSinceFunc(ctx, userID, since)
	}
	return nil, nil
}

func (m *MockLedgerRepo) Upsert(ctx context.Context, params ledger.UpsertTransactionParams) (*ledger.Transaction, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockLedgerRepo) UpdateCategorization(ctx context.Context, id string, params ledger.CategorizationParams) (*ledger.Transaction, error) {
	if m.UpdateCategorizationFunc != nil {
		return m.UpdateCategorizationFunc(ctx, id, params)
	}
	return nil, ledger.ErrTransactionNotFound
}

func (m *MockLedgerRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// withUser attaches an authenticated user ID to a request, mirroring what the
// auth middleware does.
func withUser(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestHandleListTransactions(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		query          string
		mockRepo       func() *MockLedgerRepo
		expectedStatus int
		expectedLimit  int
	}{
		{
			name:   "Success",
			userID: "user-1",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{
					ListByUserIDFunc: func(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error) {
						return []ledger.Transaction{{ID: "tx-1", UserID: userID}}, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Custom limit",
			userID: "user-1",
			query:  "?limit=10&offset=20",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{
					ListByUserIDFunc: func(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error) {
						if limit != 10 || offset != 20 {
							return nil, nil
						}
						return []ledger.Transaction{{ID: "tx-1"}}, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Unauthorized",
			userID: "",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{}
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(tt.mockRepo(), testAgentKey)

			req, _ := http.NewRequest(http.MethodGet, "/api/transactions"+tt.query, nil)
			if tt.userID != "" {
				req = withUser(req, tt.userID)
			}

			rr := httptest.NewRecorder()
			handler.HandleListTransactions(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleGetTransaction(t *testing.T) {
	tests := []struct {
		name           string
		transactionID  string
		userID         string
		mockRepo       func() *MockLedgerRepo
		expectedStatus int
	}{
		{
			name:          "Success",
			transactionID: "tx-1",
			userID:        "user-1",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{
					GetByIDFunc: func(ctx context.Context, id string) (*ledger.Transaction, error) {
						return &ledger.Transaction{ID: "tx-1", UserID: "user-1"}, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:          "Not Found",
			transactionID: "tx-999",
			userID:        "user-1",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{
					GetByIDFunc: func(ctx context.Context, id string) (*ledger.Transaction, error) {
						return nil, ledger.ErrTransactionNotFound
					},
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:          "Forbidden",
			transactionID: "tx-1",
			userID:        "user-2",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{
					GetByIDFunc: func(ctx context.Context, id string) (*ledger.Transaction, error) {
						return &ledger.Transaction{ID: "tx-1", UserID: "user-1"}, nil
					},
				}
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(tt.mockRepo(), testAgentKey)

			req, _ := http.NewRequest(http.MethodGet, "/api/transactions/"+tt.transactionID, nil)
			req = withUser(req, tt.userID)

			rr := httptest.NewRecorder()
			handler.HandleGetTransaction(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleCategorize(t *testing.T) {
	score := 0.92
	tests := []struct {
		name           string
		apiKey         string
		body           map[string]interface{}
		expectedStatus int
	}{
		{
			name:   "Success",
			apiKey: testAgentKey,
			body: map[string]interface{}{
				"transactionId":   "tx-1",
				"category":        "food_dining",
				"refinedMerchant": "Swiggy",
				"confidenceScore": score,
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Wrong key",
			apiKey:         "wrong",
			body:           map[string]interface{}{"transactionId": "tx-1", "category": "food_dining"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing transaction ID",
			apiKey:         testAgentKey,
			body:           map[string]interface{}{"category": "food_dining"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "No fields to apply",
			apiKey:         testAgentKey,
			body:           map[string]interface{}{"transactionId": "tx-1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Out of range confidence",
			apiKey:         testAgentKey,
			body:           map[string]interface{}{"transactionId": "tx-1", "confidenceScore": 1.5},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Unknown transaction",
			apiKey:         testAgentKey,
			body:           map[string]interface{}{"transactionId": "tx-404", "category": "food_dining"},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var applied *ledger.CategorizationParams
			repo := &MockLedgerRepo{
				UpdateCategorizationFunc: func(ctx context.Context, id string, params ledger.CategorizationParams) (*ledger.Transaction, error) {
					if id == "tx-404" {
						return nil, ledger.ErrTransactionNotFound
					}
					applied = &params
					return &ledger.Transaction{ID: id, Category: params.Category, RefinedMerchant: params.RefinedMerchant, ConfidenceScore: params.ConfidenceScore}, nil
				},
			}
			handler := NewTransactionHandler(repo, testAgentKey)

			bodyBytes, _ := json.Marshal(tt.body)
			req, _ := http.NewRequest(http.MethodPost, "/api/transactions/categorize", bytes.NewBuffer(bodyBytes))
			req.Header.Set("X-API-Key", tt.apiKey)

			rr := httptest.NewRecorder()
			handler.HandleCategorize(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if tt.name == "Success" {
				if applied == nil || applied.RefinedMerchant != "Swiggy" || applied.ConfidenceScore == nil || *applied.ConfidenceScore != score {
					t.Errorf("unexpected categorization params: %+v", applied)
				}
			}
		})
	}
}

func TestHandleCategorizeDisabledWithoutKey(t *testing.T) {
	handler := NewTransactionHandler(&MockLedgerRepo{}, "")

	bodyBytes, _ := json.Marshal(map[string]interface{}{"transactionId": "tx-1", "category": "food_dining"})
	req, _ := http.NewRequest(http.MethodPost, "/api/transactions/categorize", bytes.NewBuffer(bodyBytes))
	req.Header.Set("X-API-Key", "")

	rr := httptest.NewRecorder()
	handler.HandleCategorize(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d (endpoint must stay closed when no key is configured)", rr.Code, http.StatusUnauthorized)
	}
}

func TestHandleDeleteTransaction(t *testing.T) {
	tests := []struct {
		name           string
		transactionID  string
		userID         string
		mockRepo       func() *MockLedgerRepo
		expectedStatus int
	}{
		{
			name:          "Success",
			transactionID: "tx-1",
			userID:        "user-1",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{
					GetByIDFunc: func(ctx context.Context, id string) (*ledger.Transaction, error) {
						return &ledger.Transaction{ID: "tx-1", UserID: "user-1"}, nil
					},
					DeleteFunc: func(ctx context.Context, id string) error {
						return nil
					},
				}
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:          "Forbidden",
			transactionID: "tx-1",
			userID:        "user-2",
			mockRepo: func() *MockLedgerRepo {
				return &MockLedgerRepo{
					GetByIDFunc: func(ctx context.Context, id string) (*ledger.Transaction, error) {
						return &ledger.Transaction{ID: "tx-1", UserID: "user-1"}, nil
					},
				}
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(tt.mockRepo(), testAgentKey)

			req, _ := http.NewRequest(http.MethodDelete, "/api/transactions/"+tt.transactionID, nil)
			req = withUser(req, tt.userID)

			rr := httptest.NewRecorder()
			handler.HandleDeleteTransaction(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}
