package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finpath/internal/domain/consent"
	"finpath/internal/infrastructure/setu"
)

// MockSetuClient implements setu.ClientInterface for testing
type MockSetuClient struct {
	InitiateConsentFunc   func(ctx context.Context, mobile string) (*setu.ConsentResponse, error)
	GetConsentStatusFunc  func(ctx context.Context, consentID string) (*setu.ConsentDetail, error)
	FetchTransactionsFunc func(ctx context.Context, consentID, from, to string) (*setu.FIDataResponse, error)
}

func (m *MockSetuClient) InitiateConsent(ctx context.Context, mobile string) (*setu.ConsentResponse, error) {
	if m.InitiateConsentFunc != nil {
		return m.InitiateConsentFunc(ctx, mobile)
	}
	return &setu.ConsentResponse{ConsentID: "consent-1", Status: consent.StatusPending, ConsentURL: "https://aa.example/approve"}, nil
}

func (m *MockSetuClient) GetConsentStatus(ctx context.Context, consentID string) (*setu.ConsentDetail, error) {
	if m.GetConsentStatusFunc != nil {
		return m.GetConsentStatusFunc(ctx, consentID)
	}
	return &setu.ConsentDetail{ConsentID: consentID, Status: consent.StatusPending}, nil
}

func (m *MockSetuClient) FetchTransactions(ctx context.Context, consentID, from, to string) (*setu.FIDataResponse, error) {
	if m.FetchTransactionsFunc != nil {
		return m.FetchTransactionsFunc(ctx, consentID, from, to)
	}
	return &setu.FIDataResponse{}, nil
}

// MockConsentRepo implements consent.Repository for testing
type MockConsentRepo struct {
	UpsertFunc       func(ctx context.Context, c *consent.Consent) error
	GetByIDFunc      func(ctx context.Context, id string) (*consent.Consent, error)
	ListByUserIDFunc func(ctx context.Context, userID string) ([]*consent.Consent, error)
	UpdateStatusFunc func(ctx context.Context, id, status string) error
	MarkSyncedFunc   func(ctx context.Context, id string, at time.Time) error
}

func (m *MockConsentRepo) Upsert(ctx context.Context, c *consent.Consent) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, c)
	}
	return nil
}

func (m *MockConsentRepo) GetByID(ctx context.Context, id string) (*consent.Consent, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, consent.ErrConsentNotFound
}

func (m *MockConsentRepo) ListByUserID(ctx context.Context, userID string) ([]*consent.Consent, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockConsentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockConsentRepo) MarkSynced(ctx context.Context, id string, at time.Time) error {
	if m.MarkSyncedFunc != nil {
		return m.MarkSyncedFunc(ctx, id, at)
	}
	return nil
}

func newConsentHandler(client setu.ClientInterface, repo consent.Repository, jobs *MockJobSubmitter) *ConsentHandler {
	svc := consent.NewSyncService(client, repo, &MockLedgerRepo{}, nil, nil)
	return NewConsentHandler(svc, jobs)
}

func TestHandleConsents_Initiate(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           map[string]string{"mobile": "9876543210"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing mobile",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newConsentHandler(&MockSetuClient{}, &MockConsentRepo{}, &MockJobSubmitter{})

			bodyBytes, _ := json.Marshal(tt.body)
			req, _ := http.NewRequest(http.MethodPost, "/api/consents", bytes.NewBuffer(bodyBytes))
			req = withUser(req, "user-1")

			rr := httptest.NewRecorder()
			handler.HandleConsents(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}

			if tt.expectedStatus == http.StatusCreated {
				var c consent.Consent
				if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if c.ID != "consent-1" || c.ConsentURL == "" {
					t.Errorf("unexpected consent: %+v", c)
				}
			}
		})
	}
}

func TestHandleConsent_SyncQueuesJob(t *testing.T) {
	repo := &MockConsentRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*consent.Consent, error) {
			return &consent.Consent{ID: id, UserID: "user-1", Status: consent.StatusActive}, nil
		},
	}
	jobs := &MockJobSubmitter{}
	handler := newConsentHandler(&MockSetuClient{}, repo, jobs)

	req, _ := http.NewRequest(http.MethodPost, "/api/consents/consent-1/sync", nil)
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	handler.HandleConsent(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	if len(jobs.Submitted) != 1 {
		t.Errorf("expected one queued sync job, got %d", len(jobs.Submitted))
	}
}

func TestHandleConsent_SyncOtherUsersConsent(t *testing.T) {
	repo := &MockConsentRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*consent.Consent, error) {
			return &consent.Consent{ID: id, UserID: "user-1", Status: consent.StatusActive}, nil
		},
	}
	handler := newConsentHandler(&MockSetuClient{}, repo, &MockJobSubmitter{})

	req, _ := http.NewRequest(http.MethodPost, "/api/consents/consent-1/sync", nil)
	req = withUser(req, "user-2")

	rr := httptest.NewRecorder()
	handler.HandleConsent(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleWebhook(t *testing.T) {
	t.Run("Active transition queues first sync", func(t *testing.T) {
		repo := &MockConsentRepo{
			GetByIDFunc: func(ctx context.Context, id string) (*consent.Consent, error) {
				return &consent.Consent{ID: id, UserID: "user-1", Status: consent.StatusPending}, nil
			},
		}
		jobs := &MockJobSubmitter{}
		handler := newConsentHandler(&MockSetuClient{}, repo, jobs)

		body, _ := json.Marshal(map[string]string{"consentId": "consent-1", "status": consent.StatusActive})
		req, _ := http.NewRequest(http.MethodPost, "/api/webhooks/consent", bytes.NewBuffer(body))

		rr := httptest.NewRecorder()
		handler.HandleWebhook(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if len(jobs.Submitted) != 1 {
			t.Errorf("expected one queued sync job, got %d", len(jobs.Submitted))
		}
	})

	t.Run("Rejected transition queues nothing", func(t *testing.T) {
		repo := &MockConsentRepo{
			GetByIDFunc: func(ctx context.Context, id string) (*consent.Consent, error) {
				return &consent.Consent{ID: id, UserID: "user-1", Status: consent.StatusPending}, nil
			},
		}
		jobs := &MockJobSubmitter{}
		handler := newConsentHandler(&MockSetuClient{}, repo, jobs)

		body, _ := json.Marshal(map[string]string{"consentId": "consent-1", "status": consent.StatusRejected})
		req, _ := http.NewRequest(http.MethodPost, "/api/webhooks/consent", bytes.NewBuffer(body))

		rr := httptest.NewRecorder()
		handler.HandleWebhook(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if len(jobs.Submitted) != 0 {
			t.Errorf("expected no queued jobs, got %d", len(jobs.Submitted))
		}
	})

	t.Run("Unknown consent", func(t *testing.T) {
		handler := newConsentHandler(&MockSetuClient{}, &MockConsentRepo{}, &MockJobSubmitter{})

		body, _ := json.Marshal(map[string]string{"consentId": "consent-404", "status": consent.StatusActive})
		req, _ := http.NewRequest(http.MethodPost, "/api/webhooks/consent", bytes.NewBuffer(body))

		rr := httptest.NewRecorder()
		handler.HandleWebhook(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
		}
	})
}
