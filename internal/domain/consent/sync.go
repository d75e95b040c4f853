package consent

import (
	"context"
	"fmt"
	"log"
	"time"

	"finpath/internal/domain/ledger"
	"finpath/internal/infrastructure/setu"
	"finpath/internal/shared/messages"
)

// Notifier delivers push notifications to a user's devices. May be nil.
type Notifier interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

// SyncResult contains the results of a transaction sync operation.
type SyncResult struct {
	ConsentID         string
	UserID            string
	TransactionsFound int
	Upserted          int
	Rejected          int // malformed records skipped by the normalizer
	Errors            []string
}

// SyncService pulls FI data for active consents, runs it through the ledger
// normalizer and upserts the resulting transactions.
type SyncService struct {
	client               setu.ClientInterface
	consentRepo          Repository
	ledgerRepo           ledger.Repository
	notifier             Notifier
	notificationMessages *messages.Messages
}

// NewSyncService creates a new consent sync service. The notifier and
// notification messages are optional; without them sync completion is not
// pushed to the user's devices.
func NewSyncService(
	client setu.ClientInterface,
	consentRepo Repository,
	ledgerRepo ledger.Repository,
	notifier Notifier,
	notificationMessages *messages.Messages,
) *SyncService {
	return &SyncService{
		client:               client,
		consentRepo:          consentRepo,
		ledgerRepo:           ledgerRepo,
		notifier:             notifier,
		notificationMessages: notificationMessages,
	}
}

// InitiateConsent starts a consent request with the aggregator and records it.
func (s *SyncService) InitiateConsent(ctx context.Context, userID, mobile string) (*Consent, error) {
	if userID == "" || mobile == "" {
		return nil, fmt.Errorf("user ID and mobile are required")
	}

	resp, err := s.client.InitiateConsent(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate consent with aggregator: %w", err)
	}

	now := time.Now().UTC()
	c := &Consent{
		ID:          resp.ConsentID,
		UserID:      userID,
		Mobile:      mobile,
		Status:      resp.Status,
		ConsentURL:  resp.ConsentURL,
		InitiatedAt: now,
		UpdatedAt:   now,
	}
	if c.Status == "" {
		c.Status = StatusPending
	}

	if err := s.consentRepo.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store consent: %w", err)
	}
	return c, nil
}

// RefreshStatus fetches the consent status from the aggregator and persists it.
func (s *SyncService) RefreshStatus(ctx context.Context, consentID string) (*Consent, error) {
	c, err := s.consentRepo.GetByID(ctx, consentID)
	if err != nil {
		return nil, err
	}

	detail, err := s.client.GetConsentStatus(ctx, consentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consent status: %w", err)
	}

	if detail.Status != "" && detail.Status != c.Status {
		if err := s.consentRepo.UpdateStatus(ctx, consentID, detail.Status); err != nil {
			return nil, fmt.Errorf("failed to update consent status: %w", err)
		}
		c.Status = detail.Status
	}
	return c, nil
}

// GetConsent returns a consent record by its aggregator ID.
func (s *SyncService) GetConsent(ctx context.Context, consentID string) (*Consent, error) {
	return s.consentRepo.GetByID(ctx, consentID)
}

// UpdateStatus applies a status reported by the aggregator's webhook. When
// the consent turns active, the caller typically follows up with
// SyncTransactions.
func (s *SyncService) UpdateStatus(ctx context.Context, consentID, status string) error {
	if _, err := s.consentRepo.GetByID(ctx, consentID); err != nil {
		return err
	}
	return s.consentRepo.UpdateStatus(ctx, consentID, status)
}

// SyncTransactions fetches FI data for an active consent, normalizes every
// record and upserts the survivors. One malformed record rejects that record
// only; one failed upsert is reported and the sync continues.
func (s *SyncService) SyncTransactions(ctx context.Context, consentID string) (*SyncResult, error) {
	c, err := s.consentRepo.GetByID(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrConsentInactive, c.Status)
	}

	result := &SyncResult{ConsentID: consentID, UserID: c.UserID, Errors: []string{}}

	fiData, err := s.client.FetchTransactions(ctx, consentID, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch FI data: %w", err)
	}

	raws := flattenFIData(fiData)
	result.TransactionsFound = len(raws)
	log.Printf("Consent %s: fetched %d raw transactions for user %s", consentID, len(raws), c.UserID)

	txns, failures := ledger.NormalizeBatch(raws)
	result.Rejected = len(failures)
	for _, f := range failures {
		result.Errors = append(result.Errors, f.Err.Error())
	}

	for i := range txns {
		params := ledger.UpsertTransactionParams{
			ID:              txns[i].ID,
			UserID:          c.UserID,
			AccountID:       txns[i].AccountID,
			Timestamp:       txns[i].Timestamp,
			Direction:       txns[i].Direction,
			Amount:          txns[i].Amount,
			Category:        txns[i].Category,
			Description:     txns[i].Description,
			Merchant:        txns[i].Merchant,
			RefinedMerchant: txns[i].RefinedMerchant,
			Reference:       txns[i].Reference,
			ConfidenceScore: txns[i].ConfidenceScore,
		}
		if _, err := s.ledgerRepo.Upsert(ctx, params); err != nil {
			errMsg := fmt.Sprintf("failed to upsert transaction %s: %v", txns[i].ID, err)
			result.Errors = append(result.Errors, errMsg)
			log.Printf("Error: %s", errMsg)
			continue
		}
		result.Upserted++
	}

	if err := s.consentRepo.MarkSynced(ctx, consentID, time.Now().UTC()); err != nil {
		log.Printf("Warning: failed to mark consent %s synced: %v", consentID, err)
	}

	log.Printf("Transaction sync completed for consent %s: found=%d, upserted=%d, rejected=%d, errors=%d",
		consentID, result.TransactionsFound, result.Upserted, result.Rejected, len(result.Errors))

	if s.notifier != nil && s.notificationMessages != nil && result.Upserted > 0 {
		msg := s.notificationMessages.SyncComplete
		if err := s.notifier.SendToUser(ctx, c.UserID, msg.Title, msg.Body, map[string]string{"consentId": consentID}); err != nil {
			log.Printf("Warning: failed to push sync notification to user %s: %v", c.UserID, err)
		}
	}

	return result, nil
}

// ListConsents returns a user's consent records.
func (s *SyncService) ListConsents(ctx context.Context, userID string) ([]*Consent, error) {
	return s.consentRepo.ListByUserID(ctx, userID)
}

// flattenFIData walks the FIP/account nesting and emits one raw record per
// transaction line, tagging each with its account link reference.
func flattenFIData(fiData *setu.FIDataResponse) []ledger.RawRecord {
	var raws []ledger.RawRecord
	for _, fip := range fiData.Fips {
		for _, account := range fip.Accounts {
			for _, txn := range account.Data.Account.Transactions.Transaction {
				raws = append(raws, ledger.RawRecord{
					ID:        txn.TxnID,
					AccountID: account.LinkRefNumber,
					Amount:    txn.Amount,
					Type:      txn.Type,
					ValueDate: txn.ValueDate,
					Narration: txn.Narration,
					Reference: txn.Reference,
				})
			}
		}
	}
	return raws
}
