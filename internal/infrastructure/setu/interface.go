package setu

import "context"

// ClientInterface defines the methods required from the Setu AA client.
type ClientInterface interface {
	InitiateConsent(ctx context.Context, mobile string) (*ConsentResponse, error)
	GetConsentStatus(ctx context.Context, consentID string) (*ConsentDetail, error)
	FetchTransactions(ctx context.Context, consentID, from, to string) (*FIDataResponse, error)
}
