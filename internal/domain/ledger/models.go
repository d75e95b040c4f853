package ledger

import (
	"errors"
	"time"
)

// Direction indicates whether a transaction moves money into or out of an account.
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// DefaultCategory is assigned when neither the source label nor the keyword
// classifier produced a category.
const DefaultCategory = "other"

// Domain errors
var (
	ErrMalformedRecord     = errors.New("malformed transaction record")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Transaction is the canonical ledger entry. It is immutable once ingested
// except for the categorization fields, which the external categorization
// agent rewrites through UpdateCategorization.
type Transaction struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	AccountID       string    `json:"accountId"` // may be empty for unlinked ledger lines
	Timestamp       time.Time `json:"timestamp"`
	Direction       Direction `json:"direction"`
	Amount          float64   `json:"amount"` // non-negative magnitude, sign carried by Direction
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Merchant        string    `json:"merchant,omitempty"`
	RefinedMerchant string    `json:"refinedMerchant,omitempty"` // AI-refined override
	Reference       string    `json:"reference,omitempty"`
	ConfidenceScore *float64  `json:"confidenceScore,omitempty"` // nil means the categorizer gave no score
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DisplayMerchant resolves the aggregation/display key for a transaction:
// refined merchant wins over the raw merchant, which wins over the narration.
func (t *Transaction) DisplayMerchant() string {
	if t.RefinedMerchant != "" {
		return t.RefinedMerchant
	}
	if t.Merchant != "" {
		return t.Merchant
	}
	if t.Description != "" {
		return t.Description
	}
	return "Unknown"
}

// IsCredit reports whether the transaction adds to the balance.
func (t *Transaction) IsCredit() bool {
	return t.Direction == Credit
}

// CategorizationParams carries the external categorizer's verdict on an
// existing transaction. Empty category/merchant and a nil score leave the
// stored values unchanged.
type CategorizationParams struct {
	Category        string
	RefinedMerchant string
	ConfidenceScore *float64
}

// UpsertTransactionParams is used when syncing transactions from the provider.
type UpsertTransactionParams struct {
	ID              string // provider's transaction id (used as PK)
	UserID          string
	AccountID       string
	Timestamp       time.Time
	Direction       Direction
	Amount          float64
	Category        string
	Description     string
	Merchant        string
	RefinedMerchant string
	Reference       string
	ConfidenceScore *float64
}
