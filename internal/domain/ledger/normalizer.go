package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawRecord is a transaction line as it arrives from an upstream source
// (Setu FI data blocks, manual entry, JSON import). Fields are loosely typed
// because the sources disagree on formats; Normalize is where they converge.
type RawRecord struct {
	ID              string `json:"txnId"`
	AccountID       string `json:"accountId"`
	Amount          string `json:"amount"`
	Type            string `json:"type"` // CREDIT or DEBIT, any case
	ValueDate       string `json:"valueDate"`
	Narration       string `json:"narration"`
	Category        string `json:"category"`
	Merchant        string `json:"merchant"`
	RefinedMerchant string `json:"refined_merchant"`
	Reference       string `json:"reference"`
	ConfidenceScore string `json:"confidence_score"`
}

// MalformedRecordError reports a single unparseable record. The batch
// normalizer collects these and keeps going; one bad line never fails a sync.
type MalformedRecordError struct {
	RecordID string
	Field    string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %q: field %s: %s", e.RecordID, e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// timestampLayouts are tried in order when parsing record dates.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize converts a raw source record into a canonical Transaction.
// Amount, direction and timestamp are required and must parse; everything
// else degrades to the documented defaults. Pure: no fetching, no persisting.
func Normalize(raw RawRecord) (*Transaction, error) {
	amountStr := strings.TrimSpace(raw.Amount)
	if amountStr == "" {
		return nil, &MalformedRecordError{RecordID: raw.ID, Field: "amount", Reason: "missing"}
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return nil, &MalformedRecordError{RecordID: raw.ID, Field: "amount", Reason: fmt.Sprintf("unparseable: %v", err)}
	}
	if amount < 0 {
		// Sign is carried by direction; a negative magnitude means the source
		// double-encoded it. Take the magnitude.
		amount = -amount
	}

	direction, err := parseDirection(raw.Type)
	if err != nil {
		return nil, &MalformedRecordError{RecordID: raw.ID, Field: "type", Reason: err.Error()}
	}

	timestamp, err := parseTimestamp(raw.ValueDate)
	if err != nil {
		return nil, &MalformedRecordError{RecordID: raw.ID, Field: "valueDate", Reason: err.Error()}
	}

	// Most aggregator records arrive unlabeled; fall back to the keyword
	// classifier so category surfaces don't collapse into a single bucket.
	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = Categorize(raw.Merchant, raw.Narration)
	}

	tx := &Transaction{
		ID:              raw.ID,
		AccountID:       raw.AccountID,
		Timestamp:       timestamp,
		Direction:       direction,
		Amount:          amount,
		Category:        category,
		Description:     raw.Narration,
		Merchant:        raw.Merchant,
		RefinedMerchant: raw.RefinedMerchant,
		Reference:       raw.Reference,
	}

	// A confidence score is optional and stays absent when not provided;
	// defaulting it to 0 would misreport "no score" as "zero confidence".
	if s := strings.TrimSpace(raw.ConfidenceScore); s != "" {
		score, err := strconv.ParseFloat(s, 64)
		if err == nil && score >= 0 && score <= 1 {
			tx.ConfidenceScore = &score
		}
	}

	return tx, nil
}

// RecordError pairs a rejected record's index with the reason it was rejected.
type RecordError struct {
	Index int
	Err   error
}

// NormalizeBatch normalizes a list of raw records, rejecting individual
// malformed records without failing the batch. Returns the normalized
// transactions in input order plus one RecordError per rejected record.
func NormalizeBatch(raws []RawRecord) ([]Transaction, []RecordError) {
	txns := make([]Transaction, 0, len(raws))
	var failures []RecordError

	for i, raw := range raws {
		tx, err := Normalize(raw)
		if err != nil {
			failures = append(failures, RecordError{Index: i, Err: err})
			continue
		}
		txns = append(txns, *tx)
	}

	return txns, failures
}

func parseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CREDIT":
		return Credit, nil
	case "DEBIT":
		return Debit, nil
	case "":
		return "", fmt.Errorf("missing")
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
