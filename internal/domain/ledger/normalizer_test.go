package ledger

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		raw           RawRecord
		wantErr       bool
		wantErrField  string
		wantDirection Direction
		wantAmount    float64
		wantCategory  string
	}{
		{
			name: "valid credit",
			raw: RawRecord{
				ID:        "txn-1",
				Amount:    "45000",
				Type:      "CREDIT",
				ValueDate: "2025-11-01",
				Narration: "SALARY NOV",
				Category:  "salary",
			},
			wantDirection: Credit,
			wantAmount:    45000,
			wantCategory:  "salary",
		},
		{
			name: "lowercase debit with RFC3339 date",
			raw: RawRecord{
				ID:        "txn-2",
				Amount:    "8200.50",
				Type:      "debit",
				ValueDate: "2025-11-03T10:30:00Z",
			},
			wantDirection: Debit,
			wantAmount:    8200.50,
			wantCategory:  DefaultCategory,
		},
		{
			name: "empty category defaults to other",
			raw: RawRecord{
				ID:        "txn-3",
				Amount:    "100",
				Type:      "DEBIT",
				ValueDate: "2025-11-05",
				Category:  "   ",
			},
			wantDirection: Debit,
			wantAmount:    100,
			wantCategory:  DefaultCategory,
		},
		{
			name: "negative magnitude is folded into direction",
			raw: RawRecord{
				ID:        "txn-4",
				Amount:    "-250",
				Type:      "DEBIT",
				ValueDate: "2025-11-06",
			},
			wantDirection: Debit,
			wantAmount:    250,
			wantCategory:  DefaultCategory,
		},
		{
			name:         "missing amount",
			raw:          RawRecord{ID: "txn-5", Type: "DEBIT", ValueDate: "2025-11-01"},
			wantErr:      true,
			wantErrField: "amount",
		},
		{
			name:         "unparseable amount",
			raw:          RawRecord{ID: "txn-6", Amount: "12,00", Type: "DEBIT", ValueDate: "2025-11-01"},
			wantErr:      true,
			wantErrField: "amount",
		},
		{
			name:         "missing timestamp",
			raw:          RawRecord{ID: "txn-7", Amount: "10", Type: "DEBIT"},
			wantErr:      true,
			wantErrField: "valueDate",
		},
		{
			name:         "garbage timestamp",
			raw:          RawRecord{ID: "txn-8", Amount: "10", Type: "DEBIT", ValueDate: "yesterday"},
			wantErr:      true,
			wantErrField: "valueDate",
		},
		{
			name:         "unknown direction",
			raw:          RawRecord{ID: "txn-9", Amount: "10", Type: "TRANSFER", ValueDate: "2025-11-01"},
			wantErr:      true,
			wantErrField: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Normalize(tt.raw)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got transaction %+v", tx)
				}
				if !errors.Is(err, ErrMalformedRecord) {
					t.Errorf("error does not wrap ErrMalformedRecord: %v", err)
				}
				var mre *MalformedRecordError
				if !errors.As(err, &mre) {
					t.Fatalf("expected MalformedRecordError, got %T", err)
				}
				if mre.Field != tt.wantErrField {
					t.Errorf("error field = %q, want %q", mre.Field, tt.wantErrField)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tx.Direction != tt.wantDirection {
				t.Errorf("direction = %q, want %q", tx.Direction, tt.wantDirection)
			}
			if tx.Amount != tt.wantAmount {
				t.Errorf("amount = %v, want %v", tx.Amount, tt.wantAmount)
			}
			if tx.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", tx.Category, tt.wantCategory)
			}
		})
	}
}

func TestNormalizeConfidenceScore(t *testing.T) {
	base := RawRecord{ID: "txn-1", Amount: "10", Type: "DEBIT", ValueDate: "2025-11-01"}

	t.Run("absent score stays nil", func(t *testing.T) {
		tx, err := Normalize(base)
		if err != nil {
			t.Fatal(err)
		}
		if tx.ConfidenceScore != nil {
			t.Errorf("expected nil confidence score, got %v", *tx.ConfidenceScore)
		}
	})

	t.Run("valid score is kept", func(t *testing.T) {
		raw := base
		raw.ConfidenceScore = "0.92"
		tx, err := Normalize(raw)
		if err != nil {
			t.Fatal(err)
		}
		if tx.ConfidenceScore == nil || *tx.ConfidenceScore != 0.92 {
			t.Errorf("confidence score = %v, want 0.92", tx.ConfidenceScore)
		}
	})

	t.Run("out of range score is dropped", func(t *testing.T) {
		raw := base
		raw.ConfidenceScore = "1.5"
		tx, err := Normalize(raw)
		if err != nil {
			t.Fatal(err)
		}
		if tx.ConfidenceScore != nil {
			t.Errorf("expected nil confidence score for out-of-range value, got %v", *tx.ConfidenceScore)
		}
	})
}

func TestNormalizeBatchContinuesPastBadRecords(t *testing.T) {
	raws := []RawRecord{
		{ID: "good-1", Amount: "100", Type: "CREDIT", ValueDate: "2025-11-01"},
		{ID: "bad-1", Amount: "", Type: "DEBIT", ValueDate: "2025-11-02"},
		{ID: "good-2", Amount: "50", Type: "DEBIT", ValueDate: "2025-11-03"},
		{ID: "bad-2", Amount: "50", Type: "DEBIT", ValueDate: "not-a-date"},
	}

	txns, failures := NormalizeBatch(raws)

	if len(txns) != 2 {
		t.Fatalf("expected 2 normalized transactions, got %d", len(txns))
	}
	if txns[0].ID != "good-1" || txns[1].ID != "good-2" {
		t.Errorf("unexpected transaction order: %s, %s", txns[0].ID, txns[1].ID)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].Index != 1 || failures[1].Index != 3 {
		t.Errorf("unexpected failure indices: %d, %d", failures[0].Index, failures[1].Index)
	}
}

func TestDisplayMerchant(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want string
	}{
		{"refined wins", Transaction{RefinedMerchant: "Starbucks", Merchant: "STRBKS POS 4421", Description: "POS/STRBKS"}, "Starbucks"},
		{"merchant next", Transaction{Merchant: "STRBKS POS 4421", Description: "POS/STRBKS"}, "STRBKS POS 4421"},
		{"description next", Transaction{Description: "POS/STRBKS"}, "POS/STRBKS"},
		{"unknown last", Transaction{}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.DisplayMerchant(); got != tt.want {
				t.Errorf("DisplayMerchant() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeTimestampLayouts(t *testing.T) {
	raw := RawRecord{ID: "t", Amount: "1", Type: "DEBIT", ValueDate: "2025-01-15T08:00:00"}
	tx, err := Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, time.January, 15, 8, 0, 0, 0, time.UTC)
	if !tx.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", tx.Timestamp, want)
	}
}
