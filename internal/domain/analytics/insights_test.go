package analytics

import (
	"strings"
	"testing"
	"time"

	"finpath/internal/domain/ledger"
)

func TestGenerateInsightsSavingsRule(t *testing.T) {
	txns := []ledger.Transaction{
		tx("t1", ledger.Credit, 45000, "2025-11-01", "salary"),
		tx("t2", ledger.Debit, 8200, "2025-11-03", "groceries"),
	}
	agg := Aggregate(txns, Period{2025, time.November})

	insights := GenerateInsights(agg, txns, DefaultInsightConfig())
	if len(insights) != 1 {
		t.Fatalf("expected 1 insight, got %d: %v", len(insights), insights)
	}

	if insights[0].Severity != SeveritySuccess {
		t.Errorf("severity = %q, want success", insights[0].Severity)
	}
	if !strings.Contains(insights[0].Message, "36,800") {
		t.Errorf("savings insight must contain the formatted amount, got %q", insights[0].Message)
	}
}

func TestGenerateInsightsAllApplicableRulesFire(t *testing.T) {
	// Positive savings AND expense ratio above 80% AND dining above threshold:
	// all three rules fire, in rule order.
	txns := []ledger.Transaction{
		tx("t1", ledger.Credit, 10000, "2025-11-01", "salary"),
		tx("t2", ledger.Debit, 6000, "2025-11-05", "dining"),
		tx("t3", ledger.Debit, 2500, "2025-11-08", "rent"),
	}
	agg := Aggregate(txns, Period{2025, time.November})

	insights := GenerateInsights(agg, txns, DefaultInsightConfig())
	if len(insights) != 3 {
		t.Fatalf("expected 3 insights, got %d: %v", len(insights), insights)
	}
	if insights[0].Severity != SeveritySuccess {
		t.Errorf("rule 1 must come first, got %+v", insights[0])
	}
	if insights[1].Severity != SeverityWarning || !strings.Contains(insights[1].Message, "80%") {
		t.Errorf("rule 2 must be the expense-ratio warning, got %+v", insights[1])
	}
	if !strings.Contains(insights[2].Message, "6,000") {
		t.Errorf("rule 3 must cite the category total, got %+v", insights[2])
	}
}

func TestGenerateInsightsNoData(t *testing.T) {
	// No ledger, no insights.
	if insights := GenerateInsights(nil, nil, DefaultInsightConfig()); insights != nil {
		t.Errorf("expected no insights for nil aggregate, got %v", insights)
	}
}

func TestGenerateInsightsCategoryKeywordMatchesSubstring(t *testing.T) {
	txns := []ledger.Transaction{
		tx("t1", ledger.Credit, 100000, "2025-11-01", "salary"),
		tx("t2", ledger.Debit, 3000, "2025-11-05", "Dining Out"),
		tx("t3", ledger.Debit, 2500, "2025-11-09", "dining"),
	}
	agg := Aggregate(txns, Period{2025, time.November})

	insights := GenerateInsights(agg, txns, DefaultInsightConfig())

	var found bool
	for _, in := range insights {
		if strings.Contains(in.Message, "5,500") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a dining warning summing both category spellings, got %v", insights)
	}
}

func TestGenerateInsightsThresholdOrderIsStable(t *testing.T) {
	// Multiple configured keywords must come out in the same order on every
	// call, regardless of map iteration.
	txns := []ledger.Transaction{
		tx("t1", ledger.Credit, 100000, "2025-11-01", "salary"),
		tx("t2", ledger.Debit, 7000, "2025-11-05", "dining"),
		tx("t3", ledger.Debit, 9000, "2025-11-09", "shopping"),
		tx("t4", ledger.Debit, 4000, "2025-11-12", "transport"),
	}
	agg := Aggregate(txns, Period{2025, time.November})
	cfg := InsightConfig{CategoryThresholds: map[string]float64{
		"transport": 3000,
		"dining":    5000,
		"shopping":  6000,
	}}

	first := GenerateInsights(agg, txns, cfg)
	if len(first) != 4 {
		t.Fatalf("expected 4 insights (savings + 3 thresholds), got %d: %v", len(first), first)
	}
	wantOrder := []string{"dining", "shopping", "transport"}
	for i, keyword := range wantOrder {
		if !strings.Contains(first[i+1].Title, keyword) {
			t.Errorf("insight %d = %+v, want keyword %q", i+1, first[i+1], keyword)
		}
	}

	for run := 0; run < 10; run++ {
		again := GenerateInsights(agg, txns, cfg)
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: insight order changed: %v vs %v", run, again, first)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{36800, "36,800"},
		{1234.5, "1,234.50"},
		{999, "999"},
		{1000000, "1,000,000"},
		{0, "0"},
		{-4500.25, "-4,500.25"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
