package analytics

import (
	"time"

	"finpath/internal/domain/ledger"
)

// Period identifies a calendar month. Transactions belong to a period iff
// their local month index and year match; this is month-equality semantics,
// not an elapsed-duration window.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodOf returns the calendar period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether t falls in the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Previous returns the period n months earlier, rolling over year boundaries.
func (p Period) Previous(n int) Period {
	// time.Date normalizes out-of-range months (month 0 is December of the
	// prior year), which is exactly the rollover arithmetic we need.
	t := time.Date(p.Year, p.Month-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// MonthlyAggregate is the derived income/expense/savings summary for one
// calendar month. It is recomputed from the ledger on demand and never
// persisted independently.
type MonthlyAggregate struct {
	Period           Period  `json:"period"`
	TotalIncome      float64 `json:"totalIncome"`
	TotalExpense     float64 `json:"totalExpense"`
	TotalSavings     float64 `json:"totalSavings"` // income − expense, may be negative
	TransactionCount int     `json:"transactionCount"`
}

// Aggregate computes the monthly rollup for the given period. Returns nil
// when no transaction falls in the period: "no ledger data" must stay
// distinguishable from an aggregate that legitimately sums to zero, otherwise
// callers render misleading 0% savings states over an empty ledger.
func Aggregate(txns []ledger.Transaction, period Period) *MonthlyAggregate {
	agg := &MonthlyAggregate{Period: period}

	for i := range txns {
		if !period.Contains(txns[i].Timestamp) {
			continue
		}
		agg.TransactionCount++
		if txns[i].IsCredit() {
			agg.TotalIncome += txns[i].Amount
		} else {
			agg.TotalExpense += txns[i].Amount
		}
	}

	if agg.TransactionCount == 0 {
		return nil
	}

	agg.TotalSavings = agg.TotalIncome - agg.TotalExpense
	return agg
}

// TrailingPoint is one month in a trailing income/expense series. Unlike
// Aggregate, empty months are reported as zero points: the series feeds a
// fixed-width chart where a missing month and a quiet month look the same.
type TrailingPoint struct {
	Period       Period  `json:"period"`
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
}

// AggregateTrailing computes per-month income/expense pairs for the `months`
// calendar months ending at the anchor's month, ordered oldest to newest.
// The anchor is injected so the series is deterministic under test.
func AggregateTrailing(txns []ledger.Transaction, months int, anchor time.Time) []TrailingPoint {
	if months <= 0 {
		return nil
	}

	current := PeriodOf(anchor)
	points := make([]TrailingPoint, 0, months)

	for i := months - 1; i >= 0; i-- {
		period := current.Previous(i)
		point := TrailingPoint{Period: period}
		for j := range txns {
			if !period.Contains(txns[j].Timestamp) {
				continue
			}
			if txns[j].IsCredit() {
				point.TotalIncome += txns[j].Amount
			} else {
				point.TotalExpense += txns[j].Amount
			}
		}
		points = append(points, point)
	}

	return points
}

// CategoryBreakdown sums debit magnitudes by category for the given period.
// The category set is derived from the data, not predeclared; no in-period
// debits yields an empty map.
func CategoryBreakdown(txns []ledger.Transaction, period Period) map[string]float64 {
	breakdown := make(map[string]float64)

	for i := range txns {
		if txns[i].IsCredit() || !period.Contains(txns[i].Timestamp) {
			continue
		}
		category := txns[i].Category
		if category == "" {
			category = ledger.DefaultCategory
		}
		breakdown[category] += txns[i].Amount
	}

	return breakdown
}
