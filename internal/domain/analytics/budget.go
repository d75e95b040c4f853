package analytics

import (
	"log"
	"math"
)

// progressEpsilon guards the progress division when allocated income is zero.
const progressEpsilon = 1e-9

// BudgetRatios configures the needs/wants/savings allocation model.
// Ratios are configuration, not policy baked into the tracker.
type BudgetRatios struct {
	Needs   float64 `json:"needs"`
	Wants   float64 `json:"wants"`
	Savings float64 `json:"savings"`
}

// DefaultBudgetRatios is the classic 50/30/20 split.
func DefaultBudgetRatios() BudgetRatios {
	return BudgetRatios{Needs: 0.5, Wants: 0.3, Savings: 0.2}
}

// BucketStatus reports consumption against one budget bucket.
type BucketStatus struct {
	Name               string  `json:"name"`
	Ratio              float64 `json:"ratio"`
	AllocatedTarget    float64 `json:"allocatedTarget"`
	Consumed           float64 `json:"consumed"`
	ProgressPercentage float64 `json:"progressPercentage"` // clamped to [0,100]
}

// TrackBudget maps a monthly aggregate onto the configured allocation model.
//
// The ledger carries no needs/wants sub-categorization, so consumption for
// those buckets is approximated as totalExpense × ratio rather than a true
// categorical split; the savings bucket consumes whatever was actually left
// over (floored at zero). Returns nil for a nil aggregate: no data, no status.
func TrackBudget(agg *MonthlyAggregate, ratios BudgetRatios) []BucketStatus {
	if agg == nil {
		return nil
	}

	if sum := ratios.Needs + ratios.Wants + ratios.Savings; math.Abs(sum-1.0) > 0.001 {
		// Advisory only: the caller may be mid-edit on the ratio config.
		log.Printf("Warning: budget ratios sum to %.3f, not 1.0", sum)
	}

	buckets := []struct {
		name     string
		ratio    float64
		consumed float64
	}{
		{"needs", ratios.Needs, agg.TotalExpense * ratios.Needs},
		{"wants", ratios.Wants, agg.TotalExpense * ratios.Wants},
		{"savings", ratios.Savings, math.Max(0, agg.TotalSavings)},
	}

	statuses := make([]BucketStatus, 0, len(buckets))
	for _, b := range buckets {
		target := agg.TotalIncome * b.ratio
		progress := math.Min(b.consumed/math.Max(target, progressEpsilon)*100, 100)
		if progress < 0 {
			progress = 0
		}
		statuses = append(statuses, BucketStatus{
			Name:               b.name,
			Ratio:              b.ratio,
			AllocatedTarget:    target,
			Consumed:           b.consumed,
			ProgressPercentage: progress,
		})
	}

	return statuses
}
