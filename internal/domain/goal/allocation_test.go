package goal

import (
	"math"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestComputeMonthlyContributionCapBinds(t *testing.T) {
	// Scenario: 100k over 6 months needs 16666.67/month, but a high-priority
	// goal may only claim 60% of 3500 available savings.
	g := &Goal{TargetAmount: 100000, DurationMonths: intPtr(6), Priority: PriorityHigh}

	got := ComputeMonthlyContribution(g, 3500)
	if got != 2100 {
		t.Errorf("contribution = %v, want 2100 (cap binds)", got)
	}
}

func TestComputeMonthlyContributionPaceBinds(t *testing.T) {
	// 1200 over 12 months needs only 100/month, well under the cap.
	g := &Goal{TargetAmount: 1200, DurationMonths: intPtr(12), Priority: PriorityHigh}

	got := ComputeMonthlyContribution(g, 10000)
	if got != 100 {
		t.Errorf("contribution = %v, want 100 (pace binds)", got)
	}
}

func TestComputeMonthlyContributionNoDuration(t *testing.T) {
	// A goal without a duration collapses to zero regardless of priority or
	// target size.
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		g := &Goal{TargetAmount: 500000, Priority: p}
		if got := ComputeMonthlyContribution(g, 10000); got != 0 {
			t.Errorf("priority %s: contribution = %v, want 0 for unset duration", p, got)
		}
	}

	g := &Goal{TargetAmount: 500000, DurationMonths: intPtr(0), Priority: PriorityHigh}
	if got := ComputeMonthlyContribution(g, 10000); got != 0 {
		t.Errorf("contribution = %v, want 0 for zero duration", got)
	}
}

func TestComputeMonthlyContributionBounds(t *testing.T) {
	// 0 <= contribution <= round(weight * savings) across a grid of goals.
	goals := []*Goal{
		{TargetAmount: 100000, DurationMonths: intPtr(6), Priority: PriorityHigh},
		{TargetAmount: 100000, DurationMonths: intPtr(6), Priority: PriorityMedium},
		{TargetAmount: 100000, DurationMonths: intPtr(6), Priority: PriorityLow},
		{TargetAmount: 500, DurationMonths: intPtr(24), Priority: PriorityHigh},
		{TargetAmount: 500, Priority: PriorityHigh},
	}
	savings := []float64{0, 100, 3500, 99999}

	for _, g := range goals {
		for _, s := range savings {
			got := ComputeMonthlyContribution(g, s)
			cap := math.Round(g.Priority.ContributionWeight() * s)
			if got < 0 || got > cap {
				t.Errorf("goal %+v savings %v: contribution %v outside [0, %v]", g, s, got, cap)
			}
		}
	}
}

func TestComputeMonthlyContributionUsesOriginalTarget(t *testing.T) {
	// The pace requirement is targetAmount/duration, not remaining/duration:
	// saved progress does not shrink the suggested pace here.
	g := &Goal{TargetAmount: 1200, CurrentAmount: 1100, DurationMonths: intPtr(12), Priority: PriorityHigh}
	if got := ComputeMonthlyContribution(g, 10000); got != 100 {
		t.Errorf("contribution = %v, want 100 (original target drives pace)", got)
	}
}

func TestRebalanceTwoGoals(t *testing.T) {
	// Scenario: high (score 3) and low (score 1) split 4000 as 3000/1000,
	// then each is capped by its own pace.
	goals := []*Goal{
		{ID: "g-high", TargetAmount: 60000, DurationMonths: intPtr(6), Priority: PriorityHigh},
		{ID: "g-low", TargetAmount: 2400, DurationMonths: intPtr(6), Priority: PriorityLow},
	}

	allocations := Rebalance(goals, 4000)
	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocations))
	}

	// g-high: base 3000, paceCap round(60000/6)=10000 -> 3000
	if allocations[0].GoalID != "g-high" || allocations[0].Amount != 3000 {
		t.Errorf("high allocation = %+v, want g-high 3000", allocations[0])
	}
	// g-low: base 1000, paceCap round(2400/6)=400 -> 400
	if allocations[1].GoalID != "g-low" || allocations[1].Amount != 400 {
		t.Errorf("low allocation = %+v, want g-low 400", allocations[1])
	}
}

func TestRebalanceSumMayExceedSavings(t *testing.T) {
	// Allocations are capped per goal, not normalized globally. Three
	// high-priority goals with huge pace requirements each take their full
	// base share, so the sum equals savings here; but because pace caps are
	// independent, a lower savings figure with generous paces can still sum
	// above savings once rounding pushes each base up. Construct the rounding
	// case explicitly.
	goals := []*Goal{
		{ID: "a", TargetAmount: 100000, DurationMonths: intPtr(2), Priority: PriorityHigh},
		{ID: "b", TargetAmount: 100000, DurationMonths: intPtr(2), Priority: PriorityHigh},
		{ID: "c", TargetAmount: 100000, DurationMonths: intPtr(2), Priority: PriorityHigh},
	}

	// Each share is 1/3 of 1001; every base rounds up to 334 and no pace cap
	// bites, so the sum overshoots the available savings.
	allocations := Rebalance(goals, 1001)
	sum := 0.0
	for _, a := range allocations {
		sum += a.Amount
	}
	if sum <= 1001 {
		t.Errorf("expected documented overshoot, got sum %v for savings 1001", sum)
	}
}

func TestRebalanceAchievedGoalGetsZero(t *testing.T) {
	goals := []*Goal{
		{ID: "done", TargetAmount: 1000, CurrentAmount: 1500, DurationMonths: intPtr(6), Priority: PriorityHigh},
		{ID: "open", TargetAmount: 6000, DurationMonths: intPtr(6), Priority: PriorityLow},
	}

	allocations := Rebalance(goals, 4000)
	if allocations[0].Amount != 0 {
		t.Errorf("achieved goal allocation = %v, want 0", allocations[0].Amount)
	}
	if allocations[1].Amount <= 0 {
		t.Errorf("open goal allocation = %v, want positive", allocations[1].Amount)
	}
}

func TestRebalanceEmpty(t *testing.T) {
	if allocations := Rebalance(nil, 4000); allocations != nil {
		t.Errorf("expected nil allocations for no goals, got %v", allocations)
	}
}

func TestSortForDisplay(t *testing.T) {
	goals := []*Goal{
		{ID: "low-big", Priority: PriorityLow, TargetAmount: 90000, CurrentAmount: 0},
		{ID: "high-small", Priority: PriorityHigh, TargetAmount: 1000, CurrentAmount: 900},
		{ID: "high-big", Priority: PriorityHigh, TargetAmount: 50000, CurrentAmount: 10000},
		{ID: "med-a", Priority: PriorityMedium, TargetAmount: 5000, CurrentAmount: 2000},
		{ID: "med-b", Priority: PriorityMedium, TargetAmount: 6000, CurrentAmount: 3000},
	}

	sorted := SortForDisplay(goals)

	// high first (descending remaining), then medium (equal remaining 3000,
	// insertion order preserved), then low.
	want := []string{"high-big", "high-small", "med-a", "med-b", "low-big"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, sorted[i].ID, id)
		}
	}

	// Input order untouched.
	if goals[0].ID != "low-big" {
		t.Errorf("input slice was mutated")
	}
}
