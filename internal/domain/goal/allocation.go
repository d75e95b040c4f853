package goal

import (
	"math"
	"sort"
)

// defaultPaceMonths stands in for the duration when a goal has none during
// rebalancing.
const defaultPaceMonths = 6

// ComputeMonthlyContribution suggests a monthly contribution for a single
// goal given the user's available monthly savings.
//
// The suggestion is bounded twice: by the goal's own pace requirement
// (targetAmount spread over its full duration, not the remaining balance)
// and by a priority-scaled share of total savings capacity. The cap is
// rounded before the min so the two bounds compare on equal footing;
// reordering the min/max nesting changes which constraint binds.
//
// A goal without a duration gets no suggested contribution. That collapse to
// zero regardless of priority is the long-standing policy; callers that want
// pacing for open-ended goals must set a duration.
func ComputeMonthlyContribution(g *Goal, availableMonthlySavings float64) float64 {
	targetPerMonth := 0.0
	if g.DurationMonths != nil && *g.DurationMonths > 0 {
		targetPerMonth = g.TargetAmount / float64(*g.DurationMonths)
	}

	cap := math.Round(g.Priority.ContributionWeight() * availableMonthlySavings)

	return math.Max(0, math.Round(math.Min(targetPerMonth, cap)))
}

// Allocation is one goal's share of a rebalance.
type Allocation struct {
	GoalID string  `json:"goalId"`
	Amount float64 `json:"amount"`
}

// Rebalance splits available monthly savings across all goals by priority
// score, then caps each goal at its own pace requirement (remaining balance
// over its duration, defaulting to six months).
//
// Each allocation is capped independently, not normalized globally, so the
// sum of allocations may exceed availableMonthlySavings when several
// high-priority goals each sit near their cap. That is deliberate: the
// figures are per-goal suggestions, not a binding budget split.
func Rebalance(goals []*Goal, availableMonthlySavings float64) []Allocation {
	if len(goals) == 0 {
		return nil
	}

	totalScore := 0
	for _, g := range goals {
		totalScore += g.Priority.RebalanceScore()
	}
	if totalScore == 0 {
		return nil
	}

	allocations := make([]Allocation, 0, len(goals))
	for _, g := range goals {
		share := float64(g.Priority.RebalanceScore()) / float64(totalScore)
		base := math.Round(share * availableMonthlySavings)

		monthsUsed := defaultPaceMonths
		if g.DurationMonths != nil && *g.DurationMonths > 0 {
			monthsUsed = *g.DurationMonths
		}
		paceCap := math.Round(g.Remaining() / float64(monthsUsed))

		allocations = append(allocations, Allocation{
			GoalID: g.ID,
			Amount: math.Max(0, math.Min(base, paceCap)),
		})
	}

	return allocations
}

// SortForDisplay orders goals for presentation: priority rank first, then
// descending remaining amount, with insertion order breaking ties. The input
// slice is not mutated.
func SortForDisplay(goals []*Goal) []*Goal {
	sorted := make([]*Goal, len(goals))
	copy(sorted, goals)

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Priority.rank(), sorted[j].Priority.rank()
		if ri != rj {
			return ri < rj
		}
		return sorted[i].TargetAmount-sorted[i].CurrentAmount > sorted[j].TargetAmount-sorted[j].CurrentAmount
	})

	return sorted
}
