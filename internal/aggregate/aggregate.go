// Package aggregate derives display-ready totals from plan, member and
// payment snapshots.
//
// Every function is pure: inputs are only read, never modified, so they can
// be called concurrently on shared snapshots.
package aggregate

import (
	"familysavings/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MemberTotal is the amount collected from one member.
type MemberTotal struct {
	Member    core.Member
	Collected decimal.Decimal
}

// MemberTotals keeps the order of the members it was built from.
type MemberTotals []MemberTotal

// ByMemberID indexes the totals by member id.
func (t MemberTotals) ByMemberID() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(t))
	for _, mt := range t {
		out[mt.Member.ID] = mt.Collected
	}
	return out
}

// Sum adds every member bucket.
func (t MemberTotals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, mt := range t {
		sum = sum.Add(mt.Collected)
	}
	return sum
}

// TotalCollected sums every payment amount. No member matching is involved.
func TotalCollected(payments []core.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// CollectedByMember returns exactly one entry per member, in input order.
// Payments that reference a member outside the set are left out of every
// bucket; they still count in TotalCollected.
func CollectedByMember(members []core.Member, payments []core.Payment) MemberTotals {
	byID := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		byID[m.ID] = decimal.Zero
	}
	for _, p := range payments {
		if sum, ok := byID[p.MemberID]; ok {
			byID[p.MemberID] = sum.Add(p.Amount)
		}
	}

	out := make(MemberTotals, 0, len(members))
	for _, m := range members {
		out = append(out, MemberTotal{Member: m, Collected: byID[m.ID]})
	}
	return out
}

// Unmatched sums the payments whose member is not in members.
func Unmatched(members []core.Member, payments []core.Payment) decimal.Decimal {
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.ID] = struct{}{}
	}
	sum := decimal.Zero
	for _, p := range payments {
		if _, ok := known[p.MemberID]; !ok {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

// RemainingToGoal is target minus collected. A negative result means the
// plan was overpaid.
func RemainingToGoal(target, collected decimal.Decimal) decimal.Decimal {
	return target.Sub(collected)
}

// GoalReached reports whether nothing is left to collect.
func GoalReached(target, collected decimal.Decimal) bool {
	return !RemainingToGoal(target, collected).IsPositive()
}

// PercentComplete is collected/target*100, unbounded. It is 0 when the
// target is not positive.
func PercentComplete(target, collected decimal.Decimal) float64 {
	if !target.IsPositive() {
		return 0
	}
	return collected.Div(target).Mul(hundred).InexactFloat64()
}

// DisplayPercent is PercentComplete clamped to [0, 100].
func DisplayPercent(target, collected decimal.Decimal) float64 {
	return clamp(PercentComplete(target, collected), 0, 100)
}

// ProgressFraction is the progress bar fill in [0, 1].
func ProgressFraction(target, collected decimal.Decimal) float64 {
	return DisplayPercent(target, collected) / 100
}

// ContributionProgress compares what a member paid against their monthly
// contribution, clamped to [0, 1]. Members without a contribution report 0.
func ContributionProgress(paid, contributionPerMonth decimal.Decimal) float64 {
	if !contributionPerMonth.IsPositive() {
		return 0
	}
	return clamp(paid.Div(contributionPerMonth).InexactFloat64(), 0, 1)
}

// ExceedsRemaining reports whether paying amount would overshoot a goal that
// is not reached yet.
func ExceedsRemaining(target, collected, amount decimal.Decimal) bool {
	remaining := RemainingToGoal(target, collected)
	return remaining.IsPositive() && amount.GreaterThan(remaining)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
