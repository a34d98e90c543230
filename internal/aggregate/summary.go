package aggregate

import (
	"familysavings/internal/core"

	"github.com/shopspring/decimal"
)

// PlanSummary is everything the payment summary view shows for one plan.
type PlanSummary struct {
	Plan           core.Plan
	TotalCollected decimal.Decimal
	Remaining      decimal.Decimal
	Percent        float64
	DisplayPercent float64
	Progress       float64
	GoalReached    bool
	Members        MemberTotals
	Unmatched      decimal.Decimal
	PaymentCount   int
}

// Summarize computes a PlanSummary once all three inputs are loaded.
func Summarize(plan core.Plan, members []core.Member, payments []core.Payment) PlanSummary {
	total := TotalCollected(payments)
	return PlanSummary{
		Plan:           plan,
		TotalCollected: total,
		Remaining:      RemainingToGoal(plan.TargetAmount, total),
		Percent:        PercentComplete(plan.TargetAmount, total),
		DisplayPercent: DisplayPercent(plan.TargetAmount, total),
		Progress:       ProgressFraction(plan.TargetAmount, total),
		GoalReached:    GoalReached(plan.TargetAmount, total),
		Members:        CollectedByMember(members, payments),
		Unmatched:      Unmatched(members, payments),
		PaymentCount:   len(payments),
	}
}

// MemberStatement is one member's view of a plan.
type MemberStatement struct {
	Member               core.Member
	Payments             []core.Payment
	TotalPaid            decimal.Decimal
	ContributionProgress float64
	// PlanRemaining is measured against the whole plan, not the member.
	PlanRemaining decimal.Decimal
}

// Statement builds a MemberStatement from the plan's full payment list.
func Statement(plan core.Plan, member core.Member, planPayments []core.Payment) MemberStatement {
	own := core.FilterByMember(planPayments, member.ID)
	paid := TotalCollected(own)
	return MemberStatement{
		Member:               member,
		Payments:             own,
		TotalPaid:            paid,
		ContributionProgress: ContributionProgress(paid, member.ContributionPerMonth),
		PlanRemaining:        RemainingToGoal(plan.TargetAmount, TotalCollected(planPayments)),
	}
}
