package aggregate

import (
	"testing"

	"familysavings/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pay(memberID, amount string) core.Payment {
	return core.Payment{MemberID: memberID, PlanID: "plan", Amount: d(amount)}
}

func familyMembers() []core.Member {
	return []core.Member{
		{ID: "1", Name: "Juan", PlanID: "plan"},
		{ID: "2", Name: "Maria", PlanID: "plan"},
		{ID: "3", Name: "Pedro", PlanID: "plan"},
	}
}

func TestCollectedByMemberFamily(t *testing.T) {
	payments := []core.Payment{pay("1", "100"), pay("2", "200"), pay("1", "150"), pay("3", "75"), pay("2", "50")}

	totals := CollectedByMember(familyMembers(), payments)
	if len(totals) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(totals))
	}
	want := []struct {
		name   string
		amount string
	}{{"Juan", "250"}, {"Maria", "250"}, {"Pedro", "75"}}
	for i, w := range want {
		if totals[i].Member.Name != w.name || !totals[i].Collected.Equal(d(w.amount)) {
			t.Fatalf("entry %d: expected %s=%s, got %s=%s", i, w.name, w.amount, totals[i].Member.Name, totals[i].Collected)
		}
	}
	if got := TotalCollected(payments); !got.Equal(d("575")) {
		t.Fatalf("expected total 575, got %s", got)
	}
}

func TestCollectedByMemberDropsUnknownMember(t *testing.T) {
	members := []core.Member{{ID: "1", Name: "Juan"}}
	payments := []core.Payment{pay("999", "100"), pay("1", "200")}

	totals := CollectedByMember(members, payments)
	if len(totals) != 1 || !totals[0].Collected.Equal(d("200")) {
		t.Fatalf("expected Juan=200, got %+v", totals)
	}
	if got := TotalCollected(payments); !got.Equal(d("300")) {
		t.Fatalf("plan total should ignore member matching, got %s", got)
	}
	if got := Unmatched(members, payments); !got.Equal(d("100")) {
		t.Fatalf("expected 100 unmatched, got %s", got)
	}
}

func TestEmptyPayments(t *testing.T) {
	totals := CollectedByMember(familyMembers(), nil)
	if len(totals) != 3 {
		t.Fatalf("expected one entry per member, got %d", len(totals))
	}
	for _, mt := range totals {
		if !mt.Collected.IsZero() {
			t.Fatalf("expected zero for %s, got %s", mt.Member.Name, mt.Collected)
		}
	}
	if !TotalCollected(nil).IsZero() {
		t.Fatalf("expected zero total for no payments")
	}
	if !TotalCollected([]core.Payment{}).IsZero() {
		t.Fatalf("expected zero total for empty payments")
	}
}

func TestOverpaidPlan(t *testing.T) {
	target, collected := d("1000"), d("1200")

	if got := RemainingToGoal(target, collected); !got.Equal(d("-200")) {
		t.Fatalf("expected -200 remaining, got %s", got)
	}
	if !GoalReached(target, collected) {
		t.Fatalf("overpaid plan should count as reached")
	}
	if got := PercentComplete(target, collected); got != 120 {
		t.Fatalf("expected unclamped 120, got %v", got)
	}
	if got := DisplayPercent(target, collected); got != 100 {
		t.Fatalf("expected display 100, got %v", got)
	}
	if got := ProgressFraction(target, collected); got != 1 {
		t.Fatalf("expected full progress bar, got %v", got)
	}
}

func TestPercentCompleteGuardsZeroTarget(t *testing.T) {
	cases := []struct{ target, collected string }{
		{"0", "50"},
		{"0", "0"},
		{"-10", "50"},
	}
	for _, tc := range cases {
		if got := PercentComplete(d(tc.target), d(tc.collected)); got != 0 {
			t.Fatalf("target=%s collected=%s: expected 0, got %v", tc.target, tc.collected, got)
		}
	}
}

func TestPercentComplete(t *testing.T) {
	cases := []struct {
		target, collected string
		percent, display  float64
	}{
		{"1000", "0", 0, 0},
		{"1000", "250", 25, 25},
		{"1000", "1000", 100, 100},
		{"400", "1", 0.25, 0.25},
	}
	for _, tc := range cases {
		if got := PercentComplete(d(tc.target), d(tc.collected)); got != tc.percent {
			t.Errorf("PercentComplete(%s, %s) = %v, want %v", tc.target, tc.collected, got, tc.percent)
		}
		if got := DisplayPercent(d(tc.target), d(tc.collected)); got != tc.display {
			t.Errorf("DisplayPercent(%s, %s) = %v, want %v", tc.target, tc.collected, got, tc.display)
		}
	}
}

func TestContributionProgress(t *testing.T) {
	cases := []struct {
		paid, contribution string
		want               float64
	}{
		{"50", "100", 0.5},
		{"150", "100", 1},
		{"0", "100", 0},
		{"50", "0", 0},
	}
	for _, tc := range cases {
		if got := ContributionProgress(d(tc.paid), d(tc.contribution)); got != tc.want {
			t.Errorf("ContributionProgress(%s, %s) = %v, want %v", tc.paid, tc.contribution, got, tc.want)
		}
	}
}

func TestExceedsRemaining(t *testing.T) {
	cases := []struct {
		target, collected, amount string
		want                      bool
	}{
		{"1000", "900", "100", false},
		{"1000", "900", "100.01", true},
		{"1000", "1000", "5", false},
		{"1000", "1200", "5", false},
		{"1000", "0", "999", false},
	}
	for _, tc := range cases {
		if got := ExceedsRemaining(d(tc.target), d(tc.collected), d(tc.amount)); got != tc.want {
			t.Errorf("ExceedsRemaining(%s, %s, %s) = %v, want %v", tc.target, tc.collected, tc.amount, got, tc.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	plan := core.Plan{ID: "plan", Name: "Vacaciones", TargetAmount: d("1000")}
	payments := []core.Payment{pay("1", "100"), pay("2", "200"), pay("1", "150"), pay("3", "75"), pay("2", "50"), pay("ghost", "25")}

	s := Summarize(plan, familyMembers(), payments)
	if !s.TotalCollected.Equal(d("600")) {
		t.Fatalf("expected total 600, got %s", s.TotalCollected)
	}
	if !s.Remaining.Equal(d("400")) {
		t.Fatalf("expected remaining 400, got %s", s.Remaining)
	}
	if s.Percent != 60 || s.DisplayPercent != 60 || s.Progress != 0.6 {
		t.Fatalf("unexpected percentages: %v %v %v", s.Percent, s.DisplayPercent, s.Progress)
	}
	if s.GoalReached {
		t.Fatalf("goal should not be reached")
	}
	if !s.Unmatched.Equal(d("25")) {
		t.Fatalf("expected 25 unmatched, got %s", s.Unmatched)
	}
	if s.PaymentCount != 6 {
		t.Fatalf("expected 6 payments, got %d", s.PaymentCount)
	}
	if got := s.Members.ByMemberID()["3"]; !got.Equal(d("75")) {
		t.Fatalf("expected Pedro=75, got %s", got)
	}
}

func TestStatement(t *testing.T) {
	plan := core.Plan{ID: "plan", TargetAmount: d("1000")}
	member := core.Member{ID: "1", Name: "Juan", ContributionPerMonth: d("200")}
	payments := []core.Payment{pay("1", "100"), pay("2", "500"), pay("1", "50")}

	st := Statement(plan, member, payments)
	if len(st.Payments) != 2 {
		t.Fatalf("expected 2 member payments, got %d", len(st.Payments))
	}
	if !st.TotalPaid.Equal(d("150")) {
		t.Fatalf("expected 150 paid, got %s", st.TotalPaid)
	}
	if st.ContributionProgress != 0.75 {
		t.Fatalf("expected 0.75 contribution progress, got %v", st.ContributionProgress)
	}
	if !st.PlanRemaining.Equal(d("350")) {
		t.Fatalf("expected plan remaining 350, got %s", st.PlanRemaining)
	}
}

func TestInputsAreNotModified(t *testing.T) {
	members := familyMembers()
	payments := []core.Payment{pay("1", "100"), pay("9", "1")}

	_ = Summarize(core.Plan{TargetAmount: d("10")}, members, payments)

	if members[0].Name != "Juan" || len(members) != 3 {
		t.Fatalf("members modified: %+v", members)
	}
	if payments[1].MemberID != "9" || !payments[0].Amount.Equal(d("100")) {
		t.Fatalf("payments modified: %+v", payments)
	}
}
