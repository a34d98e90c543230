package aggregate

import (
	"reflect"
	"strconv"
	"testing"

	"familysavings/internal/core"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func genAmount() *rapid.Generator[decimal.Decimal] {
	return rapid.Custom(func(t *rapid.T) decimal.Decimal {
		return decimal.New(rapid.Int64Range(1, 10_000_000).Draw(t, "cents"), -2)
	})
}

func genMembers() *rapid.Generator[[]core.Member] {
	return rapid.Custom(func(t *rapid.T) []core.Member {
		ids := rapid.SliceOfNDistinct(rapid.IntRange(1, 8), 0, 6, rapid.ID[int]).Draw(t, "member_ids")
		out := make([]core.Member, len(ids))
		for i, id := range ids {
			out[i] = core.Member{ID: strconv.Itoa(id), Name: "m" + strconv.Itoa(id), PlanID: "plan"}
		}
		return out
	})
}

func genPayments() *rapid.Generator[[]core.Payment] {
	return rapid.Custom(func(t *rapid.T) []core.Payment {
		n := rapid.IntRange(0, 20).Draw(t, "payment_count")
		out := make([]core.Payment, n)
		for i := range out {
			out[i] = core.Payment{
				ID:       strconv.Itoa(i),
				MemberID: strconv.Itoa(rapid.IntRange(1, 10).Draw(t, "payment_member")),
				PlanID:   "plan",
				Amount:   genAmount().Draw(t, "amount"),
			}
		}
		return out
	})
}

func TestPropertyTotalIsSumOfAmounts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payments := genPayments().Draw(t, "payments")
		want := decimal.Zero
		for _, p := range payments {
			want = want.Add(p.Amount)
		}
		if got := TotalCollected(payments); !got.Equal(want) {
			t.Fatalf("expected %s, got %s", want, got)
		}
	})
}

func TestPropertyMemberBucketsNeverExceedTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		members := genMembers().Draw(t, "members")
		payments := genPayments().Draw(t, "payments")

		totals := CollectedByMember(members, payments)
		if len(totals) != len(members) {
			t.Fatalf("expected %d entries, got %d", len(members), len(totals))
		}
		for i := range members {
			if totals[i].Member.ID != members[i].ID {
				t.Fatalf("entry %d out of order", i)
			}
		}

		sum := totals.Sum()
		total := TotalCollected(payments)
		if sum.GreaterThan(total) {
			t.Fatalf("member sum %s exceeds total %s", sum, total)
		}

		allMatched := Unmatched(members, payments).IsZero()
		if allMatched != sum.Equal(total) {
			t.Fatalf("equality must hold iff every payment matches a member: sum=%s total=%s", sum, total)
		}
		if !sum.Add(Unmatched(members, payments)).Equal(total) {
			t.Fatalf("member sum plus unmatched must equal total")
		}
	})
}

func TestPropertyRemainingNegativeIffOverpaid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		target := genAmount().Draw(t, "target")
		collected := decimal.New(rapid.Int64Range(0, 20_000_000).Draw(t, "collected_cents"), -2)

		remaining := RemainingToGoal(target, collected)
		if remaining.IsNegative() != collected.GreaterThan(target) {
			t.Fatalf("target=%s collected=%s remaining=%s", target, collected, remaining)
		}
	})
}

func TestPropertyPercentZeroForNonPositiveTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		target := decimal.New(rapid.Int64Range(-1_000_000, 0).Draw(t, "target_cents"), -2)
		collected := decimal.New(rapid.Int64Range(-1_000_000, 1_000_000).Draw(t, "collected_cents"), -2)
		if got := PercentComplete(target, collected); got != 0 {
			t.Fatalf("expected 0, got %v", got)
		}
	})
}

func TestPropertyDisplayPercentClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		target := decimal.New(rapid.Int64Range(-1_000, 1_000_000).Draw(t, "target_cents"), -2)
		collected := decimal.New(rapid.Int64Range(0, 5_000_000).Draw(t, "collected_cents"), -2)
		p := DisplayPercent(target, collected)
		if p < 0 || p > 100 {
			t.Fatalf("display percent out of range: %v", p)
		}
		f := ProgressFraction(target, collected)
		if f < 0 || f > 1 {
			t.Fatalf("progress fraction out of range: %v", f)
		}
	})
}

func TestPropertyIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		members := genMembers().Draw(t, "members")
		payments := genPayments().Draw(t, "payments")
		plan := core.Plan{ID: "plan", TargetAmount: genAmount().Draw(t, "target")}

		first := Summarize(plan, members, payments)
		second := Summarize(plan, members, payments)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("summaries differ:\n%+v\n%+v", first, second)
		}
	})
}
