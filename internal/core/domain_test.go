package core

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreatePlanRequestValidate(t *testing.T) {
	good := CreatePlanRequest{Name: "Vacaciones", TargetAmount: decimal.NewFromInt(1000), Months: 6}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		req  CreatePlanRequest
		want error
	}{
		{CreatePlanRequest{Name: " ", TargetAmount: decimal.NewFromInt(1), Months: 1}, ErrEmptyName},
		{CreatePlanRequest{Name: strings.Repeat("a", 101), TargetAmount: decimal.NewFromInt(1), Months: 1}, ErrNameTooLong},
		{CreatePlanRequest{Name: "a", TargetAmount: decimal.Zero, Months: 1}, ErrInvalidTarget},
		{CreatePlanRequest{Name: "a", TargetAmount: decimal.NewFromInt(-5), Months: 1}, ErrInvalidTarget},
		{CreatePlanRequest{Name: "a", TargetAmount: decimal.NewFromInt(1), Months: 0}, ErrInvalidMonths},
	}
	for i, tc := range cases {
		if err := tc.req.Validate(); err != tc.want {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestCreatePlanRequestWithDefaults(t *testing.T) {
	r := CreatePlanRequest{Name: "  Casa  "}.WithDefaults()
	if r.Name != "Casa" {
		t.Fatalf("expected trimmed name, got %q", r.Name)
	}
	if r.Motive != DefaultMotive {
		t.Fatalf("expected default motive, got %q", r.Motive)
	}

	r = CreatePlanRequest{Name: "Casa", Motive: "Reforma"}.WithDefaults()
	if r.Motive != "Reforma" {
		t.Fatalf("motive should be kept, got %q", r.Motive)
	}
}

func TestCreateMemberRequestValidate(t *testing.T) {
	if err := (CreateMemberRequest{Name: "Juan", PlanID: "p1"}).Validate(); err != nil {
		t.Fatalf("expected ok with zero contribution, got %v", err)
	}
	bads := []CreateMemberRequest{
		{Name: "", PlanID: "p1"},
		{Name: "Juan", PlanID: ""},
		{Name: "Juan", PlanID: "p1", ContributionPerMonth: decimal.NewFromInt(-1)},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCreatePaymentRequestValidate(t *testing.T) {
	if err := (CreatePaymentRequest{Amount: decimal.NewFromInt(10), MemberID: "m1", PlanID: "p1"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []CreatePaymentRequest{
		{Amount: decimal.Zero, MemberID: "m1", PlanID: "p1"},
		{Amount: decimal.NewFromInt(10), MemberID: "", PlanID: "p1"},
		{Amount: decimal.NewFromInt(10), MemberID: "m1", PlanID: ""},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPaymentJSONUsesNumbers(t *testing.T) {
	body, err := json.Marshal(CreatePaymentRequest{Amount: decimal.RequireFromString("12.5"), MemberID: "m1", PlanID: "p1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"amount":12.5,"memberId":"m1","planId":"p1"}`
	if string(body) != want {
		t.Fatalf("expected %s, got %s", want, body)
	}
}

func TestDecodeBackendPlan(t *testing.T) {
	raw := `{"_id":"abc","name":"Viaje","targetAmount":1500.75,"months":12,"motive":"Ahorro familiar","createdAt":"2024-03-01T10:00:00.000Z","totalCollected":300}`
	var p Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "abc" || p.Months != 12 {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if !p.TargetAmount.Equal(decimal.RequireFromString("1500.75")) {
		t.Fatalf("unexpected target: %s", p.TargetAmount)
	}
	if p.TotalCollected == nil || !p.TotalCollected.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected server total to decode, got %v", p.TotalCollected)
	}
	if p.CreatedAt.Year() != 2024 {
		t.Fatalf("unexpected createdAt: %v", p.CreatedAt)
	}
}

func TestFilterAndFind(t *testing.T) {
	payments := []Payment{
		{ID: "1", MemberID: "a", Amount: decimal.NewFromInt(1)},
		{ID: "2", MemberID: "b", Amount: decimal.NewFromInt(2)},
		{ID: "3", MemberID: "a", Amount: decimal.NewFromInt(3)},
	}
	got := FilterByMember(payments, "a")
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if len(FilterByMember(nil, "a")) != 0 {
		t.Fatalf("expected empty result for nil input")
	}

	if _, ok := FindPlan([]Plan{{ID: "x"}}, "y"); ok {
		t.Fatalf("expected plan not found")
	}
	if m, ok := FindMember([]Member{{ID: "m", Name: "Ana"}}, "m"); !ok || m.Name != "Ana" {
		t.Fatalf("expected member found, got %+v %v", m, ok)
	}
}
