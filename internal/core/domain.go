package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMotive is sent when a plan is created without a motive.
const DefaultMotive = "Ahorro familiar"

const maxNameLength = 100

func init() {
	// The backend speaks JSON numbers for every amount.
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	// Plan is a family savings goal as returned by the backend.
	Plan struct {
		ID           string          `json:"_id,omitempty"`
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		Months       int             `json:"months"`
		Motive       string          `json:"motive,omitempty"`
		CreatedAt    time.Time       `json:"createdAt,omitempty"`

		// Embedded collections some backends attach to the plan document.
		// They are informational; totals are always recomputed client side.
		Members        []Member         `json:"members,omitempty"`
		Payments       []Payment        `json:"payments,omitempty"`
		TotalCollected *decimal.Decimal `json:"totalCollected,omitempty"`
	}

	// Member is a participant of exactly one plan.
	Member struct {
		ID                   string          `json:"_id,omitempty"`
		Name                 string          `json:"name"`
		PlanID               string          `json:"planId"`
		ContributionPerMonth decimal.Decimal `json:"contributionPerMonth"`
		JoinedAt             time.Time       `json:"createdAt,omitempty"`
	}

	// Payment is a single contribution of a member toward a plan.
	Payment struct {
		ID       string          `json:"_id,omitempty"`
		Amount   decimal.Decimal `json:"amount"`
		MemberID string          `json:"memberId"`
		PlanID   string          `json:"planId"`
		Date     time.Time       `json:"date,omitempty"`
	}

	CreatePlanRequest struct {
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		Motive       string          `json:"motive"`
		Months       int             `json:"months"`
	}

	CreateMemberRequest struct {
		Name                 string          `json:"name"`
		PlanID               string          `json:"planId"`
		ContributionPerMonth decimal.Decimal `json:"contributionPerMonth"`
	}

	// CreatePaymentRequest carries no date; the backend stamps it.
	CreatePaymentRequest struct {
		Amount   decimal.Decimal `json:"amount"`
		MemberID string          `json:"memberId"`
		PlanID   string          `json:"planId"`
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 100 characters)")
	ErrInvalidTarget       = errors.New("target amount must be greater than 0")
	ErrInvalidMonths       = errors.New("duration in months must be greater than 0")
	ErrInvalidContribution = errors.New("monthly contribution cannot be negative")
	ErrInvalidAmount       = errors.New("amount must be a valid number greater than 0")
	ErrMissingPlanID       = errors.New("missing plan id")
	ErrMissingMemberID     = errors.New("missing member id")
)

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (r CreatePlanRequest) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if !r.TargetAmount.IsPositive() {
		return ErrInvalidTarget
	}
	if r.Months <= 0 {
		return ErrInvalidMonths
	}
	return nil
}

// WithDefaults returns a copy with the trimmed name and the default motive filled in.
func (r CreatePlanRequest) WithDefaults() CreatePlanRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Motive = strings.TrimSpace(r.Motive)
	if r.Motive == "" {
		r.Motive = DefaultMotive
	}
	return r
}

func (r CreateMemberRequest) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if strings.TrimSpace(r.PlanID) == "" {
		return ErrMissingPlanID
	}
	if r.ContributionPerMonth.IsNegative() {
		return ErrInvalidContribution
	}
	return nil
}

func (r CreatePaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.MemberID) == "" {
		return ErrMissingMemberID
	}
	if strings.TrimSpace(r.PlanID) == "" {
		return ErrMissingPlanID
	}
	return nil
}

// FilterByMember returns the payments made by memberID, in input order.
func FilterByMember(payments []Payment, memberID string) []Payment {
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	return out
}

// FindPlan returns the plan with the given id from a list.
func FindPlan(plans []Plan, id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// FindMember returns the member with the given id from a list.
func FindMember(members []Member, id string) (Member, bool) {
	for _, m := range members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}
