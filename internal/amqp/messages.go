package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventType names what happened to a plan.
type EventType string

const (
	EventPlanCreated     EventType = "plan.created"
	EventMemberAdded     EventType = "member.added"
	EventPaymentRecorded EventType = "payment.recorded"
	EventGoalReached     EventType = "plan.goal_reached"
)

// Event is published after a successful write. Totals are the client side
// aggregate right after the write.
type Event struct {
	Type           EventType       `json:"type"`
	PlanID         string          `json:"planId"`
	MemberID       string          `json:"memberId,omitempty"`
	PaymentID      string          `json:"paymentId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	TotalCollected decimal.Decimal `json:"totalCollected"`
	TargetAmount   decimal.Decimal `json:"targetAmount"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(typ EventType, planID string) *Event {
	return &Event{
		Type:      typ,
		PlanID:    planID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
