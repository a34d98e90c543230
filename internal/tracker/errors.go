package tracker

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"familysavings/internal/core"
)

var (
	ErrExceedsRemaining = errors.New("amount exceeds remaining goal")
	ErrMemberNotFound   = errors.New("member not found in plan")
	ErrTotalUnknown     = errors.New("payments of the plan could not be loaded")
)

// ExceedsRemainingError is returned by RegisterPayment when the amount would
// overshoot the goal and overpaying was not allowed.
type ExceedsRemainingError struct {
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *ExceedsRemainingError) Error() string {
	return fmt.Sprintf("%s: %s > %s", ErrExceedsRemaining, e.Amount, e.Remaining)
}

func (e *ExceedsRemainingError) Message() string {
	return fmt.Sprintf("the amount %s exceeds the remaining goal of %s",
		core.FormatAmount(e.Amount), core.FormatAmount(e.Remaining))
}

func (e *ExceedsRemainingError) Is(target error) bool { return target == ErrExceedsRemaining }
