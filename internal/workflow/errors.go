package workflow

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for every rule the engine enforces. Handlers map these to
// HTTP status codes; services wrap them with request context via %w.
var (
	ErrValidation               = errors.New("invalid input")
	ErrForbidden                = errors.New("actor is not authorized for this transition")
	ErrAlreadyDecided           = errors.New("request is already decided")
	ErrInvalidTransition        = errors.New("transition not allowed from current status")
	ErrInvalidStateForAmendment = errors.New("request can no longer be amended")
	ErrMissingReason            = errors.New("rejection requires a reason")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrOverlappingRequest       = errors.New("date range overlaps an existing request")
	ErrInsufficientNotice       = errors.New("request does not meet the advance notice window")
	ErrOverReceipt              = errors.New("received quantity exceeds outstanding quantity")
	ErrUnworkedDate             = errors.New("no attendance recorded for claimed date")
	ErrNotEligibleDate          = errors.New("claimed date is not a weekend or holiday")
	ErrRequestNotFound          = errors.New("request not found")
)

// InsufficientBalanceError carries the shortfall details for ErrInsufficientBalance.
type InsufficientBalanceError struct {
	SubjectID    string
	ResourceType string
	Period       int
	Available    decimal.Decimal
	Requested    decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s in %d: available %s, requested %s",
		e.ResourceType, e.SubjectID, e.Period, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// OverReceiptError identifies the offending purchase order line.
type OverReceiptError struct {
	LineID    string
	Ordered   int
	Received  int
	Receiving int
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("line %s: receiving %d exceeds outstanding %d (ordered %d, received %d)",
		e.LineID, e.Receiving, e.Ordered-e.Received, e.Ordered, e.Received)
}

func (e *OverReceiptError) Unwrap() error {
	return ErrOverReceipt
}

// IsConflict reports errors the caller can resolve by reloading and retrying.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidStateForAmendment)
}

// IsBusinessRule reports rule violations that are the caller's fault, not a
// storage failure. Handlers translate these to 422.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrMissingReason) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrOverlappingRequest) ||
		errors.Is(err, ErrInsufficientNotice) ||
		errors.Is(err, ErrOverReceipt) ||
		errors.Is(err, ErrUnworkedDate) ||
		errors.Is(err, ErrNotEligibleDate)
}
