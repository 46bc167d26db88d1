package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Permission codes relevant to the engine. The full catalog lives in the
// role seeding; these are the ones rules dispatch on.
const (
	PermApprovePurchase = "requests.approve_purchase"
)

// Actor is the authenticated principal attempting a transition, resolved by
// the caller from the identity store.
type Actor struct {
	ID          uuid.UUID
	Role        string
	Permissions []string
}

func (a Actor) HasPermission(code string) bool {
	if strings.EqualFold(a.Role, "admin") {
		return true
	}
	for _, p := range a.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// Authorize enforces who may perform an action:
//   - submit and cancel belong to the requester (admins may also cancel)
//   - approve/reject on purchase orders needs the approve-purchase permission
//   - approve/reject on everything else is the requester's manager only
func Authorize(kind Kind, action Action, actor Actor, requesterID uuid.UUID, managerID *uuid.UUID) error {
	switch action {
	case ActionSubmit:
		if actor.ID != requesterID {
			return ErrForbidden
		}
		return nil
	case ActionCancel:
		if actor.ID == requesterID || strings.EqualFold(actor.Role, "admin") {
			return nil
		}
		return ErrForbidden
	case ActionApprove, ActionReject:
		if kind == KindPurchaseOrder {
			if !actor.HasPermission(PermApprovePurchase) {
				return ErrForbidden
			}
			return nil
		}
		if managerID == nil || actor.ID != *managerID {
			return ErrForbidden
		}
		return nil
	case ActionReceive:
		if kind != KindPurchaseOrder {
			return ErrInvalidTransition
		}
		// Receiving is warehouse work, open to the requester or any
		// purchase approver.
		if actor.ID == requesterID || actor.HasPermission(PermApprovePurchase) {
			return nil
		}
		return ErrForbidden
	}
	return ErrInvalidTransition
}

// RequireReason enforces the reject-needs-a-reason rule.
func RequireReason(action Action, reason string) error {
	if action == ActionReject && strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	return nil
}

// ValidateDateRange rejects inverted ranges. Single-day requests carry
// start == end.
func ValidateDateRange(start, end time.Time) error {
	if BusinessDate(end).Before(BusinessDate(start)) {
		return ErrValidation
	}
	return nil
}

// CheckNotice enforces the configured advance-notice window on leave
// submissions: the start date must be at least noticeDays calendar days
// after today.
func CheckNotice(now, start time.Time, noticeDays int) error {
	if noticeDays <= 0 {
		return nil
	}
	earliest := BusinessDate(now).AddDate(0, 0, noticeDays)
	if BusinessDate(start).Before(earliest) {
		return ErrInsufficientNotice
	}
	return nil
}

// CheckCancelBeforeStart gates cancellation of an approved leave: once the
// leave has started its days are consumed and the reservation stands.
func CheckCancelBeforeStart(now, start time.Time) error {
	if !BusinessDate(now).Before(BusinessDate(start)) {
		return ErrInvalidTransition
	}
	return nil
}

// Overlaps reports whether two inclusive date ranges intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !BusinessDate(aStart).After(BusinessDate(bEnd)) &&
		!BusinessDate(bStart).After(BusinessDate(aEnd))
}

// ValidateCompOffDate checks a compensatory-off claim: the worked date must
// have a recorded attendance entry and fall on a weekend or a listed
// holiday.
func ValidateCompOffDate(worked time.Time, hasAttendance, isHoliday bool) error {
	if !hasAttendance {
		return ErrUnworkedDate
	}
	wd := BusinessDate(worked).Weekday()
	if wd != time.Saturday && wd != time.Sunday && !isHoliday {
		return ErrNotEligibleDate
	}
	return nil
}
