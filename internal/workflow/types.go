package workflow

// Kind identifies which rule set applies to a request.
type Kind string

const (
	KindLeave          Kind = "LEAVE"
	KindExpense        Kind = "EXPENSE"
	KindCompOff        Kind = "COMP_OFF"
	KindRegularization Kind = "REGULARIZATION"
	KindPurchaseOrder  Kind = "PURCHASE_ORDER"
)

// Status values shared across all request kinds. Purchase orders use the
// full set; the other kinds only ever move between PENDING and the three
// decided states.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusPending           Status = "PENDING"
	StatusApproved          Status = "APPROVED"
	StatusRejected          Status = "REJECTED"
	StatusCancelled         Status = "CANCELLED"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusReceived          Status = "RECEIVED"
)

// Action is a requested transition on a request.
type Action string

const (
	ActionSubmit  Action = "SUBMIT"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionCancel  Action = "CANCEL"
	ActionReceive Action = "RECEIVE"
)

// Resource types tracked by the balance ledger.
const (
	ResourceAnnualLeave = "ANNUAL_LEAVE"
	ResourceSickLeave   = "SICK_LEAVE"
	ResourceCasualLeave = "CASUAL_LEAVE"
	ResourceCompOff     = "COMP_OFF"
	ResourcePayment     = "PAYMENT"
)

// ValidKinds lists every kind the engine dispatches on.
var ValidKinds = []Kind{KindLeave, KindExpense, KindCompOff, KindRegularization, KindPurchaseOrder}

func (k Kind) Valid() bool {
	for _, v := range ValidKinds {
		if k == v {
			return true
		}
	}
	return false
}

// InitialStatus returns the status a freshly created request starts in.
// Purchase orders start as drafts and need an explicit submit; everything
// else goes straight into the approval queue.
func InitialStatus(kind Kind) Status {
	if kind == KindPurchaseOrder {
		return StatusDraft
	}
	return StatusPending
}

// IsDecided reports whether a status was reached through an approve or
// reject decision (including the receiving states that follow approval).
func IsDecided(s Status) bool {
	switch s {
	case StatusApproved, StatusRejected, StatusPartiallyReceived, StatusReceived:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are modeled out of s,
// other than the explicit approved->cancelled path for leave.
func IsTerminal(s Status) bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusReceived:
		return true
	}
	return false
}

// Mutable reports whether a request in status s may still be amended.
func Mutable(kind Kind, s Status) bool {
	if kind == KindPurchaseOrder {
		return s == StatusDraft
	}
	return s == StatusPending
}
