package workflow

// transitions is the declarative state machine: kind -> current status ->
// action -> target status. The receive target here is the full-receipt
// default; ResolveReceiveStatus downgrades it to PARTIALLY_RECEIVED when
// lines remain outstanding.
var transitions = map[Kind]map[Status]map[Action]Status{
	KindLeave: {
		StatusPending: {
			ActionApprove: StatusApproved,
			ActionReject:  StatusRejected,
			ActionCancel:  StatusCancelled,
		},
		// Cancelling an approved leave releases the reserved days; only
		// allowed before the start date (rule checked separately).
		StatusApproved: {
			ActionCancel: StatusCancelled,
		},
	},
	KindExpense: {
		StatusPending: {
			ActionApprove: StatusApproved,
			ActionReject:  StatusRejected,
			ActionCancel:  StatusCancelled,
		},
	},
	KindCompOff: {
		StatusPending: {
			ActionApprove: StatusApproved,
			ActionReject:  StatusRejected,
			ActionCancel:  StatusCancelled,
		},
	},
	KindRegularization: {
		StatusPending: {
			ActionApprove: StatusApproved,
			ActionReject:  StatusRejected,
			ActionCancel:  StatusCancelled,
		},
	},
	KindPurchaseOrder: {
		StatusDraft: {
			ActionSubmit: StatusPending,
			ActionCancel: StatusCancelled,
		},
		StatusPending: {
			ActionApprove: StatusApproved,
			ActionReject:  StatusRejected,
			ActionCancel:  StatusCancelled,
		},
		StatusApproved: {
			ActionReceive: StatusReceived,
			ActionCancel:  StatusCancelled,
		},
		StatusPartiallyReceived: {
			ActionReceive: StatusReceived,
		},
	},
}

// Next resolves the target status for an action, or an error when the
// transition is not modeled. Re-deciding an already decided request gets
// the dedicated ErrAlreadyDecided so callers can distinguish stale state
// from a plainly invalid move.
func Next(kind Kind, from Status, action Action) (Status, error) {
	byStatus, ok := transitions[kind]
	if !ok {
		return "", ErrInvalidTransition
	}

	if byAction, ok := byStatus[from]; ok {
		if to, ok := byAction[action]; ok {
			return to, nil
		}
	}

	if (action == ActionApprove || action == ActionReject) && from != StatusPending {
		return "", ErrAlreadyDecided
	}
	return "", ErrInvalidTransition
}

// ReceiptLine is the per-line view the receive rules operate on.
type ReceiptLine struct {
	LineID    string
	Ordered   int
	Received  int
	Receiving int
}

// ValidateReceipt checks every line of a receive action against the
// outstanding quantity. Lines not being received may carry Receiving == 0.
func ValidateReceipt(lines []ReceiptLine) error {
	any := false
	for _, l := range lines {
		if l.Receiving < 0 {
			return ErrValidation
		}
		if l.Receiving == 0 {
			continue
		}
		any = true
		if l.Received+l.Receiving > l.Ordered {
			return &OverReceiptError{
				LineID:    l.LineID,
				Ordered:   l.Ordered,
				Received:  l.Received,
				Receiving: l.Receiving,
			}
		}
	}
	if !any {
		return ErrValidation
	}
	return nil
}

// ResolveReceiveStatus returns the status a purchase order lands in after
// the given receipts are applied: RECEIVED when every line is fully
// received, PARTIALLY_RECEIVED otherwise.
func ResolveReceiveStatus(lines []ReceiptLine) Status {
	for _, l := range lines {
		if l.Received+l.Receiving < l.Ordered {
			return StatusPartiallyReceived
		}
	}
	return StatusReceived
}
