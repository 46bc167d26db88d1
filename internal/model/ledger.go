package model

import (
	"time"

	"erpcore/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceLedger tracks a mutable numeric resource for one subject and
// period: an employee's annual leave for a year, or a vendor's payment
// tally. Rows are created lazily on first mutation and never deleted.
//
// Invariant: Available == Entitled + CarriedForward - Used, at all times.
// Used and Available always change together, inside the same transaction
// as the request status change that caused the mutation.
type BalanceLedger struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubjectID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_key" json:"subject_id"`
	ResourceType   string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_ledger_key" json:"resource_type"`
	Period         int             `gorm:"not null;uniqueIndex:idx_ledger_key" json:"period"` // calendar year
	Entitled       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"entitled"`
	CarriedForward decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"carried_forward"`
	Used           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"used"`
	Available      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"available"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Reserve debits amount from the available balance. Fails without mutating
// when the balance is short.
func (l *BalanceLedger) Reserve(amount decimal.Decimal) error {
	if l.Available.LessThan(amount) {
		return &workflow.InsufficientBalanceError{
			SubjectID:    l.SubjectID.String(),
			ResourceType: l.ResourceType,
			Period:       l.Period,
			Available:    l.Available,
			Requested:    amount,
		}
	}
	l.Used = l.Used.Add(amount)
	l.Available = l.Available.Sub(amount)
	return nil
}

// Release credits back a previously reserved amount. Clamps Used at zero
// rather than going negative; the caller logs the inconsistency.
// Returns true when clamping occurred.
func (l *BalanceLedger) Release(amount decimal.Decimal) bool {
	clamped := false
	if l.Used.LessThan(amount) {
		amount = l.Used
		clamped = true
	}
	l.Used = l.Used.Sub(amount)
	l.Available = l.Available.Add(amount)
	return clamped
}

// Credit grows the entitlement (comp-off approval, yearly seeding).
func (l *BalanceLedger) Credit(amount decimal.Decimal) {
	l.Entitled = l.Entitled.Add(amount)
	l.Available = l.Available.Add(amount)
}

// Post records an unchecked debit, used for payment ledgers where the
// balance is a running payables tally rather than an allowance.
func (l *BalanceLedger) Post(amount decimal.Decimal) {
	l.Used = l.Used.Add(amount)
	l.Available = l.Available.Sub(amount)
}

// ConsistencyOK verifies the ledger invariant.
func (l *BalanceLedger) ConsistencyOK() bool {
	return l.Available.Equal(l.Entitled.Add(l.CarriedForward).Sub(l.Used))
}
