package model

import (
	"time"

	"erpcore/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is one workflow instance: a leave request, expense claim,
// comp-off claim, attendance regularization, or purchase order. The kind
// tag selects the rule set; status is mutated only by the workflow service.
type Request struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind        workflow.Kind   `gorm:"type:varchar(30);not null;index:idx_requests_kind_status" json:"kind"`
	Status      workflow.Status `gorm:"type:varchar(30);not null;index:idx_requests_kind_status" json:"status"`
	RequesterID uuid.UUID       `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester   *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`

	// Amount is the requested quantity: leave days (half days allowed),
	// expense amount in the original currency, or the purchase order total.
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	ResourceType string          `gorm:"type:varchar(30);index" json:"resource_type"` // ledger resource this request debits/credits

	// Date fields. Leave uses StartDate..EndDate inclusive; comp-off and
	// regularization use WorkedDate; expenses and purchase orders leave
	// them nil.
	StartDate  *time.Time `gorm:"type:date;index" json:"start_date"`
	EndDate    *time.Time `gorm:"type:date" json:"end_date"`
	WorkedDate *time.Time `gorm:"type:date" json:"worked_date"`

	// Expense fields (base currency USD, mirroring the accounting ledger).
	Currency     string          `gorm:"type:varchar(10)" json:"currency,omitempty"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,6);default:1" json:"exchange_rate"`
	BaseAmount   decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"base_amount"`

	// Purchase order fields.
	VendorID *uuid.UUID          `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	Vendor   *Vendor             `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	PONumber string              `gorm:"type:varchar(50);index" json:"po_number,omitempty"`
	Lines    []PurchaseOrderLine `gorm:"foreignKey:RequestID" json:"lines,omitempty"`

	Description string `gorm:"type:text" json:"description"`
	Metadata    string `gorm:"type:jsonb" json:"metadata,omitempty"` // kind-specific extras (e.g. regularization clock times)

	// Decision audit. Both DecidedBy and DecidedAt are set together,
	// exactly once, by the transition into a decided state.
	DecidedByID   *uuid.UUID `gorm:"type:uuid" json:"decided_by_id"`
	DecidedBy     *User      `gorm:"foreignKey:DecidedByID" json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at"`
	DecisionNotes string     `gorm:"type:text" json:"decision_notes"`

	Attachments []Attachment `gorm:"foreignKey:RequestID" json:"attachments,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_requests_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a reference to evidence stored elsewhere (receipt scans,
// medical certificates). The engine only keeps the path.
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	StoragePath string    `gorm:"type:text;not null" json:"storage_path"`
	FileName    string    `gorm:"type:varchar(255)" json:"file_name"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// RegularizationDetail is the metadata payload for attendance
// regularization requests: the corrected clock times to apply on approval.
type RegularizationDetail struct {
	ClockIn  string `json:"clock_in"`  // HH:MM
	ClockOut string `json:"clock_out"` // HH:MM
}
