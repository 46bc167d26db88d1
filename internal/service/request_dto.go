package service

import (
	"time"

	"erpcore/internal/model"
)

// RequestResponse is the API view of a workflow request, shared by every
// kind-specific service and the generic request endpoints.
type RequestResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	RequesterID   string  `json:"requester_id"`
	RequesterName string  `json:"requester_name,omitempty"`
	Amount        string  `json:"amount"`
	ResourceType  string  `json:"resource_type,omitempty"`
	StartDate     *string `json:"start_date,omitempty"`
	EndDate       *string `json:"end_date,omitempty"`
	WorkedDate    *string `json:"worked_date,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	ExchangeRate  string  `json:"exchange_rate,omitempty"`
	BaseAmount    string  `json:"base_amount,omitempty"`
	VendorID      *string `json:"vendor_id,omitempty"`
	VendorName    string  `json:"vendor_name,omitempty"`
	PONumber      string  `json:"po_number,omitempty"`
	Description   string  `json:"description"`

	DecidedByID   *string `json:"decided_by_id"`
	DecidedByName string  `json:"decided_by_name,omitempty"`
	DecidedAt     *string `json:"decided_at"`
	DecisionNotes string  `json:"decision_notes,omitempty"`

	Lines       []PurchaseLineResponse `json:"lines,omitempty"`
	Attachments []AttachmentResponse   `json:"attachments,omitempty"`

	CreatedAt string `json:"created_at"`
}

type PurchaseLineResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	OrderedQty  int    `json:"ordered_qty"`
	ReceivedQty int    `json:"received_qty"`
	UnitPrice   string `json:"unit_price"`
}

type AttachmentResponse struct {
	ID          string `json:"id"`
	StoragePath string `json:"storage_path"`
	FileName    string `json:"file_name"`
	UploadedAt  string `json:"uploaded_at"`
}

func fmtDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func toRequestResponse(r *model.Request) RequestResponse {
	resp := RequestResponse{
		ID:            r.ID.String(),
		Kind:          string(r.Kind),
		Status:        string(r.Status),
		RequesterID:   r.RequesterID.String(),
		Amount:        r.Amount.String(),
		ResourceType:  r.ResourceType,
		StartDate:     fmtDate(r.StartDate),
		EndDate:       fmtDate(r.EndDate),
		WorkedDate:    fmtDate(r.WorkedDate),
		Currency:      r.Currency,
		PONumber:      r.PONumber,
		Description:   r.Description,
		DecisionNotes: r.DecisionNotes,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}

	if r.Kind == "EXPENSE" {
		resp.ExchangeRate = r.ExchangeRate.String()
		resp.BaseAmount = r.BaseAmount.String()
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.VendorID != nil {
		s := r.VendorID.String()
		resp.VendorID = &s
	}
	if r.Vendor != nil {
		resp.VendorName = r.Vendor.Name
	}
	if r.DecidedByID != nil {
		s := r.DecidedByID.String()
		resp.DecidedByID = &s
	}
	if r.DecidedBy != nil {
		resp.DecidedByName = r.DecidedBy.Username
	}
	if r.DecidedAt != nil {
		s := r.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &s
	}

	for _, l := range r.Lines {
		line := PurchaseLineResponse{
			ID:          l.ID.String(),
			ProductID:   l.ProductID.String(),
			OrderedQty:  l.OrderedQty,
			ReceivedQty: l.ReceivedQty,
			UnitPrice:   l.UnitPrice.String(),
		}
		if l.Product.Name != "" {
			line.ProductName = l.Product.Name
		}
		resp.Lines = append(resp.Lines, line)
	}

	for _, a := range r.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:          a.ID.String(),
			StoragePath: a.StoragePath,
			FileName:    a.FileName,
			UploadedAt:  a.UploadedAt.Format(time.RFC3339),
		})
	}

	return resp
}
