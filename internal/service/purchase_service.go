package service

import (
	"context"
	"encoding/json"
	"fmt"

	"erpcore/internal/model"
	"erpcore/internal/repository"
	"erpcore/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type PurchaseLineInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice string `json:"unit_price" binding:"required"` // Decimal string
}

type CreatePurchaseOrderRequest struct {
	VendorID    string              `json:"vendor_id" binding:"required"`
	Description string              `json:"description"`
	Lines       []PurchaseLineInput `json:"lines" binding:"required,min=1,dive"`
}

type AmendPurchaseOrderRequest struct {
	VendorID    string              `json:"vendor_id"`
	Description string              `json:"description"`
	Lines       []PurchaseLineInput `json:"lines" binding:"omitempty,min=1,dive"`
}

type CreateProductRequest struct {
	SKU       string `json:"sku" binding:"required"`
	Name      string `json:"name" binding:"required"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

type ProductResponse struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	CurrentStock int    `json:"current_stock"`
	UnitPrice    string `json:"unit_price"`
}

// --- Interface ---

type PurchaseService interface {
	CreateDraft(ctx context.Context, requesterID string, req CreatePurchaseOrderRequest) (RequestResponse, error)
	Amend(ctx context.Context, requestID, actorID string, req AmendPurchaseOrderRequest) (RequestResponse, error)
	CreateProduct(ctx context.Context, actorID string, req CreateProductRequest) (ProductResponse, error)
	ListProducts(ctx context.Context, page, limit int) ([]ProductResponse, int64, error)
}

type purchaseService struct {
	requestRepo  repository.RequestRepository
	purchaseRepo repository.PurchaseRepository
	vendorRepo   repository.VendorRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	clock        workflow.Clock
}

func NewPurchaseService(
	requestRepo repository.RequestRepository,
	purchaseRepo repository.PurchaseRepository,
	vendorRepo repository.VendorRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	clock workflow.Clock,
) PurchaseService {
	return &purchaseService{
		requestRepo:  requestRepo,
		purchaseRepo: purchaseRepo,
		vendorRepo:   vendorRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		clock:        clock,
	}
}

// --- Implementation ---

// CreateDraft creates a purchase order in DRAFT with its lines and a
// freshly generated PO number. Submission to the approval queue is a
// separate workflow transition.
func (s *purchaseService) CreateDraft(ctx context.Context, requesterID string, req CreatePurchaseOrderRequest) (RequestResponse, error) {
	requester, err := uuid.Parse(requesterID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid requester id: %w", workflow.ErrValidation)
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid vendor_id: %w", workflow.ErrValidation)
	}
	if _, err := s.vendorRepo.FindByID(ctx, vendorID); err != nil {
		return RequestResponse{}, fmt.Errorf("vendor not found: %w", err)
	}

	lines, total, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return RequestResponse{}, err
	}

	request := model.Request{
		Kind:        workflow.KindPurchaseOrder,
		Status:      workflow.InitialStatus(workflow.KindPurchaseOrder),
		RequesterID: requester,
		Amount:      total,
		VendorID:    &vendorID,
		Description: req.Description,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		poNumber, err := s.purchaseRepo.NextPONumber(txCtx, s.clock.Now())
		if err != nil {
			return fmt.Errorf("failed to generate PO number: %w", err)
		}
		request.PONumber = poNumber

		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}

		for i := range lines {
			lines[i].RequestID = request.ID
		}
		if err := s.purchaseRepo.CreateLines(txCtx, lines); err != nil {
			return fmt.Errorf("failed to create order lines: %w", err)
		}

		details, _ := json.Marshal(map[string]any{
			"po_number": poNumber,
			"vendor_id": req.VendorID,
			"lines":     len(lines),
			"total":     total.String(),
		})
		audit := model.AuditLog{
			UserID:     &requester,
			Action:     model.ActionSubmitRequest,
			EntityID:   request.ID.String(),
			EntityName: poNumber,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, &audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	request.Lines = lines
	return toRequestResponse(&request), nil
}

// Amend replaces lines and vendor while the order is still a draft.
func (s *purchaseService) Amend(ctx context.Context, requestID, actorID string, req AmendPurchaseOrderRequest) (RequestResponse, error) {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", workflow.ErrValidation)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid actor id: %w", workflow.ErrValidation)
	}

	var updated model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.requestRepo.FindForUpdate(txCtx, reqID)
		if err != nil {
			return err
		}
		if current.RequesterID != actor {
			return workflow.ErrForbidden
		}
		if !workflow.Mutable(current.Kind, current.Status) {
			return workflow.ErrInvalidStateForAmendment
		}

		if req.VendorID != "" {
			vendorID, err := uuid.Parse(req.VendorID)
			if err != nil {
				return fmt.Errorf("invalid vendor_id: %w", workflow.ErrValidation)
			}
			if _, err := s.vendorRepo.FindByID(txCtx, vendorID); err != nil {
				return fmt.Errorf("vendor not found: %w", err)
			}
			current.VendorID = &vendorID
		}
		if req.Description != "" {
			current.Description = req.Description
		}
		if len(req.Lines) > 0 {
			lines, total, err := s.buildLines(txCtx, req.Lines)
			if err != nil {
				return err
			}
			for i := range lines {
				lines[i].RequestID = current.ID
			}
			if err := s.purchaseRepo.ReplaceLines(txCtx, current.ID, lines); err != nil {
				return fmt.Errorf("failed to replace order lines: %w", err)
			}
			current.Amount = total
		}

		if err := s.requestRepo.Update(txCtx, current); err != nil {
			return fmt.Errorf("failed to amend purchase order: %w", err)
		}

		details, _ := json.Marshal(map[string]any{"lines": len(req.Lines)})
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionAmendRequest,
			EntityID:   current.ID.String(),
			EntityName: current.PONumber,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, &audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		updated = *current
		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return toRequestResponse(&updated), nil
}

func (s *purchaseService) CreateProduct(ctx context.Context, actorID string, req CreateProductRequest) (ProductResponse, error) {
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || unitPrice.IsNegative() {
		return ProductResponse{}, fmt.Errorf("unit_price must be a non-negative decimal: %w", workflow.ErrValidation)
	}

	product := model.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		UnitPrice: unitPrice,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.purchaseRepo.CreateProduct(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(actorID); err == nil {
			uid = &parsed
		}
		details, _ := json.Marshal(req)
		audit := model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.SKU,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, &audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(&product), nil
}

func (s *purchaseService) ListProducts(ctx context.Context, page, limit int) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.purchaseRepo.ListProducts(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

// --- Helpers ---

func (s *purchaseService) buildLines(ctx context.Context, inputs []PurchaseLineInput) ([]model.PurchaseOrderLine, decimal.Decimal, error) {
	lines := make([]model.PurchaseOrderLine, 0, len(inputs))
	total := decimal.Zero
	for _, in := range inputs {
		productID, err := uuid.Parse(in.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("invalid product_id %q: %w", in.ProductID, workflow.ErrValidation)
		}
		if _, err := s.purchaseRepo.FindProductByID(ctx, productID); err != nil {
			return nil, decimal.Zero, fmt.Errorf("product %s not found: %w", in.ProductID, err)
		}
		unitPrice, err := decimal.NewFromString(in.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("unit_price must be a non-negative decimal: %w", workflow.ErrValidation)
		}

		lines = append(lines, model.PurchaseOrderLine{
			ProductID:  productID,
			OrderedQty: in.Quantity,
			UnitPrice:  unitPrice,
		})
		total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))
	}
	return lines, total, nil
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID.String(),
		SKU:          p.SKU,
		Name:         p.Name,
		CurrentStock: p.CurrentStock,
		UnitPrice:    p.UnitPrice.String(),
	}
}
