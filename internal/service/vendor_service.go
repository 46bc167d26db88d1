package service

import (
	"context"
	"encoding/json"
	"fmt"

	"erpcore/internal/model"
	"erpcore/internal/repository"
	"erpcore/internal/workflow"

	"github.com/google/uuid"
)

type CreateVendorRequest struct {
	Name    string `json:"name" binding:"required"`
	TaxCode string `json:"tax_code"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type UpdateVendorRequest struct {
	Name    string `json:"name"`
	TaxCode string `json:"tax_code"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type VendorResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxCode string `json:"tax_code,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type VendorService interface {
	Create(ctx context.Context, actorID string, req CreateVendorRequest) (VendorResponse, error)
	Update(ctx context.Context, vendorID, actorID string, req UpdateVendorRequest) (VendorResponse, error)
	Delete(ctx context.Context, vendorID, actorID string) error
	Get(ctx context.Context, vendorID string) (VendorResponse, error)
	List(ctx context.Context, search string, page, limit int) ([]VendorResponse, int64, error)
}

type vendorService struct {
	vendorRepo repository.VendorRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewVendorService(
	vendorRepo repository.VendorRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) VendorService {
	return &vendorService{
		vendorRepo: vendorRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
	}
}

func (s *vendorService) Create(ctx context.Context, actorID string, req CreateVendorRequest) (VendorResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid actor id: %w", workflow.ErrValidation)
	}

	vendor := model.Vendor{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if req.TaxCode != "" {
		vendor.TaxCode = &req.TaxCode
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.vendorRepo.Create(txCtx, &vendor); err != nil {
			return fmt.Errorf("failed to create vendor: %w", err)
		}
		return s.logVendorAudit(txCtx, actor, model.ActionCreateVendor, &vendor, req)
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(&vendor), nil
}

func (s *vendorService) Update(ctx context.Context, vendorID, actorID string, req UpdateVendorRequest) (VendorResponse, error) {
	id, err := uuid.Parse(vendorID)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid vendor id: %w", workflow.ErrValidation)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid actor id: %w", workflow.ErrValidation)
	}

	var updated model.Vendor
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err := s.vendorRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if req.Name != "" {
			vendor.Name = req.Name
		}
		if req.TaxCode != "" {
			vendor.TaxCode = &req.TaxCode
		}
		if req.Email != "" {
			vendor.Email = req.Email
		}
		if req.Phone != "" {
			vendor.Phone = req.Phone
		}
		if req.Address != "" {
			vendor.Address = req.Address
		}

		if err := s.vendorRepo.Update(txCtx, vendor); err != nil {
			return fmt.Errorf("failed to update vendor: %w", err)
		}
		if err := s.logVendorAudit(txCtx, actor, model.ActionUpdateVendor, vendor, req); err != nil {
			return err
		}

		updated = *vendor
		return nil
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(&updated), nil
}

func (s *vendorService) Delete(ctx context.Context, vendorID, actorID string) error {
	id, err := uuid.Parse(vendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor id: %w", workflow.ErrValidation)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return fmt.Errorf("invalid actor id: %w", workflow.ErrValidation)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err := s.vendorRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.vendorRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete vendor: %w", err)
		}
		return s.logVendorAudit(txCtx, actor, model.ActionDeleteVendor, vendor, nil)
	})
}

func (s *vendorService) Get(ctx context.Context, vendorID string) (VendorResponse, error) {
	id, err := uuid.Parse(vendorID)
	if err != nil {
		return VendorResponse{}, fmt.Errorf("invalid vendor id: %w", workflow.ErrValidation)
	}

	vendor, err := s.vendorRepo.FindByID(ctx, id)
	if err != nil {
		return VendorResponse{}, err
	}
	return toVendorResponse(vendor), nil
}

func (s *vendorService) List(ctx context.Context, search string, page, limit int) ([]VendorResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	vendors, total, err := s.vendorRepo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]VendorResponse, 0, len(vendors))
	for i := range vendors {
		res = append(res, toVendorResponse(&vendors[i]))
	}
	return res, total, nil
}

func (s *vendorService) logVendorAudit(ctx context.Context, actor uuid.UUID, action string, vendor *model.Vendor, payload any) error {
	details := "{}"
	if payload != nil {
		raw, _ := json.Marshal(payload)
		details = string(raw)
	}
	audit := model.AuditLog{
		UserID:     &actor,
		Action:     action,
		EntityID:   vendor.ID.String(),
		EntityName: vendor.Name,
		Details:    details,
	}
	return s.auditRepo.Log(ctx, &audit)
}

func toVendorResponse(v *model.Vendor) VendorResponse {
	res := VendorResponse{
		ID:      v.ID.String(),
		Name:    v.Name,
		Email:   v.Email,
		Phone:   v.Phone,
		Address: v.Address,
	}
	if v.TaxCode != nil {
		res.TaxCode = *v.TaxCode
	}
	return res
}
