package service

import (
	"context"
	"encoding/json"
	"fmt"

	"erpcore/internal/model"
	"erpcore/internal/repository"
	"erpcore/internal/workflow"
	ws "erpcore/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SubmitExpenseRequest struct {
	VendorID       string            `json:"vendor_id"`
	Currency       string            `json:"currency" binding:"required"`
	ExchangeRate   string            `json:"exchange_rate" binding:"required"` // Decimal string, 1 if USD
	OriginalAmount string            `json:"original_amount" binding:"required"`
	Description    string            `json:"description"`
	Attachments    []AttachmentInput `json:"attachments"`
}

type AmendExpenseRequest struct {
	OriginalAmount string `json:"original_amount"`
	Description    string `json:"description"`
}

// --- Interface ---

type ExpenseService interface {
	Submit(ctx context.Context, requesterID string, req SubmitExpenseRequest) (RequestResponse, error)
	Amend(ctx context.Context, requestID, actorID string, req AmendExpenseRequest) (RequestResponse, error)
}

type expenseService struct {
	requestRepo repository.RequestRepository
	vendorRepo  repository.VendorRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	clock       workflow.Clock
	notifier    Notifier
}

func NewExpenseService(
	requestRepo repository.RequestRepository,
	vendorRepo repository.VendorRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	clock workflow.Clock,
	notifier Notifier,
) ExpenseService {
	return &expenseService{
		requestRepo: requestRepo,
		vendorRepo:  vendorRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		clock:       clock,
		notifier:    notifier,
	}
}

// --- Implementation ---

// Submit creates a pending expense claim. The converted base amount is
// fixed at submission time; approval posts it to the vendor's payment
// ledger.
func (s *expenseService) Submit(ctx context.Context, requesterID string, req SubmitExpenseRequest) (RequestResponse, error) {
	requester, err := uuid.Parse(requesterID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid requester id: %w", workflow.ErrValidation)
	}

	originalAmount, err := decimal.NewFromString(req.OriginalAmount)
	if err != nil || !originalAmount.IsPositive() {
		return RequestResponse{}, fmt.Errorf("original_amount must be a positive decimal: %w", workflow.ErrValidation)
	}
	exchangeRate, err := decimal.NewFromString(req.ExchangeRate)
	if err != nil || !exchangeRate.IsPositive() {
		return RequestResponse{}, fmt.Errorf("exchange_rate must be a positive decimal: %w", workflow.ErrValidation)
	}

	var vendorID *uuid.UUID
	if req.VendorID != "" {
		parsed, err := uuid.Parse(req.VendorID)
		if err != nil {
			return RequestResponse{}, fmt.Errorf("invalid vendor_id: %w", workflow.ErrValidation)
		}
		if _, err := s.vendorRepo.FindByID(ctx, parsed); err != nil {
			return RequestResponse{}, fmt.Errorf("vendor not found: %w", err)
		}
		vendorID = &parsed
	}

	request := model.Request{
		Kind:         workflow.KindExpense,
		Status:       workflow.InitialStatus(workflow.KindExpense),
		RequesterID:  requester,
		Amount:       originalAmount,
		ResourceType: workflow.ResourcePayment,
		Currency:     req.Currency,
		ExchangeRate: exchangeRate,
		BaseAmount:   originalAmount.Mul(exchangeRate),
		VendorID:     vendorID,
		Description:  req.Description,
	}
	for _, a := range req.Attachments {
		request.Attachments = append(request.Attachments, model.Attachment{
			StoragePath: a.StoragePath,
			FileName:    a.FileName,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create expense request: %w", err)
		}

		details, _ := json.Marshal(map[string]any{
			"currency":        req.Currency,
			"original_amount": originalAmount.String(),
			"base_amount":     request.BaseAmount.String(),
		})
		audit := model.AuditLog{
			UserID:     &requester,
			Action:     model.ActionSubmitRequest,
			EntityID:   request.ID.String(),
			EntityName: string(workflow.KindExpense),
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

	s.notifier.Notify(ws.Notification{
		Event:       ws.EventRequestSubmitted,
		RequestID:   request.ID.String(),
		Kind:        string(workflow.KindExpense),
		Status:      string(request.Status),
		RequesterID: requesterID,
		At:          s.clock.Now(),
	})

	return toRequestResponse(&request), nil
}

// Amend patches the amount and description while the claim is pending.
func (s *expenseService) Amend(ctx context.Context, requestID, actorID string, req AmendExpenseRequest) (RequestResponse, error) {
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

		if req.OriginalAmount != "" {
			amount, err := decimal.NewFromString(req.OriginalAmount)
			if err != nil || !amount.IsPositive() {
				return fmt.Errorf("original_amount must be a positive decimal: %w", workflow.ErrValidation)
			}
			current.Amount = amount
			current.BaseAmount = amount.Mul(current.ExchangeRate)
		}
		if req.Description != "" {
			current.Description = req.Description
		}

		if err := s.requestRepo.Update(txCtx, current); err != nil {
			return fmt.Errorf("failed to amend expense request: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionAmendRequest,
			EntityID:   current.ID.String(),
			EntityName: string(workflow.KindExpense),
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
