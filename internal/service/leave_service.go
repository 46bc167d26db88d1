package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erpcore/internal/model"
	"erpcore/internal/repository"
	"erpcore/internal/workflow"
	ws "erpcore/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SubmitLeaveRequest struct {
	LeaveType   string            `json:"leave_type" binding:"required,oneof=ANNUAL_LEAVE SICK_LEAVE CASUAL_LEAVE COMP_OFF"`
	StartDate   string            `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate     string            `json:"end_date" binding:"required"`
	HalfDay     bool              `json:"half_day"` // single-day requests only
	Description string            `json:"description"`
	Attachments []AttachmentInput `json:"attachments"`
}

type AttachmentInput struct {
	StoragePath string `json:"storage_path" binding:"required"`
	FileName    string `json:"file_name"`
}

type AmendLeaveRequest struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

type BalanceResponse struct {
	ResourceType   string `json:"resource_type"`
	Period         int    `json:"period"`
	Entitled       string `json:"entitled"`
	CarriedForward string `json:"carried_forward"`
	Used           string `json:"used"`
	Available      string `json:"available"`
}

type SeedEntitlementRequest struct {
	EmployeeID     string `json:"employee_id" binding:"required"`
	ResourceType   string `json:"resource_type" binding:"required,oneof=ANNUAL_LEAVE SICK_LEAVE CASUAL_LEAVE"`
	Period         int    `json:"period" binding:"required"`
	Entitled       string `json:"entitled" binding:"required"`
	CarriedForward string `json:"carried_forward"`
}

// --- Interface ---

type LeaveService interface {
	Submit(ctx context.Context, requesterID string, req SubmitLeaveRequest) (RequestResponse, error)
	Amend(ctx context.Context, requestID, actorID string, req AmendLeaveRequest) (RequestResponse, error)
	Balances(ctx context.Context, employeeID string, period int) ([]BalanceResponse, error)
	Balance(ctx context.Context, employeeID, resourceType string, period int) (BalanceResponse, error)
	SeedEntitlement(ctx context.Context, actorID string, req SeedEntitlementRequest) (BalanceResponse, error)
}

type leaveService struct {
	requestRepo repository.RequestRepository
	ledgerRepo  repository.LedgerRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	clock       workflow.Clock
	notifier    Notifier
	noticeDays  int
}

func NewLeaveService(
	requestRepo repository.RequestRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	clock workflow.Clock,
	notifier Notifier,
	noticeDays int,
) LeaveService {
	return &leaveService{
		requestRepo: requestRepo,
		ledgerRepo:  ledgerRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		clock:       clock,
		notifier:    notifier,
		noticeDays:  noticeDays,
	}
}

// --- Implementation ---

// Submit creates a leave request in PENDING after the submission-time
// rules pass: well-ordered dates, the advance-notice window, and no
// overlap with the requester's existing pending or approved leave.
// Balance is not checked here; the reservation happens at approval.
func (s *leaveService) Submit(ctx context.Context, requesterID string, req SubmitLeaveRequest) (RequestResponse, error) {
	requester, err := uuid.Parse(requesterID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid requester id: %w", workflow.ErrValidation)
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid start_date: %w", workflow.ErrValidation)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid end_date: %w", workflow.ErrValidation)
	}

	if err := workflow.ValidateDateRange(start, end); err != nil {
		return RequestResponse{}, fmt.Errorf("end_date before start_date: %w", err)
	}
	if req.HalfDay && !start.Equal(end) {
		return RequestResponse{}, fmt.Errorf("half_day requires a single-day range: %w", workflow.ErrValidation)
	}

	now := s.clock.Now()
	if err := workflow.CheckNotice(now, start, s.noticeDays); err != nil {
		return RequestResponse{}, err
	}

	days := leaveDays(start, end, req.HalfDay)

	request := model.Request{
		Kind:         workflow.KindLeave,
		Status:       workflow.InitialStatus(workflow.KindLeave),
		RequesterID:  requester,
		Amount:       days,
		ResourceType: req.LeaveType,
		StartDate:    &start,
		EndDate:      &end,
		Description:  req.Description,
	}
	for _, a := range req.Attachments {
		request.Attachments = append(request.Attachments, model.Attachment{
			StoragePath: a.StoragePath,
			FileName:    a.FileName,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		overlap, err := s.requestRepo.HasOverlappingLeave(txCtx, requester, start, end, nil)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if overlap {
			return workflow.ErrOverlappingRequest
		}

		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create leave request: %w", err)
		}

		details, _ := json.Marshal(map[string]any{
			"leave_type": req.LeaveType,
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
			"days":       days.String(),
		})
		audit := model.AuditLog{
			UserID:     &requester,
			Action:     model.ActionSubmitRequest,
			EntityID:   request.ID.String(),
			EntityName: string(workflow.KindLeave),
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
		Kind:        string(workflow.KindLeave),
		Status:      string(request.Status),
		RequesterID: requesterID,
		At:          now,
	})

	return toRequestResponse(&request), nil
}

// Amend patches dates and description while the request is still pending.
// Requester identity, kind, and creation time are never amendable.
func (s *leaveService) Amend(ctx context.Context, requestID, actorID string, req AmendLeaveRequest) (RequestResponse, error) {
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

		// Date rules re-run only when the dates actually move; a
		// description-only patch must not touch the amount.
		if req.StartDate != "" || req.EndDate != "" {
			start := *current.StartDate
			end := *current.EndDate
			if req.StartDate != "" {
				if start, err = time.Parse("2006-01-02", req.StartDate); err != nil {
					return fmt.Errorf("invalid start_date: %w", workflow.ErrValidation)
				}
			}
			if req.EndDate != "" {
				if end, err = time.Parse("2006-01-02", req.EndDate); err != nil {
					return fmt.Errorf("invalid end_date: %w", workflow.ErrValidation)
				}
			}
			if err := workflow.ValidateDateRange(start, end); err != nil {
				return fmt.Errorf("end_date before start_date: %w", err)
			}
			halfDay := current.Amount.Equal(decimal.NewFromFloat(0.5))
			if halfDay && !start.Equal(end) {
				return fmt.Errorf("half_day requires a single-day range: %w", workflow.ErrValidation)
			}
			if err := workflow.CheckNotice(s.clock.Now(), start, s.noticeDays); err != nil {
				return err
			}

			overlap, err := s.requestRepo.HasOverlappingLeave(txCtx, current.RequesterID, start, end, &current.ID)
			if err != nil {
				return fmt.Errorf("overlap check failed: %w", err)
			}
			if overlap {
				return workflow.ErrOverlappingRequest
			}

			current.StartDate = &start
			current.EndDate = &end
			current.Amount = leaveDays(start, end, halfDay)
		}
		if req.Description != "" {
			current.Description = req.Description
		}

		if err := s.requestRepo.Update(txCtx, current); err != nil {
			return fmt.Errorf("failed to amend leave request: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionAmendRequest,
			EntityID:   current.ID.String(),
			EntityName: string(workflow.KindLeave),
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

// Balances returns every ledger row for an employee; employees with no
// rows yet simply get an empty list (zero balances).
func (s *leaveService) Balances(ctx context.Context, employeeID string, period int) ([]BalanceResponse, error) {
	id, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, fmt.Errorf("invalid employee id: %w", workflow.ErrValidation)
	}

	ledgers, err := s.ledgerRepo.ListForSubject(ctx, id, period)
	if err != nil {
		return nil, err
	}

	result := make([]BalanceResponse, 0, len(ledgers))
	for _, l := range ledgers {
		result = append(result, toBalanceResponse(&l))
	}
	return result, nil
}

// Balance returns one ledger row by resource type. An absent row is an
// all-zero balance, not an error.
func (s *leaveService) Balance(ctx context.Context, employeeID, resourceType string, period int) (BalanceResponse, error) {
	id, err := uuid.Parse(employeeID)
	if err != nil {
		return BalanceResponse{}, fmt.Errorf("invalid employee id: %w", workflow.ErrValidation)
	}
	if period <= 0 {
		period = s.clock.Now().Year()
	}

	ledger, err := s.ledgerRepo.Find(ctx, id, resourceType, period)
	if err != nil {
		return BalanceResponse{}, err
	}
	if ledger == nil {
		zero := decimal.Zero.String()
		return BalanceResponse{
			ResourceType:   resourceType,
			Period:         period,
			Entitled:       zero,
			CarriedForward: zero,
			Used:           zero,
			Available:      zero,
		}, nil
	}
	return toBalanceResponse(ledger), nil
}

// SeedEntitlement grants or tops up an employee's yearly allowance.
func (s *leaveService) SeedEntitlement(ctx context.Context, actorID string, req SeedEntitlementRequest) (BalanceResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return BalanceResponse{}, fmt.Errorf("invalid actor id: %w", workflow.ErrValidation)
	}
	employee, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return BalanceResponse{}, fmt.Errorf("invalid employee id: %w", workflow.ErrValidation)
	}
	entitled, err := decimal.NewFromString(req.Entitled)
	if err != nil || entitled.IsNegative() {
		return BalanceResponse{}, fmt.Errorf("invalid entitled amount: %w", workflow.ErrValidation)
	}
	carried := decimal.Zero
	if req.CarriedForward != "" {
		if carried, err = decimal.NewFromString(req.CarriedForward); err != nil || carried.IsNegative() {
			return BalanceResponse{}, fmt.Errorf("invalid carried_forward amount: %w", workflow.ErrValidation)
		}
	}

	var seeded model.BalanceLedger
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ledger, err := s.ledgerRepo.FindOrCreateForUpdate(txCtx, employee, req.ResourceType, req.Period)
		if err != nil {
			return fmt.Errorf("ledger lookup failed: %w", err)
		}

		ledger.Entitled = ledger.Entitled.Add(entitled)
		ledger.CarriedForward = ledger.CarriedForward.Add(carried)
		ledger.Available = ledger.Available.Add(entitled).Add(carried)
		if err := s.ledgerRepo.Update(txCtx, ledger); err != nil {
			return fmt.Errorf("ledger update failed: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionSeedEntitlement,
			EntityID:   ledger.ID.String(),
			EntityName: req.ResourceType,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, &audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		seeded = *ledger
		return nil
	})
	if err != nil {
		return BalanceResponse{}, err
	}

	return toBalanceResponse(&seeded), nil
}

// --- Helpers ---

// leaveDays counts inclusive calendar days in the range; a half-day
// request counts 0.5.
func leaveDays(start, end time.Time, halfDay bool) decimal.Decimal {
	if halfDay {
		return decimal.NewFromFloat(0.5)
	}
	days := int(workflow.BusinessDate(end).Sub(workflow.BusinessDate(start)).Hours()/24) + 1
	return decimal.NewFromInt(int64(days))
}

func toBalanceResponse(l *model.BalanceLedger) BalanceResponse {
	return BalanceResponse{
		ResourceType:   l.ResourceType,
		Period:         l.Period,
		Entitled:       l.Entitled.String(),
		CarriedForward: l.CarriedForward.String(),
		Used:           l.Used.String(),
		Available:      l.Available.String(),
	}
}
