package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erpcore/internal/logger"
	"erpcore/internal/model"
	"erpcore/internal/repository"
	"erpcore/internal/workflow"
	ws "erpcore/internal/websocket"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

// TransitionPayload carries the action-specific input: a reason for
// reject/cancel, receipt quantities for receive.
type TransitionPayload struct {
	Reason   string         `json:"reason"`
	Receipts []ReceiptInput `json:"receipts"`
}

type ReceiptInput struct {
	LineID   string `json:"line_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(event ws.Notification)
}

// --- Interface ---

// WorkflowService is the orchestrator: the only component that moves a
// request between statuses and the only writer of ledger mutations.
type WorkflowService interface {
	Transition(ctx context.Context, requestID string, action workflow.Action, actorID string, payload TransitionPayload) (RequestResponse, error)
	Get(ctx context.Context, requestID string) (RequestResponse, error)
	List(ctx context.Context, filter repository.RequestFilter) ([]RequestResponse, int64, error)
}

type workflowService struct {
	requestRepo    repository.RequestRepository
	ledgerRepo     repository.LedgerRepository
	purchaseRepo   repository.PurchaseRepository
	attendanceRepo repository.AttendanceRepository
	userRepo       repository.UserRepository
	roleRepo       repository.RoleRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	clock          workflow.Clock
	notifier       Notifier
	log            *logrus.Logger
}

func NewWorkflowService(
	requestRepo repository.RequestRepository,
	ledgerRepo repository.LedgerRepository,
	purchaseRepo repository.PurchaseRepository,
	attendanceRepo repository.AttendanceRepository,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	clock workflow.Clock,
	notifier Notifier,
	log *logrus.Logger,
) WorkflowService {
	return &workflowService{
		requestRepo:    requestRepo,
		ledgerRepo:     ledgerRepo,
		purchaseRepo:   purchaseRepo,
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		roleRepo:       roleRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		clock:          clock,
		notifier:       notifier,
		log:            log,
	}
}

// --- Implementation ---

// Transition applies one action to one request as a single atomic unit:
// lock the request row, resolve the target status, run the rule set, apply
// any ledger or stock mutation, persist the new status and the audit row.
// Either everything commits or nothing does. The notification goes out
// after the commit, outside the lock.
func (s *workflowService) Transition(ctx context.Context, requestID string, action workflow.Action, actorID string, payload TransitionPayload) (RequestResponse, error) {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", workflow.ErrValidation)
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid actor id: %w", workflow.ErrValidation)
	}

	var updated model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.FindForUpdate(txCtx, reqID)
		if err != nil {
			return err
		}

		target, err := workflow.Next(req.Kind, req.Status, action)
		if err != nil {
			return fmt.Errorf("%s in %s: %w", req.Kind, req.Status, err)
		}

		actor, err := s.resolveActor(txCtx, actorUUID)
		if err != nil {
			return err
		}
		requester, err := s.userRepo.GetByID(txCtx, req.RequesterID.String())
		if err != nil {
			return fmt.Errorf("requester lookup failed: %w", err)
		}

		if err := workflow.Authorize(req.Kind, action, actor, req.RequesterID, requester.ManagerID); err != nil {
			return err
		}
		if err := workflow.RequireReason(action, payload.Reason); err != nil {
			return err
		}

		now := s.clock.Now()

		switch action {
		case workflow.ActionApprove:
			if err := s.applyApproval(txCtx, req, actorUUID, now); err != nil {
				return err
			}
		case workflow.ActionCancel:
			if err := s.applyCancel(txCtx, req, actorUUID, now); err != nil {
				return err
			}
		case workflow.ActionReceive:
			target, err = s.applyReceipt(txCtx, req, payload.Receipts)
			if err != nil {
				return err
			}
		}

		if action == workflow.ActionApprove || action == workflow.ActionReject {
			// decided_by and decided_at are set together, exactly once.
			if req.DecidedAt != nil {
				return workflow.ErrAlreadyDecided
			}
			req.DecidedByID = &actorUUID
			req.DecidedAt = &now
			req.DecisionNotes = payload.Reason
		}

		req.Status = target
		if err := s.requestRepo.Update(txCtx, req); err != nil {
			return fmt.Errorf("failed to persist transition: %w", err)
		}

		if err := s.writeAudit(txCtx, actorUUID, auditAction(action), req, payload.Reason); err != nil {
			return err
		}

		updated = *req
		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.notifier.Notify(ws.Notification{
		Event:       notificationEvent(action),
		RequestID:   updated.ID.String(),
		Kind:        string(updated.Kind),
		Status:      string(updated.Status),
		RequesterID: updated.RequesterID.String(),
		ActorID:     actorID,
		At:          s.clock.Now(),
	})

	full, err := s.requestRepo.FindByIDWithRelations(ctx, updated.ID)
	if err != nil {
		// The transition committed; degrade to the lean view.
		return toRequestResponse(&updated), nil
	}
	return toRequestResponse(full), nil
}

func (s *workflowService) Get(ctx context.Context, requestID string) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", workflow.ErrValidation)
	}
	req, err := s.requestRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}
	return toRequestResponse(req), nil
}

func (s *workflowService) List(ctx context.Context, filter repository.RequestFilter) ([]RequestResponse, int64, error) {
	requests, total, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, toRequestResponse(&requests[i]))
	}
	return result, total, nil
}

// applyApproval runs the kind-specific side effect of an approval inside
// the transaction. Leave reserves days, comp-off credits a day, expenses
// post to the vendor payment ledger, regularizations fix the attendance
// row. Purchase orders have no approval side effect; stock moves at
// receive time.
func (s *workflowService) applyApproval(ctx context.Context, req *model.Request, actorID uuid.UUID, now time.Time) error {
	switch req.Kind {
	case workflow.KindLeave:
		ledger, err := s.ledgerRepo.FindOrCreateForUpdate(ctx, req.RequesterID, req.ResourceType, req.StartDate.Year())
		if err != nil {
			return fmt.Errorf("ledger lookup failed: %w", err)
		}
		if err := ledger.Reserve(req.Amount); err != nil {
			return err
		}
		if err := s.ledgerRepo.Update(ctx, ledger); err != nil {
			return fmt.Errorf("ledger update failed: %w", err)
		}
		return s.writeLedgerAudit(ctx, actorID, model.ActionLedgerReserve, req, ledger)

	case workflow.KindCompOff:
		ledger, err := s.ledgerRepo.FindOrCreateForUpdate(ctx, req.RequesterID, workflow.ResourceCompOff, req.WorkedDate.Year())
		if err != nil {
			return fmt.Errorf("ledger lookup failed: %w", err)
		}
		ledger.Credit(req.Amount)
		if err := s.ledgerRepo.Update(ctx, ledger); err != nil {
			return fmt.Errorf("ledger update failed: %w", err)
		}
		return s.writeLedgerAudit(ctx, actorID, model.ActionLedgerCredit, req, ledger)

	case workflow.KindExpense:
		if req.VendorID == nil {
			return nil
		}
		ledger, err := s.ledgerRepo.FindOrCreateForUpdate(ctx, *req.VendorID, workflow.ResourcePayment, now.Year())
		if err != nil {
			return fmt.Errorf("payment ledger lookup failed: %w", err)
		}
		ledger.Post(req.BaseAmount)
		if err := s.ledgerRepo.Update(ctx, ledger); err != nil {
			return fmt.Errorf("payment ledger update failed: %w", err)
		}
		return s.writeLedgerAudit(ctx, actorID, model.ActionLedgerReserve, req, ledger)

	case workflow.KindRegularization:
		var detail model.RegularizationDetail
		if err := json.Unmarshal([]byte(req.Metadata), &detail); err != nil {
			return fmt.Errorf("malformed regularization detail: %w", workflow.ErrValidation)
		}
		entry := model.AttendanceEntry{
			EmployeeID: req.RequesterID,
			WorkDate:   workflow.BusinessDate(*req.WorkedDate),
		}
		// Clock strings were validated at submission; a parse failure here
		// means the stored metadata was corrupted, so leave the time nil
		// but keep a trace.
		if in, err := combineClock(*req.WorkedDate, detail.ClockIn); err == nil {
			entry.ClockIn = &in
		} else {
			logger.LogError(s.log, "workflow_service.go", "applyApproval", "combineClock", req.ID.String(), err)
		}
		if out, err := combineClock(*req.WorkedDate, detail.ClockOut); err == nil {
			entry.ClockOut = &out
		} else {
			logger.LogError(s.log, "workflow_service.go", "applyApproval", "combineClock", req.ID.String(), err)
		}
		if err := s.attendanceRepo.Upsert(ctx, &entry); err != nil {
			return fmt.Errorf("attendance update failed: %w", err)
		}
		return nil
	}
	return nil
}

// applyCancel handles the approved->cancelled leave path: the reservation
// is released in full, but only before the leave starts.
func (s *workflowService) applyCancel(ctx context.Context, req *model.Request, actorID uuid.UUID, now time.Time) error {
	if req.Kind != workflow.KindLeave || req.Status != workflow.StatusApproved {
		return nil
	}
	if err := workflow.CheckCancelBeforeStart(now, *req.StartDate); err != nil {
		return fmt.Errorf("leave already started: %w", err)
	}

	ledger, err := s.ledgerRepo.FindOrCreateForUpdate(ctx, req.RequesterID, req.ResourceType, req.StartDate.Year())
	if err != nil {
		return fmt.Errorf("ledger lookup failed: %w", err)
	}
	if clamped := ledger.Release(req.Amount); clamped {
		s.log.WithFields(logrus.Fields{
			"subject_id":    ledger.SubjectID,
			"resource_type": ledger.ResourceType,
			"period":        ledger.Period,
			"request_id":    req.ID,
		}).Warn("ledger release clamped: used would have gone negative")
	}
	if err := s.ledgerRepo.Update(ctx, ledger); err != nil {
		return fmt.Errorf("ledger update failed: %w", err)
	}
	return s.writeLedgerAudit(ctx, actorID, model.ActionLedgerRelease, req, ledger)
}

// applyReceipt applies a full or partial receipt to an approved purchase
// order: each received line locks its product row, bumps stock, and records
// an inventory transaction. Returns the resulting status.
func (s *workflowService) applyReceipt(ctx context.Context, req *model.Request, receipts []ReceiptInput) (workflow.Status, error) {
	if len(receipts) == 0 {
		return "", fmt.Errorf("receive requires at least one line: %w", workflow.ErrValidation)
	}

	lines, err := s.purchaseRepo.FindLinesForUpdate(ctx, req.ID)
	if err != nil {
		return "", fmt.Errorf("line lookup failed: %w", err)
	}

	byLine := make(map[uuid.UUID]int, len(receipts))
	for _, rec := range receipts {
		lineID, err := uuid.Parse(rec.LineID)
		if err != nil {
			return "", fmt.Errorf("invalid line id %q: %w", rec.LineID, workflow.ErrValidation)
		}
		byLine[lineID] += rec.Quantity
	}

	checked := make([]workflow.ReceiptLine, 0, len(lines))
	matched := 0
	for _, l := range lines {
		qty := byLine[l.ID]
		if qty > 0 {
			matched++
		}
		checked = append(checked, workflow.ReceiptLine{
			LineID:    l.ID.String(),
			Ordered:   l.OrderedQty,
			Received:  l.ReceivedQty,
			Receiving: qty,
		})
	}
	if matched != len(byLine) {
		return "", fmt.Errorf("receipt references unknown lines: %w", workflow.ErrValidation)
	}
	if err := workflow.ValidateReceipt(checked); err != nil {
		return "", err
	}

	for i := range lines {
		l := &lines[i]
		qty := byLine[l.ID]
		if qty == 0 {
			continue
		}

		product, err := s.purchaseRepo.FindProductForUpdate(ctx, l.ProductID)
		if err != nil {
			return "", fmt.Errorf("product %s not found: %w", l.ProductID, err)
		}
		product.CurrentStock += qty
		if err := s.purchaseRepo.UpdateProduct(ctx, product); err != nil {
			return "", fmt.Errorf("stock update failed for %s: %w", product.Name, err)
		}

		invTx := model.InventoryTransaction{
			ProductID:       product.ID,
			RequestID:       &req.ID,
			TransactionType: model.TxTypeIn,
			QuantityChanged: qty,
			StockAfter:      product.CurrentStock,
		}
		if err := s.purchaseRepo.RecordInventoryTx(ctx, &invTx); err != nil {
			return "", fmt.Errorf("failed to record inventory transaction: %w", err)
		}

		l.ReceivedQty += qty
		if err := s.purchaseRepo.UpdateLine(ctx, l); err != nil {
			return "", fmt.Errorf("failed to update line: %w", err)
		}
	}

	return workflow.ResolveReceiveStatus(checked), nil
}

func (s *workflowService) resolveActor(ctx context.Context, actorID uuid.UUID) (workflow.Actor, error) {
	user, err := s.userRepo.GetByID(ctx, actorID.String())
	if err != nil {
		return workflow.Actor{}, fmt.Errorf("actor lookup failed: %w", err)
	}
	perms, err := s.roleRepo.GetPermissionsByRoleName(ctx, user.Role)
	if err != nil {
		return workflow.Actor{}, fmt.Errorf("permission lookup failed: %w", err)
	}
	return workflow.Actor{ID: user.ID, Role: user.Role, Permissions: perms}, nil
}

func (s *workflowService) writeAudit(ctx context.Context, actorID uuid.UUID, action string, req *model.Request, reason string) error {
	details, _ := json.Marshal(map[string]any{
		"kind":   req.Kind,
		"status": req.Status,
		"reason": reason,
	})
	entry := model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   req.ID.String(),
		EntityName: string(req.Kind),
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *workflowService) writeLedgerAudit(ctx context.Context, actorID uuid.UUID, action string, req *model.Request, ledger *model.BalanceLedger) error {
	details, _ := json.Marshal(map[string]any{
		"subject_id":    ledger.SubjectID,
		"resource_type": ledger.ResourceType,
		"period":        ledger.Period,
		"amount":        req.Amount.String(),
		"available":     ledger.Available.String(),
	})
	entry := model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   req.ID.String(),
		EntityName: ledger.ResourceType,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func auditAction(action workflow.Action) string {
	switch action {
	case workflow.ActionSubmit:
		return model.ActionSubmitRequest
	case workflow.ActionApprove:
		return model.ActionApproveRequest
	case workflow.ActionReject:
		return model.ActionRejectRequest
	case workflow.ActionCancel:
		return model.ActionCancelRequest
	case workflow.ActionReceive:
		return model.ActionReceiveStock
	}
	return string(action)
}

func notificationEvent(action workflow.Action) string {
	switch action {
	case workflow.ActionSubmit:
		return ws.EventRequestSubmitted
	case workflow.ActionReceive:
		return ws.EventStockReceived
	}
	return ws.EventRequestDecided
}

// combineClock merges an HH:MM string onto a date, in UTC.
func combineClock(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	d := workflow.BusinessDate(date)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
