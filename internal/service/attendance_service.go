package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erpcore/internal/model"
	"erpcore/internal/repository"
	ws "erpcore/internal/websocket"
	"erpcore/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type RecordAttendanceRequest struct {
	WorkDate string `json:"work_date" binding:"required"` // YYYY-MM-DD
	ClockIn  string `json:"clock_in"`                     // HH:MM
	ClockOut string `json:"clock_out"`
}

type AttendanceResponse struct {
	ID       string  `json:"id"`
	WorkDate string  `json:"work_date"`
	ClockIn  *string `json:"clock_in"`
	ClockOut *string `json:"clock_out"`
}

type SubmitCompOffRequest struct {
	WorkedDate  string `json:"worked_date" binding:"required"` // YYYY-MM-DD
	Description string `json:"description"`
}

type SubmitRegularizationRequest struct {
	WorkedDate  string `json:"worked_date" binding:"required"` // YYYY-MM-DD
	ClockIn     string `json:"clock_in" binding:"required"`    // HH:MM
	ClockOut    string `json:"clock_out" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type CreateHolidayRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
	Name string `json:"name" binding:"required"`
}

type HolidayResponse struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

// --- Interface ---

type AttendanceService interface {
	Record(ctx context.Context, employeeID string, req RecordAttendanceRequest) (AttendanceResponse, error)
	ListMine(ctx context.Context, employeeID, from, to string) ([]AttendanceResponse, error)
	SubmitCompOff(ctx context.Context, requesterID string, req SubmitCompOffRequest) (RequestResponse, error)
	SubmitRegularization(ctx context.Context, requesterID string, req SubmitRegularizationRequest) (RequestResponse, error)
	CreateHoliday(ctx context.Context, actorID string, req CreateHolidayRequest) (HolidayResponse, error)
	ListHolidays(ctx context.Context, year int) ([]HolidayResponse, error)
}

type attendanceService struct {
	requestRepo    repository.RequestRepository
	attendanceRepo repository.AttendanceRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	clock          workflow.Clock
	notifier       Notifier
}

func NewAttendanceService(
	requestRepo repository.RequestRepository,
	attendanceRepo repository.AttendanceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	clock workflow.Clock,
	notifier Notifier,
) AttendanceService {
	return &attendanceService{
		requestRepo:    requestRepo,
		attendanceRepo: attendanceRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		clock:          clock,
		notifier:       notifier,
	}
}

// --- Implementation ---

// Record upserts the employee's attendance entry for a day. Re-recording
// the same day overwrites the clock times.
func (s *attendanceService) Record(ctx context.Context, employeeID string, req RecordAttendanceRequest) (AttendanceResponse, error) {
	employee, err := uuid.Parse(employeeID)
	if err != nil {
		return AttendanceResponse{}, fmt.Errorf("invalid employee id: %w", workflow.ErrValidation)
	}
	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		return AttendanceResponse{}, fmt.Errorf("invalid work_date: %w", workflow.ErrValidation)
	}
	workDate = workflow.BusinessDate(workDate)

	entry := model.AttendanceEntry{
		EmployeeID: employee,
		WorkDate:   workDate,
	}
	if req.ClockIn != "" {
		in, err := combineClock(workDate, req.ClockIn)
		if err != nil {
			return AttendanceResponse{}, fmt.Errorf("invalid clock_in: %w", workflow.ErrValidation)
		}
		entry.ClockIn = &in
	}
	if req.ClockOut != "" {
		out, err := combineClock(workDate, req.ClockOut)
		if err != nil {
			return AttendanceResponse{}, fmt.Errorf("invalid clock_out: %w", workflow.ErrValidation)
		}
		entry.ClockOut = &out
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.attendanceRepo.Upsert(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to record attendance: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := model.AuditLog{
			UserID:     &employee,
			Action:     model.ActionRecordAttendance,
			EntityID:   entry.ID.String(),
			EntityName: req.WorkDate,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, &audit)
	})
	if err != nil {
		return AttendanceResponse{}, err
	}

	return toAttendanceResponse(&entry), nil
}

func (s *attendanceService) ListMine(ctx context.Context, employeeID, from, to string) ([]AttendanceResponse, error) {
	employee, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, fmt.Errorf("invalid employee id: %w", workflow.ErrValidation)
	}

	now := s.clock.Now()
	fromDate := workflow.BusinessDate(now).AddDate(0, -1, 0)
	toDate := workflow.BusinessDate(now)
	if from != "" {
		if fromDate, err = time.Parse("2006-01-02", from); err != nil {
			return nil, fmt.Errorf("invalid from date: %w", workflow.ErrValidation)
		}
	}
	if to != "" {
		if toDate, err = time.Parse("2006-01-02", to); err != nil {
			return nil, fmt.Errorf("invalid to date: %w", workflow.ErrValidation)
		}
	}

	entries, err := s.attendanceRepo.ListForEmployee(ctx, employee, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	res := make([]AttendanceResponse, 0, len(entries))
	for i := range entries {
		res = append(res, toAttendanceResponse(&entries[i]))
	}
	return res, nil
}

// SubmitCompOff claims a compensatory day off for work done on a weekend
// or holiday. The worked date must have an attendance entry; the credit
// itself lands on approval.
func (s *attendanceService) SubmitCompOff(ctx context.Context, requesterID string, req SubmitCompOffRequest) (RequestResponse, error) {
	requester, err := uuid.Parse(requesterID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid requester id: %w", workflow.ErrValidation)
	}
	worked, err := time.Parse("2006-01-02", req.WorkedDate)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid worked_date: %w", workflow.ErrValidation)
	}
	worked = workflow.BusinessDate(worked)

	if worked.After(workflow.BusinessDate(s.clock.Now())) {
		return RequestResponse{}, fmt.Errorf("worked_date is in the future: %w", workflow.ErrValidation)
	}

	entry, err := s.attendanceRepo.FindByEmployeeAndDate(ctx, requester, worked)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("attendance lookup failed: %w", err)
	}
	holiday, err := s.attendanceRepo.IsHoliday(ctx, worked)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("holiday lookup failed: %w", err)
	}
	if err := workflow.ValidateCompOffDate(worked, entry != nil, holiday); err != nil {
		return RequestResponse{}, err
	}

	request := model.Request{
		Kind:         workflow.KindCompOff,
		Status:       workflow.InitialStatus(workflow.KindCompOff),
		RequesterID:  requester,
		Amount:       decimal.NewFromInt(1),
		ResourceType: workflow.ResourceCompOff,
		WorkedDate:   &worked,
		Description:  req.Description,
	}

	if err := s.createRequest(ctx, requester, &request, req); err != nil {
		return RequestResponse{}, err
	}
	return toRequestResponse(&request), nil
}

// SubmitRegularization asks to correct the clock times of a past day. The
// corrected times ride along as metadata and are applied on approval.
func (s *attendanceService) SubmitRegularization(ctx context.Context, requesterID string, req SubmitRegularizationRequest) (RequestResponse, error) {
	requester, err := uuid.Parse(requesterID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid requester id: %w", workflow.ErrValidation)
	}
	worked, err := time.Parse("2006-01-02", req.WorkedDate)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid worked_date: %w", workflow.ErrValidation)
	}
	worked = workflow.BusinessDate(worked)

	if worked.After(workflow.BusinessDate(s.clock.Now())) {
		return RequestResponse{}, fmt.Errorf("worked_date is in the future: %w", workflow.ErrValidation)
	}
	in, err := combineClock(worked, req.ClockIn)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid clock_in: %w", workflow.ErrValidation)
	}
	out, err := combineClock(worked, req.ClockOut)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid clock_out: %w", workflow.ErrValidation)
	}
	if !out.After(in) {
		return RequestResponse{}, fmt.Errorf("clock_out must be after clock_in: %w", workflow.ErrValidation)
	}

	metadata, _ := json.Marshal(model.RegularizationDetail{
		ClockIn:  req.ClockIn,
		ClockOut: req.ClockOut,
	})

	request := model.Request{
		Kind:        workflow.KindRegularization,
		Status:      workflow.InitialStatus(workflow.KindRegularization),
		RequesterID: requester,
		Amount:      decimal.NewFromInt(1),
		WorkedDate:  &worked,
		Description: req.Description,
		Metadata:    string(metadata),
	}

	if err := s.createRequest(ctx, requester, &request, req); err != nil {
		return RequestResponse{}, err
	}
	return toRequestResponse(&request), nil
}

func (s *attendanceService) CreateHoliday(ctx context.Context, actorID string, req CreateHolidayRequest) (HolidayResponse, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return HolidayResponse{}, fmt.Errorf("invalid actor id: %w", workflow.ErrValidation)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return HolidayResponse{}, fmt.Errorf("invalid date: %w", workflow.ErrValidation)
	}

	holiday := model.Holiday{
		Date: workflow.BusinessDate(date),
		Name: req.Name,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.attendanceRepo.CreateHoliday(txCtx, &holiday); err != nil {
			return fmt.Errorf("failed to create holiday: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := model.AuditLog{
			UserID:     &actor,
			Action:     model.ActionCreateHoliday,
			EntityID:   holiday.ID.String(),
			EntityName: req.Name,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, &audit)
	})
	if err != nil {
		return HolidayResponse{}, err
	}

	return HolidayResponse{
		ID:   holiday.ID.String(),
		Date: holiday.Date.Format("2006-01-02"),
		Name: holiday.Name,
	}, nil
}

func (s *attendanceService) ListHolidays(ctx context.Context, year int) ([]HolidayResponse, error) {
	holidays, err := s.attendanceRepo.ListHolidays(ctx, year)
	if err != nil {
		return nil, err
	}

	res := make([]HolidayResponse, 0, len(holidays))
	for _, h := range holidays {
		res = append(res, HolidayResponse{
			ID:   h.ID.String(),
			Date: h.Date.Format("2006-01-02"),
			Name: h.Name,
		})
	}
	return res, nil
}

// --- Helpers ---

func (s *attendanceService) createRequest(ctx context.Context, requester uuid.UUID, request *model.Request, payload any) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		details, _ := json.Marshal(payload)
		audit := model.AuditLog{
			UserID:     &requester,
			Action:     model.ActionSubmitRequest,
			EntityID:   request.ID.String(),
			EntityName: string(request.Kind),
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, &audit)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ws.Notification{
		Event:       ws.EventRequestSubmitted,
		RequestID:   request.ID.String(),
		Kind:        string(request.Kind),
		Status:      string(request.Status),
		RequesterID: requester.String(),
		At:          s.clock.Now(),
	})
	return nil
}

func toAttendanceResponse(e *model.AttendanceEntry) AttendanceResponse {
	res := AttendanceResponse{
		ID:       e.ID.String(),
		WorkDate: e.WorkDate.Format("2006-01-02"),
	}
	if e.ClockIn != nil {
		v := e.ClockIn.Format("15:04")
		res.ClockIn = &v
	}
	if e.ClockOut != nil {
		v := e.ClockOut.Format("15:04")
		res.ClockOut = &v
	}
	return res
}
