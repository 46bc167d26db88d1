package service

import (
	"context"
	"testing"
	"time"

	"erpcore/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeaveEnv(t *testing.T, noticeDays int) (*workflowEnv, LeaveService) {
	t.Helper()
	env := newWorkflowEnv(t)

	svc := NewLeaveService(
		&fakeRequestRepo{env.store},
		&fakeLedgerRepo{env.store},
		&fakeAuditRepo{env.store},
		fakeTxManager{},
		workflow.FixedClock{T: env.now},
		env.notifier,
		noticeDays,
	)
	return env, svc
}

func dateStr(t time.Time) string { return t.Format("2006-01-02") }

func TestLeaveSubmit(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	start := env.now.AddDate(0, 0, 7)

	res, err := svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType:   workflow.ResourceAnnualLeave,
		StartDate:   dateStr(start),
		EndDate:     dateStr(start.AddDate(0, 0, 2)),
		Description: "family trip",
	})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusPending), res.Status)
	assert.Equal(t, "3", res.Amount)

	require.Len(t, env.store.audits, 1)
	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, "request.submitted", env.notifier.events[0].Event)
}

func TestLeaveSubmit_HalfDay(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	day := dateStr(env.now.AddDate(0, 0, 7))

	res, err := svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceCasualLeave,
		StartDate: day,
		EndDate:   day,
		HalfDay:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.5", res.Amount)

	// A half day over a multi-day range makes no sense.
	_, err = svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceCasualLeave,
		StartDate: day,
		EndDate:   dateStr(env.now.AddDate(0, 0, 8)),
		HalfDay:   true,
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestLeaveSubmit_InvertedRange(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)

	_, err := svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceAnnualLeave,
		StartDate: dateStr(env.now.AddDate(0, 0, 7)),
		EndDate:   dateStr(env.now.AddDate(0, 0, 5)),
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)
	assert.Empty(t, env.store.requests)
}

func TestLeaveSubmit_NoticeWindow(t *testing.T) {
	env, svc := newLeaveEnv(t, 3)

	_, err := svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceAnnualLeave,
		StartDate: dateStr(env.now.AddDate(0, 0, 1)),
		EndDate:   dateStr(env.now.AddDate(0, 0, 1)),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInsufficientNotice)

	_, err = svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceAnnualLeave,
		StartDate: dateStr(env.now.AddDate(0, 0, 3)),
		EndDate:   dateStr(env.now.AddDate(0, 0, 3)),
	})
	assert.NoError(t, err)
}

func TestLeaveSubmit_OverlapRejected(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	env.seedLeave(workflow.StatusApproved, 3, 7) // days 7..9

	_, err := svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceAnnualLeave,
		StartDate: dateStr(env.now.AddDate(0, 0, 9)),
		EndDate:   dateStr(env.now.AddDate(0, 0, 11)),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrOverlappingRequest)

	// A cancelled request in the same window does not block.
	for id, r := range env.store.requests {
		r.Status = workflow.StatusCancelled
		env.store.requests[id] = r
	}
	_, err = svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceAnnualLeave,
		StartDate: dateStr(env.now.AddDate(0, 0, 9)),
		EndDate:   dateStr(env.now.AddDate(0, 0, 11)),
	})
	assert.NoError(t, err)
}

func TestLeaveAmend(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	req := env.seedLeave(workflow.StatusPending, 2, 7)

	res, err := svc.Amend(context.Background(), req.ID.String(), env.requester.String(), AmendLeaveRequest{
		EndDate: dateStr(env.now.AddDate(0, 0, 10)),
	})
	require.NoError(t, err)
	assert.Equal(t, "4", res.Amount, "amount recomputed from the new range")

	// Only the requester may amend.
	_, err = svc.Amend(context.Background(), req.ID.String(), env.manager.String(), AmendLeaveRequest{Description: "x"})
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestLeaveAmend_DescriptionOnlyKeepsAmount(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	day := dateStr(env.now.AddDate(0, 0, 7))

	submitted, err := svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceAnnualLeave,
		StartDate: day,
		EndDate:   day,
		HalfDay:   true,
	})
	require.NoError(t, err)
	require.Equal(t, "0.5", submitted.Amount)

	res, err := svc.Amend(context.Background(), submitted.ID, env.requester.String(), AmendLeaveRequest{
		Description: "dentist, morning only",
	})
	require.NoError(t, err)
	assert.Equal(t, "0.5", res.Amount, "a patch that moves no dates must not touch the amount")
	assert.Equal(t, "dentist, morning only", res.Description)
}

func TestLeaveAmend_HalfDayDateMove(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	day := dateStr(env.now.AddDate(0, 0, 7))

	submitted, err := svc.Submit(context.Background(), env.requester.String(), SubmitLeaveRequest{
		LeaveType: workflow.ResourceAnnualLeave,
		StartDate: day,
		EndDate:   day,
		HalfDay:   true,
	})
	require.NoError(t, err)

	// Shifting to another single day keeps the half day.
	moved := dateStr(env.now.AddDate(0, 0, 9))
	res, err := svc.Amend(context.Background(), submitted.ID, env.requester.String(), AmendLeaveRequest{
		StartDate: moved,
		EndDate:   moved,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.5", res.Amount)

	// Stretching a half day across multiple days is rejected.
	_, err = svc.Amend(context.Background(), submitted.ID, env.requester.String(), AmendLeaveRequest{
		EndDate: dateStr(env.now.AddDate(0, 0, 11)),
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestLeaveAmend_DescriptionOnlySkipsNoticeCheck(t *testing.T) {
	env, svc := newLeaveEnv(t, 3)
	req := env.seedLeave(workflow.StatusPending, 2, 1) // starts tomorrow, inside the window

	res, err := svc.Amend(context.Background(), req.ID.String(), env.requester.String(), AmendLeaveRequest{
		Description: "updated plans",
	})
	require.NoError(t, err, "date rules only apply when the dates move")
	assert.Equal(t, "2", res.Amount)

	// Moving the dates re-runs the notice window.
	_, err = svc.Amend(context.Background(), req.ID.String(), env.requester.String(), AmendLeaveRequest{
		StartDate: dateStr(env.now.AddDate(0, 0, 2)),
		EndDate:   dateStr(env.now.AddDate(0, 0, 2)),
	})
	assert.ErrorIs(t, err, workflow.ErrInsufficientNotice)
}

func TestLeaveAmend_DecidedRequest(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	req := env.seedLeave(workflow.StatusApproved, 2, 7)

	_, err := svc.Amend(context.Background(), req.ID.String(), env.requester.String(), AmendLeaveRequest{Description: "late edit"})
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInvalidStateForAmendment)
	assert.True(t, workflow.IsConflict(err))
}

func TestSeedEntitlementAndBalances(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	adminID := env.manager.String()

	res, err := svc.SeedEntitlement(context.Background(), adminID, SeedEntitlementRequest{
		EmployeeID:     env.requester.String(),
		ResourceType:   workflow.ResourceAnnualLeave,
		Period:         2026,
		Entitled:       "12",
		CarriedForward: "2.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "12", res.Entitled)
	assert.Equal(t, "2.5", res.CarriedForward)
	assert.Equal(t, "14.5", res.Available)

	// Seeding again tops up rather than replaces.
	res, err = svc.SeedEntitlement(context.Background(), adminID, SeedEntitlementRequest{
		EmployeeID:   env.requester.String(),
		ResourceType: workflow.ResourceAnnualLeave,
		Period:       2026,
		Entitled:     "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "13", res.Entitled)
	assert.Equal(t, "15.5", res.Available)

	balances, err := svc.Balances(context.Background(), env.requester.String(), 2026)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, workflow.ResourceAnnualLeave, balances[0].ResourceType)
	assert.Equal(t, "15.5", balances[0].Available)

	l := env.ledger(env.requester, workflow.ResourceAnnualLeave, 2026)
	assert.True(t, l.ConsistencyOK())
}

func TestBalance_SingleResource(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)
	env.seedLedger(env.requester, workflow.ResourceAnnualLeave, 2026, "12", "4")

	bal, err := svc.Balance(context.Background(), env.requester.String(), workflow.ResourceAnnualLeave, 2026)
	require.NoError(t, err)
	assert.Equal(t, "12", bal.Entitled)
	assert.Equal(t, "4", bal.Used)
	assert.Equal(t, "8", bal.Available)

	// No ledger row yet reads as an all-zero balance.
	bal, err = svc.Balance(context.Background(), env.requester.String(), workflow.ResourceSickLeave, 2026)
	require.NoError(t, err)
	assert.Equal(t, workflow.ResourceSickLeave, bal.ResourceType)
	assert.Equal(t, "0", bal.Available)
	assert.Equal(t, "0", bal.Used)

	// Period defaults to the current year.
	bal, err = svc.Balance(context.Background(), env.requester.String(), workflow.ResourceAnnualLeave, 0)
	require.NoError(t, err)
	assert.Equal(t, env.now.Year(), bal.Period)
	assert.Equal(t, "8", bal.Available)

	_, err = svc.Balance(context.Background(), "not-a-uuid", workflow.ResourceAnnualLeave, 2026)
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestSeedEntitlement_RejectsNegative(t *testing.T) {
	env, svc := newLeaveEnv(t, 0)

	_, err := svc.SeedEntitlement(context.Background(), env.manager.String(), SeedEntitlementRequest{
		EmployeeID:   env.requester.String(),
		ResourceType: workflow.ResourceAnnualLeave,
		Period:       2026,
		Entitled:     "-3",
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)
	assert.Empty(t, env.store.ledgers)
}

func TestLeaveDays(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 6, day, 0, 0, 0, 0, time.UTC) }

	assert.True(t, leaveDays(d(1), d(1), false).Equal(decimal.NewFromInt(1)))
	assert.True(t, leaveDays(d(1), d(5), false).Equal(decimal.NewFromInt(5)))
	assert.True(t, leaveDays(d(1), d(1), true).Equal(decimal.NewFromFloat(0.5)))
}
