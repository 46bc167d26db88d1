package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	requester := uuid.New()
	manager := uuid.New()
	other := uuid.New()

	asStaff := func(id uuid.UUID) Actor { return Actor{ID: id, Role: "staff"} }
	asManager := func(id uuid.UUID, perms ...string) Actor {
		return Actor{ID: id, Role: "manager", Permissions: perms}
	}
	admin := Actor{ID: other, Role: "admin"}

	tests := []struct {
		name      string
		kind      Kind
		action    Action
		actor     Actor
		managerID *uuid.UUID
		wantErr   error
	}{
		{"requester submits own", KindPurchaseOrder, ActionSubmit, asStaff(requester), &manager, nil},
		{"stranger cannot submit", KindPurchaseOrder, ActionSubmit, asStaff(other), &manager, ErrForbidden},
		{"requester cancels own", KindLeave, ActionCancel, asStaff(requester), &manager, nil},
		{"admin cancels any", KindLeave, ActionCancel, admin, &manager, nil},
		{"manager cannot cancel", KindLeave, ActionCancel, asManager(manager), &manager, ErrForbidden},
		{"manager approves report", KindLeave, ActionApprove, asManager(manager), &manager, nil},
		{"manager rejects report", KindExpense, ActionReject, asManager(manager), &manager, nil},
		{"requester cannot self-approve", KindLeave, ActionApprove, asStaff(requester), &manager, ErrForbidden},
		{"other manager cannot approve", KindLeave, ActionApprove, asManager(other), &manager, ErrForbidden},
		{"no manager on file", KindLeave, ActionApprove, asManager(manager), nil, ErrForbidden},
		{"purchase needs permission", KindPurchaseOrder, ActionApprove, asManager(manager), &manager, ErrForbidden},
		{"purchase approver allowed", KindPurchaseOrder, ActionApprove, asManager(other, PermApprovePurchase), &manager, nil},
		{"admin approves purchase", KindPurchaseOrder, ActionApprove, admin, &manager, nil},
		{"requester receives own order", KindPurchaseOrder, ActionReceive, asStaff(requester), &manager, nil},
		{"approver receives", KindPurchaseOrder, ActionReceive, asManager(other, PermApprovePurchase), &manager, nil},
		{"stranger cannot receive", KindPurchaseOrder, ActionReceive, asStaff(other), &manager, ErrForbidden},
		{"receive only on purchase orders", KindLeave, ActionReceive, asStaff(requester), &manager, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.kind, tt.action, tt.actor, requester, tt.managerID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestActor_HasPermission(t *testing.T) {
	a := Actor{Role: "staff", Permissions: []string{"requests.read", "requests.write"}}
	assert.True(t, a.HasPermission("requests.write"))
	assert.False(t, a.HasPermission(PermApprovePurchase))

	// Admins bypass the permission list entirely.
	assert.True(t, Actor{Role: "Admin"}.HasPermission(PermApprovePurchase))
}

func TestRequireReason(t *testing.T) {
	assert.ErrorIs(t, RequireReason(ActionReject, ""), ErrMissingReason)
	assert.ErrorIs(t, RequireReason(ActionReject, "   "), ErrMissingReason)
	assert.NoError(t, RequireReason(ActionReject, "duplicate claim"))
	assert.NoError(t, RequireReason(ActionApprove, ""))
	assert.NoError(t, RequireReason(ActionCancel, ""))
}

func TestValidateDateRange(t *testing.T) {
	day := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	assert.NoError(t, ValidateDateRange(day, day))
	assert.NoError(t, ValidateDateRange(day, day.AddDate(0, 0, 3)))
	assert.ErrorIs(t, ValidateDateRange(day, day.AddDate(0, 0, -1)), ErrValidation)

	// Same calendar day with a later start clock is still a valid range.
	assert.NoError(t, ValidateDateRange(day.Add(5*time.Hour), day))
}

func TestCheckNotice(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.NoError(t, CheckNotice(now, now.AddDate(0, 0, 3), 3))
	assert.NoError(t, CheckNotice(now, now.AddDate(0, 0, 10), 3))
	assert.ErrorIs(t, CheckNotice(now, now.AddDate(0, 0, 2), 3), ErrInsufficientNotice)
	assert.ErrorIs(t, CheckNotice(now, now, 3), ErrInsufficientNotice)

	// Zero window disables the check.
	assert.NoError(t, CheckNotice(now, now, 0))
	assert.NoError(t, CheckNotice(now, now.AddDate(0, 0, -5), 0))
}

func TestCheckCancelBeforeStart(t *testing.T) {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, CheckCancelBeforeStart(start.AddDate(0, 0, -1), start))
	assert.ErrorIs(t, CheckCancelBeforeStart(start, start), ErrInvalidTransition)
	assert.ErrorIs(t, CheckCancelBeforeStart(start.AddDate(0, 0, 2), start), ErrInvalidTransition)

	// The morning of the start date counts as started.
	assert.ErrorIs(t, CheckCancelBeforeStart(start.Add(6*time.Hour), start), ErrInvalidTransition)
}

func TestOverlaps(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 5, day, 0, 0, 0, 0, time.UTC) }

	assert.True(t, Overlaps(d(1), d(5), d(5), d(8)), "shared boundary day overlaps")
	assert.True(t, Overlaps(d(3), d(4), d(1), d(10)), "contained range overlaps")
	assert.True(t, Overlaps(d(1), d(10), d(3), d(4)), "containing range overlaps")
	assert.False(t, Overlaps(d(1), d(5), d(6), d(8)))
	assert.False(t, Overlaps(d(6), d(8), d(1), d(5)))

	// Clock components are ignored.
	assert.True(t, Overlaps(d(1).Add(23*time.Hour), d(5), d(5).Add(1*time.Hour), d(8)))
}

func TestValidateCompOffDate(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateCompOffDate(saturday, true, false))
	assert.NoError(t, ValidateCompOffDate(tuesday, true, true), "holiday weekday is eligible")
	assert.ErrorIs(t, ValidateCompOffDate(saturday, false, false), ErrUnworkedDate)
	assert.ErrorIs(t, ValidateCompOffDate(tuesday, true, false), ErrNotEligibleDate)
}

func TestBusinessDate(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	local := time.Date(2026, 3, 11, 2, 15, 0, 0, loc) // 2026-03-10 19:15 UTC
	got := BusinessDate(local)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}
