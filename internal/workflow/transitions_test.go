package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_LeaveLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		action  Action
		want    Status
		wantErr error
	}{
		{"approve pending", StatusPending, ActionApprove, StatusApproved, nil},
		{"reject pending", StatusPending, ActionReject, StatusRejected, nil},
		{"cancel pending", StatusPending, ActionCancel, StatusCancelled, nil},
		{"cancel approved", StatusApproved, ActionCancel, StatusCancelled, nil},
		{"approve approved", StatusApproved, ActionApprove, "", ErrAlreadyDecided},
		{"reject rejected", StatusRejected, ActionReject, "", ErrAlreadyDecided},
		{"approve cancelled", StatusCancelled, ActionApprove, "", ErrAlreadyDecided},
		{"cancel rejected", StatusRejected, ActionCancel, "", ErrInvalidTransition},
		{"receive pending", StatusPending, ActionReceive, "", ErrInvalidTransition},
		{"submit pending", StatusPending, ActionSubmit, "", ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(KindLeave, tt.from, tt.action)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_PurchaseOrderLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		action  Action
		want    Status
		wantErr error
	}{
		{"submit draft", StatusDraft, ActionSubmit, StatusPending, nil},
		{"cancel draft", StatusDraft, ActionCancel, StatusCancelled, nil},
		{"approve draft", StatusDraft, ActionApprove, "", ErrAlreadyDecided},
		{"approve pending", StatusPending, ActionApprove, StatusApproved, nil},
		{"reject pending", StatusPending, ActionReject, StatusRejected, nil},
		{"receive approved", StatusApproved, ActionReceive, StatusReceived, nil},
		{"cancel approved", StatusApproved, ActionCancel, StatusCancelled, nil},
		{"receive partially received", StatusPartiallyReceived, ActionReceive, StatusReceived, nil},
		{"cancel partially received", StatusPartiallyReceived, ActionCancel, "", ErrInvalidTransition},
		{"receive received", StatusReceived, ActionReceive, "", ErrInvalidTransition},
		{"approve received", StatusReceived, ActionApprove, "", ErrAlreadyDecided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(KindPurchaseOrder, tt.from, tt.action)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_SingleStageKinds(t *testing.T) {
	for _, kind := range []Kind{KindExpense, KindCompOff, KindRegularization} {
		got, err := Next(kind, StatusPending, ActionApprove)
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, StatusApproved, got)

		// No draft stage and no receiving for these kinds.
		_, err = Next(kind, StatusDraft, ActionSubmit)
		assert.ErrorIs(t, err, ErrInvalidTransition, "kind %s", kind)
		_, err = Next(kind, StatusApproved, ActionReceive)
		assert.ErrorIs(t, err, ErrInvalidTransition, "kind %s", kind)

		// Approved single-stage requests cannot be cancelled back.
		_, err = Next(kind, StatusApproved, ActionCancel)
		assert.ErrorIs(t, err, ErrInvalidTransition, "kind %s", kind)
	}
}

func TestNext_UnknownKind(t *testing.T) {
	_, err := Next(Kind("PAYROLL"), StatusPending, ActionApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidateReceipt(t *testing.T) {
	lines := []ReceiptLine{
		{LineID: "l1", Ordered: 10, Received: 4, Receiving: 6},
		{LineID: "l2", Ordered: 5, Received: 0, Receiving: 0},
	}
	assert.NoError(t, ValidateReceipt(lines))
}

func TestValidateReceipt_OverOutstanding(t *testing.T) {
	lines := []ReceiptLine{
		{LineID: "l1", Ordered: 10, Received: 4, Receiving: 7},
	}
	err := ValidateReceipt(lines)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverReceipt)

	var over *OverReceiptError
	require.True(t, errors.As(err, &over))
	assert.Equal(t, "l1", over.LineID)
	assert.Equal(t, 10, over.Ordered)
	assert.Equal(t, 4, over.Received)
	assert.Equal(t, 7, over.Receiving)
}

func TestValidateReceipt_NegativeQuantity(t *testing.T) {
	err := ValidateReceipt([]ReceiptLine{{LineID: "l1", Ordered: 10, Receiving: -1}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateReceipt_NothingReceived(t *testing.T) {
	err := ValidateReceipt([]ReceiptLine{
		{LineID: "l1", Ordered: 10, Receiving: 0},
		{LineID: "l2", Ordered: 5, Receiving: 0},
	})
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, ValidateReceipt(nil), ErrValidation)
}

func TestResolveReceiveStatus(t *testing.T) {
	partial := []ReceiptLine{
		{LineID: "l1", Ordered: 10, Received: 0, Receiving: 10},
		{LineID: "l2", Ordered: 5, Received: 0, Receiving: 3},
	}
	assert.Equal(t, StatusPartiallyReceived, ResolveReceiveStatus(partial))

	full := []ReceiptLine{
		{LineID: "l1", Ordered: 10, Received: 4, Receiving: 6},
		{LineID: "l2", Ordered: 5, Received: 5, Receiving: 0},
	}
	assert.Equal(t, StatusReceived, ResolveReceiveStatus(full))
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusDraft, InitialStatus(KindPurchaseOrder))
	for _, kind := range []Kind{KindLeave, KindExpense, KindCompOff, KindRegularization} {
		assert.Equal(t, StatusPending, InitialStatus(kind))
	}
}

func TestMutable(t *testing.T) {
	assert.True(t, Mutable(KindPurchaseOrder, StatusDraft))
	assert.False(t, Mutable(KindPurchaseOrder, StatusPending))
	assert.True(t, Mutable(KindLeave, StatusPending))
	assert.False(t, Mutable(KindLeave, StatusApproved))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, IsDecided(StatusApproved))
	assert.True(t, IsDecided(StatusPartiallyReceived))
	assert.False(t, IsDecided(StatusPending))
	assert.False(t, IsDecided(StatusCancelled))

	assert.True(t, IsTerminal(StatusReceived))
	assert.True(t, IsTerminal(StatusRejected))
	assert.False(t, IsTerminal(StatusApproved))
}
