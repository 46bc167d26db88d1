package model

import (
	"errors"
	"testing"

	"erpcore/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(entitled, carried, used string) *BalanceLedger {
	e := decimal.RequireFromString(entitled)
	c := decimal.RequireFromString(carried)
	u := decimal.RequireFromString(used)
	return &BalanceLedger{
		SubjectID:      uuid.New(),
		ResourceType:   workflow.ResourceAnnualLeave,
		Period:         2026,
		Entitled:       e,
		CarriedForward: c,
		Used:           u,
		Available:      e.Add(c).Sub(u),
	}
}

func TestLedger_Reserve(t *testing.T) {
	l := newLedger("12", "2.5", "4")

	require.NoError(t, l.Reserve(decimal.RequireFromString("3.5")))
	assert.True(t, l.Used.Equal(decimal.RequireFromString("7.5")))
	assert.True(t, l.Available.Equal(decimal.NewFromInt(7)))
	assert.True(t, l.ConsistencyOK())
}

func TestLedger_ReserveInsufficient(t *testing.T) {
	l := newLedger("5", "0", "3")

	err := l.Reserve(decimal.NewFromInt(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInsufficientBalance)

	var ib *workflow.InsufficientBalanceError
	require.True(t, errors.As(err, &ib))
	assert.True(t, ib.Available.Equal(decimal.NewFromInt(2)))
	assert.True(t, ib.Requested.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, 2026, ib.Period)

	// A failed reserve must leave the row untouched.
	assert.True(t, l.Used.Equal(decimal.NewFromInt(3)))
	assert.True(t, l.Available.Equal(decimal.NewFromInt(2)))
	assert.True(t, l.ConsistencyOK())
}

func TestLedger_ReserveExactBalance(t *testing.T) {
	l := newLedger("10", "0", "8")

	require.NoError(t, l.Reserve(decimal.NewFromInt(2)))
	assert.True(t, l.Available.IsZero())
	assert.True(t, l.ConsistencyOK())
}

func TestLedger_Release(t *testing.T) {
	l := newLedger("12", "0", "5")

	clamped := l.Release(decimal.NewFromInt(3))
	assert.False(t, clamped)
	assert.True(t, l.Used.Equal(decimal.NewFromInt(2)))
	assert.True(t, l.Available.Equal(decimal.NewFromInt(10)))
	assert.True(t, l.ConsistencyOK())
}

func TestLedger_ReleaseClampsAtZero(t *testing.T) {
	l := newLedger("12", "0", "2")

	clamped := l.Release(decimal.NewFromInt(5))
	assert.True(t, clamped)
	assert.True(t, l.Used.IsZero())
	assert.True(t, l.Available.Equal(decimal.NewFromInt(12)))
	assert.True(t, l.ConsistencyOK())
}

func TestLedger_Credit(t *testing.T) {
	l := newLedger("0", "0", "0")

	l.Credit(decimal.NewFromInt(1))
	l.Credit(decimal.RequireFromString("0.5"))
	assert.True(t, l.Entitled.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, l.Available.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, l.ConsistencyOK())
}

func TestLedger_PostGoesNegative(t *testing.T) {
	l := newLedger("0", "0", "0")
	l.ResourceType = workflow.ResourcePayment

	l.Post(decimal.RequireFromString("1499.99"))
	assert.True(t, l.Used.Equal(decimal.RequireFromString("1499.99")))
	assert.True(t, l.Available.Equal(decimal.RequireFromString("-1499.99")))
	assert.True(t, l.ConsistencyOK())
}

func TestLedger_ConsistencyOK(t *testing.T) {
	l := newLedger("10", "2", "3")
	assert.True(t, l.ConsistencyOK())

	l.Available = l.Available.Add(decimal.NewFromInt(1))
	assert.False(t, l.ConsistencyOK())
}
