package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3.0))
	assert.Equal(t, 83.33, Round2(83.333333))
	assert.Equal(t, 50.0, Round2(50))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 1500.46, RoundMoney(1500.456))
	assert.Equal(t, 0.1, RoundMoney(0.1+1e-9))
}

func TestStudentFeeRecalculate(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	fee := StudentFee{TotalAmount: 1000, PaidAmount: 400, DueDate: now.AddDate(0, 0, 7)}
	fee.Recalculate(now)
	assert.Equal(t, 600.0, fee.DueAmount)
	assert.Equal(t, FeeStatusPartial, fee.Status)

	fee.PaidAmount = 1000
	fee.Recalculate(now)
	assert.Equal(t, 0.0, fee.DueAmount)
	assert.Equal(t, FeeStatusPaid, fee.Status)

	overdue := StudentFee{TotalAmount: 500, DueDate: now.AddDate(0, 0, -1)}
	overdue.Recalculate(now)
	assert.Equal(t, FeeStatusOverdue, overdue.Status)
}
