package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

func newFeeService(fees *mockFeeStore, payments *mockPaymentStore, discounts *mockDiscountStore) *FeeService {
	return NewFeeService(fees, payments, discounts, validator.New(), zap.NewNop())
}

func TestFeeAssign(t *testing.T) {
	fees := &mockFeeStore{}
	svc := newFeeService(fees, &mockPaymentStore{}, &mockDiscountStore{})

	fee, err := svc.Assign(context.Background(), AssignFeeRequest{
		StudentID:      "student-1",
		FeeStructureID: "structure-1",
		SessionID:      "2026",
		TotalAmount:    1500.456,
		DueDate:        "2026-10-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 1500.46, fee.TotalAmount)
	assert.Equal(t, models.FeeStatusPending, fee.Status)
}

func TestFeeAssignBadDueDate(t *testing.T) {
	svc := newFeeService(&mockFeeStore{}, &mockPaymentStore{}, &mockDiscountStore{})

	_, err := svc.Assign(context.Background(), AssignFeeRequest{
		StudentID:      "student-1",
		FeeStructureID: "structure-1",
		SessionID:      "2026",
		TotalAmount:    100,
		DueDate:        "01/10/2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeeLedgerBundlesHistory(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 200)
	payments := &mockPaymentStore{payments: []models.FeePayment{
		{StudentFeeID: "fee-1", Amount: 200, ReceiptNumber: "RCP-2026-000001"},
	}}
	discounts := &mockDiscountStore{discounts: []models.FeeDiscount{
		{StudentFeeID: "fee-1", Type: models.AdjustmentDiscount, Amount: 50, Reason: "early bird"},
	}}
	svc := newFeeService(fees, payments, discounts)

	ledger, err := svc.Ledger(context.Background(), "fee-1")
	require.NoError(t, err)
	assert.Equal(t, "fee-1", ledger.Fee.ID)
	assert.Len(t, ledger.Payments, 1)
	assert.Len(t, ledger.Discounts, 1)
}

// Reconcile replays the event history into the aggregates, overwriting any
// drifted values.
func TestFeeReconcileReplaysEvents(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 0)
	fees.fees["fee-1"].PaidAmount = 999 // drifted aggregate
	payments := &mockPaymentStore{payments: []models.FeePayment{
		{StudentFeeID: "fee-1", Amount: 300},
		{StudentFeeID: "fee-1", Amount: 200},
	}}
	discounts := &mockDiscountStore{discounts: []models.FeeDiscount{
		{StudentFeeID: "fee-1", Type: models.AdjustmentDiscount, Amount: 100},
		{StudentFeeID: "fee-1", Type: models.AdjustmentWaiver, Amount: 50},
	}}
	svc := newFeeService(fees, payments, discounts)

	updated, err := svc.Reconcile(context.Background(), "fee-1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, updated.PaidAmount)
	assert.Equal(t, 100.0, updated.DiscountAmount)
	assert.Equal(t, 50.0, updated.WaiverAmount)
	assert.Equal(t, 350.0, updated.DueAmount)
	assert.Equal(t, models.FeeStatusPartial, updated.Status)
}

// raceFeeStore lands an extra payment at the moment the ledger lock is taken,
// simulating a payment that commits between a reconcile request and its lock
// acquisition.
type raceFeeStore struct {
	*mockFeeStore
	payments *mockPaymentStore
	lateBy   float64
	injected bool
}

func (r *raceFeeStore) WithLedgerLock(ctx context.Context, feeID string, apply func(tx *sqlx.Tx, fee *models.StudentFee) error) (*models.StudentFee, error) {
	if !r.injected {
		r.injected = true
		r.payments.payments = append(r.payments.payments, models.FeePayment{StudentFeeID: feeID, Amount: r.lateBy})
	}
	return r.mockFeeStore.WithLedgerLock(ctx, feeID, apply)
}

func TestFeeReconcileCountsPaymentCommittedBeforeLock(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 400)
	payments := &mockPaymentStore{payments: []models.FeePayment{
		{StudentFeeID: "fee-1", Amount: 400},
	}}
	racing := &raceFeeStore{mockFeeStore: fees, payments: payments, lateBy: 200}
	svc := NewFeeService(racing, payments, &mockDiscountStore{}, validator.New(), zap.NewNop())

	updated, err := svc.Reconcile(context.Background(), "fee-1")
	require.NoError(t, err)
	assert.Equal(t, 600.0, updated.PaidAmount)
	assert.Equal(t, 400.0, updated.DueAmount)
}

func TestFeeCollectionsCSV(t *testing.T) {
	payments := &mockPaymentStore{rows: []models.FeeCollectionRow{
		{ReceiptNumber: "RCP-2026-000001", StudentName: "John Doe", Amount: 500, PaymentMethod: "CASH", PaymentDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), CollectedBy: "cashier-1"},
	}}
	svc := newFeeService(&mockFeeStore{}, payments, &mockDiscountStore{})

	out, err := svc.CollectionsCSV(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "Receipt,"))
	assert.Contains(t, text, "RCP-2026-000001")
	assert.Contains(t, text, "John Doe")
	assert.Contains(t, text, "500.00")
}
