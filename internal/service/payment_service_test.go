package service

import (
	"context"
	"database/sql"
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

// mockFeeStore backs the fee, payment and discount services in tests. Its
// WithLedgerLock mirrors the repository: apply the mutation, recalculate,
// return the updated row.
type mockFeeStore struct {
	fees map[string]*models.StudentFee
}

func (m *mockFeeStore) Create(ctx context.Context, fee *models.StudentFee) error {
	if m.fees == nil {
		m.fees = make(map[string]*models.StudentFee)
	}
	if fee.ID == "" {
		fee.ID = "fee-generated"
	}
	fee.Recalculate(time.Now().UTC())
	m.fees[fee.ID] = fee
	return nil
}

func (m *mockFeeStore) FindByID(ctx context.Context, id string) (*models.StudentFee, error) {
	if fee, ok := m.fees[id]; ok {
		copied := *fee
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeeStore) List(ctx context.Context, filter models.StudentFeeFilter) ([]models.StudentFee, int, error) {
	out := make([]models.StudentFee, 0, len(m.fees))
	for _, fee := range m.fees {
		out = append(out, *fee)
	}
	return out, len(out), nil
}

func (m *mockFeeStore) WithLedgerLock(ctx context.Context, feeID string, apply func(tx *sqlx.Tx, fee *models.StudentFee) error) (*models.StudentFee, error) {
	fee, ok := m.fees[feeID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := *fee
	if err := apply(nil, &working); err != nil {
		return nil, err
	}
	working.Recalculate(time.Now().UTC())
	m.fees[feeID] = &working
	copied := working
	return &copied, nil
}

type mockPaymentStore struct {
	payments []models.FeePayment
	rows     []models.FeeCollectionRow
}

func (m *mockPaymentStore) InsertTx(ctx context.Context, tx *sqlx.Tx, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = "payment-generated"
	}
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *mockPaymentStore) ListByFee(ctx context.Context, studentFeeID string) ([]models.FeePayment, error) {
	var out []models.FeePayment
	for _, p := range m.payments {
		if p.StudentFeeID == studentFeeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) ListByFeeTx(ctx context.Context, tx *sqlx.Tx, studentFeeID string) ([]models.FeePayment, error) {
	return m.ListByFee(ctx, studentFeeID)
}

func (m *mockPaymentStore) CollectionRows(ctx context.Context, from, to time.Time) ([]models.FeeCollectionRow, error) {
	return m.rows, nil
}

type mockDiscountStore struct {
	discounts []models.FeeDiscount
}

func (m *mockDiscountStore) InsertTx(ctx context.Context, tx *sqlx.Tx, discount *models.FeeDiscount) error {
	if discount.ID == "" {
		discount.ID = "discount-generated"
	}
	m.discounts = append(m.discounts, *discount)
	return nil
}

func (m *mockDiscountStore) ListByFee(ctx context.Context, studentFeeID string) ([]models.FeeDiscount, error) {
	var out []models.FeeDiscount
	for _, d := range m.discounts {
		if d.StudentFeeID == studentFeeID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDiscountStore) ListByFeeTx(ctx context.Context, tx *sqlx.Tx, studentFeeID string) ([]models.FeeDiscount, error) {
	return m.ListByFee(ctx, studentFeeID)
}

type stubReceipts struct {
	next string
}

func (s *stubReceipts) Next(ctx context.Context) (string, error) {
	if s.next == "" {
		return "RCP-2026-000001", nil
	}
	return s.next, nil
}

func newFeeFixture(id string, total, paid float64) *mockFeeStore {
	fee := &models.StudentFee{
		ID:          id,
		StudentID:   "student-1",
		TotalAmount: total,
		PaidAmount:  paid,
		DueDate:     time.Now().Add(30 * 24 * time.Hour),
	}
	fee.Recalculate(time.Now().UTC())
	return &mockFeeStore{fees: map[string]*models.StudentFee{id: fee}}
}

func newPaymentService(fees *mockFeeStore, payments *mockPaymentStore, discounts *mockDiscountStore) *PaymentService {
	return NewPaymentService(fees, payments, discounts, &stubReceipts{}, nil, validator.New(), zap.NewNop())
}

func TestProcessPaymentPartial(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 0)
	payments := &mockPaymentStore{}
	svc := newPaymentService(fees, payments, &mockDiscountStore{})

	receipt, err := svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		StudentFeeID:  "fee-1",
		Amount:        400,
		PaymentMethod: "CASH",
		CollectedBy:   "cashier-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "RCP-2026-000001", receipt.ReceiptNumber)
	assert.Equal(t, 400.0, receipt.Ledger.PaidAmount)
	assert.Equal(t, 600.0, receipt.Ledger.DueAmount)
	assert.Equal(t, models.FeeStatusPartial, receipt.Ledger.Status)
	assert.Len(t, payments.payments, 1)
}

func TestProcessPaymentSettlesFee(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 600)
	svc := newPaymentService(fees, &mockPaymentStore{}, &mockDiscountStore{})

	receipt, err := svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		StudentFeeID:  "fee-1",
		Amount:        400,
		PaymentMethod: "TRANSFER",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, receipt.Ledger.DueAmount)
	assert.Equal(t, models.FeeStatusPaid, receipt.Ledger.Status)
}

func TestProcessPaymentOverpaymentRejected(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 900)
	payments := &mockPaymentStore{}
	svc := newPaymentService(fees, payments, &mockDiscountStore{})

	_, err := svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		StudentFeeID:  "fee-1",
		Amount:        200,
		PaymentMethod: "CASH",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, payments.payments)
	assert.Equal(t, 900.0, fees.fees["fee-1"].PaidAmount)
}

func TestProcessPaymentDiscountWithoutReason(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 0)
	svc := newPaymentService(fees, &mockPaymentStore{}, &mockDiscountStore{})

	_, err := svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		StudentFeeID:   "fee-1",
		Amount:         100,
		PaymentMethod:  "CASH",
		DiscountAmount: 50,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProcessPaymentInlineDiscountBeforeDueCheck(t *testing.T) {
	// 100 due; a 20 discount lands first, so paying the remaining 80 clears it.
	fees := newFeeFixture("fee-1", 1000, 900)
	discounts := &mockDiscountStore{}
	svc := newPaymentService(fees, &mockPaymentStore{}, discounts)

	receipt, err := svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		StudentFeeID:   "fee-1",
		Amount:         80,
		PaymentMethod:  "CASH",
		DiscountAmount: 20,
		DiscountReason: "sibling concession",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, receipt.Ledger.DueAmount)
	assert.Equal(t, models.FeeStatusPaid, receipt.Ledger.Status)
	require.Len(t, discounts.discounts, 1)
	assert.Equal(t, models.AdjustmentDiscount, discounts.discounts[0].Type)
	assert.Equal(t, 20.0, discounts.discounts[0].Amount)
}

func TestProcessPaymentUnknownFee(t *testing.T) {
	svc := newPaymentService(&mockFeeStore{}, &mockPaymentStore{}, &mockDiscountStore{})

	_, err := svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		StudentFeeID:  "missing",
		Amount:        10,
		PaymentMethod: "CASH",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReceiptLookup(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 0)
	payments := &mockPaymentStore{}
	svc := newPaymentService(fees, payments, &mockDiscountStore{})

	collected, err := svc.ProcessPayment(context.Background(), ProcessPaymentRequest{
		StudentFeeID:  "fee-1",
		Amount:        250,
		PaymentMethod: "CASH",
	})
	require.NoError(t, err)

	receipt, err := svc.Receipt(context.Background(), "fee-1", collected.ReceiptNumber)
	require.NoError(t, err)
	assert.Equal(t, 250.0, receipt.Amount)
	assert.Equal(t, "student-1", receipt.StudentID)

	_, err = svc.Receipt(context.Background(), "fee-1", "RCP-0000")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
