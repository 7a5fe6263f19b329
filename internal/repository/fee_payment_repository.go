package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// FeePaymentRepository handles the append-only payment trail. Payment rows are
// never updated or deleted.
type FeePaymentRepository struct {
	db *sqlx.DB
}

// NewFeePaymentRepository creates a new fee payment repository.
func NewFeePaymentRepository(db *sqlx.DB) *FeePaymentRepository {
	return &FeePaymentRepository{db: db}
}

const insertPaymentQuery = `INSERT INTO fee_payments (id, student_fee_id, amount, payment_date, payment_method,
        receipt_number, collected_by, note, created_at)
        VALUES (:id, :student_fee_id, :amount, :payment_date, :payment_method,
        :receipt_number, :collected_by, :note, :created_at)`

// InsertTx appends a payment row inside the caller's ledger transaction.
func (r *FeePaymentRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now().UTC()
	if _, err := tx.NamedExecContext(ctx, insertPaymentQuery, payment); err != nil {
		return fmt.Errorf("insert fee payment: %w", err)
	}
	return nil
}

const listPaymentsQuery = `SELECT id, student_fee_id, amount, payment_date, payment_method, receipt_number, collected_by, note, created_at
        FROM fee_payments WHERE student_fee_id = $1 ORDER BY payment_date ASC, created_at ASC`

// ListByFee returns the payment history for one student fee, oldest first.
func (r *FeePaymentRepository) ListByFee(ctx context.Context, studentFeeID string) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	if err := r.db.SelectContext(ctx, &payments, listPaymentsQuery, studentFeeID); err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	return payments, nil
}

// ListByFeeTx reads the payment history inside the caller's ledger
// transaction, so the rows are consistent with the locked student fee.
func (r *FeePaymentRepository) ListByFeeTx(ctx context.Context, tx *sqlx.Tx, studentFeeID string) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	if err := tx.SelectContext(ctx, &payments, listPaymentsQuery, studentFeeID); err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	return payments, nil
}

// SumByFee returns the committed payment total for one student fee.
func (r *FeePaymentRepository) SumByFee(ctx context.Context, studentFeeID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM fee_payments WHERE student_fee_id = $1`
	var sum float64
	if err := r.db.GetContext(ctx, &sum, query, studentFeeID); err != nil {
		return 0, fmt.Errorf("sum fee payments: %w", err)
	}
	return sum, nil
}

// FindByReceipt loads one payment by its receipt number.
func (r *FeePaymentRepository) FindByReceipt(ctx context.Context, receiptNumber string) (*models.FeePayment, error) {
	const query = `SELECT id, student_fee_id, amount, payment_date, payment_method, receipt_number, collected_by, note, created_at
        FROM fee_payments WHERE receipt_number = $1`
	var payment models.FeePayment
	if err := r.db.GetContext(ctx, &payment, query, receiptNumber); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CollectionRows returns payment rows joined with student identity for export.
func (r *FeePaymentRepository) CollectionRows(ctx context.Context, from, to time.Time) ([]models.FeeCollectionRow, error) {
	const query = `SELECT p.receipt_number, s.id AS student_id, s.full_name AS student_name,
        p.amount, p.payment_method, p.payment_date, p.collected_by
        FROM fee_payments p
        JOIN student_fees f ON f.id = p.student_fee_id
        JOIN students s ON s.id = f.student_id
        WHERE p.payment_date >= $1 AND p.payment_date < $2
        ORDER BY p.payment_date ASC`
	var rows []models.FeeCollectionRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("collection rows: %w", err)
	}
	return rows, nil
}
