package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// FeeDiscountRepository handles approved discount and waiver records.
type FeeDiscountRepository struct {
	db *sqlx.DB
}

// NewFeeDiscountRepository creates a new fee discount repository.
func NewFeeDiscountRepository(db *sqlx.DB) *FeeDiscountRepository {
	return &FeeDiscountRepository{db: db}
}

// InsertTx appends a discount row inside the caller's ledger transaction.
func (r *FeeDiscountRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, discount *models.FeeDiscount) error {
	if discount.ID == "" {
		discount.ID = uuid.NewString()
	}
	discount.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO fee_discounts (id, student_fee_id, type, amount, percentage, reason, approved_by, created_at)
        VALUES (:id, :student_fee_id, :type, :amount, :percentage, :reason, :approved_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, discount); err != nil {
		return fmt.Errorf("insert fee discount: %w", err)
	}
	return nil
}

const listDiscountsQuery = `SELECT id, student_fee_id, type, amount, percentage, reason, approved_by, created_at
        FROM fee_discounts WHERE student_fee_id = $1 ORDER BY created_at ASC`

// ListByFee returns all discount/waiver records for one student fee.
func (r *FeeDiscountRepository) ListByFee(ctx context.Context, studentFeeID string) ([]models.FeeDiscount, error) {
	var discounts []models.FeeDiscount
	if err := r.db.SelectContext(ctx, &discounts, listDiscountsQuery, studentFeeID); err != nil {
		return nil, fmt.Errorf("list fee discounts: %w", err)
	}
	return discounts, nil
}

// ListByFeeTx reads the discount history inside the caller's ledger
// transaction.
func (r *FeeDiscountRepository) ListByFeeTx(ctx context.Context, tx *sqlx.Tx, studentFeeID string) ([]models.FeeDiscount, error) {
	var discounts []models.FeeDiscount
	if err := tx.SelectContext(ctx, &discounts, listDiscountsQuery, studentFeeID); err != nil {
		return nil, fmt.Errorf("list fee discounts: %w", err)
	}
	return discounts, nil
}
