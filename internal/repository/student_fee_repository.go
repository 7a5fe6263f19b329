package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

// StudentFeeRepository handles student fee ledger persistence.
type StudentFeeRepository struct {
	db *sqlx.DB
}

// NewStudentFeeRepository creates a new student fee repository.
func NewStudentFeeRepository(db *sqlx.DB) *StudentFeeRepository {
	return &StudentFeeRepository{db: db}
}

const studentFeeColumns = `id, student_id, fee_structure_id, session_id, total_amount, paid_amount,
        discount_amount, waiver_amount, due_amount, status, due_date, created_at, updated_at`

// Create inserts a new student fee assignment.
func (r *StudentFeeRepository) Create(ctx context.Context, fee *models.StudentFee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	fee.CreatedAt = now
	fee.UpdatedAt = now
	fee.Recalculate(now)
	const query = `INSERT INTO student_fees (id, student_id, fee_structure_id, session_id, total_amount, paid_amount,
        discount_amount, waiver_amount, due_amount, status, due_date, created_at, updated_at)
        VALUES (:id, :student_id, :fee_structure_id, :session_id, :total_amount, :paid_amount,
        :discount_amount, :waiver_amount, :due_amount, :status, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create student fee: %w", err)
	}
	return nil
}

// FindByID loads one student fee.
func (r *StudentFeeRepository) FindByID(ctx context.Context, id string) (*models.StudentFee, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_fees WHERE id = $1`, studentFeeColumns)
	var fee models.StudentFee
	if err := r.db.GetContext(ctx, &fee, query, id); err != nil {
		return nil, err
	}
	return &fee, nil
}

// List returns student fees matching the filter with a total count.
func (r *StudentFeeRepository) List(ctx context.Context, filter models.StudentFeeFilter) ([]models.StudentFee, int, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_fees WHERE 1=1`, studentFeeColumns)
	countQuery := `SELECT COUNT(*) FROM student_fees WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		clause := fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, filter.StudentID)
	}
	if filter.SessionID != "" {
		clause := fmt.Sprintf(" AND session_id = $%d", len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, filter.SessionID)
	}
	if filter.Status != "" {
		clause := fmt.Sprintf(" AND status = $%d", len(args)+1)
		query += clause
		countQuery += clause
		args = append(args, filter.Status)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var fees []models.StudentFee
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list student fees: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count student fees: %w", err)
	}
	return fees, total, nil
}

// WithLedgerLock runs apply against the fee row held under a row-level lock
// and persists the recalculated aggregates in the same transaction. Concurrent
// payments or discounts against one ledger serialize on the lock, so the due
// check inside apply always sees the committed balance. Any error from apply
// rolls back everything written through the transaction.
func (r *StudentFeeRepository) WithLedgerLock(ctx context.Context, feeID string, apply func(tx *sqlx.Tx, fee *models.StudentFee) error) (*models.StudentFee, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM student_fees WHERE id = $1 FOR UPDATE`, studentFeeColumns)
	var fee models.StudentFee
	if err := tx.GetContext(ctx, &fee, query, feeID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	if err := apply(tx, &fee); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	now := time.Now().UTC()
	fee.UpdatedAt = now
	fee.Recalculate(now)
	const update = `UPDATE student_fees SET paid_amount = :paid_amount, discount_amount = :discount_amount,
        waiver_amount = :waiver_amount, due_amount = :due_amount, status = :status, updated_at = :updated_at
        WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, fee); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("update student fee: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}
	return &fee, nil
}
