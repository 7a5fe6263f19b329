package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
	"github.com/noah-isme/sma-sis-api/pkg/export"
)

type studentFeeRepo interface {
	Create(ctx context.Context, fee *models.StudentFee) error
	FindByID(ctx context.Context, id string) (*models.StudentFee, error)
	List(ctx context.Context, filter models.StudentFeeFilter) ([]models.StudentFee, int, error)
	WithLedgerLock(ctx context.Context, feeID string, apply func(tx *sqlx.Tx, fee *models.StudentFee) error) (*models.StudentFee, error)
}

type feePaymentReader interface {
	ListByFee(ctx context.Context, studentFeeID string) ([]models.FeePayment, error)
	ListByFeeTx(ctx context.Context, tx *sqlx.Tx, studentFeeID string) ([]models.FeePayment, error)
	CollectionRows(ctx context.Context, from, to time.Time) ([]models.FeeCollectionRow, error)
}

type feeDiscountReader interface {
	ListByFee(ctx context.Context, studentFeeID string) ([]models.FeeDiscount, error)
	ListByFeeTx(ctx context.Context, tx *sqlx.Tx, studentFeeID string) ([]models.FeeDiscount, error)
}

// AssignFeeRequest creates one student's fee obligation for a session.
type AssignFeeRequest struct {
	StudentID      string  `json:"student_id" validate:"required"`
	FeeStructureID string  `json:"fee_structure_id" validate:"required"`
	SessionID      string  `json:"session_id" validate:"required"`
	TotalAmount    float64 `json:"total_amount" validate:"required,gt=0"`
	DueDate        string  `json:"due_date" validate:"required"`
}

// FeeService manages fee assignment and ledger reads.
type FeeService struct {
	fees      studentFeeRepo
	payments  feePaymentReader
	discounts feeDiscountReader
	csv       *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs FeeService.
func NewFeeService(fees studentFeeRepo, payments feePaymentReader, discounts feeDiscountReader, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{
		fees:      fees,
		payments:  payments,
		discounts: discounts,
		csv:       export.NewCSVExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Assign creates a new student fee from a fee structure.
func (s *FeeService) Assign(ctx context.Context, req AssignFeeRequest) (*models.StudentFee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee assignment payload")
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be YYYY-MM-DD")
	}
	fee := &models.StudentFee{
		StudentID:      req.StudentID,
		FeeStructureID: req.FeeStructureID,
		SessionID:      req.SessionID,
		TotalAmount:    models.RoundMoney(req.TotalAmount),
		DueDate:        dueDate,
	}
	if err := s.fees.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign fee")
	}
	return fee, nil
}

// List returns student fees matching the filter.
func (s *FeeService) List(ctx context.Context, filter models.StudentFeeFilter) ([]models.StudentFee, *models.Pagination, error) {
	fees, total, err := s.fees.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student fees")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return fees, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Ledger returns the fee together with its full payment and discount history.
func (s *FeeService) Ledger(ctx context.Context, feeID string) (*models.FeeLedger, error) {
	fee, err := s.fees.FindByID(ctx, feeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student fee")
	}
	payments, err := s.payments.ListByFee(ctx, feeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}
	discounts, err := s.discounts.ListByFee(ctx, feeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discounts")
	}
	return &models.FeeLedger{Fee: *fee, Payments: payments, Discounts: discounts}, nil
}

// Reconcile rebuilds the ledger aggregates by replaying the payment and
// discount event log, repairing any drift between the stored aggregates and
// the event history. The log is read inside the row lock so a payment
// committing concurrently is either fully counted or blocked until after the
// rebuild.
func (s *FeeService) Reconcile(ctx context.Context, feeID string) (*models.StudentFee, error) {
	updated, err := s.fees.WithLedgerLock(ctx, feeID, func(tx *sqlx.Tx, fee *models.StudentFee) error {
		payments, err := s.payments.ListByFeeTx(ctx, tx, feeID)
		if err != nil {
			return err
		}
		discounts, err := s.discounts.ListByFeeTx(ctx, tx, feeID)
		if err != nil {
			return err
		}

		var paid, discount, waiver float64
		for _, p := range payments {
			paid += p.Amount
		}
		for _, d := range discounts {
			if d.Type == models.AdjustmentWaiver {
				waiver += d.Amount
			} else {
				discount += d.Amount
			}
		}

		fee.PaidAmount = models.RoundMoney(paid)
		fee.DiscountAmount = models.RoundMoney(discount)
		fee.WaiverAmount = models.RoundMoney(waiver)
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile ledger")
	}
	s.logger.Info("ledger reconciled", zap.String("student_fee_id", feeID))
	return updated, nil
}

// CollectionsCSV exports the payment trail of a date range as CSV.
func (s *FeeService) CollectionsCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	rows, err := s.payments.CollectionRows(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collections")
	}
	dataset := export.Dataset{
		Headers: []string{"Receipt", "Student", "Amount", "Method", "Date", "Collected By"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Receipt":      row.ReceiptNumber,
			"Student":      row.StudentName,
			"Amount":       fmt.Sprintf("%.2f", row.Amount),
			"Method":       row.PaymentMethod,
			"Date":         row.PaymentDate.Format("2006-01-02"),
			"Collected By": row.CollectedBy,
		})
	}
	return s.csv.Render(dataset)
}
