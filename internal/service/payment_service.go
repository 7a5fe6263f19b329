package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

type feeLedgerRepo interface {
	FindByID(ctx context.Context, id string) (*models.StudentFee, error)
	WithLedgerLock(ctx context.Context, feeID string, apply func(tx *sqlx.Tx, fee *models.StudentFee) error) (*models.StudentFee, error)
}

type feePaymentWriter interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, payment *models.FeePayment) error
	ListByFee(ctx context.Context, studentFeeID string) ([]models.FeePayment, error)
}

type feeDiscountWriter interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, discount *models.FeeDiscount) error
}

type receiptSequencer interface {
	Next(ctx context.Context) (string, error)
}

type paymentMetrics interface {
	ObservePayment(amount float64)
}

// ProcessPaymentRequest is the payload for collecting one payment.
type ProcessPaymentRequest struct {
	StudentFeeID   string  `json:"student_fee_id" validate:"required"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod  string  `json:"payment_method" validate:"required"`
	DiscountAmount float64 `json:"discount_amount" validate:"omitempty,gte=0"`
	DiscountReason string  `json:"discount_reason"`
	Note           string  `json:"note"`
	CollectedBy    string  `json:"-"`
}

// PaymentService applies payments against student fee ledgers.
type PaymentService struct {
	fees      feeLedgerRepo
	payments  feePaymentWriter
	discounts feeDiscountWriter
	receipts  receiptSequencer
	metrics   paymentMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(fees feeLedgerRepo, payments feePaymentWriter, discounts feeDiscountWriter, receipts receiptSequencer, metrics paymentMetrics, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		fees:      fees,
		payments:  payments,
		discounts: discounts,
		receipts:  receipts,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// ProcessPayment validates and applies one payment against a fee ledger. The
// payment row, the optional inline discount and the aggregate update commit in
// one transaction under a row lock; nothing persists when validation fails.
// An inline discount is applied before the due check, so the payment amount is
// validated against the post-discount balance.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*models.Receipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	req.Amount = models.RoundMoney(req.Amount)
	req.DiscountAmount = models.RoundMoney(req.DiscountAmount)
	if req.DiscountAmount > 0 && req.DiscountReason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount reason required")
	}

	receiptNumber, err := s.receipts.Next(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue receipt number")
	}

	paymentDate := time.Now().UTC()
	payment := &models.FeePayment{
		StudentFeeID:  req.StudentFeeID,
		Amount:        req.Amount,
		PaymentDate:   paymentDate,
		PaymentMethod: req.PaymentMethod,
		ReceiptNumber: receiptNumber,
		CollectedBy:   req.CollectedBy,
		Note:          req.Note,
	}

	updated, err := s.fees.WithLedgerLock(ctx, req.StudentFeeID, func(tx *sqlx.Tx, fee *models.StudentFee) error {
		if req.DiscountAmount > 0 {
			projected := models.RoundMoney(fee.TotalAmount - fee.PaidAmount - fee.DiscountAmount - req.DiscountAmount - fee.WaiverAmount)
			if projected < 0 {
				return appErrors.Clone(appErrors.ErrValidation, "discount exceeds due amount")
			}
			discount := &models.FeeDiscount{
				StudentFeeID: fee.ID,
				Type:         models.AdjustmentDiscount,
				Amount:       req.DiscountAmount,
				Reason:       req.DiscountReason,
				ApprovedBy:   req.CollectedBy,
			}
			if err := s.discounts.InsertTx(ctx, tx, discount); err != nil {
				return err
			}
			fee.DiscountAmount = models.RoundMoney(fee.DiscountAmount + req.DiscountAmount)
		}

		due := models.RoundMoney(fee.TotalAmount - fee.PaidAmount - fee.DiscountAmount - fee.WaiverAmount)
		if req.Amount > due {
			return appErrors.Clone(appErrors.ErrValidation, "amount exceeds due")
		}

		if err := s.payments.InsertTx(ctx, tx, payment); err != nil {
			return err
		}
		fee.PaidAmount = models.RoundMoney(fee.PaidAmount + req.Amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student fee not found")
		}
		if appErr := new(appErrors.Error); errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply payment")
	}

	if s.metrics != nil {
		s.metrics.ObservePayment(req.Amount)
	}
	s.logger.Info("payment collected",
		zap.String("student_fee_id", updated.ID),
		zap.String("receipt_number", receiptNumber),
		zap.Float64("amount", req.Amount),
		zap.String("collected_by", req.CollectedBy),
	)

	return &models.Receipt{
		ReceiptNumber: receiptNumber,
		StudentFeeID:  updated.ID,
		StudentID:     updated.StudentID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   paymentDate,
		CollectedBy:   req.CollectedBy,
		Ledger:        *updated,
	}, nil
}

// Receipt rebuilds the receipt view for a previously collected payment.
func (s *PaymentService) Receipt(ctx context.Context, studentFeeID, receiptNumber string) (*models.Receipt, error) {
	fee, err := s.fees.FindByID(ctx, studentFeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student fee")
	}
	payments, err := s.payments.ListByFee(ctx, studentFeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}
	for _, payment := range payments {
		if payment.ReceiptNumber == receiptNumber {
			return &models.Receipt{
				ReceiptNumber: payment.ReceiptNumber,
				StudentFeeID:  fee.ID,
				StudentID:     fee.StudentID,
				Amount:        payment.Amount,
				PaymentMethod: payment.PaymentMethod,
				PaymentDate:   payment.PaymentDate,
				CollectedBy:   payment.CollectedBy,
				Ledger:        *fee,
			}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
}
