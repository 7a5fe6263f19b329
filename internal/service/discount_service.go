package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

// ApplyDiscountRequest is the payload for an approved discount or waiver.
// Exactly one of amount or percentage must be provided.
type ApplyDiscountRequest struct {
	StudentFeeID string   `json:"student_fee_id" validate:"required"`
	Type         string   `json:"type" validate:"required,oneof=DISCOUNT WAIVER"`
	Amount       *float64 `json:"amount" validate:"omitempty,gt=0"`
	Percentage   *float64 `json:"percentage" validate:"omitempty,gt=0,lte=100"`
	Reason       string   `json:"reason" validate:"required"`
	ApprovedBy   string   `json:"-"`
}

// DiscountService applies approved discounts and waivers to fee ledgers.
type DiscountService struct {
	fees      feeLedgerRepo
	discounts feeDiscountWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDiscountService constructs DiscountService.
func NewDiscountService(fees feeLedgerRepo, discounts feeDiscountWriter, validate *validator.Validate, logger *zap.Logger) *DiscountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountService{fees: fees, discounts: discounts, validator: validate, logger: logger}
}

// Apply persists a discount or waiver and updates the ledger aggregates under
// the row lock. A percentage resolves against the fee's total amount before
// the non-negativity check; nothing persists when the due amount would go
// negative.
func (s *DiscountService) Apply(ctx context.Context, req ApplyDiscountRequest) (*models.StudentFee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discount payload")
	}
	if req.Amount == nil && req.Percentage == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount or percentage required")
	}
	if req.Amount != nil && req.Percentage != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide either amount or percentage, not both")
	}

	updated, err := s.fees.WithLedgerLock(ctx, req.StudentFeeID, func(tx *sqlx.Tx, fee *models.StudentFee) error {
		amount := 0.0
		if req.Amount != nil {
			amount = models.RoundMoney(*req.Amount)
		} else {
			amount = models.RoundMoney(fee.TotalAmount * *req.Percentage / 100)
		}

		projectedDiscount := fee.DiscountAmount
		projectedWaiver := fee.WaiverAmount
		if models.AdjustmentType(req.Type) == models.AdjustmentWaiver {
			projectedWaiver = models.RoundMoney(projectedWaiver + amount)
		} else {
			projectedDiscount = models.RoundMoney(projectedDiscount + amount)
		}
		projected := models.RoundMoney(fee.TotalAmount - fee.PaidAmount - projectedDiscount - projectedWaiver)
		if projected < 0 {
			return appErrors.Clone(appErrors.ErrValidation, "adjustment would overdraw the due amount")
		}

		discount := &models.FeeDiscount{
			StudentFeeID: fee.ID,
			Type:         models.AdjustmentType(req.Type),
			Amount:       amount,
			Percentage:   req.Percentage,
			Reason:       req.Reason,
			ApprovedBy:   req.ApprovedBy,
		}
		if err := s.discounts.InsertTx(ctx, tx, discount); err != nil {
			return err
		}
		fee.DiscountAmount = projectedDiscount
		fee.WaiverAmount = projectedWaiver
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student fee not found")
		}
		if appErr := new(appErrors.Error); errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply adjustment")
	}

	s.logger.Info("fee adjustment applied",
		zap.String("student_fee_id", updated.ID),
		zap.String("type", req.Type),
		zap.String("approved_by", req.ApprovedBy),
	)
	return updated, nil
}
