package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-sis-api/internal/models"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
)

func newDiscountService(fees *mockFeeStore, discounts *mockDiscountStore) *DiscountService {
	return NewDiscountService(fees, discounts, validator.New(), zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }

func TestDiscountApplyFixedAmount(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 300)
	discounts := &mockDiscountStore{}
	svc := newDiscountService(fees, discounts)

	updated, err := svc.Apply(context.Background(), ApplyDiscountRequest{
		StudentFeeID: "fee-1",
		Type:         "DISCOUNT",
		Amount:       floatPtr(100),
		Reason:       "merit scholarship",
		ApprovedBy:   "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.DiscountAmount)
	assert.Equal(t, 600.0, updated.DueAmount)
	require.Len(t, discounts.discounts, 1)
	assert.Equal(t, "admin-1", discounts.discounts[0].ApprovedBy)
}

func TestDiscountApplyPercentageResolvesAgainstTotal(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 0)
	discounts := &mockDiscountStore{}
	svc := newDiscountService(fees, discounts)

	updated, err := svc.Apply(context.Background(), ApplyDiscountRequest{
		StudentFeeID: "fee-1",
		Type:         "DISCOUNT",
		Percentage:   floatPtr(10),
		Reason:       "staff child",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.DiscountAmount)
	assert.Equal(t, 900.0, updated.DueAmount)
	require.Len(t, discounts.discounts, 1)
	assert.Equal(t, 100.0, discounts.discounts[0].Amount)
	require.NotNil(t, discounts.discounts[0].Percentage)
	assert.Equal(t, 10.0, *discounts.discounts[0].Percentage)
}

func TestDiscountApplyWaiverTrackedSeparately(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 0)
	svc := newDiscountService(fees, &mockDiscountStore{})

	updated, err := svc.Apply(context.Background(), ApplyDiscountRequest{
		StudentFeeID: "fee-1",
		Type:         "WAIVER",
		Amount:       floatPtr(1000),
		Reason:       "hardship",
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, updated.WaiverAmount)
	assert.Equal(t, 0.0, updated.DiscountAmount)
	assert.Equal(t, models.FeeStatusPaid, updated.Status)
}

func TestDiscountApplyOverdrawRejected(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 950)
	discounts := &mockDiscountStore{}
	svc := newDiscountService(fees, discounts)

	_, err := svc.Apply(context.Background(), ApplyDiscountRequest{
		StudentFeeID: "fee-1",
		Type:         "DISCOUNT",
		Amount:       floatPtr(100),
		Reason:       "too generous",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, discounts.discounts)
	assert.Equal(t, 0.0, fees.fees["fee-1"].DiscountAmount)
}

func TestDiscountApplyRequiresExactlyOneBasis(t *testing.T) {
	fees := newFeeFixture("fee-1", 1000, 0)
	svc := newDiscountService(fees, &mockDiscountStore{})

	_, err := svc.Apply(context.Background(), ApplyDiscountRequest{
		StudentFeeID: "fee-1",
		Type:         "DISCOUNT",
		Reason:       "no basis",
	})
	require.Error(t, err)

	_, err = svc.Apply(context.Background(), ApplyDiscountRequest{
		StudentFeeID: "fee-1",
		Type:         "DISCOUNT",
		Amount:       floatPtr(50),
		Percentage:   floatPtr(5),
		Reason:       "both bases",
	})
	require.Error(t, err)
}
