package models

import (
	"math"
	"time"
)

// FeeStatus tracks where a student fee sits in its payment lifecycle.
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "PENDING"
	FeeStatusPartial FeeStatus = "PARTIAL"
	FeeStatusPaid    FeeStatus = "PAID"
	FeeStatusOverdue FeeStatus = "OVERDUE"
)

// AdjustmentType distinguishes discounts from waivers on a fee ledger.
type AdjustmentType string

const (
	AdjustmentDiscount AdjustmentType = "DISCOUNT"
	AdjustmentWaiver   AdjustmentType = "WAIVER"
)

// FeeStructure is a named fee template assignable to students of a class/session.
type FeeStructure struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Amount    float64   `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFee is one student's instantiated obligation for one session.
// Due amount and status are derived; every write recalculates them from
// total - paid - discount - waiver.
type StudentFee struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	FeeStructureID string    `db:"fee_structure_id" json:"fee_structure_id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	TotalAmount    float64   `db:"total_amount" json:"total_amount"`
	PaidAmount     float64   `db:"paid_amount" json:"paid_amount"`
	DiscountAmount float64   `db:"discount_amount" json:"discount_amount"`
	WaiverAmount   float64   `db:"waiver_amount" json:"waiver_amount"`
	DueAmount      float64   `db:"due_amount" json:"due_amount"`
	Status         FeeStatus `db:"status" json:"status"`
	DueDate        time.Time `db:"due_date" json:"due_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Round2 rounds a value to two decimal places. Percentages and averages use
// it directly.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundMoney normalises a monetary value to two decimal places.
func RoundMoney(v float64) float64 {
	return Round2(v)
}

// Recalculate derives the due amount and status from the aggregate fields.
// The due amount never goes below zero here; callers must reject writes that
// would require clamping.
func (f *StudentFee) Recalculate(now time.Time) {
	f.TotalAmount = RoundMoney(f.TotalAmount)
	f.PaidAmount = RoundMoney(f.PaidAmount)
	f.DiscountAmount = RoundMoney(f.DiscountAmount)
	f.WaiverAmount = RoundMoney(f.WaiverAmount)
	f.DueAmount = RoundMoney(f.TotalAmount - f.PaidAmount - f.DiscountAmount - f.WaiverAmount)
	if f.DueAmount < 0 {
		f.DueAmount = 0
	}

	switch {
	case f.DueAmount == 0:
		f.Status = FeeStatusPaid
	case f.PaidAmount > 0:
		f.Status = FeeStatusPartial
	case !f.DueDate.IsZero() && now.After(f.DueDate):
		f.Status = FeeStatusOverdue
	default:
		f.Status = FeeStatusPending
	}
}

// FeePayment is an immutable record of money received against one student fee.
type FeePayment struct {
	ID            string    `db:"id" json:"id"`
	StudentFeeID  string    `db:"student_fee_id" json:"student_fee_id"`
	Amount        float64   `db:"amount" json:"amount"`
	PaymentDate   time.Time `db:"payment_date" json:"payment_date"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	ReceiptNumber string    `db:"receipt_number" json:"receipt_number"`
	CollectedBy   string    `db:"collected_by" json:"collected_by"`
	Note          string    `db:"note" json:"note,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// FeeDiscount is an approved reduction of a student fee's obligation.
type FeeDiscount struct {
	ID           string         `db:"id" json:"id"`
	StudentFeeID string         `db:"student_fee_id" json:"student_fee_id"`
	Type         AdjustmentType `db:"type" json:"type"`
	Amount       float64        `db:"amount" json:"amount"`
	Percentage   *float64       `db:"percentage" json:"percentage,omitempty"`
	Reason       string         `db:"reason" json:"reason"`
	ApprovedBy   string         `db:"approved_by" json:"approved_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Receipt is the value object returned to the caller after a successful
// payment. It is composed at payment time, not stored as its own row.
type Receipt struct {
	ReceiptNumber string     `json:"receipt_number"`
	StudentFeeID  string     `json:"student_fee_id"`
	StudentID     string     `json:"student_id"`
	Amount        float64    `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	PaymentDate   time.Time  `json:"payment_date"`
	CollectedBy   string     `json:"collected_by"`
	Ledger        StudentFee `json:"ledger"`
}

// FeeLedger bundles a student fee with its full event history.
type FeeLedger struct {
	Fee       StudentFee    `json:"fee"`
	Payments  []FeePayment  `json:"payments"`
	Discounts []FeeDiscount `json:"discounts"`
}

// StudentFeeFilter scopes student fee listings.
type StudentFeeFilter struct {
	StudentID string
	SessionID string
	Status    FeeStatus
	Page      int
	PageSize  int
}

// FeeCollectionRow is one row of the collections export.
type FeeCollectionRow struct {
	ReceiptNumber string    `db:"receipt_number" json:"receipt_number"`
	StudentID     string    `db:"student_id" json:"student_id"`
	StudentName   string    `db:"student_name" json:"student_name"`
	Amount        float64   `db:"amount" json:"amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	PaymentDate   time.Time `db:"payment_date" json:"payment_date"`
	CollectedBy   string    `db:"collected_by" json:"collected_by"`
}
