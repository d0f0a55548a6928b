package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentSuccess   = "Success"
	PaymentCancelled = "Cancelled"
)

// Payment is an append-only audit row, one per confirm or cancel.
type Payment struct {
	ID            uint64          `json:"id"`
	BookingID     uint64          `json:"booking_id"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Duration      int             `json:"duration"`
	Reason        string          `json:"reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

const RefundProcessed = "Processed"

// Refund records a Paid→Refunded transition and the compensation
// coupon minted for it.
type Refund struct {
	ID          uint64          `json:"id"`
	BookingID   uint64          `json:"booking_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at"`
	CouponID    uint64          `json:"coupon_id"`
}
