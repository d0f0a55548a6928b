package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon types.
const (
	CouponAmount   = "Amount"
	CouponPercent  = "Percent"
	CouponGiftCard = "GiftCard"
)

// Coupon categories derived at read time.
const (
	CouponStateAvailable = "Available"
	CouponStateUsed      = "Used"
	CouponStateExpired   = "Expired"
)

// Coupon is a stored-value or percentage voucher owned by a customer.
//
// Fields:
//
//	Balance        – remaining value (Amount/GiftCard) or the percentage (Percent).
//	FaceValue      – value at mint time, used to restore Percent coupons.
//	Gift           – flips to true once, when the coupon is gifted.
//	BookingID      – set when the coupon has been applied.
//	DiscountAmount – amount actually consumed by the apply.
type Coupon struct {
	ID             uint64          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	CustomerID     uint64          `json:"customer_id"`
	Balance        decimal.Decimal `json:"balance"`
	FaceValue      decimal.Decimal `json:"face_value"`
	CouponType     string          `json:"coupon_type"`
	DateExpired    time.Time       `json:"date_expired"`
	Gift           bool            `json:"gift"`
	BookingID      *uint64         `json:"booking_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Expired reports whether the coupon's expiry date lies before the
// calendar day of now.  A coupon expiring today is still usable.
func (c Coupon) Expired(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	ey, em, ed := c.DateExpired.Date()
	exp := time.Date(ey, em, ed, 0, 0, 0, 0, now.Location())
	return exp.Before(today)
}

// State categorizes the coupon for listing.
func (c Coupon) State(now time.Time) string {
	switch {
	case c.BookingID != nil:
		return CouponStateUsed
	case c.Expired(now):
		return CouponStateExpired
	case c.Balance.IsPositive():
		return CouponStateAvailable
	default:
		return CouponStateUsed
	}
}

// GiftRecord is a gives row joined with the coupon and counterparty.
type GiftRecord struct {
	GiveID           uint64          `json:"give_id"`
	CouponID         uint64          `json:"coupon_id"`
	CouponName       string          `json:"coupon_name"`
	CouponType       string          `json:"coupon_type"`
	Balance          decimal.Decimal `json:"balance"`
	CounterpartyID   uint64          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	CreatedAt        time.Time       `json:"created_at"`
}
