// Package queue defines the broker payloads, the publisher and the
// consumer for booking lifecycle events.
package queue

// Routing keys; each is also the name of a durable queue.
const (
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingRefunded  = "booking.refunded"
	CouponGifted     = "coupon.gifted"
)

// Queues lists every queue the publisher declares and the consumer reads.
var Queues = []string{BookingConfirmed, BookingCancelled, BookingRefunded, CouponGifted}

// BookingConfirmedEvent is published after a payment commits.
type BookingConfirmedEvent struct {
	EventID     string   `json:"event_id"`
	BookingID   uint64   `json:"booking_id"`
	CustomerID  uint64   `json:"customer_id"`
	ShowtimeID  uint64   `json:"showtime_id"`
	PaymentID   uint64   `json:"payment_id"`
	MovieTitle  string   `json:"movie_title"`
	StartsAt    string   `json:"starts_at"`
	Seats       []string `json:"seats"`
	FinalAmount string   `json:"final_amount"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a Pending booking is cancelled,
// released or reaped.
type BookingCancelledEvent struct {
	EventID     string `json:"event_id"`
	BookingID   uint64 `json:"booking_id"`
	CustomerID  uint64 `json:"customer_id"`
	PaymentID   uint64 `json:"payment_id"`
	Reason      string `json:"reason"`
	SeatsFreed  int64  `json:"seats_freed"`
	CancelledAt string `json:"cancelled_at"`
}

// BookingRefundedEvent is published after a refund commits.
type BookingRefundedEvent struct {
	EventID    string `json:"event_id"`
	BookingID  uint64 `json:"booking_id"`
	CustomerID uint64 `json:"customer_id"`
	RefundID   uint64 `json:"refund_id"`
	CouponID   uint64 `json:"coupon_id"`
	Amount     string `json:"amount"`
	RefundedAt string `json:"refunded_at"`
}

// CouponGiftedEvent is published after a coupon changes hands.
type CouponGiftedEvent struct {
	EventID    string `json:"event_id"`
	CouponID   uint64 `json:"coupon_id"`
	SenderID   uint64 `json:"sender_id"`
	ReceiverID uint64 `json:"receiver_id"`
	GiftedAt   string `json:"gifted_at"`
}
