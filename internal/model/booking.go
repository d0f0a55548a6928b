package model

import "time"

// Booking status values.  Legal transitions are Pending→Paid,
// Pending→Cancelled and Paid→Refunded; every other move is rejected.
const (
	BookingPending   = "Pending"
	BookingPaid      = "Paid"
	BookingCancelled = "Cancelled"
	BookingRefunded  = "Refunded"
)

// Booking is a customer's order for seats (and optionally food and
// beverages) in a single showtime.
//
// Fields:
//
//	ID           – primary key identifier.
//	CustomerID   – current owner; changes only when the booking is gifted.
//	ShowtimeID   – showtime the seats belong to.
//	Status       – one of the Booking* constants.
//	IsGift       – set once the booking has been transferred to another customer.
//	PointsUsed   – membership points redeemed against this booking.
//	PointsEarned – points accrued on payment, reversed on refund.
//	CreatedAt    – creation timestamp, the hold timeout counts from here.
//	UpdatedAt    – last update timestamp.
type Booking struct {
	ID           uint64    `json:"id"`            // bookings.id
	CustomerID   uint64    `json:"customer_id"`   // bookings.customer_id
	ShowtimeID   uint64    `json:"showtime_id"`   // bookings.showtime_id
	Status       string    `json:"status"`        // bookings.status
	IsGift       bool      `json:"is_gift"`       // bookings.is_gift
	PointsUsed   int64     `json:"points_used"`   // bookings.points_used
	PointsEarned int64     `json:"points_earned"` // bookings.points_earned
	CreatedAt    time.Time `json:"created_at"`    // bookings.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // bookings.updated_at
}

// BookingSummary is the list projection used by "my bookings".
type BookingSummary struct {
	ID         uint64    `json:"id"`
	ShowtimeID uint64    `json:"showtime_id"`
	MovieTitle string    `json:"movie_title"`
	StartTime  time.Time `json:"start_time"`
	Status     string    `json:"status"`
	SeatCount  int       `json:"seat_count"`
	IsGift     bool      `json:"is_gift"`
	CreatedAt  time.Time `json:"created_at"`
}
