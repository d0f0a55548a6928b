package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory status values for a seat within a showtime.
const (
	SeatAvailable = "Available"
	SeatHeld      = "Held"
	SeatBooked    = "Booked"
	SeatRefunded  = "Refunded"
)

// ShowtimeSeat is the inventory unit: one row per (showtime, seat).
// A Held or Booked row always carries the owning booking; an
// Available row never does.  Price is snapshotted from the seat's
// base price when the hold is taken and is not changed afterwards.
type ShowtimeSeat struct {
	ShowtimeID uint64              `json:"showtime_id"` // showtime_seats.showtime_id
	SeatID     uint64              `json:"seat_id"`     // showtime_seats.seat_id
	Status     string              `json:"status"`      // showtime_seats.status
	Price      decimal.NullDecimal `json:"price"`       // showtime_seats.price (NULL while Available)
	BookingID  *uint64             `json:"booking_id"`  // showtime_seats.booking_id
	HeldAt     *time.Time          `json:"held_at"`     // showtime_seats.held_at
}

// SeatPrice is the price snapshot returned by a successful hold.
type SeatPrice struct {
	SeatID   uint64          `json:"seat_id"`
	RowLabel string          `json:"row_label"`
	Number   int             `json:"number"`
	Price    decimal.Decimal `json:"price"`
}

// Showtime is the subset of the catalog row the booking flow needs.
type Showtime struct {
	ID         uint64
	MovieID    uint64
	MovieTitle string
	RoomID     uint64
	TheaterID  uint64
	StartTime  time.Time
}
