package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// InventoryLedger owns seat state per showtime.  All of its methods run
// on the caller's transaction; a returned error means the caller must
// roll back, which is what guarantees that partial holds are never
// committed.
type InventoryLedger struct {
	seats *repository.ShowtimeSeatRepo
}

func NewInventoryLedger(seats *repository.ShowtimeSeatRepo) *InventoryLedger {
	return &InventoryLedger{seats: seats}
}

// normalizeSeatIDs drops duplicates and rejects zero ids.
func normalizeSeatIDs(seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, invalid("seat_ids", "at least one seat is required")
	}
	out := make([]uint64, 0, len(seatIDs))
	seen := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			return nil, invalid("seat_ids", "seat ids must be positive")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// HoldSeats marks every requested seat Held for bookingID, or none of
// them.  It returns the price snapshot of the held seats.
func (l *InventoryLedger) HoldSeats(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64, bookingID uint64, at time.Time) ([]model.SeatPrice, error) {
	ids, err := normalizeSeatIDs(seatIDs)
	if err != nil {
		return nil, err
	}
	n, err := l.seats.HoldTx(ctx, tx, showtimeID, bookingID, ids, at)
	if err != nil {
		return nil, err
	}
	if n != int64(len(ids)) {
		return nil, conflict(CodeSeatUnavailable,
			fmt.Sprintf("%d of %d requested seats are not available", int64(len(ids))-n, len(ids)))
	}
	return l.seats.PricesByBooking(ctx, tx, bookingID)
}

// ReleaseSeats detaches every seat from the booking: Held seats go back
// to Available, Booked seats become Refunded.  Calling it on a booking
// with no seats is a no-op.
func (l *InventoryLedger) ReleaseSeats(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	held, err := l.seats.ReleaseHeldTx(ctx, tx, bookingID)
	if err != nil {
		return 0, err
	}
	booked, err := l.seats.RefundBookedTx(ctx, tx, bookingID)
	if err != nil {
		return 0, err
	}
	return held + booked, nil
}

// MarkBooked turns the booking's Held seats into Booked ones.  The
// number of changed rows must equal expected.
func (l *InventoryLedger) MarkBooked(ctx context.Context, tx *sql.Tx, bookingID uint64, expected int) error {
	n, err := l.seats.MarkBookedTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if n != int64(expected) {
		return conflict(CodeSeatUnavailable, "held seats changed before payment")
	}
	return nil
}
