package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ShowtimeSeatRepo owns the showtime_seats inventory table.  Every
// state change is a conditional UPDATE so that concurrent writers
// racing on the same row cannot both succeed.
type ShowtimeSeatRepo struct {
	db *sql.DB
}

func NewShowtimeSeatRepo(db *sql.DB) *ShowtimeSeatRepo { return &ShowtimeSeatRepo{db: db} }

// HoldTx moves the requested seats to Held for bookingID and snapshots
// each seat's base price.  Only rows that are currently free (Available,
// or Refunded inventory returned to sale) are touched.  The returned
// count is the number of rows that changed; the caller compares it with
// len(seatIDs) and rolls back on a shortfall.
func (r *ShowtimeSeatRepo) HoldTx(ctx context.Context, tx *sql.Tx, showtimeID, bookingID uint64, seatIDs []uint64, at time.Time) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	marks, idArgs := inClause(seatIDs)
	q := `UPDATE showtime_seats ss JOIN seats s ON s.id = ss.seat_id ` +
		`SET ss.status = 'Held', ss.booking_id = ?, ss.price = s.price, ss.held_at = ? ` +
		`WHERE ss.showtime_id = ? AND ss.seat_id IN (` + marks + `) ` +
		`AND ss.status IN ('Available', 'Refunded') AND ss.booking_id IS NULL`
	args := append([]any{bookingID, at, showtimeID}, idArgs...)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("hold seats: %w", err)
	}
	return affected(res)
}

// PricesByBooking returns the seats attached to a booking together with
// their snapshotted prices, ordered by row and number.
func (r *ShowtimeSeatRepo) PricesByBooking(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]model.SeatPrice, error) {
	const q = `SELECT ss.seat_id, s.row_label, s.seat_number, COALESCE(ss.price, 0) ` +
		`FROM showtime_seats ss JOIN seats s ON s.id = ss.seat_id ` +
		`WHERE ss.booking_id = ? ORDER BY s.row_label, s.seat_number`
	rows, err := command(r.db, tx).QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatPrice
	for rows.Next() {
		var sp model.SeatPrice
		if err := rows.Scan(&sp.SeatID, &sp.RowLabel, &sp.Number, &sp.Price); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// ReleaseHeldTx returns Held rows of the booking to Available and clears
// the booking link and price snapshot.  Running it twice is a no-op.
func (r *ShowtimeSeatRepo) ReleaseHeldTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	const q = `UPDATE showtime_seats SET status = 'Available', booking_id = NULL, price = NULL, held_at = NULL ` +
		`WHERE booking_id = ? AND status = 'Held'`
	res, err := tx.ExecContext(ctx, q, bookingID)
	if err != nil {
		return 0, fmt.Errorf("release held seats: %w", err)
	}
	return affected(res)
}

// RefundBookedTx moves Booked rows of the booking to Refunded and
// detaches them from the booking.
func (r *ShowtimeSeatRepo) RefundBookedTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	const q = `UPDATE showtime_seats SET status = 'Refunded', booking_id = NULL, held_at = NULL ` +
		`WHERE booking_id = ? AND status = 'Booked'`
	res, err := tx.ExecContext(ctx, q, bookingID)
	if err != nil {
		return 0, fmt.Errorf("refund booked seats: %w", err)
	}
	return affected(res)
}

// MarkBookedTx moves Held rows of the booking to Booked.
func (r *ShowtimeSeatRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	const q = `UPDATE showtime_seats SET status = 'Booked' WHERE booking_id = ? AND status = 'Held'`
	res, err := tx.ExecContext(ctx, q, bookingID)
	if err != nil {
		return 0, fmt.Errorf("mark seats booked: %w", err)
	}
	return affected(res)
}
