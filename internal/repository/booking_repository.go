package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// BookingRepo provides access to the bookings table.  Status changes are
// expressed as conditional updates keyed on the expected current status
// so a reaper sweep and a customer confirmation cannot both win.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, customer_id, showtime_id, status, is_gift, points_used, points_earned, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.CustomerID, &b.ShowtimeID, &b.Status, &b.IsGift,
		&b.PointsUsed, &b.PointsEarned, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

// CreateTx inserts a Pending booking and returns its id.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, customerID, showtimeID uint64, at time.Time) (uint64, error) {
	const q = `INSERT INTO bookings (customer_id, showtime_id, status, is_gift, points_used, points_earned, created_at, updated_at) ` +
		`VALUES (?, ?, 'Pending', 0, 0, 0, ?, ?)`
	res, err := tx.ExecContext(ctx, q, customerID, showtimeID, at, at)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID loads a booking without locking.
func (r *BookingRepo) GetByID(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return scanBooking(command(r.db, tx).QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads a booking and locks its row until the
// transaction ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
	return scanBooking(tx.QueryRowContext(ctx, q, id))
}

// TransitionTx flips status from -> to.  It reports false when the
// booking was no longer in the from state.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to string, at time.Time) (bool, error) {
	const q = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, to, at, id, from)
	if err != nil {
		return false, fmt.Errorf("transition booking %s->%s: %w", from, to, err)
	}
	n, err := affected(res)
	return n == 1, err
}

// SetPointsUsedTx records the points redeemed on a Pending booking.
func (r *BookingRepo) SetPointsUsedTx(ctx context.Context, tx *sql.Tx, id uint64, points int64) error {
	const q = `UPDATE bookings SET points_used = ? WHERE id = ? AND status = 'Pending'`
	_, err := tx.ExecContext(ctx, q, points, id)
	return err
}

// SetPointsEarnedTx records the points accrued by the payment.
func (r *BookingRepo) SetPointsEarnedTx(ctx context.Context, tx *sql.Tx, id uint64, points int64) error {
	const q = `UPDATE bookings SET points_earned = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, points, id)
	return err
}

// TransferTx hands a Paid, never-gifted booking to another customer.
func (r *BookingRepo) TransferTx(ctx context.Context, tx *sql.Tx, id, fromCustomer, toCustomer uint64, at time.Time) (bool, error) {
	const q = `UPDATE bookings SET customer_id = ?, is_gift = 1, updated_at = ? ` +
		`WHERE id = ? AND customer_id = ? AND status = 'Paid' AND is_gift = 0`
	res, err := tx.ExecContext(ctx, q, toCustomer, at, id, fromCustomer)
	if err != nil {
		return false, fmt.Errorf("transfer booking: %w", err)
	}
	n, err := affected(res)
	return n == 1, err
}

// ListExpiredPending returns ids of Pending bookings created before
// cutoff, oldest first.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
	const q = `SELECT id FROM bookings WHERE status = 'Pending' AND created_at < ? ORDER BY created_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByCustomer returns one page of the customer's bookings, newest
// first, and the total count.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.BookingSummary, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE customer_id = ?`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT b.id, b.showtime_id, m.title, st.start_time, b.status, ` +
		`(SELECT COUNT(*) FROM showtime_seats ss WHERE ss.booking_id = b.id), b.is_gift, b.created_at ` +
		`FROM bookings b JOIN showtimes st ON st.id = b.showtime_id JOIN movies m ON m.id = st.movie_id ` +
		`WHERE b.customer_id = ? ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.BookingSummary
	for rows.Next() {
		var s model.BookingSummary
		if err := rows.Scan(&s.ID, &s.ShowtimeID, &s.MovieTitle, &s.StartTime, &s.Status, &s.SeatCount, &s.IsGift, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// CountByCustomer returns the total and Paid booking counts.
func (r *BookingRepo) CountByCustomer(ctx context.Context, customerID uint64) (total, paid int, err error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(status = 'Paid'), 0) FROM bookings WHERE customer_id = ?`
	err = r.db.QueryRowContext(ctx, q, customerID).Scan(&total, &paid)
	return total, paid, err
}
