package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// PaymentRepo appends payment audit rows.  Rows are never updated.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts a payment row and returns its id.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p model.Payment) (uint64, error) {
	const q = `INSERT INTO payments (booking_id, method, transaction_id, amount, status, duration, reason, created_at) ` +
		`VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.BookingID, p.Method, p.TransactionID, p.Amount, p.Status, p.Duration, p.Reason, p.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// PaidAmountTx returns the amount of the successful payment of a booking.
func (r *PaymentRepo) PaidAmountTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (decimal.Decimal, error) {
	var amt decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT amount FROM payments WHERE booking_id = ? AND status = 'Success' ORDER BY id DESC LIMIT 1`,
		bookingID).Scan(&amt)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	return amt, err
}

// ListByCustomer pages through payments on the customer's bookings.
func (r *PaymentRepo) ListByCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Payment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments p JOIN bookings b ON b.id = p.booking_id WHERE b.customer_id = ?`,
		customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT p.id, p.booking_id, p.method, p.transaction_id, p.amount, p.status, p.duration, p.reason, p.created_at ` +
		`FROM payments p JOIN bookings b ON b.id = p.booking_id WHERE b.customer_id = ? ` +
		`ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Method, &p.TransactionID, &p.Amount, &p.Status, &p.Duration, &p.Reason, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
