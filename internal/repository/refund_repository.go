package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type RefundRepo struct {
	db *sql.DB
}

func NewRefundRepo(db *sql.DB) *RefundRepo { return &RefundRepo{db: db} }

// CreateTx inserts a processed refund.
func (r *RefundRepo) CreateTx(ctx context.Context, tx *sql.Tx, rf model.Refund) (uint64, error) {
	const q = `INSERT INTO refunds (booking_id, amount, reason, status, created_at, processed_at, coupon_id) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, rf.BookingID, rf.Amount, rf.Reason, rf.Status, rf.CreatedAt, rf.ProcessedAt, rf.CouponID)
	if err != nil {
		return 0, fmt.Errorf("insert refund: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByCustomer pages through refunds on the customer's bookings.
func (r *RefundRepo) ListByCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Refund, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refunds rf JOIN bookings b ON b.id = rf.booking_id WHERE b.customer_id = ?`,
		customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT rf.id, rf.booking_id, rf.amount, rf.reason, rf.status, rf.created_at, rf.processed_at, rf.coupon_id ` +
		`FROM refunds rf JOIN bookings b ON b.id = rf.booking_id WHERE b.customer_id = ? ` +
		`ORDER BY rf.created_at DESC, rf.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Refund
	for rows.Next() {
		var rf model.Refund
		var processed sql.NullTime
		if err := rows.Scan(&rf.ID, &rf.BookingID, &rf.Amount, &rf.Reason, &rf.Status, &rf.CreatedAt, &processed, &rf.CouponID); err != nil {
			return nil, 0, err
		}
		if processed.Valid {
			t := processed.Time
			rf.ProcessedAt = &t
		}
		out = append(out, rf)
	}
	return out, total, rows.Err()
}
