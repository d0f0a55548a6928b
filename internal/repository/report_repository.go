package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ReportRepo holds the aggregate queries behind sales reporting and the
// customer dashboard.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// ShowtimeSales returns the Booked seat count, their revenue and the F&B
// revenue of Paid bookings for one showtime.
func (r *ReportRepo) ShowtimeSales(ctx context.Context, showtimeID uint64) (int, decimal.Decimal, decimal.Decimal, error) {
	var (
		tickets       int
		ticketRevenue decimal.Decimal
		fwbRevenue    decimal.Decimal
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(price), 0) FROM showtime_seats WHERE showtime_id = ? AND status = 'Booked'`,
		showtimeID).Scan(&tickets, &ticketRevenue)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}
	if tickets == 0 {
		return 0, decimal.Zero, decimal.Zero, nil
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(bf.quantity * bf.unit_price), 0) FROM booking_fwbs bf `+
			`JOIN bookings b ON b.id = bf.booking_id WHERE b.showtime_id = ? AND b.status = 'Paid'`,
		showtimeID).Scan(&fwbRevenue)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}
	return tickets, ticketRevenue, fwbRevenue, nil
}

// RecentActivities merges the customer's latest payments, refunds and
// gifts into one feed, newest first.
func (r *ReportRepo) RecentActivities(ctx context.Context, customerID uint64, limit int) ([]model.Activity, error) {
	const q = `SELECT kind, ref_id, status, amount, created_at FROM (` +
		`SELECT 'payment' AS kind, p.id AS ref_id, p.status AS status, p.amount AS amount, p.created_at AS created_at ` +
		`FROM payments p JOIN bookings b ON b.id = p.booking_id WHERE b.customer_id = ? ` +
		`UNION ALL SELECT 'refund', rf.id, rf.status, rf.amount, rf.created_at ` +
		`FROM refunds rf JOIN bookings b ON b.id = rf.booking_id WHERE b.customer_id = ? ` +
		`UNION ALL SELECT 'gift_sent', g.coupon_id, '', 0, g.created_at FROM gives g WHERE g.sender_id = ? ` +
		`UNION ALL SELECT 'gift_received', g.coupon_id, '', 0, g.created_at FROM gives g WHERE g.receiver_id = ?` +
		`) a ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, customerID, customerID, customerID, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.Kind, &a.RefID, &a.Status, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
