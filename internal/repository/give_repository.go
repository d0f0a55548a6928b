package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// GiveRepo stores the audit trail of coupon gifts.
type GiveRepo struct {
	db *sql.DB
}

func NewGiveRepo(db *sql.DB) *GiveRepo { return &GiveRepo{db: db} }

// CreateTx records a successful gift.
func (r *GiveRepo) CreateTx(ctx context.Context, tx *sql.Tx, couponID, senderID, receiverID uint64, at time.Time) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO gives (coupon_id, sender_id, receiver_id, created_at) VALUES (?, ?, ?, ?)`,
		couponID, senderID, receiverID, at)
	if err != nil {
		return 0, fmt.Errorf("insert give: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListReceived pages through gifts received by customerID.
func (r *GiveRepo) ListReceived(ctx context.Context, customerID uint64, limit, offset int) ([]model.GiftRecord, int, error) {
	return r.list(ctx, "g.receiver_id", "g.sender_id", customerID, limit, offset)
}

// ListSent pages through gifts sent by customerID.
func (r *GiveRepo) ListSent(ctx context.Context, customerID uint64, limit, offset int) ([]model.GiftRecord, int, error) {
	return r.list(ctx, "g.sender_id", "g.receiver_id", customerID, limit, offset)
}

// list is shared by both directions; self and other are fixed column
// names, never user input.
func (r *GiveRepo) list(ctx context.Context, self, other string, customerID uint64, limit, offset int) ([]model.GiftRecord, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gives g WHERE `+self+` = ?`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT g.id, c.id, c.name, c.coupon_type, c.balance, cu.id, cu.name, g.created_at ` +
		`FROM gives g JOIN coupons c ON c.id = g.coupon_id JOIN customers cu ON cu.id = ` + other +
		` WHERE ` + self + ` = ? ORDER BY g.created_at DESC, g.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.GiftRecord
	for rows.Next() {
		var g model.GiftRecord
		if err := rows.Scan(&g.GiveID, &g.CouponID, &g.CouponName, &g.CouponType, &g.Balance,
			&g.CounterpartyID, &g.CounterpartyName, &g.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}
