package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CouponRepo provides access to the coupons table.  The gift lock and
// the booking link are conditional updates; callers check the returned
// flag to learn whether they won.
type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

const couponColumns = `id, code, name, customer_id, balance, face_value, coupon_type, date_expired, gift, booking_id, discount_amount, created_at`

func scanCoupon(row interface{ Scan(...any) error }) (model.Coupon, error) {
	var (
		c         model.Coupon
		bookingID sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.CustomerID, &c.Balance, &c.FaceValue, &c.CouponType,
		&c.DateExpired, &c.Gift, &bookingID, &c.DiscountAmount, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if bookingID.Valid {
		id := uint64(bookingID.Int64)
		c.BookingID = &id
	}
	return c, nil
}

// GetByID loads a coupon without locking.
func (r *CouponRepo) GetByID(ctx context.Context, tx *sql.Tx, id uint64) (model.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE id = ?`
	return scanCoupon(command(r.db, tx).QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads a coupon and locks its row.
func (r *CouponRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE id = ? FOR UPDATE`
	return scanCoupon(tx.QueryRowContext(ctx, q, id))
}

// GiftLockTx transfers the coupon from sender to receiver and sets the
// gift flag, provided it is still ungifted, unapplied and owned by the
// sender.  Exactly one of several concurrent callers gets true.
func (r *CouponRepo) GiftLockTx(ctx context.Context, tx *sql.Tx, couponID, senderID, receiverID uint64) (bool, error) {
	const q = `UPDATE coupons SET gift = 1, customer_id = ? ` +
		`WHERE id = ? AND gift = 0 AND customer_id = ? AND booking_id IS NULL`
	res, err := tx.ExecContext(ctx, q, receiverID, couponID, senderID)
	if err != nil {
		return false, fmt.Errorf("gift lock: %w", err)
	}
	n, err := affected(res)
	return n == 1, err
}

// SumAppliedTx returns the total discount already linked to a booking.
func (r *CouponRepo) SumAppliedTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := command(r.db, tx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(discount_amount), 0) FROM coupons WHERE booking_id = ?`, bookingID).Scan(&sum)
	return sum, err
}

// LinkTx consumes the coupon against a booking: balance drops to zero
// and discount records what was used.  It reports false if the coupon
// was already linked.
func (r *CouponRepo) LinkTx(ctx context.Context, tx *sql.Tx, couponID, bookingID uint64, discount decimal.Decimal) (bool, error) {
	const q = `UPDATE coupons SET balance = 0, discount_amount = ?, booking_id = ? WHERE id = ? AND booking_id IS NULL`
	res, err := tx.ExecContext(ctx, q, discount, bookingID, couponID)
	if err != nil {
		return false, fmt.Errorf("link coupon: %w", err)
	}
	n, err := affected(res)
	return n == 1, err
}

// CreateTx mints a coupon and returns its id.
func (r *CouponRepo) CreateTx(ctx context.Context, tx *sql.Tx, c model.Coupon) (uint64, error) {
	const q = `INSERT INTO coupons (code, name, customer_id, balance, face_value, coupon_type, date_expired, gift, discount_amount, created_at) ` +
		`VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`
	res, err := tx.ExecContext(ctx, q, c.Code, c.Name, c.CustomerID, c.Balance, c.FaceValue, c.CouponType, c.DateExpired.Format(dateLayout), c.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert coupon: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// RestoreByBookingTx detaches every coupon linked to a booking and puts
// the consumed value back: Percent coupons regain their face value,
// stored-value coupons regain the discount they gave.
func (r *CouponRepo) RestoreByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	const q = `UPDATE coupons SET balance = CASE WHEN coupon_type = 'Percent' THEN face_value ELSE discount_amount END, ` +
		`discount_amount = 0, booking_id = NULL WHERE booking_id = ?`
	res, err := tx.ExecContext(ctx, q, bookingID)
	if err != nil {
		return 0, fmt.Errorf("restore coupons: %w", err)
	}
	return affected(res)
}

// date_expired is a DATE column.  Calendar days are bound as text so
// the driver's time zone conversion cannot shift them.
const dateLayout = "2006-01-02"

// stateFilter maps a coupon category onto a WHERE fragment.  today is
// bound once per "?" in the fragment.
func stateFilter(state string) (string, int) {
	switch state {
	case model.CouponStateAvailable:
		return ` AND booking_id IS NULL AND date_expired >= ? AND balance > 0`, 1
	case model.CouponStateUsed:
		return ` AND (booking_id IS NOT NULL OR (balance = 0 AND date_expired >= ?))`, 1
	case model.CouponStateExpired:
		return ` AND booking_id IS NULL AND date_expired < ?`, 1
	default:
		return "", 0
	}
}

// ListByCustomer pages through a customer's coupons, optionally
// restricted to one category.
func (r *CouponRepo) ListByCustomer(ctx context.Context, customerID uint64, state string, today time.Time, limit, offset int) ([]model.Coupon, int, error) {
	filter, binds := stateFilter(state)
	args := []any{customerID}
	for i := 0; i < binds; i++ {
		args = append(args, today.Format(dateLayout))
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupons WHERE customer_id = ?`+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE customer_id = ?` + filter +
		` ORDER BY date_expired ASC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// CountAvailable counts the customer's usable coupons.
func (r *CouponRepo) CountAvailable(ctx context.Context, customerID uint64, today time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coupons WHERE customer_id = ? AND booking_id IS NULL AND date_expired >= ? AND balance > 0`,
		customerID, today.Format(dateLayout)).Scan(&n)
	return n, err
}
