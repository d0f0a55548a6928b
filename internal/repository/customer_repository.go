package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CustomerRepo mirrors the customers table including membership
// counters and the tier lookup.
type CustomerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, name, email, password_hash, role, date_of_birth, accumulated_points, total_spent, ` +
	`membership_tier, membership_valid_until, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (model.Customer, error) {
	var (
		c          model.Customer
		dob, valid sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Role, &dob, &c.AccumulatedPoints,
		&c.TotalSpent, &c.MembershipTier, &valid, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if dob.Valid {
		t := dob.Time
		c.DateOfBirth = &t
	}
	if valid.Valid {
		t := valid.Time
		c.MembershipValidUntil = &t
	}
	return c, nil
}

// Create inserts a customer with an already hashed password.
func (r *CustomerRepo) Create(ctx context.Context, c model.Customer) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	const q = `INSERT INTO customers (name, email, password_hash, role, date_of_birth, accumulated_points, total_spent, ` +
		`membership_tier, membership_valid_until, created_at) VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, email, c.PasswordHash, c.Role, c.DateOfBirth,
		c.MembershipTier, c.MembershipValidUntil, c.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a customer by normalized email.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (model.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	q := `SELECT ` + customerColumns + ` FROM customers WHERE email = ? LIMIT 1`
	return scanCustomer(r.db.QueryRowContext(ctx, q, email))
}

// GetByID fetches a customer by id.
func (r *CustomerRepo) GetByID(ctx context.Context, tx *sql.Tx, id uint64) (model.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`
	return scanCustomer(command(r.db, tx).QueryRowContext(ctx, q, id))
}

// TierOf returns the membership tier rates of a customer.
func (r *CustomerRepo) TierOf(ctx context.Context, tx *sql.Tx, customerID uint64) (model.MembershipTier, error) {
	const q = `SELECT t.name, t.box_office_rate, t.concession_rate, t.points_rate ` +
		`FROM customers c JOIN membership_tiers t ON t.name = c.membership_tier WHERE c.id = ?`
	var t model.MembershipTier
	err := command(r.db, tx).QueryRowContext(ctx, q, customerID).Scan(&t.Name, &t.BoxOfficeRate, &t.ConcessionRate, &t.PointsRate)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// SpendPointsTx deducts points if the customer still holds enough.
func (r *CustomerRepo) SpendPointsTx(ctx context.Context, tx *sql.Tx, customerID uint64, points int64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE customers SET accumulated_points = accumulated_points - ? WHERE id = ? AND accumulated_points >= ?`,
		points, customerID, points)
	if err != nil {
		return false, fmt.Errorf("spend points: %w", err)
	}
	n, err := affected(res)
	return n == 1, err
}

// AccrueTx adds earned points and the paid amount to the customer.
func (r *CustomerRepo) AccrueTx(ctx context.Context, tx *sql.Tx, customerID uint64, points int64, spent decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE customers SET accumulated_points = accumulated_points + ?, total_spent = total_spent + ? WHERE id = ?`,
		points, spent, customerID)
	if err != nil {
		return fmt.Errorf("accrue points: %w", err)
	}
	return nil
}

// ReverseTx undoes an accrual, flooring both counters at zero.
func (r *CustomerRepo) ReverseTx(ctx context.Context, tx *sql.Tx, customerID uint64, points int64, spent decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE customers SET accumulated_points = GREATEST(accumulated_points - ?, 0), `+
			`total_spent = GREATEST(total_spent - ?, 0) WHERE id = ?`,
		points, spent, customerID)
	if err != nil {
		return fmt.Errorf("reverse accrual: %w", err)
	}
	return nil
}

// ResetMembershipTx zeroes every customer's counters and re-tiers them
// by age at asOf: younger than youthAge goes to youthTier, everyone
// else to baseTier.  Customers without a birth date get baseTier.
func (r *CustomerRepo) ResetMembershipTx(ctx context.Context, tx *sql.Tx, asOf time.Time, youthAge int, youthTier, baseTier string, validUntil time.Time) (int64, error) {
	const q = `UPDATE customers SET accumulated_points = 0, total_spent = 0, ` +
		`membership_tier = CASE WHEN date_of_birth IS NOT NULL AND TIMESTAMPDIFF(YEAR, date_of_birth, ?) < ? THEN ? ELSE ? END, ` +
		`membership_valid_until = ? WHERE role = 'CUSTOMER'`
	res, err := tx.ExecContext(ctx, q, asOf, youthAge, youthTier, baseTier, validUntil)
	if err != nil {
		return 0, fmt.Errorf("reset membership: %w", err)
	}
	return affected(res)
}
