package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// Customer mirrors the customers table including membership state.
type Customer struct {
	ID                   uint64          // customers.id
	Name                 string          // customers.name
	Email                string          // customers.email
	PasswordHash         string          // customers.password_hash
	Role                 string          // customers.role
	DateOfBirth          *time.Time      // customers.date_of_birth
	AccumulatedPoints    int64           // customers.accumulated_points
	TotalSpent           decimal.Decimal // customers.total_spent
	MembershipTier       string          // customers.membership_tier
	MembershipValidUntil *time.Time      // customers.membership_valid_until
	CreatedAt            time.Time       // customers.created_at
}

// MembershipTier holds the discount and accrual rates of a tier.
// Rates are fractions (0.05 = 5%).
type MembershipTier struct {
	Name           string          `json:"name"`
	BoxOfficeRate  decimal.Decimal `json:"box_office_rate"`
	ConcessionRate decimal.Decimal `json:"concession_rate"`
	PointsRate     decimal.Decimal `json:"points_rate"`
}
