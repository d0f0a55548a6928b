package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// MembershipService runs the annual membership cycle and serves the
// membership card.
type MembershipService struct {
	store *repository.Store
	settings
}

func NewMembershipService(store *repository.Store, opts ...Option) *MembershipService {
	return &MembershipService{store: store, settings: newSettings(opts)}
}

// ResetCycle zeroes points and spend for every customer, re-tiers them
// by age and extends validity to the last day of the current year.
func (m *MembershipService) ResetCycle(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "membership.reset")
	defer span.End()

	now := m.now()
	validUntil := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, now.Location())
	var n int64
	err := runInTx(ctx, m.store.DB, func(tx *sql.Tx) error {
		var err error
		n, err = m.store.Customers.ResetMembershipTx(ctx, tx, now, m.youthAge, m.youthTier, m.baseTier, validUntil)
		return err
	})
	if err != nil {
		return 0, err
	}
	m.logger.WithContext(ctx).WithField("customers", n).Info("membership cycle reset")
	return n, nil
}

// Card is the membership summary shown to a customer.
type Card struct {
	CustomerID     uint64          `json:"customer_id"`
	Name           string          `json:"name"`
	Tier           string          `json:"tier"`
	BoxOfficeRate  decimal.Decimal `json:"box_office_rate"`
	ConcessionRate decimal.Decimal `json:"concession_rate"`
	PointsRate     decimal.Decimal `json:"points_rate"`
	Points         int64           `json:"points"`
	PointValue     decimal.Decimal `json:"point_value"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	ValidUntil     *time.Time      `json:"valid_until"`
}

func (m *MembershipService) GetCard(ctx context.Context, customerID uint64) (Card, error) {
	c, err := m.store.Customers.GetByID(ctx, nil, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return Card{}, &NotFoundError{Resource: "customer"}
	}
	if err != nil {
		return Card{}, err
	}
	card := Card{
		CustomerID: c.ID,
		Name:       c.Name,
		Tier:       c.MembershipTier,
		Points:     c.AccumulatedPoints,
		PointValue: m.pointValue,
		TotalSpent: c.TotalSpent,
		ValidUntil: c.MembershipValidUntil,
	}
	tier, err := m.store.Customers.TierOf(ctx, nil, customerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return Card{}, err
	default:
		card.BoxOfficeRate = tier.BoxOfficeRate
		card.ConcessionRate = tier.ConcessionRate
		card.PointsRate = tier.PointsRate
	}
	return card, nil
}
