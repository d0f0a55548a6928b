package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

const recentActivityLimit = 5

// DashboardStats are the counters at the top of the dashboard.
type DashboardStats struct {
	TotalBookings    int             `json:"total_bookings"`
	PaidBookings     int             `json:"paid_bookings"`
	AvailableCoupons int             `json:"available_coupons"`
	Points           int64           `json:"points"`
	MembershipTier   string          `json:"membership_tier"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
}

// Dashboard is the aggregated customer summary.
type Dashboard struct {
	Stats            DashboardStats   `json:"stats"`
	RecentActivities []model.Activity `json:"recent_activities"`
}

type DashboardService struct {
	store *repository.Store
	settings
}

func NewDashboardService(store *repository.Store, opts ...Option) *DashboardService {
	return &DashboardService{store: store, settings: newSettings(opts)}
}

func (s *DashboardService) GetDashboard(ctx context.Context, customerID uint64) (Dashboard, error) {
	c, err := s.store.Customers.GetByID(ctx, nil, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return Dashboard{}, &NotFoundError{Resource: "customer"}
	}
	if err != nil {
		return Dashboard{}, err
	}
	total, paid, err := s.store.Bookings.CountByCustomer(ctx, customerID)
	if err != nil {
		return Dashboard{}, err
	}
	coupons, err := s.store.Coupons.CountAvailable(ctx, customerID, startOfDay(s.now()))
	if err != nil {
		return Dashboard{}, err
	}
	acts, err := s.store.Reports.RecentActivities(ctx, customerID, recentActivityLimit)
	if err != nil {
		return Dashboard{}, err
	}
	if acts == nil {
		acts = []model.Activity{}
	}
	return Dashboard{
		Stats: DashboardStats{
			TotalBookings:    total,
			PaidBookings:     paid,
			AvailableCoupons: coupons,
			Points:           c.AccumulatedPoints,
			MembershipTier:   c.MembershipTier,
			TotalSpent:       c.TotalSpent,
		},
		RecentActivities: acts,
	}, nil
}

// TransactionHistory pages through the customer's payments.
func (s *DashboardService) TransactionHistory(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.Payment], error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return model.Page[model.Payment]{}, err
	}
	items, total, err := s.store.Payments.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return model.Page[model.Payment]{}, err
	}
	return model.NewPage(items, total, limit, offset), nil
}
