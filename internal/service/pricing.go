package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Breakdown is the server-side price computation for one booking.
type Breakdown struct {
	BookingID          uint64          `json:"booking_id"`
	SeatCount          int             `json:"seat_count"`
	BaseSeatPrice      decimal.Decimal `json:"base_seat_price"`
	FwbPrice           decimal.Decimal `json:"fwb_price"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	CouponDiscount     decimal.Decimal `json:"coupon_discount"`
	MembershipTier     string          `json:"membership_tier"`
	MembershipDiscount decimal.Decimal `json:"membership_discount"`
	PointsUsed         int64           `json:"points_used"`
	PointsDiscount     decimal.Decimal `json:"points_discount"`
	FinalAmount        decimal.Decimal `json:"final_amount"`
}

// PricingEngine derives a Breakdown from stored state only.  It never
// writes, so repeated calls without intervening writes agree.
type PricingEngine struct {
	store *repository.Store
	settings
}

func NewPricingEngine(store *repository.Store, opts ...Option) *PricingEngine {
	return &PricingEngine{store: store, settings: newSettings(opts)}
}

// CalculateFinalAmount returns the breakdown of a booking owned by
// customerID.
func (p *PricingEngine) CalculateFinalAmount(ctx context.Context, customerID, bookingID uint64) (Breakdown, error) {
	if bookingID == 0 {
		return Breakdown{}, invalid("booking_id", "must be positive")
	}
	b, err := p.store.Bookings.GetByID(ctx, nil, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return Breakdown{}, &NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return Breakdown{}, err
	}
	if b.CustomerID != customerID {
		return Breakdown{}, &ForbiddenError{Resource: "booking"}
	}
	bd, _, err := p.calculate(ctx, nil, b)
	return bd, err
}

// subtotal returns the seat and F&B totals of a booking.
func (p *PricingEngine) subtotal(ctx context.Context, tx *sql.Tx, bookingID uint64) (seats decimal.Decimal, fwb decimal.Decimal, count int, err error) {
	prices, err := p.store.Seats.PricesByBooking(ctx, tx, bookingID)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, err
	}
	seats = decimal.Zero
	for _, sp := range prices {
		seats = seats.Add(sp.Price)
	}
	lines, err := p.store.Fwb.ListByBooking(ctx, tx, bookingID)
	if err != nil {
		return decimal.Zero, decimal.Zero, 0, err
	}
	fwb = decimal.Zero
	for _, l := range lines {
		fwb = fwb.Add(l.LineTotal())
	}
	return seats, fwb, len(prices), nil
}

// calculate computes the breakdown of b, on tx when one is given.  It
// also returns the owner's tier so callers can accrue points.
func (p *PricingEngine) calculate(ctx context.Context, tx *sql.Tx, b model.Booking) (Breakdown, model.MembershipTier, error) {
	seats, fwb, count, err := p.subtotal(ctx, tx, b.ID)
	if err != nil {
		return Breakdown{}, model.MembershipTier{}, err
	}
	couponDiscount, err := p.store.Coupons.SumAppliedTx(ctx, tx, b.ID)
	if err != nil {
		return Breakdown{}, model.MembershipTier{}, err
	}
	tier, err := p.store.Customers.TierOf(ctx, tx, b.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		tier = model.MembershipTier{}
	} else if err != nil {
		return Breakdown{}, model.MembershipTier{}, err
	}

	subtotal := seats.Add(fwb)
	membership := seats.Mul(tier.BoxOfficeRate).Add(fwb.Mul(tier.ConcessionRate)).Round(2)
	payable := subtotal.Sub(couponDiscount).Sub(membership)
	if payable.IsNegative() {
		payable = decimal.Zero
	}
	// A coupon applied after the redemption can shrink what is left to
	// pay; only the points that still buy something count.
	pointsUsed := b.PointsUsed
	points := decimal.NewFromInt(pointsUsed).Mul(p.pointValue)
	if points.GreaterThan(payable) {
		pointsUsed = payable.Div(p.pointValue).Ceil().IntPart()
		points = payable
	}

	final := payable.Sub(points)
	return Breakdown{
		BookingID:          b.ID,
		SeatCount:          count,
		BaseSeatPrice:      seats,
		FwbPrice:           fwb,
		Subtotal:           subtotal,
		CouponDiscount:     couponDiscount,
		MembershipTier:     tier.Name,
		MembershipDiscount: membership,
		PointsUsed:         pointsUsed,
		PointsDiscount:     points,
		FinalAmount:        final.Round(2),
	}, tier, nil
}

// UsePoints redeems membership points against a Pending booking.  The
// points are only deducted from the customer when the payment commits.
// Passing zero removes a previous redemption.
func (p *PricingEngine) UsePoints(ctx context.Context, customerID, bookingID uint64, points int64) (Breakdown, error) {
	if bookingID == 0 {
		return Breakdown{}, invalid("booking_id", "must be positive")
	}
	if points < 0 {
		return Breakdown{}, invalid("points", "must not be negative")
	}
	ctx, span := tracer.Start(ctx, "pricing.use_points")
	defer span.End()

	var out Breakdown
	err := runInTx(ctx, p.store.DB, func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, p.store, customerID, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return conflict(CodeInvalidState, "booking is not pending")
		}
		cust, err := p.store.Customers.GetByID(ctx, tx, customerID)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "customer"}
		}
		if err != nil {
			return err
		}
		if cust.AccumulatedPoints < points {
			return conflict(CodeInsufficientPoints, "not enough membership points")
		}
		b.PointsUsed = points
		bd, _, err := p.calculate(ctx, tx, b)
		if err != nil {
			return err
		}
		payable := bd.Subtotal.Sub(bd.CouponDiscount).Sub(bd.MembershipDiscount)
		if decimal.NewFromInt(points).Mul(p.pointValue).GreaterThan(payable) {
			return invalid("points", "points discount exceeds the payable amount")
		}
		if err := p.store.Bookings.SetPointsUsedTx(ctx, tx, bookingID, points); err != nil {
			return err
		}
		out = bd
		return nil
	})
	return out, err
}

// lockBooking loads and locks a booking and checks ownership.  A zero
// customerID is the system actor and skips the ownership check.
func lockBooking(ctx context.Context, tx *sql.Tx, store *repository.Store, customerID, bookingID uint64) (model.Booking, error) {
	b, err := store.Bookings.GetForUpdateTx(ctx, tx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return b, &NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return b, err
	}
	if customerID != 0 && b.CustomerID != customerID {
		return b, &ForbiddenError{Resource: "booking"}
	}
	return b, nil
}
