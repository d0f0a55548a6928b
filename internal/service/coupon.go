package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// CouponLedger gifts and applies coupons.  The gift flag and the
// booking link are both flipped by conditional updates, so concurrent
// callers on one coupon see exactly one winner.
type CouponLedger struct {
	store   *repository.Store
	pricing *PricingEngine
	settings
}

func NewCouponLedger(store *repository.Store, opts ...Option) *CouponLedger {
	return &CouponLedger{store: store, pricing: NewPricingEngine(store, opts...), settings: newSettings(opts)}
}

// GiftCoupon transfers an unused coupon from sender to receiver.  A
// coupon can be gifted once.
func (l *CouponLedger) GiftCoupon(ctx context.Context, couponID, senderID, receiverID uint64) (GiftResult, error) {
	if couponID == 0 {
		return GiftResult{}, invalid("coupon_id", "must be positive")
	}
	if senderID == 0 {
		return GiftResult{}, invalid("sender_id", "must be positive")
	}
	if receiverID == 0 {
		return GiftResult{}, invalid("receiver_id", "must be positive")
	}
	if senderID == receiverID {
		return GiftResult{}, invalid("receiver_id", "cannot gift to yourself")
	}
	ctx, span := tracer.Start(ctx, "coupon.gift")
	defer span.End()
	span.SetAttributes(attribute.Int64("coupon.id", int64(couponID)))

	now := l.now()
	var out GiftResult
	err := runInTx(ctx, l.store.DB, func(tx *sql.Tx) error {
		c, err := l.store.Coupons.GetByID(ctx, tx, couponID)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "coupon"}
		}
		if err != nil {
			return err
		}
		if c.Gift {
			return conflict(CodeAlreadyGifted, "coupon already gifted")
		}
		if c.CustomerID != senderID {
			return &ForbiddenError{Resource: "coupon"}
		}
		if c.BookingID != nil {
			return conflict(CodeCouponAlreadyApplied, "coupon already applied")
		}
		if c.Expired(now) {
			return conflict(CodeCouponExpired, "coupon expired")
		}
		sender, receiver, err := parties(ctx, tx, l.store, senderID, receiverID)
		if err != nil {
			return err
		}
		ok, err := l.store.Coupons.GiftLockTx(ctx, tx, couponID, senderID, receiverID)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeAlreadyGifted, "coupon already gifted")
		}
		if _, err := l.store.Gives.CreateTx(ctx, tx, couponID, senderID, receiverID, now); err != nil {
			return err
		}
		out = GiftResult{SenderName: sender.Name, ReceiverName: receiver.Name}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return GiftResult{}, err
	}
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"coupon_id": couponID, "sender_id": senderID, "receiver_id": receiverID,
	}).Info("coupon gifted")
	l.publish(ctx, queue.CouponGifted, queue.CouponGiftedEvent{
		EventID:    uuid.NewString(),
		CouponID:   couponID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		GiftedAt:   now.Format(time.RFC3339),
	})
	return out, nil
}

// ApplyResult describes the outcome of ApplyCoupon.
type ApplyResult struct {
	CouponID          uint64          `json:"coupon_id"`
	DiscountApplied   decimal.Decimal `json:"discount_applied"`
	Balance           decimal.Decimal `json:"balance"`
	CouponType        string          `json:"coupon_type"`
	RemainderCouponID uint64          `json:"remainder_coupon_id,omitempty"`
	RemainderBalance  decimal.Decimal `json:"remainder_balance"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
}

// ApplyCoupon links a coupon to a Pending booking.  The sum of coupon
// discounts on one booking never exceeds its subtotal: Amount and
// GiftCard coupons are split, with the unused part minted as a new
// coupon, and Percent coupons are truncated to the remaining room.
func (l *CouponLedger) ApplyCoupon(ctx context.Context, customerID, bookingID, couponID uint64) (ApplyResult, error) {
	if bookingID == 0 {
		return ApplyResult{}, invalid("booking_id", "must be positive")
	}
	if couponID == 0 {
		return ApplyResult{}, invalid("coupon_id", "must be positive")
	}
	ctx, span := tracer.Start(ctx, "coupon.apply")
	defer span.End()
	span.SetAttributes(attribute.Int64("booking.id", int64(bookingID)), attribute.Int64("coupon.id", int64(couponID)))

	now := l.now()
	var out ApplyResult
	err := runInTx(ctx, l.store.DB, func(tx *sql.Tx) error {
		// The booking lock serializes applies on one booking so the cap
		// read below cannot go stale.
		b, err := lockBooking(ctx, tx, l.store, customerID, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return conflict(CodeInvalidState, "booking is not pending")
		}
		c, err := l.store.Coupons.GetForUpdateTx(ctx, tx, couponID)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "coupon"}
		}
		if err != nil {
			return err
		}
		if c.CustomerID != customerID {
			return &ForbiddenError{Resource: "coupon"}
		}
		if c.BookingID != nil {
			return conflict(CodeCouponAlreadyApplied, "coupon already applied")
		}
		if c.Expired(now) {
			return conflict(CodeCouponExpired, "coupon expired")
		}
		if !c.Balance.IsPositive() {
			return conflict(CodeCouponEmpty, "coupon has no balance")
		}

		seats, fwb, _, err := l.pricing.subtotal(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		subtotal := seats.Add(fwb)
		applied, err := l.store.Coupons.SumAppliedTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		room := subtotal.Sub(applied)
		if !room.IsPositive() {
			return conflict(CodeDiscountCapReached, "booking is already fully discounted")
		}

		var discount, remainder decimal.Decimal
		switch c.CouponType {
		case model.CouponPercent:
			pct := decimal.Min(c.Balance, hundred)
			discount = decimal.Min(subtotal.Mul(pct).Div(hundred).Round(2), room)
		default:
			discount = decimal.Min(c.Balance, room)
			remainder = c.Balance.Sub(discount)
		}

		ok, err := l.store.Coupons.LinkTx(ctx, tx, couponID, bookingID, discount)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeCouponAlreadyApplied, "coupon already applied")
		}
		out = ApplyResult{
			CouponID:         couponID,
			DiscountApplied:  discount,
			Balance:          decimal.Zero,
			CouponType:       c.CouponType,
			RemainderBalance: decimal.Zero,
			TotalDiscount:    applied.Add(discount),
		}
		if remainder.IsPositive() {
			id, err := l.store.Coupons.CreateTx(ctx, tx, model.Coupon{
				Code:        uuid.NewString(),
				Name:        c.Name + " Remaining",
				CustomerID:  customerID,
				Balance:     remainder,
				FaceValue:   remainder,
				CouponType:  c.CouponType,
				DateExpired: c.DateExpired,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			out.RemainderCouponID = id
			out.RemainderBalance = remainder
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ApplyResult{}, err
	}
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id": bookingID, "coupon_id": couponID, "discount": out.DiscountApplied.String(),
	}).Info("coupon applied")
	return out, nil
}

// GetMyCoupons pages through the customer's coupons.  state filters by
// Available, Used or Expired; empty means all.
func (l *CouponLedger) GetMyCoupons(ctx context.Context, customerID uint64, state string, limit, offset int) (model.Page[model.Coupon], error) {
	switch state {
	case "", model.CouponStateAvailable, model.CouponStateUsed, model.CouponStateExpired:
	default:
		return model.Page[model.Coupon]{}, invalid("status", "must be Available, Used or Expired")
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return model.Page[model.Coupon]{}, err
	}
	items, total, err := l.store.Coupons.ListByCustomer(ctx, customerID, state, startOfDay(l.now()), limit, offset)
	if err != nil {
		return model.Page[model.Coupon]{}, err
	}
	return model.NewPage(items, total, limit, offset), nil
}

// GetReceivedCouponGifts pages through coupons gifted to the customer.
func (l *CouponLedger) GetReceivedCouponGifts(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.GiftRecord], error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return model.Page[model.GiftRecord]{}, err
	}
	items, total, err := l.store.Gives.ListReceived(ctx, customerID, limit, offset)
	if err != nil {
		return model.Page[model.GiftRecord]{}, err
	}
	return model.NewPage(items, total, limit, offset), nil
}

// GetSentCouponGifts pages through coupons the customer gave away.
func (l *CouponLedger) GetSentCouponGifts(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.GiftRecord], error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return model.Page[model.GiftRecord]{}, err
	}
	items, total, err := l.store.Gives.ListSent(ctx, customerID, limit, offset)
	if err != nil {
		return model.Page[model.GiftRecord]{}, err
	}
	return model.NewPage(items, total, limit, offset), nil
}

// RestoreForBooking detaches every coupon applied to a booking and
// gives the consumed value back to its owner.  It runs on the caller's
// transaction.
func (l *CouponLedger) RestoreForBooking(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	return l.store.Coupons.RestoreByBookingTx(ctx, tx, bookingID)
}
