package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

// RefundService moves Paid bookings to Refunded and compensates the
// customer with an Amount coupon instead of money.
type RefundService struct {
	store     *repository.Store
	inventory *InventoryLedger
	settings
}

func NewRefundService(store *repository.Store, opts ...Option) *RefundService {
	return &RefundService{store: store, inventory: NewInventoryLedger(store.Seats), settings: newSettings(opts)}
}

// RefundResult is returned by CreateRefund.
type RefundResult struct {
	RefundID      uint64          `json:"refund_id"`
	CouponID      uint64          `json:"coupon_id"`
	CouponBalance decimal.Decimal `json:"coupon_balance"`
}

// CreateRefund refunds a Paid booking whose showtime has not started.
// A zero amount refunds the full paid amount.
func (s *RefundService) CreateRefund(ctx context.Context, customerID, bookingID uint64, amount decimal.Decimal, reason string) (RefundResult, error) {
	if bookingID == 0 {
		return RefundResult{}, invalid("booking_id", "must be positive")
	}
	if amount.IsNegative() {
		return RefundResult{}, invalid("refund_amount", "must not be negative")
	}
	if reason == "" {
		reason = "customer request"
	}
	ctx, span := tracer.Start(ctx, "refund.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("booking.id", int64(bookingID)))

	now := s.now()
	var (
		out   RefundResult
		owner uint64
	)
	err := runInTx(ctx, s.store.DB, func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, s.store, customerID, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingPaid:
		case model.BookingRefunded:
			return conflict(CodeDoubleRefund, "booking already refunded")
		default:
			return conflict(CodeInvalidState, "only paid bookings can be refunded")
		}
		st, err := s.store.Showtimes.GetByID(ctx, tx, b.ShowtimeID)
		if err != nil {
			return fmt.Errorf("load showtime: %w", err)
		}
		if !st.StartTime.After(now) {
			return conflict(CodeShowtimeStarted, "showtime has already started")
		}
		paid, err := s.store.Payments.PaidAmountTx(ctx, tx, b.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return conflict(CodeInvalidState, "booking has no successful payment")
		}
		if err != nil {
			return err
		}
		if !paid.IsPositive() {
			return invalid("refund_amount", "booking has no paid amount to refund")
		}
		refund := amount
		if refund.IsZero() {
			refund = paid
		}
		if refund.GreaterThan(paid) {
			return invalid("refund_amount", "exceeds the paid amount")
		}

		ok, err := s.store.Bookings.TransitionTx(ctx, tx, b.ID, model.BookingPaid, model.BookingRefunded, now)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeDoubleRefund, "booking already refunded")
		}
		if _, err := s.inventory.ReleaseSeats(ctx, tx, b.ID); err != nil {
			return err
		}
		couponID, err := s.store.Coupons.CreateTx(ctx, tx, model.Coupon{
			Code:        uuid.NewString(),
			Name:        fmt.Sprintf("Refund for booking #%d", b.ID),
			CustomerID:  b.CustomerID,
			Balance:     refund,
			FaceValue:   refund,
			CouponType:  model.CouponAmount,
			DateExpired: startOfDay(now).AddDate(0, 0, s.refundCouponDays),
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		refundID, err := s.store.Refunds.CreateTx(ctx, tx, model.Refund{
			BookingID:   b.ID,
			Amount:      refund,
			Reason:      reason,
			Status:      model.RefundProcessed,
			CreatedAt:   now,
			ProcessedAt: &now,
			CouponID:    couponID,
		})
		if err != nil {
			return err
		}
		// Earned points go back entirely; spending shrinks only by what
		// left the till.  Redeemed points are credited back as well.
		if err := s.store.Customers.ReverseTx(ctx, tx, b.CustomerID, b.PointsEarned, refund); err != nil {
			return err
		}
		if b.PointsUsed > 0 {
			if err := s.store.Customers.AccrueTx(ctx, tx, b.CustomerID, b.PointsUsed, decimal.Zero); err != nil {
				return err
			}
		}
		owner = b.CustomerID
		out = RefundResult{RefundID: refundID, CouponID: couponID, CouponBalance: refund}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return RefundResult{}, err
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id": bookingID, "refund_id": out.RefundID, "coupon_id": out.CouponID, "amount": out.CouponBalance.String(),
	}).Info("booking refunded")
	s.publish(ctx, queue.BookingRefunded, queue.BookingRefundedEvent{
		EventID:    uuid.NewString(),
		BookingID:  bookingID,
		CustomerID: owner,
		RefundID:   out.RefundID,
		CouponID:   out.CouponID,
		Amount:     out.CouponBalance.StringFixed(2),
		RefundedAt: now.Format(time.RFC3339),
	})
	return out, nil
}

// GetRefundHistory pages through the customer's refunds, newest first.
func (s *RefundService) GetRefundHistory(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.Refund], error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return model.Page[model.Refund]{}, err
	}
	items, total, err := s.store.Refunds.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return model.Page[model.Refund]{}, err
	}
	return model.NewPage(items, total, limit, offset), nil
}
