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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Cancellation reasons recorded on the Payment(Cancelled) row.
const (
	ReasonCustomer = "cancelled by customer"
	ReasonReleased = "released"
	ReasonExpired  = "expired"
)

// BookingService is the booking state machine: Pending→Paid,
// Pending→Cancelled and Paid→Refunded.  Each operation is one
// transaction that re-checks the current status under a row lock
// before changing it.
type BookingService struct {
	store     *repository.Store
	inventory *InventoryLedger
	pricing   *PricingEngine
	coupons   *CouponLedger
	settings

	confirmed metric.Int64Counter
	cancelled metric.Int64Counter
}

func NewBookingService(store *repository.Store, opts ...Option) *BookingService {
	s := &BookingService{
		store:     store,
		inventory: NewInventoryLedger(store.Seats),
		pricing:   NewPricingEngine(store, opts...),
		coupons:   NewCouponLedger(store, opts...),
		settings:  newSettings(opts),
	}
	meter := otel.Meter("github.com/iliyamo/cinema-ticketing/internal/service")
	s.confirmed, _ = meter.Int64Counter("bookings.confirmed", metric.WithDescription("bookings moved to Paid"))
	s.cancelled, _ = meter.Int64Counter("bookings.cancelled", metric.WithDescription("bookings moved to Cancelled"))
	return s
}

// StartResult is returned by StartBooking.
type StartResult struct {
	BookingID uint64            `json:"booking_id"`
	Seats     []model.SeatPrice `json:"seats"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// StartBooking creates a Pending booking and holds its seats in the
// same transaction.  If any seat is taken nothing is committed.
func (s *BookingService) StartBooking(ctx context.Context, customerID, showtimeID uint64, seatIDs []uint64) (StartResult, error) {
	if customerID == 0 {
		return StartResult{}, invalid("customer_id", "must be positive")
	}
	if showtimeID == 0 {
		return StartResult{}, invalid("showtime_id", "must be positive")
	}
	if _, err := normalizeSeatIDs(seatIDs); err != nil {
		return StartResult{}, err
	}
	ctx, span := tracer.Start(ctx, "booking.start")
	defer span.End()
	span.SetAttributes(attribute.Int64("showtime.id", int64(showtimeID)), attribute.Int("seats.requested", len(seatIDs)))

	st, err := s.store.Showtimes.GetByID(ctx, nil, showtimeID)
	if errors.Is(err, repository.ErrNotFound) {
		return StartResult{}, &NotFoundError{Resource: "showtime"}
	}
	if err != nil {
		return StartResult{}, err
	}
	now := s.now()
	if !st.StartTime.After(now) {
		return StartResult{}, conflict(CodeShowtimeStarted, "showtime has already started")
	}

	var out StartResult
	err = runInTx(ctx, s.store.DB, func(tx *sql.Tx) error {
		id, err := s.store.Bookings.CreateTx(ctx, tx, customerID, showtimeID, now)
		if err != nil {
			return err
		}
		seats, err := s.inventory.HoldSeats(ctx, tx, showtimeID, seatIDs, id, now)
		if err != nil {
			return err
		}
		out = StartResult{BookingID: id, Seats: seats, ExpiresAt: now.Add(s.holdTimeout)}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return StartResult{}, err
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id": out.BookingID, "customer_id": customerID, "showtime_id": showtimeID, "seats": len(out.Seats),
	}).Info("booking started")
	return out, nil
}

// UpdateFwb replaces the F&B lines of a Pending booking and returns the
// new F&B total.  Duplicate item ids are merged.
func (s *BookingService) UpdateFwb(ctx context.Context, customerID, bookingID uint64, items []model.FwbOrder) (decimal.Decimal, error) {
	if bookingID == 0 {
		return decimal.Zero, invalid("booking_id", "must be positive")
	}
	qty := make(map[uint64]int, len(items))
	order := make([]uint64, 0, len(items))
	for _, it := range items {
		if it.ID == 0 {
			return decimal.Zero, invalid("items", "item ids must be positive")
		}
		if it.Quantity <= 0 {
			return decimal.Zero, invalid("items", "quantity must be positive")
		}
		if _, ok := qty[it.ID]; !ok {
			order = append(order, it.ID)
		}
		qty[it.ID] += it.Quantity
	}

	var total decimal.Decimal
	err := runInTx(ctx, s.store.DB, func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, s.store, customerID, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return conflict(CodeInvalidState, "booking is not pending")
		}
		catalog, err := s.store.Fwb.ItemsByIDs(ctx, tx, order)
		if err != nil {
			return err
		}
		byID := make(map[uint64]model.FwbItem, len(catalog))
		for _, it := range catalog {
			byID[it.ID] = it
		}
		lines := make([]model.BookingFwb, 0, len(order))
		total = decimal.Zero
		for _, id := range order {
			it, ok := byID[id]
			if !ok || !it.IsActive {
				return &NotFoundError{Resource: fmt.Sprintf("fwb item %d", id)}
			}
			line := model.BookingFwb{BookingID: bookingID, FwbID: id, Name: it.Name, Quantity: qty[id], UnitPrice: it.Price}
			total = total.Add(line.LineTotal())
			lines = append(lines, line)
		}

		seats, _, _, err := s.pricing.subtotal(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		applied, err := s.store.Coupons.SumAppliedTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if seats.Add(total).LessThan(applied) {
			return conflict(CodeDiscountCapReached, "new total would fall below the coupon discounts already applied")
		}
		return s.store.Fwb.ReplaceTx(ctx, tx, bookingID, lines)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ConfirmInput carries the client's payment confirmation.  ClientTotal
// is only compared against the server computation, never used.
type ConfirmInput struct {
	BookingID     uint64
	Method        string
	TransactionID string
	Duration      int
	ClientTotal   *decimal.Decimal
}

// ConfirmResult is returned by ConfirmPayment.
type ConfirmResult struct {
	PaymentID   uint64    `json:"payment_id"`
	Status      string    `json:"status"`
	Calculation Breakdown `json:"calculation"`
}

// ConfirmPayment moves a Pending booking to Paid.  Seat status, points,
// spend and the payment row change together or not at all.
func (s *BookingService) ConfirmPayment(ctx context.Context, customerID uint64, in ConfirmInput) (ConfirmResult, error) {
	if in.BookingID == 0 {
		return ConfirmResult{}, invalid("booking_id", "must be positive")
	}
	if in.Method == "" {
		return ConfirmResult{}, invalid("payment_method", "is required")
	}
	if in.Duration < 0 {
		return ConfirmResult{}, invalid("duration", "must not be negative")
	}
	ctx, span := tracer.Start(ctx, "booking.confirm_payment")
	defer span.End()
	span.SetAttributes(attribute.Int64("booking.id", int64(in.BookingID)))

	txnID := in.TransactionID
	if txnID == "" {
		txnID = uuid.NewString()
	}
	now := s.now()

	var (
		out     ConfirmResult
		booking model.Booking
		seats   []model.SeatPrice
	)
	err := runInTx(ctx, s.store.DB, func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, s.store, customerID, in.BookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return conflict(CodeInvalidState, "booking is not pending")
		}
		bd, tier, err := s.pricing.calculate(ctx, tx, b)
		if err != nil {
			return err
		}
		if bd.SeatCount == 0 {
			return conflict(CodeInvalidState, "booking holds no seats")
		}
		if bd.PointsUsed != b.PointsUsed {
			if err := s.store.Bookings.SetPointsUsedTx(ctx, tx, b.ID, bd.PointsUsed); err != nil {
				return err
			}
			b.PointsUsed = bd.PointsUsed
		}
		ok, err := s.store.Bookings.TransitionTx(ctx, tx, b.ID, model.BookingPending, model.BookingPaid, now)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeInvalidState, "booking is not pending")
		}
		if err := s.inventory.MarkBooked(ctx, tx, b.ID, bd.SeatCount); err != nil {
			return err
		}
		if b.PointsUsed > 0 {
			ok, err := s.store.Customers.SpendPointsTx(ctx, tx, b.CustomerID, b.PointsUsed)
			if err != nil {
				return err
			}
			if !ok {
				return conflict(CodeInsufficientPoints, "not enough membership points")
			}
		}
		earned := bd.FinalAmount.Mul(tier.PointsRate).Div(s.pointValue).Floor().IntPart()
		if err := s.store.Customers.AccrueTx(ctx, tx, b.CustomerID, earned, bd.FinalAmount); err != nil {
			return err
		}
		if err := s.store.Bookings.SetPointsEarnedTx(ctx, tx, b.ID, earned); err != nil {
			return err
		}
		pid, err := s.store.Payments.CreateTx(ctx, tx, model.Payment{
			BookingID:     b.ID,
			Method:        in.Method,
			TransactionID: txnID,
			Amount:        bd.FinalAmount,
			Status:        model.PaymentSuccess,
			Duration:      in.Duration,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}
		if seats, err = s.store.Seats.PricesByBooking(ctx, tx, b.ID); err != nil {
			return err
		}
		booking = b
		out = ConfirmResult{PaymentID: pid, Status: model.PaymentSuccess, Calculation: bd}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ConfirmResult{}, err
	}

	log := s.logger.WithContext(ctx).WithField("booking_id", in.BookingID)
	if in.ClientTotal != nil && !in.ClientTotal.Equal(out.Calculation.FinalAmount) {
		log.WithFields(logrus.Fields{
			"client_total": in.ClientTotal.String(), "server_total": out.Calculation.FinalAmount.String(),
		}).Warn("client total differs from computed amount")
	}
	log.WithField("payment_id", out.PaymentID).Info("payment confirmed")
	s.confirmed.Add(ctx, 1)

	labels := make([]string, len(seats))
	for i, sp := range seats {
		labels[i] = fmt.Sprintf("%s%d", sp.RowLabel, sp.Number)
	}
	ev := queue.BookingConfirmedEvent{
		EventID:     uuid.NewString(),
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		ShowtimeID:  booking.ShowtimeID,
		PaymentID:   out.PaymentID,
		Seats:       labels,
		FinalAmount: out.Calculation.FinalAmount.StringFixed(2),
		ConfirmedAt: now.Format(time.RFC3339),
	}
	if st, err := s.store.Showtimes.GetByID(ctx, nil, booking.ShowtimeID); err == nil {
		ev.MovieTitle = st.MovieTitle
		ev.StartsAt = st.StartTime.Format(time.RFC3339)
	}
	s.publish(ctx, queue.BookingConfirmed, ev)
	return out, nil
}

// CancelResult is returned by CancelPayment and ReleaseBooking.
type CancelResult struct {
	PaymentID  uint64 `json:"payment_id"`
	Status     string `json:"status"`
	SeatsFreed int64  `json:"seats_freed"`
}

// CancelPayment abandons a Pending booking: seats go back on sale,
// applied coupons are restored and a Payment(Cancelled) row is written.
func (s *BookingService) CancelPayment(ctx context.Context, customerID, bookingID uint64, reason string) (CancelResult, error) {
	if customerID == 0 {
		return CancelResult{}, invalid("customer_id", "must be positive")
	}
	if reason == "" {
		reason = ReasonCustomer
	}
	return s.cancel(ctx, customerID, bookingID, reason)
}

// ReleaseBooking is the "go back" path of seat selection.  It frees the
// seats and cancels the booking, so re-selecting starts a new booking.
func (s *BookingService) ReleaseBooking(ctx context.Context, customerID, bookingID uint64) (CancelResult, error) {
	if customerID == 0 {
		return CancelResult{}, invalid("customer_id", "must be positive")
	}
	return s.cancel(ctx, customerID, bookingID, ReasonReleased)
}

// expire cancels a stale booking on behalf of the reaper.
func (s *BookingService) expire(ctx context.Context, bookingID uint64) (CancelResult, error) {
	return s.cancel(ctx, 0, bookingID, ReasonExpired)
}

func (s *BookingService) cancel(ctx context.Context, customerID, bookingID uint64, reason string) (CancelResult, error) {
	if bookingID == 0 {
		return CancelResult{}, invalid("booking_id", "must be positive")
	}
	ctx, span := tracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.Int64("booking.id", int64(bookingID)), attribute.String("cancel.reason", reason))

	now := s.now()
	var (
		out   CancelResult
		owner uint64
	)
	err := runInTx(ctx, s.store.DB, func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, s.store, customerID, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return conflict(CodeInvalidState, "booking is not pending")
		}
		bd, _, err := s.pricing.calculate(ctx, tx, b)
		if err != nil {
			return err
		}
		ok, err := s.store.Bookings.TransitionTx(ctx, tx, b.ID, model.BookingPending, model.BookingCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeInvalidState, "booking is not pending")
		}
		freed, err := s.inventory.ReleaseSeats(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if _, err := s.coupons.RestoreForBooking(ctx, tx, b.ID); err != nil {
			return err
		}
		pid, err := s.store.Payments.CreateTx(ctx, tx, model.Payment{
			BookingID: b.ID,
			Amount:    bd.FinalAmount,
			Status:    model.PaymentCancelled,
			Reason:    reason,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		owner = b.CustomerID
		out = CancelResult{PaymentID: pid, Status: model.PaymentCancelled, SeatsFreed: freed}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return CancelResult{}, err
	}
	s.cancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id": bookingID, "reason": reason, "seats_freed": out.SeatsFreed,
	}).Info("booking cancelled")
	s.publish(ctx, queue.BookingCancelled, queue.BookingCancelledEvent{
		EventID:     uuid.NewString(),
		BookingID:   bookingID,
		CustomerID:  owner,
		PaymentID:   out.PaymentID,
		Reason:      reason,
		SeatsFreed:  out.SeatsFreed,
		CancelledAt: now.Format(time.RFC3339),
	})
	return out, nil
}

// BookingDetails is the read projection behind the countdown screen.
type BookingDetails struct {
	model.Booking
	MovieTitle       string             `json:"movie_title"`
	StartTime        time.Time          `json:"start_time"`
	Seats            []model.SeatPrice  `json:"seats"`
	Fwb              []model.BookingFwb `json:"fwb"`
	Calculation      Breakdown          `json:"calculation"`
	ExpiresAt        *time.Time         `json:"expires_at,omitempty"`
	RemainingSeconds int64              `json:"remaining_seconds"`
}

// GetBookingDetails returns one of the customer's bookings.
func (s *BookingService) GetBookingDetails(ctx context.Context, customerID, bookingID uint64) (BookingDetails, error) {
	if bookingID == 0 {
		return BookingDetails{}, invalid("booking_id", "must be positive")
	}
	b, err := s.store.Bookings.GetByID(ctx, nil, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return BookingDetails{}, &NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return BookingDetails{}, err
	}
	if b.CustomerID != customerID {
		return BookingDetails{}, &ForbiddenError{Resource: "booking"}
	}
	st, err := s.store.Showtimes.GetByID(ctx, nil, b.ShowtimeID)
	if err != nil {
		return BookingDetails{}, fmt.Errorf("load showtime: %w", err)
	}
	seats, err := s.store.Seats.PricesByBooking(ctx, nil, b.ID)
	if err != nil {
		return BookingDetails{}, err
	}
	fwb, err := s.store.Fwb.ListByBooking(ctx, nil, b.ID)
	if err != nil {
		return BookingDetails{}, err
	}
	bd, _, err := s.pricing.calculate(ctx, nil, b)
	if err != nil {
		return BookingDetails{}, err
	}
	d := BookingDetails{
		Booking:     b,
		MovieTitle:  st.MovieTitle,
		StartTime:   st.StartTime,
		Seats:       seats,
		Fwb:         fwb,
		Calculation: bd,
	}
	if b.Status == model.BookingPending {
		exp := b.CreatedAt.Add(s.holdTimeout)
		d.ExpiresAt = &exp
		if left := exp.Sub(s.now()); left > 0 {
			d.RemainingSeconds = int64(left / time.Second)
		}
	}
	return d, nil
}

// GetMyBookings pages through the customer's bookings, newest first.
func (s *BookingService) GetMyBookings(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.BookingSummary], error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return model.Page[model.BookingSummary]{}, err
	}
	items, total, err := s.store.Bookings.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return model.Page[model.BookingSummary]{}, err
	}
	return model.NewPage(items, total, limit, offset), nil
}

// GiftResult names both parties of a gift.
type GiftResult struct {
	SenderName   string `json:"sender_name"`
	ReceiverName string `json:"receiver_name"`
}

// GiftBooking transfers a Paid booking whose showtime has not started to
// another customer.  A booking can be gifted once.
func (s *BookingService) GiftBooking(ctx context.Context, senderID, bookingID, receiverID uint64) (GiftResult, error) {
	if bookingID == 0 {
		return GiftResult{}, invalid("booking_id", "must be positive")
	}
	if receiverID == 0 {
		return GiftResult{}, invalid("receiver_id", "must be positive")
	}
	if senderID == receiverID {
		return GiftResult{}, invalid("receiver_id", "cannot gift to yourself")
	}
	now := s.now()
	var out GiftResult
	err := runInTx(ctx, s.store.DB, func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, s.store, senderID, bookingID)
		if err != nil {
			return err
		}
		if b.IsGift {
			return conflict(CodeAlreadyGifted, "booking already gifted")
		}
		if b.Status != model.BookingPaid {
			return conflict(CodeInvalidState, "only paid bookings can be gifted")
		}
		st, err := s.store.Showtimes.GetByID(ctx, tx, b.ShowtimeID)
		if err != nil {
			return fmt.Errorf("load showtime: %w", err)
		}
		if !st.StartTime.After(now) {
			return conflict(CodeShowtimeStarted, "showtime has already started")
		}
		sender, receiver, err := parties(ctx, tx, s.store, senderID, receiverID)
		if err != nil {
			return err
		}
		ok, err := s.store.Bookings.TransferTx(ctx, tx, b.ID, senderID, receiverID, now)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeAlreadyGifted, "booking already gifted")
		}
		out = GiftResult{SenderName: sender.Name, ReceiverName: receiver.Name}
		return nil
	})
	return out, err
}

// parties loads sender and receiver of a gift.
func parties(ctx context.Context, tx *sql.Tx, store *repository.Store, senderID, receiverID uint64) (model.Customer, model.Customer, error) {
	receiver, err := store.Customers.GetByID(ctx, tx, receiverID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Customer{}, model.Customer{}, &NotFoundError{Resource: "receiver"}
	}
	if err != nil {
		return model.Customer{}, model.Customer{}, err
	}
	sender, err := store.Customers.GetByID(ctx, tx, senderID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Customer{}, model.Customer{}, &NotFoundError{Resource: "sender"}
	}
	if err != nil {
		return model.Customer{}, model.Customer{}, err
	}
	return sender, receiver, nil
}
