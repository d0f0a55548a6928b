package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// BookingAPI is implemented by service.BookingService.
type BookingAPI interface {
	StartBooking(ctx context.Context, customerID, showtimeID uint64, seatIDs []uint64) (service.StartResult, error)
	UpdateFwb(ctx context.Context, customerID, bookingID uint64, items []model.FwbOrder) (decimal.Decimal, error)
	ConfirmPayment(ctx context.Context, customerID uint64, in service.ConfirmInput) (service.ConfirmResult, error)
	CancelPayment(ctx context.Context, customerID, bookingID uint64, reason string) (service.CancelResult, error)
	ReleaseBooking(ctx context.Context, customerID, bookingID uint64) (service.CancelResult, error)
	GetBookingDetails(ctx context.Context, customerID, bookingID uint64) (service.BookingDetails, error)
	GetMyBookings(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.BookingSummary], error)
	GiftBooking(ctx context.Context, senderID, bookingID, receiverID uint64) (service.GiftResult, error)
}

// PricingAPI is implemented by service.PricingEngine.
type PricingAPI interface {
	CalculateFinalAmount(ctx context.Context, customerID, bookingID uint64) (service.Breakdown, error)
	UsePoints(ctx context.Context, customerID, bookingID uint64, points int64) (service.Breakdown, error)
}

// SweepAPI is implemented by service.Reaper.
type SweepAPI interface {
	SweepExpired(ctx context.Context, timeout time.Duration) (service.SweepResult, error)
}

// BookingHandler serves the /booking and /payment routes.
type BookingHandler struct {
	bookings BookingAPI
	pricing  PricingAPI
	reaper   SweepAPI
	log      logrus.FieldLogger
}

func NewBookingHandler(bookings BookingAPI, pricing PricingAPI, reaper SweepAPI, log logrus.FieldLogger) *BookingHandler {
	if bookings == nil || pricing == nil || reaper == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{bookings: bookings, pricing: pricing, reaper: reaper, log: log}
}

type startReq struct {
	CustomerID uint64   `json:"customerId"` // ignored unless it contradicts the token
	ShowtimeID uint64   `json:"showtimeId" validate:"required,gt=0"`
	SeatIDs    []uint64 `json:"seatIds" validate:"required,min=1,dive,gt=0"`
}

type fwbReq struct {
	BookingID uint64           `json:"bookingId" validate:"required,gt=0"`
	Items     []model.FwbOrder `json:"items" validate:"dive"`
}

type pointsReq struct {
	BookingID uint64 `json:"bookingId" validate:"required,gt=0"`
	Points    int64  `json:"points" validate:"gte=0"`
}

type giftBookingReq struct {
	BookingID  uint64 `json:"bookingId" validate:"required,gt=0"`
	ReceiverID uint64 `json:"receiverId" validate:"required,gt=0"`
}

// Start handles POST /booking/start.
func (h *BookingHandler) Start(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req startReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	if req.CustomerID != 0 && req.CustomerID != uid {
		return writeError(c, h.log, &service.ForbiddenError{Resource: "customer"})
	}
	res, err := h.bookings.StartBooking(c.Request().Context(), uid, req.ShowtimeID, req.SeatIDs)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"bookingId": res.BookingID,
		"seats":     res.Seats,
		"expiresAt": res.ExpiresAt,
	})
}

// Fwb handles POST /booking/fwb.  An empty item list clears the F&B lines.
func (h *BookingHandler) Fwb(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req fwbReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	total, err := h.bookings.UpdateFwb(c.Request().Context(), uid, req.BookingID, req.Items)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookingId": req.BookingID, "totalFwb": total})
}

// Points handles POST /booking/points.
func (h *BookingHandler) Points(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req pointsReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	bd, err := h.pricing.UsePoints(c.Request().Context(), uid, req.BookingID, req.Points)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bd)
}

// Gift handles POST /booking/gift.
func (h *BookingHandler) Gift(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req giftBookingReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.bookings.GiftBooking(c.Request().Context(), uid, req.BookingID, req.ReceiverID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"senderName": res.SenderName, "receiverName": res.ReceiverName})
}

// Details handles GET /booking/:id.
func (h *BookingHandler) Details(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	d, err := h.bookings.GetBookingDetails(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// MyBookings handles GET /booking/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset, err := paging(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page, err := h.bookings.GetMyBookings(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Release handles POST /booking/release/:id.
func (h *BookingHandler) Release(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.bookings.ReleaseBooking(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookingId": id, "status": res.Status, "seatsFreed": res.SeatsFreed})
}

// CleanupExpired handles GET /booking/cleanup-expired, a manual reaper run.
func (h *BookingHandler) CleanupExpired(c echo.Context) error {
	res, err := h.reaper.SweepExpired(c.Request().Context(), 0)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cancelled": res.Cancelled,
		"failed":    res.Failed,
		"message":   "expired bookings cleaned up",
	})
}
