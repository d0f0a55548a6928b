package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/service"
)

type confirmReq struct {
	BookingID     uint64           `json:"bookingId" validate:"required,gt=0"`
	PaymentMethod string           `json:"paymentMethod" validate:"required,max=50"`
	TransactionID string           `json:"transactionId" validate:"max=100"`
	TotalAmount   *decimal.Decimal `json:"totalAmount"`
	Duration      int              `json:"duration" validate:"gte=0"`
}

type cancelReq struct {
	BookingID uint64 `json:"bookingId" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"max=255"`
}

// Calculate handles GET /payment/calculate/:bookingId.
func (h *BookingHandler) Calculate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := paramID(c, "bookingId")
	if err != nil {
		return writeError(c, h.log, err)
	}
	bd, err := h.pricing.CalculateFinalAmount(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bd)
}

// Confirm handles POST /payment/confirm.  totalAmount is only compared
// with the server-side total.
func (h *BookingHandler) Confirm(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req confirmReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.bookings.ConfirmPayment(c.Request().Context(), uid, service.ConfirmInput{
		BookingID:     req.BookingID,
		Method:        req.PaymentMethod,
		TransactionID: req.TransactionID,
		Duration:      req.Duration,
		ClientTotal:   req.TotalAmount,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"paymentId":   res.PaymentID,
		"status":      res.Status,
		"calculation": res.Calculation,
	})
}

// Cancel handles POST /payment/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req cancelReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.bookings.CancelPayment(c.Request().Context(), uid, req.BookingID, req.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"paymentId": res.PaymentID, "status": res.Status})
}
