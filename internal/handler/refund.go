package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// RefundAPI is implemented by service.RefundService.
type RefundAPI interface {
	CreateRefund(ctx context.Context, customerID, bookingID uint64, amount decimal.Decimal, reason string) (service.RefundResult, error)
	GetRefundHistory(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.Refund], error)
}

type RefundHandler struct {
	refunds RefundAPI
	log     logrus.FieldLogger
}

func NewRefundHandler(refunds RefundAPI, log logrus.FieldLogger) *RefundHandler {
	return &RefundHandler{refunds: refunds, log: log}
}

type refundReq struct {
	BookingID    uint64          `json:"bookingId" validate:"required,gt=0"`
	RefundAmount decimal.Decimal `json:"refundAmount"` // zero refunds the full paid amount
	Reason       string          `json:"reason" validate:"max=255"`
}

// Create handles POST /refund/create.
func (h *RefundHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req refundReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.refunds.CreateRefund(c.Request().Context(), uid, req.BookingID, req.RefundAmount, req.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"refundId":      res.RefundID,
		"couponId":      res.CouponID,
		"couponBalance": res.CouponBalance,
	})
}

// History handles GET /refund/history.
func (h *RefundHandler) History(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset, err := paging(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page, err := h.refunds.GetRefundHistory(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}
