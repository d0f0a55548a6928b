package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// CouponAPI is implemented by service.CouponLedger.
type CouponAPI interface {
	GiftCoupon(ctx context.Context, couponID, senderID, receiverID uint64) (service.GiftResult, error)
	ApplyCoupon(ctx context.Context, customerID, bookingID, couponID uint64) (service.ApplyResult, error)
	GetMyCoupons(ctx context.Context, customerID uint64, state string, limit, offset int) (model.Page[model.Coupon], error)
	GetReceivedCouponGifts(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.GiftRecord], error)
	GetSentCouponGifts(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.GiftRecord], error)
}

type CouponHandler struct {
	coupons CouponAPI
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewCouponHandler(coupons CouponAPI, log logrus.FieldLogger) *CouponHandler {
	return &CouponHandler{coupons: coupons, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type giftCouponReq struct {
	CouponID   uint64 `json:"couponId" validate:"required,gt=0"`
	ReceiverID uint64 `json:"receiverId" validate:"required,gt=0"`
}

type applyCouponReq struct {
	BookingID uint64 `json:"bookingId" validate:"required,gt=0"`
	CouponID  uint64 `json:"couponId" validate:"required,gt=0"`
}

// couponView is a coupon as listed to its owner.
type couponView struct {
	ID             uint64          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	FaceValue      decimal.Decimal `json:"face_value"`
	CouponType     string          `json:"coupon_type"`
	DateExpired    time.Time       `json:"date_expired"`
	Gift           bool            `json:"gift"`
	BookingID      *uint64         `json:"booking_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	State          string          `json:"state"`
}

// Gift handles POST /coupon/gift.
func (h *CouponHandler) Gift(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req giftCouponReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.coupons.GiftCoupon(c.Request().Context(), req.CouponID, uid, req.ReceiverID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"senderName": res.SenderName, "receiverName": res.ReceiverName})
}

// Apply handles POST /coupon/apply.
func (h *CouponHandler) Apply(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req applyCouponReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.coupons.ApplyCoupon(c.Request().Context(), uid, req.BookingID, req.CouponID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	body := echo.Map{
		"couponId":        res.CouponID,
		"balance":         res.Balance,
		"couponType":      res.CouponType,
		"discountApplied": res.DiscountApplied,
		"totalDiscount":   res.TotalDiscount,
	}
	if res.RemainderCouponID != 0 {
		body["remainderCouponId"] = res.RemainderCouponID
		body["remainderBalance"] = res.RemainderBalance
	}
	return c.JSON(http.StatusOK, body)
}

// MyCoupons handles GET /coupon/my-coupons?status=Available|Used|Expired.
func (h *CouponHandler) MyCoupons(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset, err := paging(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page, err := h.coupons.GetMyCoupons(c.Request().Context(), uid, c.QueryParam("status"), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	views := make([]couponView, 0, len(page.Items))
	if err := copier.Copy(&views, &page.Items); err != nil {
		return writeError(c, h.log, err)
	}
	now := h.now()
	for i := range views {
		views[i].State = page.Items[i].State(now)
	}
	return c.JSON(http.StatusOK, model.Page[couponView]{
		Items: views, Total: page.Total, Limit: page.Limit, Offset: page.Offset, HasMore: page.HasMore,
	})
}

// Received handles GET /coupon/received.
func (h *CouponHandler) Received(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset, err := paging(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page, err := h.coupons.GetReceivedCouponGifts(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Sent handles GET /coupon/sent.
func (h *CouponHandler) Sent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset, err := paging(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page, err := h.coupons.GetSentCouponGifts(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}
