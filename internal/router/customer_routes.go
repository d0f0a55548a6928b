package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CustomerHandlers groups the handlers behind the CUSTOMER role.
type CustomerHandlers struct {
	Bookings *handler.BookingHandler
	Coupons  *handler.CouponHandler
	Refunds  *handler.RefundHandler
	Account  *handler.AccountHandler
}

// RegisterCustomer registers customer-scoped endpoints.  Every route
// requires a valid JWT and the CUSTOMER role; mutating routes also pass
// through the rate limiter.
func RegisterCustomer(e *echo.Echo, h CustomerHandlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	}

	booking := e.Group("/booking", auth...)
	booking.POST("/start", h.Bookings.Start, limiter)
	booking.POST("/fwb", h.Bookings.Fwb, limiter)
	booking.POST("/points", h.Bookings.Points, limiter)
	booking.POST("/gift", h.Bookings.Gift, limiter)
	booking.POST("/release/:id", h.Bookings.Release, limiter)
	booking.GET("/my-bookings", h.Bookings.MyBookings)
	booking.GET("/:id", h.Bookings.Details)

	payment := e.Group("/payment", auth...)
	payment.GET("/calculate/:bookingId", h.Bookings.Calculate)
	payment.POST("/confirm", h.Bookings.Confirm, limiter)
	payment.POST("/cancel", h.Bookings.Cancel, limiter)

	coupon := e.Group("/coupon", auth...)
	coupon.POST("/gift", h.Coupons.Gift, limiter)
	coupon.POST("/apply", h.Coupons.Apply, limiter)
	coupon.GET("/received", h.Coupons.Received)
	coupon.GET("/sent", h.Coupons.Sent)
	coupon.GET("/my-coupons", h.Coupons.MyCoupons)

	refund := e.Group("/refund", auth...)
	refund.POST("/create", h.Refunds.Create, limiter)
	refund.GET("/history", h.Refunds.History)

	e.GET("/dashboard", h.Account.Dashboard, auth...)
	e.GET("/membership/card", h.Account.MembershipCard, auth...)
	e.GET("/transactions/history", h.Account.Transactions, auth...)
}
