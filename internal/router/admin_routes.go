package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RegisterAdmin registers the operational endpoints: manual job triggers
// and sales reports.  The JSON report is served through the response cache.
func RegisterAdmin(e *echo.Echo, b *handler.BookingHandler, a *handler.AccountHandler, r *handler.ReportHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}
	e.GET("/booking/cleanup-expired", b.CleanupExpired, admin...)
	e.POST("/membership/reset", a.MembershipReset, admin...)
	e.GET("/reports/sales", r.Sales, append(admin, cache)...)
	e.GET("/reports/sales.pdf", r.SalesPDF, admin...)
}
