package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// DashboardAPI is implemented by service.DashboardService.
type DashboardAPI interface {
	GetDashboard(ctx context.Context, customerID uint64) (service.Dashboard, error)
	TransactionHistory(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.Payment], error)
}

// MembershipAPI is implemented by service.MembershipService.
type MembershipAPI interface {
	GetCard(ctx context.Context, customerID uint64) (service.Card, error)
	ResetCycle(ctx context.Context) (int64, error)
}

// AccountHandler serves the dashboard, membership and transaction routes.
type AccountHandler struct {
	dashboard  DashboardAPI
	membership MembershipAPI
	log        logrus.FieldLogger
}

func NewAccountHandler(dashboard DashboardAPI, membership MembershipAPI, log logrus.FieldLogger) *AccountHandler {
	return &AccountHandler{dashboard: dashboard, membership: membership, log: log}
}

// Dashboard handles GET /dashboard.
func (h *AccountHandler) Dashboard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	d, err := h.dashboard.GetDashboard(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": d.Stats, "recentActivities": d.RecentActivities})
}

// Transactions handles GET /transactions/history.
func (h *AccountHandler) Transactions(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	limit, offset, err := paging(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page, err := h.dashboard.TransactionHistory(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// MembershipCard handles GET /membership/card.
func (h *AccountHandler) MembershipCard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	card, err := h.membership.GetCard(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, card)
}

// MembershipReset handles POST /membership/reset, the manual trigger of
// the annual job.
func (h *AccountHandler) MembershipReset(c echo.Context) error {
	n, err := h.membership.ResetCycle(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"customersReset": n})
}
