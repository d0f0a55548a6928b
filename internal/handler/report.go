package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/report"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// ReportAPI is implemented by service.ReportService.
type ReportAPI interface {
	GenerateSalesReport(ctx context.Context, theaterID uint64, start, end time.Time) ([]model.SalesRow, error)
}

type ReportHandler struct {
	reports ReportAPI
	loc     *time.Location
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewReportHandler(reports ReportAPI, loc *time.Location, log logrus.FieldLogger) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reports: reports, loc: loc, log: log, now: time.Now}
}

type salesQuery struct {
	theaterID  uint64
	start, end time.Time
}

// parseSales reads theaterId, startDate and endDate (YYYY-MM-DD).
// Missing values are left zero for the service to reject.
func (h *ReportHandler) parseSales(c echo.Context) (salesQuery, error) {
	var q salesQuery
	if s := c.QueryParam("theaterId"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return q, &service.ValidationError{Field: "theater_id", Msg: "must be a positive integer"}
		}
		q.theaterID = id
	}
	for _, p := range []struct {
		param, field string
		dst          *time.Time
	}{{"startDate", "start_date", &q.start}, {"endDate", "end_date", &q.end}} {
		s := c.QueryParam(p.param)
		if s == "" {
			continue
		}
		t, err := time.ParseInLocation(time.DateOnly, s, h.loc)
		if err != nil {
			return q, &service.ValidationError{Field: p.field, Msg: "must be YYYY-MM-DD"}
		}
		*p.dst = t
	}
	return q, nil
}

// Sales handles GET /reports/sales.
func (h *ReportHandler) Sales(c echo.Context) error {
	q, err := h.parseSales(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	rows, err := h.reports.GenerateSalesReport(c.Request().Context(), q.theaterID, q.start, q.end)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if rows == nil {
		rows = []model.SalesRow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"rows": rows, "count": len(rows)})
}

// SalesPDF handles GET /reports/sales.pdf.
func (h *ReportHandler) SalesPDF(c echo.Context) error {
	q, err := h.parseSales(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	rows, err := h.reports.GenerateSalesReport(c.Request().Context(), q.theaterID, q.start, q.end)
	if err != nil {
		return writeError(c, h.log, err)
	}
	doc, name, err := report.SalesPDF(report.Header{
		TheaterID:   q.theaterID,
		Start:       q.start,
		End:         q.end,
		GeneratedAt: h.now().In(h.loc),
	}, rows)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "application/pdf", doc)
}
