package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// ReportService aggregates sales per showtime.
type ReportService struct {
	store *repository.Store
	settings
}

func NewReportService(store *repository.Store, opts ...Option) *ReportService {
	return &ReportService{store: store, settings: newSettings(opts)}
}

// GenerateSalesReport returns one row per showtime of the theater that
// starts within [start, end] (both calendar days inclusive) and has at
// least one Booked seat.  Showtimes are aggregated one at a time.
func (s *ReportService) GenerateSalesReport(ctx context.Context, theaterID uint64, start, end time.Time) ([]model.SalesRow, error) {
	if theaterID == 0 {
		return nil, invalid("theater_id", "must be positive")
	}
	if start.IsZero() {
		return nil, invalid("start_date", "is required")
	}
	if end.IsZero() {
		return nil, invalid("end_date", "is required")
	}
	from, to := startOfDay(start), startOfDay(end).AddDate(0, 0, 1)
	if from.After(startOfDay(end)) {
		return nil, invalid("start_date", "must not be after end_date")
	}
	ctx, span := tracer.Start(ctx, "report.sales")
	defer span.End()

	ok, err := s.store.Showtimes.TheaterExists(ctx, theaterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Resource: "theater"}
	}
	showtimes, err := s.store.Showtimes.ListForTheater(ctx, theaterID, from, to)
	if err != nil {
		return nil, err
	}
	rows := make([]model.SalesRow, 0, len(showtimes))
	for _, st := range showtimes {
		tickets, ticketRevenue, fwbRevenue, err := s.store.Reports.ShowtimeSales(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		if tickets == 0 {
			continue
		}
		rows = append(rows, model.SalesRow{
			ShowtimeID:    st.ID,
			MovieName:     st.MovieTitle,
			Date:          st.StartTime,
			TicketsSold:   tickets,
			TicketRevenue: ticketRevenue,
			FwbRevenue:    fwbRevenue,
			TotalRevenue:  ticketRevenue.Add(fwbRevenue),
		})
	}
	s.logger.WithContext(ctx).WithField("theater_id", theaterID).WithField("rows", len(rows)).Debug("sales report generated")
	return rows, nil
}
