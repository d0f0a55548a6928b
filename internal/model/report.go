package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesRow is one showtime line of the theater sales report.
type SalesRow struct {
	ShowtimeID    uint64          `json:"showtime_id"`
	MovieName     string          `json:"movie_name"`
	Date          time.Time       `json:"date"`
	TicketsSold   int             `json:"tickets_sold"`
	TicketRevenue decimal.Decimal `json:"ticket_revenue"`
	FwbRevenue    decimal.Decimal `json:"fwb_revenue"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// Activity is a dashboard feed entry.
type Activity struct {
	Kind      string          `json:"kind"` // payment | refund | gift_sent | gift_received
	RefID     uint64          `json:"ref_id"`
	Status    string          `json:"status,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Page wraps a slice of results with offset pagination metadata.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPage builds a Page and computes HasMore as offset+len(items) < total.
func NewPage[T any](items []T, total, limit, offset int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	}
}
