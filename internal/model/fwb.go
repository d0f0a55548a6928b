package model

import "github.com/shopspring/decimal"

// FwbItem is a food & beverage catalog entry.
type FwbItem struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	IsActive bool            `json:"is_active"`
}

// BookingFwb is one F&B line on a booking.  UnitPrice is copied from
// the catalog when the line is written.
type BookingFwb struct {
	BookingID uint64          `json:"booking_id"`
	FwbID     uint64          `json:"fwb_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity × unit price.
func (f BookingFwb) LineTotal() decimal.Decimal {
	return f.UnitPrice.Mul(decimal.NewFromInt(int64(f.Quantity)))
}

// FwbOrder is a requested F&B line before prices are resolved.
type FwbOrder struct {
	ID       uint64 `json:"id" validate:"required,gt=0"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}
