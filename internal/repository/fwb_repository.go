package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// FwbRepo reads the F&B catalog and maintains booking_fwbs lines.
type FwbRepo struct {
	db *sql.DB
}

func NewFwbRepo(db *sql.DB) *FwbRepo { return &FwbRepo{db: db} }

// ItemsByIDs returns the catalog rows for ids.  Missing ids are simply
// absent from the result.
func (r *FwbRepo) ItemsByIDs(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.FwbItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)
	q := `SELECT id, name, price, is_active FROM fwb_items WHERE id IN (` + marks + `)`
	rows, err := command(r.db, tx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FwbItem
	for rows.Next() {
		var it model.FwbItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.IsActive); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ReplaceTx deletes every line of the booking and inserts lines in one
// multi-row statement.
func (r *FwbRepo) ReplaceTx(ctx context.Context, tx *sql.Tx, bookingID uint64, lines []model.BookingFwb) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_fwbs WHERE booking_id = ?`, bookingID); err != nil {
		return fmt.Errorf("delete fwb lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}
	q := `INSERT INTO booking_fwbs (booking_id, fwb_id, quantity, unit_price) VALUES `
	args := make([]any, 0, len(lines)*4)
	for i, l := range lines {
		if i > 0 {
			q += ", "
		}
		q += "(?, ?, ?, ?)"
		args = append(args, bookingID, l.FwbID, l.Quantity, l.UnitPrice)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert fwb lines: %w", err)
	}
	return nil
}

// ListByBooking returns the F&B lines of a booking.
func (r *FwbRepo) ListByBooking(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]model.BookingFwb, error) {
	const q = `SELECT bf.booking_id, bf.fwb_id, f.name, bf.quantity, bf.unit_price ` +
		`FROM booking_fwbs bf JOIN fwb_items f ON f.id = bf.fwb_id WHERE bf.booking_id = ? ORDER BY bf.fwb_id`
	rows, err := command(r.db, tx).QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingFwb
	for rows.Next() {
		var l model.BookingFwb
		if err := rows.Scan(&l.BookingID, &l.FwbID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
