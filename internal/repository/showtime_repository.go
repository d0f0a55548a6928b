package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ShowtimeRepo reads the showtime/theater catalog the booking core
// depends on.  Catalog maintenance lives elsewhere.
type ShowtimeRepo struct {
	db *sql.DB
}

func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const showtimeSelect = `SELECT st.id, st.movie_id, m.title, st.room_id, r.theater_id, st.start_time ` +
	`FROM showtimes st JOIN movies m ON m.id = st.movie_id JOIN rooms r ON r.id = st.room_id `

func scanShowtime(row interface{ Scan(...any) error }) (model.Showtime, error) {
	var s model.Showtime
	err := row.Scan(&s.ID, &s.MovieID, &s.MovieTitle, &s.RoomID, &s.TheaterID, &s.StartTime)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// GetByID loads a showtime with its movie title and theater.
func (r *ShowtimeRepo) GetByID(ctx context.Context, tx *sql.Tx, id uint64) (model.Showtime, error) {
	return scanShowtime(command(r.db, tx).QueryRowContext(ctx, showtimeSelect+`WHERE st.id = ?`, id))
}

// TheaterExists reports whether a theater row exists.
func (r *ShowtimeRepo) TheaterExists(ctx context.Context, theaterID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM theaters WHERE id = ?`, theaterID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ListForTheater returns the theater's showtimes starting in [from, to),
// ordered by start time.
func (r *ShowtimeRepo) ListForTheater(ctx context.Context, theaterID uint64, from, to time.Time) ([]model.Showtime, error) {
	q := showtimeSelect + `WHERE r.theater_id = ? AND st.start_time >= ? AND st.start_time < ? ORDER BY st.start_time, st.id`
	rows, err := r.db.QueryContext(ctx, q, theaterID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Showtime
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
