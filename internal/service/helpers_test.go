package service

import (
	"context"
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*repository.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewStore(db), mock
}

func fixedClock() Option { return WithClock(func() time.Time { return testNow }) }

// decimalArg matches a driver argument numerically, so "50000" matches
// the "50000.00" a decimal.Decimal renders to.
type decimalArg string

func (d decimalArg) Match(v driver.Value) bool {
	want := decimal.RequireFromString(string(d))
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	case int64:
		return decimal.NewFromInt(x).Equal(want)
	case float64:
		return decimal.NewFromFloat(x).Equal(want)
	default:
		return false
	}
	got, err := decimal.NewFromString(s)
	return err == nil && got.Equal(want)
}

type recordedEvent struct {
	key     string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{key: key, payload: payload})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.key
	}
	return out
}

var bookingCols = []string{"id", "customer_id", "showtime_id", "status", "is_gift", "points_used", "points_earned", "created_at", "updated_at"}

func bookingRow(id, customerID int, status string, pointsUsed int, created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(id, customerID, 7, status, false, pointsUsed, 0, created, created)
}

const (
	lockBookingSQL = `FROM bookings WHERE id = \? FOR UPDATE`
	getBookingSQL  = `FROM bookings WHERE id = \?$`
	lockCouponSQL  = `FROM coupons WHERE id = \? FOR UPDATE`
	getCouponSQL   = `FROM coupons WHERE id = \?$`
	seatPricesSQL  = `SELECT ss.seat_id, s.row_label`
	fwbLinesSQL    = `SELECT bf.booking_id, bf.fwb_id`
	sumAppliedSQL  = `SELECT COALESCE\(SUM\(discount_amount\), 0\) FROM coupons`
	tierSQL        = `SELECT t.name, t.box_office_rate`
	showtimeSQL    = `FROM showtimes st JOIN movies m`
	customerSQL    = `FROM customers WHERE id = \?`
)

func expectLockBooking(mock sqlmock.Sqlmock, id, customerID int, status string, pointsUsed int, created time.Time) {
	mock.ExpectQuery(lockBookingSQL).WithArgs(id).WillReturnRows(bookingRow(id, customerID, status, pointsUsed, created))
}

// priceFixture describes the stored state the pricing queries return.
type priceFixture struct {
	seats   []string    // snapshotted seat prices
	fwb     [][2]string // quantity, unit price
	applied string      // sum of applied coupon discounts
	tier    []string    // name, box office, concession, points; nil means no tier
}

func expectSubtotal(mock sqlmock.Sqlmock, f priceFixture) {
	seats := sqlmock.NewRows([]string{"seat_id", "row_label", "seat_number", "price"})
	for i, p := range f.seats {
		seats.AddRow(100+i, "A", i+1, p)
	}
	mock.ExpectQuery(seatPricesSQL).WillReturnRows(seats)
	lines := sqlmock.NewRows([]string{"booking_id", "fwb_id", "name", "quantity", "unit_price"})
	for i, l := range f.fwb {
		lines.AddRow(1, i+1, "Popcorn", l[0], l[1])
	}
	mock.ExpectQuery(fwbLinesSQL).WillReturnRows(lines)
}

func expectApplied(mock sqlmock.Sqlmock, f priceFixture) {
	applied := f.applied
	if applied == "" {
		applied = "0"
	}
	mock.ExpectQuery(sumAppliedSQL).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(applied))
}

func expectCalculate(mock sqlmock.Sqlmock, f priceFixture) {
	expectSubtotal(mock, f)
	expectApplied(mock, f)
	rows := sqlmock.NewRows([]string{"name", "box_office_rate", "concession_rate", "points_rate"})
	if f.tier != nil {
		rows.AddRow(f.tier[0], f.tier[1], f.tier[2], f.tier[3])
	}
	mock.ExpectQuery(tierSQL).WillReturnRows(rows)
}

var showtimeCols = []string{"id", "movie_id", "title", "room_id", "theater_id", "start_time"}

func expectShowtime(mock sqlmock.Sqlmock, id int, start time.Time) {
	mock.ExpectQuery(showtimeSQL).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(showtimeCols).AddRow(id, 3, "Dune", 2, 1, start))
}

var customerCols = []string{"id", "name", "email", "password_hash", "role", "date_of_birth", "accumulated_points",
	"total_spent", "membership_tier", "membership_valid_until", "created_at"}

func customerRow(id int, name string, points int, spent string) *sqlmock.Rows {
	return sqlmock.NewRows(customerCols).
		AddRow(id, name, name+"@example.com", "hash", "CUSTOMER", nil, points, spent, "Member", nil, testNow)
}

var couponCols = []string{"id", "code", "name", "customer_id", "balance", "face_value", "coupon_type", "date_expired",
	"gift", "booking_id", "discount_amount", "created_at"}

type couponFixture struct {
	id         int
	owner      int
	balance    string
	couponType string
	expires    time.Time
	gift       bool
	bookingID  any
}

func couponRow(c couponFixture) *sqlmock.Rows {
	if c.expires.IsZero() {
		c.expires = testNow.AddDate(0, 1, 0)
	}
	return sqlmock.NewRows(couponCols).AddRow(c.id, "code", "Promo", c.owner, c.balance, c.balance, c.couponType,
		c.expires, c.gift, c.bookingID, "0", testNow)
}
