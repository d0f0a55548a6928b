package repository

import "database/sql"

// Store bundles the repositories over one connection pool so services
// can share them and open transactions on the same handle.
type Store struct {
	DB        *sql.DB
	Bookings  *BookingRepo
	Seats     *ShowtimeSeatRepo
	Fwb       *FwbRepo
	Coupons   *CouponRepo
	Gives     *GiveRepo
	Payments  *PaymentRepo
	Refunds   *RefundRepo
	Customers *CustomerRepo
	Showtimes *ShowtimeRepo
	Reports   *ReportRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:        db,
		Bookings:  NewBookingRepo(db),
		Seats:     NewShowtimeSeatRepo(db),
		Fwb:       NewFwbRepo(db),
		Coupons:   NewCouponRepo(db),
		Gives:     NewGiveRepo(db),
		Payments:  NewPaymentRepo(db),
		Refunds:   NewRefundRepo(db),
		Customers: NewCustomerRepo(db),
		Showtimes: NewShowtimeRepo(db),
		Reports:   NewReportRepo(db),
	}
}
