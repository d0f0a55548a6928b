package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// expectApply queues the reads ApplyCoupon makes before it decides the
// discount.
func expectApply(mock sqlmock.Sqlmock, c couponFixture, seats []string, applied string) {
	mock.ExpectBegin()
	expectLockBooking(mock, 1, 5, model.BookingPending, 0, testNow)
	mock.ExpectQuery(lockCouponSQL).WithArgs(c.id).WillReturnRows(couponRow(c))
	expectSubtotal(mock, priceFixture{seats: seats})
	expectApplied(mock, priceFixture{applied: applied})
}

func TestApplyPercentCoupon(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())
	pricing := NewPricingEngine(store, fixedClock())

	expectApply(mock, couponFixture{id: 9, owner: 5, balance: "50", couponType: model.CouponPercent}, []string{"100000"}, "0")
	mock.ExpectExec("UPDATE coupons SET balance = 0").WithArgs(decimalArg("50000"), 1, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := ledger.ApplyCoupon(context.Background(), 5, 1, 9)
	require.NoError(t, err)
	assert.True(t, res.DiscountApplied.Equal(decimal.NewFromInt(50000)))
	assert.True(t, res.Balance.IsZero())
	assert.Zero(t, res.RemainderCouponID)

	mock.ExpectQuery(getBookingSQL).WithArgs(1).WillReturnRows(bookingRow(1, 5, model.BookingPending, 0, testNow))
	expectCalculate(mock, priceFixture{seats: []string{"100000"}, applied: "50000"})

	bd, err := pricing.CalculateFinalAmount(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.True(t, bd.FinalAmount.Equal(decimal.NewFromInt(50000)), bd.FinalAmount.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPercentCouponIsCappedByRemainingRoom(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())

	expectApply(mock, couponFixture{id: 9, owner: 5, balance: "50", couponType: model.CouponPercent}, []string{"100000"}, "80000")
	mock.ExpectExec("UPDATE coupons SET balance = 0").WithArgs(decimalArg("20000"), 1, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := ledger.ApplyCoupon(context.Background(), 5, 1, 9)
	require.NoError(t, err)
	assert.True(t, res.DiscountApplied.Equal(decimal.NewFromInt(20000)))
	assert.True(t, res.TotalDiscount.Equal(decimal.NewFromInt(100000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCouponsNeverExceedSubtotal(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())
	seats := []string{"100000", "100000"}

	// A: 120,000 fits entirely.
	expectApply(mock, couponFixture{id: 1, owner: 5, balance: "120000", couponType: model.CouponAmount}, seats, "0")
	mock.ExpectExec("UPDATE coupons SET balance = 0").WithArgs(decimalArg("120000"), 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// B: 60,000 fits entirely.
	expectApply(mock, couponFixture{id: 2, owner: 5, balance: "60000", couponType: model.CouponAmount}, seats, "120000")
	mock.ExpectExec("UPDATE coupons SET balance = 0").WithArgs(decimalArg("60000"), 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// C: 50,000 against 20,000 of room; 30,000 is minted back.
	expectApply(mock, couponFixture{id: 3, owner: 5, balance: "50000", couponType: model.CouponAmount}, seats, "180000")
	mock.ExpectExec("UPDATE coupons SET balance = 0").WithArgs(decimalArg("20000"), 1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO coupons").
		WithArgs(sqlmock.AnyArg(), "Promo Remaining", 5, decimalArg("30000"), decimalArg("30000"),
			model.CouponAmount, sqlmock.AnyArg(), testNow).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	a, err := ledger.ApplyCoupon(ctx, 5, 1, 1)
	require.NoError(t, err)
	b, err := ledger.ApplyCoupon(ctx, 5, 1, 2)
	require.NoError(t, err)
	c, err := ledger.ApplyCoupon(ctx, 5, 1, 3)
	require.NoError(t, err)

	assert.True(t, a.DiscountApplied.Equal(decimal.NewFromInt(120000)))
	assert.True(t, b.DiscountApplied.Equal(decimal.NewFromInt(60000)))
	assert.True(t, c.DiscountApplied.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, uint64(77), c.RemainderCouponID)
	assert.True(t, c.RemainderBalance.Equal(decimal.NewFromInt(30000)))
	assert.True(t, c.TotalDiscount.Equal(decimal.NewFromInt(200000)))
	sum := a.DiscountApplied.Add(b.DiscountApplied).Add(c.DiscountApplied)
	assert.True(t, sum.Equal(decimal.NewFromInt(200000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAmountCouponConservesBalance(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())

	expectApply(mock, couponFixture{id: 4, owner: 5, balance: "70000", couponType: model.CouponGiftCard}, []string{"45000"}, "0")
	mock.ExpectExec("UPDATE coupons SET balance = 0").WithArgs(decimalArg("45000"), 1, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO coupons").
		WithArgs(sqlmock.AnyArg(), "Promo Remaining", 5, decimalArg("25000"), decimalArg("25000"),
			model.CouponGiftCard, sqlmock.AnyArg(), testNow).
		WillReturnResult(sqlmock.NewResult(78, 1))
	mock.ExpectCommit()

	res, err := ledger.ApplyCoupon(context.Background(), 5, 1, 4)
	require.NoError(t, err)
	assert.True(t, res.DiscountApplied.Add(res.RemainderBalance).Equal(decimal.NewFromInt(70000)))
	assert.True(t, res.Balance.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCouponOnFullyDiscountedBooking(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())

	expectApply(mock, couponFixture{id: 4, owner: 5, balance: "1000", couponType: model.CouponAmount}, []string{"45000"}, "45000")
	mock.ExpectRollback()

	_, err := ledger.ApplyCoupon(context.Background(), 5, 1, 4)
	assert.Equal(t, CodeDiscountCapReached, ConflictCode(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCouponRejections(t *testing.T) {
	cases := []struct {
		name   string
		coupon couponFixture
		check  func(t *testing.T, err error)
	}{
		{
			name:   "expired",
			coupon: couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount, expires: testNow.AddDate(0, 0, -1)},
			check: func(t *testing.T, err error) {
				assert.Equal(t, CodeCouponExpired, ConflictCode(err))
				assert.EqualError(t, err, "coupon expired")
			},
		},
		{
			name:   "already applied",
			coupon: couponFixture{id: 9, owner: 5, balance: "0", couponType: model.CouponAmount, bookingID: 2},
			check: func(t *testing.T, err error) {
				assert.Equal(t, CodeCouponAlreadyApplied, ConflictCode(err))
				assert.EqualError(t, err, "coupon already applied")
			},
		},
		{
			name:   "empty",
			coupon: couponFixture{id: 9, owner: 5, balance: "0", couponType: model.CouponAmount},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "coupon has no balance")
			},
		},
		{
			name:   "not owner",
			coupon: couponFixture{id: 9, owner: 8, balance: "100", couponType: model.CouponAmount},
			check: func(t *testing.T, err error) {
				assert.True(t, IsForbidden(err))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			ledger := NewCouponLedger(store, fixedClock())

			mock.ExpectBegin()
			expectLockBooking(mock, 1, 5, model.BookingPending, 0, testNow)
			mock.ExpectQuery(lockCouponSQL).WillReturnRows(couponRow(tc.coupon))
			mock.ExpectRollback()

			_, err := ledger.ApplyCoupon(context.Background(), 5, 1, 9)
			require.Error(t, err)
			tc.check(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApplyCouponNotFound(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())

	mock.ExpectBegin()
	expectLockBooking(mock, 1, 5, model.BookingPending, 0, testNow)
	mock.ExpectQuery(lockCouponSQL).WillReturnRows(sqlmock.NewRows(couponCols))
	mock.ExpectRollback()

	_, err := ledger.ApplyCoupon(context.Background(), 5, 1, 9)
	assert.EqualError(t, err, "coupon not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func expectGift(mock sqlmock.Sqlmock, c couponFixture) {
	mock.ExpectBegin()
	mock.ExpectQuery(getCouponSQL).WithArgs(c.id).WillReturnRows(couponRow(c))
}

func expectParties(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(customerSQL).WithArgs(6).WillReturnRows(customerRow(6, "Bea", 0, "0"))
	mock.ExpectQuery(customerSQL).WithArgs(5).WillReturnRows(customerRow(5, "Ann", 0, "0"))
}

func TestGiftCouponTransfersOwnership(t *testing.T) {
	store, mock := newTestStore(t)
	pub := &recordingPublisher{}
	ledger := NewCouponLedger(store, fixedClock(), WithPublisher(pub))

	expectGift(mock, couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount})
	expectParties(mock)
	mock.ExpectExec("UPDATE coupons SET gift = 1").WithArgs(6, 9, 5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gives").WithArgs(9, 5, 6, testNow).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := ledger.GiftCoupon(context.Background(), 9, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, "Ann", res.SenderName)
	assert.Equal(t, "Bea", res.ReceiverName)
	assert.Equal(t, []string{queue.CouponGifted}, pub.keys())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGiftCouponRaceHasOneWinner(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())
	fresh := couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount}

	// Both gifters read gift = 0; only the first conditional update lands.
	expectGift(mock, fresh)
	expectParties(mock)
	mock.ExpectExec("UPDATE coupons SET gift = 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gives").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	expectGift(mock, fresh)
	mock.ExpectQuery(customerSQL).WithArgs(7).WillReturnRows(customerRow(7, "Cal", 0, "0"))
	mock.ExpectQuery(customerSQL).WithArgs(5).WillReturnRows(customerRow(5, "Ann", 0, "0"))
	mock.ExpectExec("UPDATE coupons SET gift = 1").WithArgs(7, 9, 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := ledger.GiftCoupon(context.Background(), 9, 5, 6)
	require.NoError(t, err)
	_, err = ledger.GiftCoupon(context.Background(), 9, 5, 7)
	assert.Equal(t, CodeAlreadyGifted, ConflictCode(err))
	assert.EqualError(t, err, "coupon already gifted")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGiftCouponRejections(t *testing.T) {
	cases := []struct {
		name   string
		coupon couponFixture
		check  func(t *testing.T, err error)
	}{
		{"already gifted", couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount, gift: true},
			func(t *testing.T, err error) { assert.EqualError(t, err, "coupon already gifted") }},
		{"not owner", couponFixture{id: 9, owner: 8, balance: "100", couponType: model.CouponAmount},
			func(t *testing.T, err error) { assert.True(t, IsForbidden(err)) }},
		{"applied", couponFixture{id: 9, owner: 5, balance: "0", couponType: model.CouponAmount, bookingID: 3},
			func(t *testing.T, err error) { assert.Equal(t, CodeCouponAlreadyApplied, ConflictCode(err)) }},
		{"expired", couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount, expires: testNow.AddDate(0, 0, -3)},
			func(t *testing.T, err error) { assert.EqualError(t, err, "coupon expired") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			ledger := NewCouponLedger(store, fixedClock())

			expectGift(mock, tc.coupon)
			mock.ExpectRollback()

			_, err := ledger.GiftCoupon(context.Background(), 9, 5, 6)
			require.Error(t, err)
			tc.check(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGiftCouponExpiringTodayIsAllowed(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())

	expectGift(mock, couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount, expires: startOfDay(testNow)})
	expectParties(mock)
	mock.ExpectExec("UPDATE coupons SET gift = 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gives").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := ledger.GiftCoupon(context.Background(), 9, 5, 6)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGiftCouponUnknownReceiver(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())

	expectGift(mock, couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount})
	mock.ExpectQuery(customerSQL).WithArgs(6).WillReturnRows(sqlmock.NewRows(customerCols))
	mock.ExpectRollback()

	_, err := ledger.GiftCoupon(context.Background(), 9, 5, 6)
	assert.EqualError(t, err, "receiver not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGiftCouponToSelf(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store)

	_, err := ledger.GiftCoupon(context.Background(), 9, 5, 5)
	assert.True(t, IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMyCouponsFiltersByState(t *testing.T) {
	store, mock := newTestStore(t)
	ledger := NewCouponLedger(store, fixedClock())

	today := "2026-03-14"
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coupons WHERE customer_id = \? AND booking_id IS NULL AND date_expired >= \?`).
		WithArgs(5, today).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("ORDER BY date_expired").WithArgs(5, today, 10, 0).
		WillReturnRows(couponRow(couponFixture{id: 9, owner: 5, balance: "100", couponType: model.CouponAmount}))

	page, err := ledger.GetMyCoupons(context.Background(), 5, model.CouponStateAvailable, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.CouponStateAvailable, page.Items[0].State(testNow))
	assert.False(t, page.HasMore)

	_, err = ledger.GetMyCoupons(context.Background(), 5, "Bogus", 0, 0)
	assert.True(t, IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMyCouponsUsesLocalCalendarDay(t *testing.T) {
	store, mock := newTestStore(t)
	wib := time.FixedZone("WIB", 7*3600)
	// 19:00 UTC on the 13th is already the 14th in UTC+7.
	local := time.Date(2026, time.March, 13, 19, 0, 0, 0, time.UTC).In(wib)
	ledger := NewCouponLedger(store, WithClock(func() time.Time { return local }))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coupons WHERE customer_id = \?`).
		WithArgs(5, "2026-03-14").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("ORDER BY date_expired").WithArgs(5, "2026-03-14", 10, 0).
		WillReturnRows(sqlmock.NewRows(couponCols))

	_, err := ledger.GetMyCoupons(context.Background(), 5, model.CouponStateExpired, 0, 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
