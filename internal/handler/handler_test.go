package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const testSecret = "handler-secret"

type MockBookings struct{ mock.Mock }

func (m *MockBookings) StartBooking(ctx context.Context, customerID, showtimeID uint64, seatIDs []uint64) (service.StartResult, error) {
	args := m.Called(ctx, customerID, showtimeID, seatIDs)
	return args.Get(0).(service.StartResult), args.Error(1)
}

func (m *MockBookings) UpdateFwb(ctx context.Context, customerID, bookingID uint64, items []model.FwbOrder) (decimal.Decimal, error) {
	args := m.Called(ctx, customerID, bookingID, items)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBookings) ConfirmPayment(ctx context.Context, customerID uint64, in service.ConfirmInput) (service.ConfirmResult, error) {
	args := m.Called(ctx, customerID, in)
	return args.Get(0).(service.ConfirmResult), args.Error(1)
}

func (m *MockBookings) CancelPayment(ctx context.Context, customerID, bookingID uint64, reason string) (service.CancelResult, error) {
	args := m.Called(ctx, customerID, bookingID, reason)
	return args.Get(0).(service.CancelResult), args.Error(1)
}

func (m *MockBookings) ReleaseBooking(ctx context.Context, customerID, bookingID uint64) (service.CancelResult, error) {
	args := m.Called(ctx, customerID, bookingID)
	return args.Get(0).(service.CancelResult), args.Error(1)
}

func (m *MockBookings) GetBookingDetails(ctx context.Context, customerID, bookingID uint64) (service.BookingDetails, error) {
	args := m.Called(ctx, customerID, bookingID)
	return args.Get(0).(service.BookingDetails), args.Error(1)
}

func (m *MockBookings) GetMyBookings(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.BookingSummary], error) {
	args := m.Called(ctx, customerID, limit, offset)
	return args.Get(0).(model.Page[model.BookingSummary]), args.Error(1)
}

func (m *MockBookings) GiftBooking(ctx context.Context, senderID, bookingID, receiverID uint64) (service.GiftResult, error) {
	args := m.Called(ctx, senderID, bookingID, receiverID)
	return args.Get(0).(service.GiftResult), args.Error(1)
}

type MockPricing struct{ mock.Mock }

func (m *MockPricing) CalculateFinalAmount(ctx context.Context, customerID, bookingID uint64) (service.Breakdown, error) {
	args := m.Called(ctx, customerID, bookingID)
	return args.Get(0).(service.Breakdown), args.Error(1)
}

func (m *MockPricing) UsePoints(ctx context.Context, customerID, bookingID uint64, points int64) (service.Breakdown, error) {
	args := m.Called(ctx, customerID, bookingID, points)
	return args.Get(0).(service.Breakdown), args.Error(1)
}

type MockReaper struct{ mock.Mock }

func (m *MockReaper) SweepExpired(ctx context.Context, timeout time.Duration) (service.SweepResult, error) {
	args := m.Called(ctx, timeout)
	return args.Get(0).(service.SweepResult), args.Error(1)
}

type MockCoupons struct{ mock.Mock }

func (m *MockCoupons) GiftCoupon(ctx context.Context, couponID, senderID, receiverID uint64) (service.GiftResult, error) {
	args := m.Called(ctx, couponID, senderID, receiverID)
	return args.Get(0).(service.GiftResult), args.Error(1)
}

func (m *MockCoupons) ApplyCoupon(ctx context.Context, customerID, bookingID, couponID uint64) (service.ApplyResult, error) {
	args := m.Called(ctx, customerID, bookingID, couponID)
	return args.Get(0).(service.ApplyResult), args.Error(1)
}

func (m *MockCoupons) GetMyCoupons(ctx context.Context, customerID uint64, state string, limit, offset int) (model.Page[model.Coupon], error) {
	args := m.Called(ctx, customerID, state, limit, offset)
	return args.Get(0).(model.Page[model.Coupon]), args.Error(1)
}

func (m *MockCoupons) GetReceivedCouponGifts(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.GiftRecord], error) {
	args := m.Called(ctx, customerID, limit, offset)
	return args.Get(0).(model.Page[model.GiftRecord]), args.Error(1)
}

func (m *MockCoupons) GetSentCouponGifts(ctx context.Context, customerID uint64, limit, offset int) (model.Page[model.GiftRecord], error) {
	args := m.Called(ctx, customerID, limit, offset)
	return args.Get(0).(model.Page[model.GiftRecord]), args.Error(1)
}

type MockCustomers struct{ mock.Mock }

func (m *MockCustomers) Create(ctx context.Context, c model.Customer) (uint64, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockCustomers) GetByEmail(ctx context.Context, email string) (model.Customer, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Customer), args.Error(1)
}

func (m *MockCustomers) GetByID(ctx context.Context, tx *sql.Tx, id uint64) (model.Customer, error) {
	args := m.Called(ctx, tx, id)
	return args.Get(0).(model.Customer), args.Error(1)
}

// newEcho returns an echo instance with the request validator installed.
func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func call(e *echo.Echo, method, target, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func bookingRoutes(t *testing.T) (*echo.Echo, *MockBookings, *MockPricing, *MockReaper) {
	t.Helper()
	log, _ := test.NewNullLogger()
	b, p, r := new(MockBookings), new(MockPricing), new(MockReaper)
	h := NewBookingHandler(b, p, r, log)
	e := newEcho()
	g := e.Group("", middleware.JWTAuth(testSecret))
	g.POST("/booking/start", h.Start)
	g.POST("/booking/fwb", h.Fwb)
	g.POST("/booking/points", h.Points)
	g.POST("/booking/gift", h.Gift)
	g.GET("/booking/my-bookings", h.MyBookings)
	g.GET("/booking/:id", h.Details)
	g.POST("/booking/release/:id", h.Release)
	g.GET("/booking/cleanup-expired", h.CleanupExpired)
	g.GET("/payment/calculate/:bookingId", h.Calculate)
	g.POST("/payment/confirm", h.Confirm)
	g.POST("/payment/cancel", h.Cancel)
	return e, b, p, r
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&service.ValidationError{Field: "seat_ids", Msg: "required"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{&service.NotFoundError{Resource: "coupon"}, http.StatusNotFound, "NOT_FOUND"},
		{&service.ConflictError{Code: service.CodeSeatUnavailable, Msg: "taken"}, http.StatusConflict, service.CodeSeatUnavailable},
		{&service.ForbiddenError{Resource: "booking"}, http.StatusForbidden, "FORBIDDEN"},
		{errNoIdentity, http.StatusUnauthorized, "UNAUTHORIZED"},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			log, hook := test.NewNullLogger()
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeError(c, log, tc.err))
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tc.code, body["code"])
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
				require.Len(t, hook.AllEntries(), 1)
				entry := hook.LastEntry()
				assert.Equal(t, http.MethodGet, entry.Data["method"])
				assert.Equal(t, tc.err, entry.Data["error"])
			} else {
				assert.Empty(t, hook.AllEntries())
			}
		})
	}
}

func TestStartBooking(t *testing.T) {
	e, b, _, _ := bookingRoutes(t)
	exp := time.Date(2026, 3, 14, 12, 5, 0, 0, time.UTC)
	b.On("StartBooking", mock.Anything, uint64(7), uint64(3), []uint64{11, 12}).
		Return(service.StartResult{BookingID: 99, ExpiresAt: exp}, nil).Once()

	rec := call(e, http.MethodPost, "/booking/start", bearer(t, 7, model.RoleCustomer),
		`{"showtimeId":3,"seatIds":[11,12]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(99), decode(t, rec)["bookingId"])
	b.AssertExpectations(t)
}

func TestStartBookingRejections(t *testing.T) {
	e, b, _, _ := bookingRoutes(t)
	auth := bearer(t, 7, model.RoleCustomer)

	rec := call(e, http.MethodPost, "/booking/start", auth, `{"showtimeId":3,"seatIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "seatIds", decode(t, rec)["field"])

	rec = call(e, http.MethodPost, "/booking/start", auth, `{"customerId":8,"showtimeId":3,"seatIds":[1]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(e, http.MethodPost, "/booking/start", "", `{"showtimeId":3,"seatIds":[1]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	b.AssertNotCalled(t, "StartBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	b.On("StartBooking", mock.Anything, uint64(7), uint64(3), []uint64{1}).
		Return(service.StartResult{}, &service.ConflictError{Code: service.CodeSeatUnavailable, Msg: "1 of 1 requested seats are not available"}).Once()
	rec = call(e, http.MethodPost, "/booking/start", auth, `{"showtimeId":3,"seatIds":[1]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.CodeSeatUnavailable, decode(t, rec)["code"])
}

func TestUpdateFwb(t *testing.T) {
	e, b, _, _ := bookingRoutes(t)
	items := []model.FwbOrder{{ID: 1, Quantity: 2}}
	b.On("UpdateFwb", mock.Anything, uint64(7), uint64(5), items).Return(decimal.NewFromInt(90000), nil).Once()

	rec := call(e, http.MethodPost, "/booking/fwb", bearer(t, 7, model.RoleCustomer),
		`{"bookingId":5,"items":[{"id":1,"quantity":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "90000", decode(t, rec)["totalFwb"])

	rec = call(e, http.MethodPost, "/booking/fwb", bearer(t, 7, model.RoleCustomer),
		`{"bookingId":5,"items":[{"id":1,"quantity":0}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b.AssertExpectations(t)
}

func TestConfirmPassesClientTotal(t *testing.T) {
	e, b, _, _ := bookingRoutes(t)
	b.On("ConfirmPayment", mock.Anything, uint64(7), mock.MatchedBy(func(in service.ConfirmInput) bool {
		return in.BookingID == 5 && in.Method == "card" && in.TransactionID == "tx-1" &&
			in.Duration == 30 && in.ClientTotal != nil && in.ClientTotal.Equal(decimal.NewFromInt(50000))
	})).Return(service.ConfirmResult{PaymentID: 40, Status: model.BookingPaid}, nil).Once()

	rec := call(e, http.MethodPost, "/payment/confirm", bearer(t, 7, model.RoleCustomer),
		`{"bookingId":5,"paymentMethod":"card","transactionId":"tx-1","totalAmount":"50000","duration":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(40), body["paymentId"])
	assert.Equal(t, model.BookingPaid, body["status"])
	b.AssertExpectations(t)
}

func TestCancelAndRelease(t *testing.T) {
	e, b, _, _ := bookingRoutes(t)
	auth := bearer(t, 7, model.RoleCustomer)
	b.On("CancelPayment", mock.Anything, uint64(7), uint64(5), "changed my mind").
		Return(service.CancelResult{PaymentID: 41, Status: model.BookingCancelled}, nil).Once()
	b.On("ReleaseBooking", mock.Anything, uint64(7), uint64(6)).
		Return(service.CancelResult{PaymentID: 42, Status: model.BookingCancelled, SeatsFreed: 2}, nil).Once()

	rec := call(e, http.MethodPost, "/payment/cancel", auth, `{"bookingId":5,"reason":"changed my mind"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(41), decode(t, rec)["paymentId"])

	rec = call(e, http.MethodPost, "/booking/release/6", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["seatsFreed"])
	b.AssertExpectations(t)
}

func TestDetailsAndList(t *testing.T) {
	e, b, _, _ := bookingRoutes(t)
	auth := bearer(t, 7, model.RoleCustomer)

	rec := call(e, http.MethodGet, "/booking/abc", auth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	b.On("GetBookingDetails", mock.Anything, uint64(7), uint64(5)).
		Return(service.BookingDetails{}, &service.NotFoundError{Resource: "booking"}).Once()
	rec = call(e, http.MethodGet, "/booking/5", auth, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking not found", decode(t, rec)["error"])

	b.On("GetMyBookings", mock.Anything, uint64(7), 5, 10).
		Return(model.NewPage([]model.BookingSummary{{ID: 1}}, 11, 5, 10), nil).Once()
	rec = call(e, http.MethodGet, "/booking/my-bookings?limit=5&offset=10", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["has_more"])

	rec = call(e, http.MethodGet, "/booking/my-bookings?limit=x", auth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b.AssertExpectations(t)
}

func TestPointsGiftCalculateCleanup(t *testing.T) {
	e, b, p, r := bookingRoutes(t)
	auth := bearer(t, 7, model.RoleCustomer)

	p.On("UsePoints", mock.Anything, uint64(7), uint64(5), int64(3)).
		Return(service.Breakdown{BookingID: 5, PointsUsed: 3}, nil).Once()
	rec := call(e, http.MethodPost, "/booking/points", auth, `{"bookingId":5,"points":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["points_used"])

	b.On("GiftBooking", mock.Anything, uint64(7), uint64(5), uint64(8)).
		Return(service.GiftResult{SenderName: "Ana", ReceiverName: "Bo"}, nil).Once()
	rec = call(e, http.MethodPost, "/booking/gift", auth, `{"bookingId":5,"receiverId":8}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bo", decode(t, rec)["receiverName"])

	p.On("CalculateFinalAmount", mock.Anything, uint64(7), uint64(5)).
		Return(service.Breakdown{BookingID: 5, FinalAmount: decimal.NewFromInt(50000)}, nil).Once()
	rec = call(e, http.MethodGet, "/payment/calculate/5", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "50000", decode(t, rec)["final_amount"])

	r.On("SweepExpired", mock.Anything, time.Duration(0)).
		Return(service.SweepResult{Cancelled: 4, Failed: 1}, nil).Once()
	rec = call(e, http.MethodGet, "/booking/cleanup-expired", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(4), body["cancelled"])
	assert.Equal(t, float64(1), body["failed"])

	b.AssertExpectations(t)
	p.AssertExpectations(t)
	r.AssertExpectations(t)
}

func TestCouponHandlers(t *testing.T) {
	log, _ := test.NewNullLogger()
	m := new(MockCoupons)
	h := NewCouponHandler(m, log)
	h.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	e := newEcho()
	g := e.Group("", middleware.JWTAuth(testSecret))
	g.POST("/coupon/gift", h.Gift)
	g.POST("/coupon/apply", h.Apply)
	g.GET("/coupon/my-coupons", h.MyCoupons)
	g.GET("/coupon/received", h.Received)
	g.GET("/coupon/sent", h.Sent)
	auth := bearer(t, 7, model.RoleCustomer)

	m.On("GiftCoupon", mock.Anything, uint64(3), uint64(7), uint64(8)).
		Return(service.GiftResult{}, &service.ConflictError{Code: service.CodeAlreadyGifted, Msg: "coupon already gifted"}).Once()
	rec := call(e, http.MethodPost, "/coupon/gift", auth, `{"couponId":3,"receiverId":8}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "coupon already gifted", decode(t, rec)["error"])

	m.On("ApplyCoupon", mock.Anything, uint64(7), uint64(5), uint64(3)).Return(service.ApplyResult{
		CouponID: 3, DiscountApplied: decimal.NewFromInt(20000), Balance: decimal.Zero,
		CouponType: model.CouponAmount, RemainderCouponID: 9, RemainderBalance: decimal.NewFromInt(30000),
	}, nil).Once()
	rec = call(e, http.MethodPost, "/coupon/apply", auth, `{"bookingId":5,"couponId":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "0", body["balance"])
	assert.Equal(t, model.CouponAmount, body["couponType"])
	assert.Equal(t, float64(9), body["remainderCouponId"])

	booked := uint64(5)
	coupons := []model.Coupon{
		{ID: 1, Name: "Promo", Balance: decimal.NewFromInt(10), DateExpired: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Name: "Old", Balance: decimal.NewFromInt(10), DateExpired: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 3, Name: "Spent", BookingID: &booked, DateExpired: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	m.On("GetMyCoupons", mock.Anything, uint64(7), "", 0, 0).Return(model.NewPage(coupons, 3, 10, 0), nil).Once()
	rec = call(e, http.MethodGet, "/coupon/my-coupons", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page model.Page[couponView]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 3)
	assert.Equal(t, model.CouponStateAvailable, page.Items[0].State)
	assert.Equal(t, model.CouponStateExpired, page.Items[1].State)
	assert.Equal(t, model.CouponStateUsed, page.Items[2].State)
	assert.Equal(t, "Promo", page.Items[0].Name)

	m.On("GetReceivedCouponGifts", mock.Anything, uint64(7), 2, 0).
		Return(model.NewPage([]model.GiftRecord{{GiveID: 1}}, 1, 2, 0), nil).Once()
	rec = call(e, http.MethodGet, "/coupon/received?limit=2", auth, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	m.On("GetSentCouponGifts", mock.Anything, uint64(7), 0, 0).
		Return(model.Page[model.GiftRecord]{}, &service.ValidationError{Field: "limit"}).Once()
	rec = call(e, http.MethodGet, "/coupon/sent", auth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	m.AssertExpectations(t)
}

func TestAuthRegisterLoginMe(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := new(MockCustomers)
	h := NewAuthHandler(AuthSettings{
		JWTSecret: testSecret, AccessTTLMin: 5, BcryptCost: 4,
		YouthAge: 23, YouthTier: "U22", BaseTier: "Member",
	}, store, log)
	h.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	e := newEcho()
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.GET("/me", h.Me, middleware.JWTAuth(testSecret))

	store.On("Create", mock.Anything, mock.MatchedBy(func(c model.Customer) bool {
		return c.Email == "ana@example.com" && c.Role == model.RoleCustomer && c.MembershipTier == "U22" &&
			utils.VerifyPassword(c.PasswordHash, "password1")
	})).Return(uint64(12), nil).Once()
	rec := call(e, http.MethodPost, "/auth/register", "",
		`{"name":"Ana","email":"Ana@Example.com","password":"password1","date_of_birth":"2008-05-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, uint64(12), reg.User.ID)
	claims, err := utils.ParseAccessToken(testSecret, reg.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, claims.Role)

	rec = call(e, http.MethodPost, "/auth/register", "", `{"name":"Ana","email":"nope","password":"password1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode(t, rec)["field"])

	hash, err := utils.HashPassword("password1", 4)
	require.NoError(t, err)
	cust := model.Customer{ID: 12, Name: "Ana", Email: "ana@example.com", PasswordHash: hash, Role: model.RoleCustomer, MembershipTier: "U22"}
	store.On("GetByEmail", mock.Anything, "ana@example.com").Return(cust, nil).Twice()

	rec = call(e, http.MethodPost, "/auth/login", "", `{"email":"ana@example.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(e, http.MethodPost, "/auth/login", "", `{"email":"ana@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	store.On("GetByID", mock.Anything, (*sql.Tx)(nil), uint64(12)).Return(cust, nil).Once()
	rec = call(e, http.MethodGet, "/me", "Bearer "+reg.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "Ana", me["name"])
	assert.NotContains(t, me, "password_hash")

	store.AssertExpectations(t)
}
