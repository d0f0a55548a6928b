package service

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/iliyamo/cinema-ticketing/internal/service")

// EventPublisher delivers domain events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

const (
	defaultHoldTimeout      = 5 * time.Minute
	defaultRefundCouponDays = 365
	defaultPageSize         = 10
	maxPageSize             = 100
)

// settings is shared by every service constructor.
type settings struct {
	now              func() time.Time
	logger           *logrus.Logger
	publisher        EventPublisher
	holdTimeout      time.Duration
	pointValue       decimal.Decimal
	refundCouponDays int
	youthAge         int
	youthTier        string
	baseTier         string
}

// Option customizes a service.
type Option func(*settings)

func newSettings(opts []Option) settings {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	s := settings{
		now:              func() time.Time { return time.Now().UTC() },
		logger:           silent,
		publisher:        nopPublisher{},
		holdTimeout:      defaultHoldTimeout,
		pointValue:       decimal.NewFromInt(1000),
		refundCouponDays: defaultRefundCouponDays,
		youthAge:         23,
		youthTier:        "U22",
		baseTier:         "Member",
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *settings) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithHoldTimeout sets how long a Pending booking may hold its seats.
func WithHoldTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.holdTimeout = d
		}
	}
}

// WithPointValue sets the currency value of one membership point.
func WithPointValue(v decimal.Decimal) Option {
	return func(s *settings) {
		if v.IsPositive() {
			s.pointValue = v
		}
	}
}

// WithRefundCouponDays sets the validity of refund compensation coupons.
func WithRefundCouponDays(days int) Option {
	return func(s *settings) {
		if days > 0 {
			s.refundCouponDays = days
		}
	}
}

// WithMembershipTiers configures the annual re-tiering rule.
func WithMembershipTiers(youthAge int, youthTier, baseTier string) Option {
	return func(s *settings) {
		if youthAge > 0 {
			s.youthAge = youthAge
		}
		if youthTier != "" {
			s.youthTier = youthTier
		}
		if baseTier != "" {
			s.baseTier = baseTier
		}
	}
}

func (s settings) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("routing_key", key).Warn("event publish failed")
	}
}

func normalizePage(limit, offset int) (int, int, error) {
	if limit < 0 {
		return 0, 0, invalid("limit", "must not be negative")
	}
	if offset < 0 {
		return 0, 0, invalid("offset", "must not be negative")
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, offset, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
