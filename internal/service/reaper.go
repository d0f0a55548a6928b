package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// sweepBatch bounds how many expired bookings one sweep loads.
const sweepBatch = 500

// SweepResult counts the outcome of one reaper pass.
type SweepResult struct {
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}

// Reaper cancels Pending bookings that outlived the hold timeout.
type Reaper struct {
	store    *repository.Store
	bookings *BookingService
	settings

	cancelled metric.Int64Counter
	failed    metric.Int64Counter
}

func NewReaper(store *repository.Store, bookings *BookingService, opts ...Option) *Reaper {
	r := &Reaper{store: store, bookings: bookings, settings: newSettings(opts)}
	meter := otel.Meter("github.com/iliyamo/cinema-ticketing/internal/service")
	r.cancelled, _ = meter.Int64Counter("reaper.cancelled", metric.WithDescription("expired bookings cancelled"))
	r.failed, _ = meter.Int64Counter("reaper.failed", metric.WithDescription("expired bookings that could not be cancelled"))
	return r
}

// SweepExpired cancels every Pending booking created strictly before
// now - timeout.  Each booking is cancelled in its own transaction; a
// failure is counted and logged and the sweep moves on.  A zero
// timeout uses the configured hold timeout.
func (r *Reaper) SweepExpired(ctx context.Context, timeout time.Duration) (SweepResult, error) {
	if timeout < 0 {
		return SweepResult{}, invalid("timeout", "must not be negative")
	}
	if timeout == 0 {
		timeout = r.holdTimeout
	}
	ctx, span := tracer.Start(ctx, "reaper.sweep")
	defer span.End()

	cutoff := r.now().Add(-timeout)
	ids, err := r.store.Bookings.ListExpiredPending(ctx, cutoff, sweepBatch)
	if err != nil {
		return SweepResult{}, err
	}
	var res SweepResult
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.bookings.expire(ctx, id); err != nil {
			res.Failed++
			r.logger.WithContext(ctx).WithError(err).WithField("booking_id", id).Warn("reaper: cancel failed")
			continue
		}
		res.Cancelled++
	}
	r.cancelled.Add(ctx, int64(res.Cancelled))
	r.failed.Add(ctx, int64(res.Failed))
	span.SetAttributes(attribute.Int("reaper.cancelled", res.Cancelled), attribute.Int("reaper.failed", res.Failed))
	if len(ids) > 0 {
		r.logger.WithContext(ctx).WithField("cancelled", res.Cancelled).WithField("failed", res.Failed).Info("reaper sweep finished")
	}
	return res, nil
}
