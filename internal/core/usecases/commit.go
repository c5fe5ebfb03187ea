package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/pkg/metrics"
)

// DefaultCommitAttempts bounds the optimistic read-mutate-write loop on a Trip.
const DefaultCommitAttempts = 5

var tracer = otel.Tracer("github.com/samirrijal/seatpass/internal/core/usecases")

// withTripCommit runs fn until it returns something other than
// domain.ErrVersionConflict. fn must re-read the trip on every call.
func withTripCommit(ctx context.Context, attempts int, op string, fn func() error) error {
	if attempts <= 0 {
		attempts = DefaultCommitAttempts
	}
	for i := 0; i < attempts; i++ {
		err := fn()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		metrics.CommitRetries.WithLabelValues(op).Inc()
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return domain.ConflictError{
		Resource: "trip",
		Msg:      "trip is being modified concurrently, try again",
		Err:      domain.ErrVersionConflict,
	}
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func countSeatConflict(op string, err error) {
	if domain.IsConflict(err) && len(domain.ConflictSeats(err)) > 0 {
		metrics.SeatConflicts.WithLabelValues(op).Inc()
	}
}

// publish emits an event after a commit. Failures are logged and dropped.
func publish(ctx context.Context, b ports.Broadcaster, ev domain.Event) {
	if b == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := b.Publish(context.WithoutCancel(ctx), ev.Topic, ev); err != nil {
		metrics.BroadcastErrors.WithLabelValues(string(ev.Topic)).Inc()
		slog.WarnContext(ctx, "broadcast dropped", "topic", ev.Topic, "trip_id", ev.TripID, "error", err)
	}
}

// publishTripChange emits the seat, trip and status events for a committed
// trip mutation.
func publishTripChange(ctx context.Context, b ports.Broadcaster, before, after domain.Trip, seats []int, booked bool) {
	if len(seats) > 0 {
		publish(ctx, b, domain.Event{
			Topic:  domain.TopicSeatUpdated,
			TripID: after.ID,
			Payload: domain.SeatUpdate{
				SeatNumbers:      seats,
				IsBooked:         booked,
				BookedSeatsCount: after.BookedSeatsCount,
			},
		})
	}
	publish(ctx, b, domain.Event{Topic: domain.TopicTripUpdated, TripID: after.ID, Payload: after.Public()})
	if before.Status != after.Status {
		publish(ctx, b, domain.Event{
			Topic:   domain.TopicTripStatusUpdated,
			TripID:  after.ID,
			Payload: domain.StatusUpdate{From: before.Status, To: after.Status},
		})
	}
}

func tripCacheKey(id string) string { return "trips:id:" + id }

func invalidateTrip(ctx context.Context, cache ports.CacheService, id string) {
	if cache != nil {
		_ = cache.Delete(ctx, tripCacheKey(id))
	}
}
