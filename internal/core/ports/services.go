package ports

import (
	"context"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// Broadcaster fans events out to subscribers. Delivery is at-most-once; an
// error means the event was dropped and is only ever logged.
type Broadcaster interface {
	Publish(ctx context.Context, topic domain.Topic, event domain.Event) error
}

// ChannelResult is the outcome of one notification channel.
type ChannelResult struct {
	Channel   string `json:"channel"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NotificationResult collects per-channel outcomes. Channels are independent.
type NotificationResult struct {
	Channels []ChannelResult `json:"channels"`
}

// Failed returns the channels that did not deliver.
func (r NotificationResult) Failed() []ChannelResult {
	var out []ChannelResult
	for _, c := range r.Channels {
		if !c.Success {
			out = append(out, c)
		}
	}
	return out
}

// NotificationGateway sends customer-facing messages about a decision.
type NotificationGateway interface {
	SendConfirmation(ctx context.Context, booking domain.Booking, trip domain.Trip) NotificationResult
	SendRejection(ctx context.Context, booking domain.Booking, reason string) NotificationResult
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
