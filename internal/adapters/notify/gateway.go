package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/pkg/config"
)

// Gateway implements ports.NotificationGateway by running every channel
// concurrently in-process. Nil senders are reported as not configured.
type Gateway struct {
	Email    *EmailSender
	WhatsApp *WhatsAppSender
}

// NewGateway builds both channels from configuration.
func NewGateway(smtp SMTPConfig, twilio TwilioConfig) *Gateway {
	return &Gateway{Email: NewEmailSender(smtp), WhatsApp: NewWhatsAppSender(twilio)}
}

// ChannelConfigs maps the notify section of the service configuration onto
// the per-channel settings.
func ChannelConfigs(c config.NotifyConfig) (SMTPConfig, TwilioConfig) {
	return SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUser,
			Password: c.SMTPPassword,
			From:     c.FromEmail,
		}, TwilioConfig{
			AccountSID: c.TwilioSID,
			AuthToken:  c.TwilioToken,
			From:       c.TwilioWhatsApp,
		}
}

// SendConfirmation emails the e-ticket and sends a WhatsApp summary.
func (g *Gateway) SendConfirmation(ctx context.Context, b domain.Booking, t domain.Trip) ports.NotificationResult {
	v := NewTicketView(b, t)
	return fanOut(ctx,
		channel{ChannelEmail, func(ctx context.Context) (string, error) {
			return g.Email.Confirmation(ctx, b.Customer.Email, v)
		}},
		channel{ChannelWhatsApp, func(ctx context.Context) (string, error) {
			return g.WhatsApp.Send(ctx, b.Customer.Phone, ConfirmationText(v))
		}},
	)
}

// SendRejection notifies the customer of a declined request.
func (g *Gateway) SendRejection(ctx context.Context, b domain.Booking, reason string) ports.NotificationResult {
	v := NewTicketView(b, domain.Trip{})
	v.Reason = reason
	return fanOut(ctx,
		channel{ChannelEmail, func(ctx context.Context) (string, error) {
			return g.Email.Rejection(ctx, b.Customer.Email, v)
		}},
		channel{ChannelWhatsApp, func(ctx context.Context) (string, error) {
			return g.WhatsApp.Send(ctx, b.Customer.Phone, RejectionText(v))
		}},
	)
}

type channel struct {
	name string
	send func(context.Context) (string, error)
}

func fanOut(ctx context.Context, channels ...channel) ports.NotificationResult {
	results := make([]ports.ChannelResult, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch channel) {
			defer wg.Done()
			results[i] = Run(ctx, ch.name, ch.send)
		}(i, ch)
	}
	wg.Wait()
	return ports.NotificationResult{Channels: results}
}

// Run executes one channel send and converts its outcome into a result.
func Run(ctx context.Context, name string, send func(context.Context) (string, error)) ports.ChannelResult {
	id, err := send(ctx)
	if err != nil {
		slog.DebugContext(ctx, "notification channel failed", "channel", name, "error", err)
		return ports.ChannelResult{Channel: name, Error: err.Error()}
	}
	return ports.ChannelResult{Channel: name, Success: true, MessageID: id}
}
