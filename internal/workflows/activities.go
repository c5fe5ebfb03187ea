package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/seatpass/internal/adapters/notify"
)

// NotificationActivities holds the channel senders used by the workflow.
// A nil sender fails its activity without retry.
type NotificationActivities struct {
	Email    *notify.EmailSender
	WhatsApp *notify.WhatsAppSender
}

// SendEmail delivers the confirmation or rejection email and returns the
// Message-ID.
func (a *NotificationActivities) SendEmail(ctx context.Context, in NotificationInput) (string, error) {
	v := in.view()
	var (
		id  string
		err error
	)
	switch in.Kind {
	case KindConfirmation:
		id, err = a.Email.Confirmation(ctx, in.Booking.Customer.Email, v)
	default:
		id, err = a.Email.Rejection(ctx, in.Booking.Customer.Email, v)
	}
	if err != nil {
		return "", classify(err)
	}
	activity.GetLogger(ctx).Info("email sent", "booking", in.Booking.ID, "kind", in.Kind)
	return id, nil
}

// SendWhatsApp delivers the WhatsApp text and returns the message SID.
func (a *NotificationActivities) SendWhatsApp(ctx context.Context, in NotificationInput) (string, error) {
	v := in.view()
	body := notify.RejectionText(v)
	if in.Kind == KindConfirmation {
		body = notify.ConfirmationText(v)
	}
	sid, err := a.WhatsApp.Send(ctx, in.Booking.Customer.Phone, body)
	if err != nil {
		return "", classify(err)
	}
	activity.GetLogger(ctx).Info("whatsapp sent", "booking", in.Booking.ID, "kind", in.Kind)
	return sid, nil
}

func classify(err error) error {
	if errors.Is(err, notify.ErrNotConfigured) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "NotConfigured", err)
	}
	return err
}
