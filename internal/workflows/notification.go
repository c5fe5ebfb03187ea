package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/seatpass/internal/adapters/notify"
	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

// DefaultTaskQueue is used when the configuration leaves it empty.
const DefaultTaskQueue = "seatpass-notifications"

// Notification kinds.
const (
	KindConfirmation = "confirmation"
	KindRejection    = "rejection"
)

// NotificationInput is the input for the notification workflow.
type NotificationInput struct {
	Kind    string
	Booking domain.Booking
	Trip    domain.Trip
	Reason  string
}

func (in NotificationInput) view() notify.TicketView {
	v := notify.NewTicketView(in.Booking, in.Trip)
	v.Reason = in.Reason
	return v
}

// BookingNotificationWorkflow sends the email and WhatsApp messages for a
// booking decision in parallel. A failing channel never affects the other;
// the workflow itself only fails on cancellation.
func BookingNotificationWorkflow(ctx workflow.Context, in NotificationInput) (ports.NotificationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting notification workflow", "booking", in.Booking.ID, "kind", in.Kind)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"NotConfigured"},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *NotificationActivities
	channels := []struct {
		name string
		fut  workflow.Future
	}{
		{notify.ChannelEmail, workflow.ExecuteActivity(ctx, a.SendEmail, in)},
		{notify.ChannelWhatsApp, workflow.ExecuteActivity(ctx, a.SendWhatsApp, in)},
	}

	var res ports.NotificationResult
	for _, ch := range channels {
		var id string
		if err := ch.fut.Get(ctx, &id); err != nil {
			logger.Warn("notification channel failed", "channel", ch.name, "error", err)
			res.Channels = append(res.Channels, ports.ChannelResult{Channel: ch.name, Error: rootMessage(err)})
			continue
		}
		res.Channels = append(res.Channels, ports.ChannelResult{Channel: ch.name, Success: true, MessageID: id})
	}
	return res, nil
}

// rootMessage strips the activity error envelope.
func rootMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}

// Dispatcher implements ports.NotificationGateway by starting a workflow
// per decision and waiting for its result.
type Dispatcher struct {
	client    client.Client
	taskQueue string
}

// NewDispatcher creates a Dispatcher on the given task queue.
func NewDispatcher(c client.Client, taskQueue string) *Dispatcher {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Dispatcher{client: c, taskQueue: taskQueue}
}

func (d *Dispatcher) SendConfirmation(ctx context.Context, b domain.Booking, t domain.Trip) ports.NotificationResult {
	return d.run(ctx, NotificationInput{Kind: KindConfirmation, Booking: b, Trip: t})
}

func (d *Dispatcher) SendRejection(ctx context.Context, b domain.Booking, reason string) ports.NotificationResult {
	return d.run(ctx, NotificationInput{Kind: KindRejection, Booking: b, Reason: reason})
}

func (d *Dispatcher) run(ctx context.Context, in NotificationInput) ports.NotificationResult {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("booking-%s-%s", in.Kind, in.Booking.ID),
		TaskQueue: d.taskQueue,
	}
	run, err := d.client.ExecuteWorkflow(ctx, opts, BookingNotificationWorkflow, in)
	if err != nil {
		return workflowFailure(err)
	}
	var res ports.NotificationResult
	if err := run.Get(ctx, &res); err != nil {
		return workflowFailure(err)
	}
	return res
}

func workflowFailure(err error) ports.NotificationResult {
	return ports.NotificationResult{Channels: []ports.ChannelResult{{Channel: "workflow", Error: err.Error()}}}
}
