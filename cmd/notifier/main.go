package main

import (
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/seatpass/internal/adapters/notify"
	"github.com/samirrijal/seatpass/internal/pkg/config"
	"github.com/samirrijal/seatpass/internal/pkg/logging"
	"github.com/samirrijal/seatpass/internal/workflows"
)

func main() {
	cfg, err := config.Load("seatpass-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	taskQueue := cfg.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = workflows.DefaultTaskQueue
	}
	w := worker.New(c, taskQueue, worker.Options{})

	smtp, twilio := notify.ChannelConfigs(cfg.Notify)
	activities := &workflows.NotificationActivities{
		Email:    notify.NewEmailSender(smtp),
		WhatsApp: notify.NewWhatsAppSender(twilio),
	}
	if activities.Email == nil {
		slog.Warn("email channel not configured")
	}
	if activities.WhatsApp == nil {
		slog.Warn("whatsapp channel not configured")
	}

	// Register workflow & activities
	w.RegisterWorkflow(workflows.BookingNotificationWorkflow)
	w.RegisterActivity(activities)

	slog.Info("notification worker started", "task_queue", taskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
