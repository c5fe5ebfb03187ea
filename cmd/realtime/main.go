package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/seatpass/internal/adapters/http"
	natsadapter "github.com/samirrijal/seatpass/internal/adapters/nats"
	"github.com/samirrijal/seatpass/internal/pkg/config"
	"github.com/samirrijal/seatpass/internal/pkg/logging"
	"github.com/samirrijal/seatpass/internal/pkg/metrics"
)

// realtime serves only the websocket feed. It relays every event published
// on the bus by the API instances, so websocket clients can be scaled apart
// from the REST traffic.
func main() {
	cfg, err := config.Load("seatpass-realtime")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)

	if cfg.NATS.URL == "" {
		log.Fatal("nats.url is required for the realtime relay")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := http.NewHub()
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()
	if err := sub.Relay(ctx, hub); err != nil {
		log.Fatalf("nats relay: %v", err)
	}

	app := fiber.New(fiber.Config{AppName: "SeatPass Realtime"})
	app.Use(recover.New())
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())
	app.Get("/v1/health", http.HealthHandler(&http.Dependencies{Hub: hub}))
	app.Use("/ws", http.WebSocketUpgradeMiddleware(cfg.Auth.JWTSecret))
	app.Get("/ws", websocket.New(http.WebSocketHandler(hub)))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("realtime relay starting", "addr", addr, "nats", cfg.NATS.URL)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received signal, shutting down realtime relay", "signal", sig.String(), "clients", hub.Clients())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}
