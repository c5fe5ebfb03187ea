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
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/seatpass/internal/adapters/http"
	"github.com/samirrijal/seatpass/internal/adapters/memory"
	natsadapter "github.com/samirrijal/seatpass/internal/adapters/nats"
	"github.com/samirrijal/seatpass/internal/adapters/notify"
	"github.com/samirrijal/seatpass/internal/adapters/postgres"
	"github.com/samirrijal/seatpass/internal/adapters/valkey"
	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/core/usecases"
	"github.com/samirrijal/seatpass/internal/pkg/config"
	"github.com/samirrijal/seatpass/internal/pkg/logging"
	"github.com/samirrijal/seatpass/internal/pkg/telemetry"
	"github.com/samirrijal/seatpass/internal/workflows"
)

type repos struct {
	trips    ports.TripRepository
	bookings ports.BookingRepository
	vehicles ports.VehicleRepository
	drivers  ports.DriverRepository
}

func main() {
	cfg, err := config.Load("seatpass-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	loc, _ := cfg.Booking.Location() // validated by config.Load

	// Store
	var (
		r  repos
		db *postgres.DB
	)
	switch cfg.Database.Driver {
	case "memory":
		store := memory.New()
		r = repos{
			trips:    memory.NewTripRepo(store),
			bookings: memory.NewBookingRepo(store),
			vehicles: memory.NewVehicleRepo(store),
			drivers:  memory.NewDriverRepo(store),
		}
		slog.Warn("using in-memory store, data is lost on restart")
	default:
		db, err = postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go db.ReportPoolStats(ctx, 15*time.Second)
		r = repos{
			trips:    postgres.NewTripRepo(db),
			bookings: postgres.NewBookingRepo(db),
			vehicles: postgres.NewVehicleRepo(db),
			drivers:  postgres.NewDriverRepo(db),
		}
	}

	// Cache
	var cache *valkey.Cache
	if cfg.Valkey.Addr != "" {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Broadcasts: with NATS every instance publishes to the bus and relays
	// the bus into its own hub; without it the hub is fed directly.
	hub := http.NewHub()
	var (
		broadcaster ports.Broadcaster = hub
		bus         *natsadapter.Publisher
	)
	if cfg.NATS.URL != "" {
		bus, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, broadcasting in process", "error", err)
			bus = nil
		} else {
			defer bus.Close()
			broadcaster = bus

			sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
			if err != nil {
				log.Fatalf("nats subscriber: %v", err)
			}
			defer sub.Close()
			if err := sub.Relay(ctx, hub); err != nil {
				log.Fatalf("nats relay: %v", err)
			}
		}
	}

	// Notifications
	var notifier ports.NotificationGateway
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			log.Fatalf("temporal client: %v", err)
		}
		defer tc.Close()
		notifier = workflows.NewDispatcher(tc, cfg.Temporal.TaskQueue)
	} else {
		notifier = notify.NewGateway(notify.ChannelConfigs(cfg.Notify))
	}

	// Use cases
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	bookingSvc := usecases.NewBookingService(r.trips, r.bookings, broadcaster, notifier, cacheSvc)
	bookingSvc.SetCommitAttempts(cfg.Booking.MaxCommitAttempts)
	tripSvc := usecases.NewTripService(r.trips, r.vehicles, r.drivers, broadcaster, cacheSvc)
	tripSvc.SetCommitAttempts(cfg.Booking.MaxCommitAttempts)

	deps := &http.Dependencies{
		Bookings:  bookingSvc,
		Trips:     tripSvc,
		Dashboard: usecases.NewDashboardService(r.trips, r.bookings, cacheSvc, loc),
		Vehicles: usecases.NewVehicleService(r.vehicles, domain.Route{
			From: cfg.Booking.RouteFrom,
			To:   cfg.Booking.RouteTo,
		}),
		Drivers:   usecases.NewDriverService(r.drivers, r.vehicles),
		Hub:       hub,
		JWTSecret: cfg.Auth.JWTSecret,
	}
	if db != nil {
		deps.DB = db
	}
	if bus != nil {
		deps.Bus = bus
	}
	if cache != nil {
		deps.Cache = cache
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Warn("auth.jwt_secret is empty, admin endpoints are unauthenticated")
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "SeatPass API",
	})

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", cfg.Database.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// notifications already dispatched finish before the process exits
	bookingSvc.Drain()
	slog.Info("server stopped")
}
