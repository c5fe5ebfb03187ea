package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/seatpass/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// statusEndpointSunset is when PUT /v1/admin/bookings/:id/status goes away.
var statusEndpointSunset = time.Date(2027, time.April, 1, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited",
				"too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	// Public API. A valid admin token unlocks seat holders on trip reads.
	v1 := app.Group("/v1", OptionalAdminMiddleware(deps.JWTSecret))
	v1.Get("/trips", withTimeout(ListAvailableTripsHandler(deps)))
	v1.Get("/trips/:id", withTimeout(GetTripHandler(deps)))
	v1.Post("/trips/:id/bookings", withTimeout(CreateBookingHandler(deps)))
	v1.Post("/bookings", withTimeout(CreateBookingHandler(deps)))
	v1.Get("/bookings/:id", withTimeout(GetBookingHandler(deps)))
	v1.Post("/bookings/:id/cancel", withTimeout(CancelBookingHandler(deps)))

	// Admin API
	admin := app.Group("/v1/admin",
		AdminAuthMiddleware(deps.JWTSecret),
		DeprecationMiddleware([]DeprecatedRoute{{
			Method:      fiber.MethodPut,
			Path:        "/v1/admin/bookings/:id/status",
			SunsetDate:  statusEndpointSunset,
			Alternative: "/v1/admin/bookings/{id}/accept",
		}}),
	)
	admin.Get("/bookings", withTimeout(ListBookingsHandler(deps)))
	admin.Get("/bookings/:id", withTimeout(GetBookingHandler(deps)))
	admin.Post("/bookings/:id/accept", withTimeout(AcceptBookingHandler(deps)))
	admin.Post("/bookings/:id/reject", withTimeout(RejectBookingHandler(deps)))
	admin.Put("/bookings/:id/status", withTimeout(UpdateBookingStatusHandler(deps)))

	admin.Get("/trips", withTimeout(ListTripsHandler(deps)))
	admin.Post("/trips", withTimeout(CreateTripHandler(deps)))
	admin.Patch("/trips/:id/status", withTimeout(SetTripStatusHandler(deps)))
	admin.Patch("/trips/:id/seats/:seat", withTimeout(SetSeatStatusHandler(deps)))

	admin.Get("/vehicles", withTimeout(ListVehiclesHandler(deps)))
	admin.Post("/vehicles", withTimeout(CreateVehicleHandler(deps)))
	admin.Post("/vehicles/seed", withTimeout(SeedVehiclesHandler(deps)))
	admin.Delete("/vehicles/:id", withTimeout(DeactivateVehicleHandler(deps)))

	admin.Get("/drivers", withTimeout(ListDriversHandler(deps)))
	admin.Post("/drivers", withTimeout(CreateDriverHandler(deps)))
	admin.Put("/drivers/:id", withTimeout(UpdateDriverHandler(deps)))
	admin.Delete("/drivers/:id", withTimeout(DeleteDriverHandler(deps)))

	admin.Get("/dashboard/stats", withTimeout(DashboardStatsHandler(deps)))

	// GraphQL
	app.Post("/graphql", OptionalAdminMiddleware(deps.JWTSecret), GraphQLHandler(deps))

	SetupDocs(app)

	// WebSocket
	if deps.Hub != nil {
		app.Use("/ws", WebSocketUpgradeMiddleware(deps.JWTSecret))
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Hub)))
	}
}
