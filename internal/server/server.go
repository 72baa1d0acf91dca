// Package server wires handlers, middleware and stores into the HTTP router.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/admission"
	"github.com/qrcourses/backend/internal/attendees"
	"github.com/qrcourses/backend/internal/auth"
	"github.com/qrcourses/backend/internal/courses"
	"github.com/qrcourses/backend/internal/exports"
	"github.com/qrcourses/backend/internal/memstore"
	"github.com/qrcourses/backend/internal/middleware"
	"github.com/qrcourses/backend/internal/qr"
	"github.com/qrcourses/backend/internal/realtime"
	"github.com/qrcourses/backend/pkg/response"
)

// Stores groups the persistence backends.
type Stores struct {
	Courses   courses.Store
	Attendees attendees.Store
	Admission admission.Store
	Admins    auth.Store
	Exports   exports.Store
}

// MemoryStores backs every store with one in-process memstore.
func MemoryStores(s *memstore.Store) Stores {
	return Stores{
		Courses:   s.Courses(),
		Attendees: s.Attendees(),
		Admission: s,
		Admins:    s.Admins(),
		Exports:   s.Exports(),
	}
}

// PostgresStores backs every store with PostgreSQL.
func PostgresStores(pool *pgxpool.Pool) Stores {
	attendeeRepo := attendees.NewRepository(pool)
	return Stores{
		Courses:   courses.NewRepository(pool),
		Attendees: attendeeRepo,
		Admission: attendeeRepo,
		Admins:    auth.NewRepository(pool),
		Exports:   exports.NewRepository(pool),
	}
}

// Deps are the collaborators of the router. Limiter, Queue and Archive are
// optional; leave them nil (untyped) to disable rate limiting and archived exports.
type Deps struct {
	Stores   Stores
	JWT      *auth.JWTService
	Hub      *realtime.Hub
	QR       *qr.Issuer
	Registry *prometheus.Registry
	Logger   *zap.Logger

	Limiter    middleware.Limiter
	RateLimit  int
	RateWindow time.Duration

	Queue   exports.Enqueuer
	Archive exports.Presigner

	CORSAllowedOrigins string
}

// NewRouter builds the gin engine with every route.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := d.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	hub := d.Hub
	if hub == nil {
		hub = realtime.NewHub(logger, nil, nil)
	}

	controller := admission.NewController(d.Stores.Admission,
		admission.WithMetrics(admission.NewMetrics(registry)),
		admission.WithLogger(logger))

	authHandler := auth.NewHandler(d.Stores.Admins, d.JWT, logger)
	courseHandler := courses.NewHandler(d.Stores.Courses, d.Stores.Attendees, hub, logger)
	attendeeHandler := attendees.NewHandler(controller, d.Stores.Attendees, d.Stores.Courses, hub, logger)
	qrHandler := qr.NewHandler(d.QR, d.Stores.Courses, logger)
	exportHandler := exports.NewHandler(d.Stores.Exports, d.Stores.Courses, d.Stores.Attendees, d.Queue, d.Archive, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, d.Stores.Courses, d.JWT.AdminIDFromToken, logger))

	// Public: self-registration from the course QR code
	public := router.Group("/api")
	{
		public.POST("/auth/login", authHandler.Login)
		public.POST("/attendees",
			middleware.RateLimit(d.Limiter, "register", d.RateLimit, d.RateWindow, logger),
			attendeeHandler.Register)
		public.GET("/courses/:id/public", courseHandler.Public)
	}

	// Admin API (JWT required)
	api := router.Group("/api")
	api.Use(middleware.JWT(d.JWT))
	{
		api.GET("/auth/me", authHandler.Me)
		api.GET("/stats", courseHandler.Stats)

		api.GET("/courses", courseHandler.List)
		api.POST("/courses", courseHandler.Create)
		api.GET("/courses/:id", courseHandler.Get)
		api.PUT("/courses/:id", courseHandler.Update)
		api.DELETE("/courses/:id", courseHandler.Delete)

		api.POST("/courses/:id/qr", qrHandler.Generate)
		api.GET("/courses/:id/qr.png", qrHandler.Image)

		api.GET("/courses/:id/attendees", attendeeHandler.ListByCourse)
		api.POST("/courses/:id/attendees", attendeeHandler.CreateManual)
		api.GET("/courses/:id/attendees/export", exportHandler.Download)
		api.POST("/courses/:id/exports", exportHandler.Request)
		api.GET("/exports/:id", exportHandler.Get)

		api.GET("/attendees/:id", attendeeHandler.Get)
		api.PUT("/attendees/:id", attendeeHandler.Update)
		api.DELETE("/attendees/:id", attendeeHandler.Delete)
	}

	return router
}
