// Package api assembles the HTTP surface: middleware stack, routes and the
// websocket feed.
package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/api/handlers"
	"github.com/vc-scout/backend/internal/companies"
	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/lists"
	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/internal/middleware/identity"
	"github.com/vc-scout/backend/internal/middleware/ratelimit"
	"github.com/vc-scout/backend/internal/middleware/security"
	"github.com/vc-scout/backend/internal/middleware/validation"
	"github.com/vc-scout/backend/internal/searches"
	"github.com/vc-scout/backend/internal/users"
)

type Config struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	BodyLimit       int
	AllowedOrigins  []string
	Development     bool
	PageSize        int
	EnrichPerMinute int
	// AccessLog enables fiber's request log.
	AccessLog bool
	Logger    *zap.Logger
}

type Services struct {
	Companies   *companies.Service
	Users       *users.Service
	Lists       *lists.Service
	Searches    *searches.Service
	Enrichments *enrichment.Service
	// Health lists the dependencies checked by /ready.
	Health map[string]handlers.Pinger
}

// Server is the fiber app plus the background state its middleware owns.
type Server struct {
	App     *fiber.App
	limiter *ratelimit.RateLimiter
}

func NewServer(cfg Config, svc Services) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + identity.HeaderUserID,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		IsDevelopment:  cfg.Development,
	}))

	app.Get("/metrics", metrics.MetricsHandler())

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.EnrichPerMinute,
		KeyFunc:              identity.UserID,
		Logger:               cfg.Logger,
	})

	healthHandler := handlers.NewHealthHandler(svc.Health)
	userHandler := handlers.NewUserHandler(svc.Users)
	companyHandler := handlers.NewCompanyHandler(svc.Companies, svc.Enrichments, cfg.PageSize)
	listHandler := handlers.NewListHandler(svc.Lists, svc.Enrichments)
	searchHandler := handlers.NewSearchHandler(svc.Searches, svc.Companies, svc.Enrichments, cfg.PageSize)
	enrichmentHandler := handlers.NewEnrichmentHandler(svc.Enrichments)
	wsHandler := handlers.NewWebSocketHandler(svc.Enrichments)

	api := app.Group("/api/v1")
	api.Use(validation.Middleware(validation.Config{Logger: cfg.Logger}))

	api.Get("/health", healthHandler.Health)
	api.Get("/ready", healthHandler.Ready)
	api.Post("/auth/register", userHandler.Register)
	api.Post("/auth/login", userHandler.Login)

	api.Get("/companies", companyHandler.ListCompanies)

	authed := api.Group("", identity.Middleware(identity.Config{
		Users:  svc.Users,
		Logger: cfg.Logger,
	}))

	authed.Get("/directory", companyHandler.Directory)
	authed.Get("/companies/:id", companyHandler.GetCompany)
	authed.Get("/companies/:id/notes", companyHandler.GetNotes)
	authed.Post("/companies/:id/notes", companyHandler.SaveNotes)

	authed.Get("/user/thesis", userHandler.GetThesis)
	authed.Post("/user/thesis", userHandler.SaveThesis)

	authed.Get("/lists", listHandler.GetLists)
	authed.Post("/lists", listHandler.CreateList)
	authed.Get("/lists/:id", listHandler.GetList)
	authed.Put("/lists/:id", listHandler.UpdateList)
	authed.Delete("/lists/:id", listHandler.DeleteList)
	authed.Post("/lists/:id/toggle", listHandler.ToggleCompany)
	authed.Get("/lists/:id/export", listHandler.ExportList)

	authed.Get("/searches", searchHandler.GetSearches)
	authed.Post("/searches", searchHandler.SaveSearch)
	authed.Delete("/searches/:id", searchHandler.DeleteSearch)
	authed.Get("/searches/:id/run", searchHandler.RunSearch)

	authed.Post("/enrich", limiter.Middleware(), enrichmentHandler.Enrich)
	authed.Get("/enrich", enrichmentHandler.ListCached)
	authed.Get("/enrich/:companyId", enrichmentHandler.GetCached)

	authed.Get("/ws/enrichments", wsHandler.Upgrade, websocket.New(wsHandler.HandleConnection))

	return &Server{App: app, limiter: limiter}
}

func (s *Server) Listen(addr string) error {
	return s.App.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return s.App.Shutdown()
}
