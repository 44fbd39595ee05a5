package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sinkapp/sink/internal/middleware"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Logger *slog.Logger

	Root          *RootHandler
	Health        *HealthHandler
	Metrics       *MetricsHandler
	Account       *AccountHandler
	Apartment     *ApartmentHandler
	Calendar      *CalendarHandler
	Chat          *ChatHandler
	Tasks         *TaskHandler
	Notifications *NotificationHandler
	Profiles      *ProfileHandler
	Attachments   *AttachmentHandler

	// ChatSocket upgrades members to the realtime chat feed.
	ChatSocket http.HandlerFunc

	Sessions   middleware.PrincipalResolver
	Apartments middleware.ApartmentFinder

	RateLimit middleware.RateLimitConfig
	Security  middleware.SecurityConfig
	CORS      middleware.CORSConfig
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Security.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.Security.MaxRequestBodySize))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}
	r.Get("/", cfg.Root.Index)

	authCfg := middleware.AuthConfig{
		Logger:   cfg.Logger,
		Resolver: cfg.Sessions,
	}
	requireAuth := middleware.Auth(authCfg)
	requireMember := middleware.RequireApartment(cfg.Apartments, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(cfg.RateLimit))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimitSignIn(cfg.RateLimit)).Post("/signup", cfg.Account.SignUp)
			r.With(middleware.RateLimitSignIn(cfg.RateLimit)).Post("/signin", cfg.Account.SignIn)
			r.With(requireAuth).Post("/signout", cfg.Account.SignOut)
			r.With(requireAuth).Get("/me", cfg.Account.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Put("/account/email", cfg.Account.ChangeEmail)
			r.Delete("/account", cfg.Account.DeleteAccount)

			r.Get("/apartment", cfg.Apartment.Get)
			r.Post("/apartments", cfg.Apartment.Create)
			r.Post("/apartments/{code}/join", cfg.Apartment.Join)

			// Apartment-scoped routes (members only)
			r.Group(func(r chi.Router) {
				r.Use(requireMember)

				r.Post("/apartment/leave", cfg.Apartment.Leave)
				r.Delete("/apartment", cfg.Apartment.Delete)

				r.Get("/apartment/events", cfg.Calendar.List)
				r.Post("/apartment/events", cfg.Calendar.Create)
				r.Delete("/apartment/events/{id}", cfg.Calendar.Delete)

				r.Get("/apartment/messages", cfg.Chat.List)
				r.Post("/apartment/messages", cfg.Chat.Post)
				if cfg.ChatSocket != nil {
					r.Get("/apartment/chat/ws", cfg.ChatSocket)
				}

				r.Get("/apartment/tasks", cfg.Tasks.List)
				r.Post("/apartment/tasks", cfg.Tasks.Create)
				r.Post("/apartment/tasks/{id}/complete", cfg.Tasks.Complete)

				r.Get("/apartment/notifications", cfg.Notifications.List)
				r.Post("/apartment/notifications/read", cfg.Notifications.MarkAllRead)

				r.Get("/apartment/profiles", cfg.Profiles.List)
				r.Get("/apartment/profile", cfg.Profiles.Get)
				r.Put("/apartment/profile", cfg.Profiles.Update)

				r.Post("/apartment/attachments", cfg.Attachments.Upload)
				r.Get("/apartment/attachments/url", cfg.Attachments.DownloadURL)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(cfg.Root.NotFound)
	r.MethodNotAllowed(cfg.Root.MethodNotAllowed)

	return r
}
