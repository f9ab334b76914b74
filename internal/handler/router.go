package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/middleware"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// Handlers groups every endpoint the router mounts. Chat is nil when no
// model provider is configured, which leaves /chats unmounted.
type Handlers struct {
	Health        *HealthHandler
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Feedback      *FeedbackHandler
	Billing       *BillingHandler
	Chat          *ChatHandler
}

// RouterConfig controls the cross-cutting middleware of the API.
type RouterConfig struct {
	AuthEnabled       bool
	JWTSecret         string
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the HTTP router. Health, readiness and metrics are
// public; everything under /api/v1 goes through auth and rate limiting.
func NewRouter(h Handlers, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		admin := func(r chi.Router) {
			if cfg.AuthEnabled {
				r.Use(middleware.RequireScope(middleware.ScopeAdmin))
			}
		}

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.Conversations.List)
			r.Post("/", h.Conversations.Create)
			r.Post("/messages", h.Messages.Post)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Messages.List)
				r.Put("/", h.Conversations.Update)
				r.Delete("/", h.Conversations.Delete)
				r.Get("/info", h.Conversations.Info)
				r.Get("/context", h.Messages.Context)
			})
		})

		if h.Chat != nil {
			r.Post("/chats", h.Chat.Complete)
		}

		r.Route("/messages/{message_id}", func(r chi.Router) {
			r.Post("/feedback", h.Feedback.Post)
			r.Post("/rating", h.Feedback.Rate)
		})

		r.Group(func(r chi.Router) {
			admin(r)
			r.Get("/feedbacks", h.Feedback.List)
			r.Get("/feedbacks/summary", h.Feedback.Summary)
			r.Get("/billing", h.Billing.Query)
		})

		r.Get("/billing/users/{owner_id}/monthly", h.Billing.Monthly)
	})

	return r
}
