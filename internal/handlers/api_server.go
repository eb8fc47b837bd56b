// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/vgmguess/internal/gateway"
	"github.com/jason-s-yu/vgmguess/internal/middleware"
	"github.com/sirupsen/logrus"
)

// RouterOptions carries the transport settings for NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// Limiter, when set, throttles the room API per client.
	Limiter *middleware.RateLimiter
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Leave it off unless a proxy in front overwrites those headers.
	TrustProxy bool
}

// NewRouter mounts the room API and the health check.
func NewRouter(gw *gateway.Gateway, logger logrus.FieldLogger, opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.LogMiddleware(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/healthz"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	api := &roomAPI{gw: gw, log: logger}
	r.Route("/api/room", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Handler)
		}
		r.Post("/", api.create)
		r.Put("/", api.join)
		r.Get("/", api.poll)
		r.Patch("/", api.action)
	})
	return r
}
