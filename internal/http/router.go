package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/go-phone-auth/internal/auth"
	"github.com/redmonkez12/go-phone-auth/internal/config"
	"github.com/redmonkez12/go-phone-auth/internal/httputil"
	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/metrics"
	"github.com/redmonkez12/go-phone-auth/internal/post"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth           *auth.Handler
	AuthMiddleware *auth.Middleware
	Posts          *post.Handler
	Users          *user.Handler
	Metrics        *metrics.Metrics // nil disables /metrics
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.ClientTypeHeader},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)                          // Security headers on all responses
	r.Use(middleware.Recoverer)                     // Recover from panics
	r.Use(middleware.RequestID)                     // Add request ID
	r.Use(middleware.RealIP)                        // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger, h.Metrics)) // Structured logging and request metrics
	r.Use(middleware.Compress(5))                   // Compress responses

	// Public routes
	r.Get("/health", handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up/email", h.Auth.SignUpEmail)
		r.Post("/sign-in/email", h.Auth.SignInEmail)
		r.Post("/phone/send-otp", h.Auth.SendPhoneOTP)
		r.Post("/phone/verify", h.Auth.VerifyPhone)
		r.Post("/sign-out", h.Auth.SignOut)
		r.With(h.AuthMiddleware.RequireSession).Get("/session", h.Auth.CurrentSession)
	})

	r.Route("/content", func(r chi.Router) {
		r.Get("/", h.Posts.ListPosts)
		r.With(h.AuthMiddleware.RequireSession).Post("/", h.Posts.CreatePost)
	})

	// Admin routes (require an admin session)
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.AuthMiddleware.RequireSession)
		r.Use(h.AuthMiddleware.RequireRole(user.RoleAdmin))
		r.Get("/users", h.Users.ListUsers)
		r.Put("/users/{id}/role", h.Users.SetRole)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
