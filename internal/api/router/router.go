package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightsmile-clinic/claims-platform/internal/http/handlers"
	httpmiddleware "github.com/brightsmile-clinic/claims-platform/internal/http/middleware"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ClaimsHandler      *handlers.ClaimsHandler
	AdminReports       *handlers.AdminReportsHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// SubmitRatePerSecond limits claim submissions per caller IP; 0
	// disables the limiter.
	SubmitRatePerSecond float64
	SubmitBurst         int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.ClaimsHandler.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Front desk API
	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/copayment/calculate", cfg.ClaimsHandler.CalculateCopayment)
		api.Post("/members/verify", cfg.ClaimsHandler.VerifyMember)
		api.Get("/claims/authorizations/{submissionID}", cfg.ClaimsHandler.PollAuthorization)
		api.Get("/patients/{patientID}/claims", cfg.ClaimsHandler.ListPatientClaims)

		if cfg.SubmitRatePerSecond > 0 {
			api.With(httpmiddleware.RateLimit(cfg.SubmitRatePerSecond, cfg.SubmitBurst)).
				Post("/claims", cfg.ClaimsHandler.SubmitClaim)
		} else {
			api.Post("/claims", cfg.ClaimsHandler.SubmitClaim)
		}
	})

	// Back office reports (protected by JWT)
	if cfg.AdminAuthSecret != "" && cfg.AdminReports != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/reports/claims", cfg.AdminReports.ClaimsSummary)
			admin.Get("/reports/failures", cfg.AdminReports.FailedSubmissions)
		})
	}

	return r
}
