package handler

import (
	"community-platform/internal/metrics"
	"community-platform/internal/model/requestresponse"
	"community-platform/internal/security"
	"community-platform/internal/util"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type RouterOptions struct {
	AllowedOrigins []string
	// лимит запросов с одного IP к публичным эндпоинтам аутентификации
	AuthRateLimit   int
	RateLimitWindow time.Duration
}

// Routes : все HTTP маршруты сервиса
type Routes struct {
	Auth     *AuthenticationHandler
	Users    *UserHandler
	Health   *HealthHandler
	Verifier security.AccessTokenVerifier
	Options  RouterOptions
}

// Mount : подключает общие middleware и маршруты к роутеру
func (rt *Routes) Mount(router chi.Router) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(metrics.Instrument)
	router.Use(middleware.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   rt.Options.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler)

	router.Get("/health", rt.Health.Health)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	authenticated := security.JWTMiddleware(rt.Verifier)

	router.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimit())
			r.Post("/login", rt.Auth.Login)
			r.Post("/refresh", rt.Auth.Refresh)
			r.Post("/reset-password", rt.Auth.ResetPassword)
			r.Post("/verify-reset-token", rt.Auth.VerifyResetToken)
		})
		r.Post("/logout", rt.Auth.Logout)
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/change-password", rt.Auth.ChangePassword)
			r.Get("/me", rt.Users.GetCurrentUser)
			r.Head("/me", rt.Users.GetCurrentUser)
		})
	})

	router.Route("/api", func(r chi.Router) {
		r.With(rt.rateLimit()).Post("/register", rt.Users.RegisterUser)
		r.With(authenticated).Put("/users/{id}/block", rt.Users.SetBlocked)
	})
}

func (rt *Routes) rateLimit() func(http.Handler) http.Handler {
	if rt.Options.AuthRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		rt.Options.AuthRateLimit,
		rt.Options.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			util.HandleError(w, http.StatusTooManyRequests, requestresponse.CodeRateLimitExceeded, "слишком много запросов, попробуйте позже")
		}),
	)
}
