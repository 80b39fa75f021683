package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/moodhome/internal/handlers"
	"github.com/benvon/moodhome/internal/middleware"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "moodhome-api"

// routes holds everything the router mounts.
type routes struct {
	logger      *zap.Logger
	tracing     bool
	enableHSTS  bool
	cors        *middleware.CORSReloader
	rateLimit   *middleware.RateLimitReloader
	auth        *middleware.Authenticator
	health      *handlers.HealthChecker
	openAPI     *handlers.OpenAPIHandler
	authH       *handlers.AuthHandler
	checkIns    *handlers.CheckInHandler
	suggestions *handlers.SuggestionHandler
	contacts    *handlers.ContactHandler
	executions  *handlers.ExecutionHandler
	analytics   *handlers.AnalyticsHandler
	streams     *handlers.StreamHandler
}

// newRouter builds the HTTP handler. Middleware registered first runs first.
func newRouter(rt routes) http.Handler {
	r := mux.NewRouter()

	if rt.tracing {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(rt.enableHSTS))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.ErrorHandler(rt.logger))
	r.Use(middleware.Audit(rt.logger))
	r.Use(middleware.Logging(rt.logger))

	rateLimitMW := rt.rateLimit.Middleware()
	timeoutMW := middleware.Timeout(middleware.DefaultRequestTimeout)

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", rt.health.HealthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET") // Legacy endpoint
	r.HandleFunc("/version", versionInfo).Methods("GET")
	rt.openAPI.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	loginRouter := apiRouter.PathPrefix("/auth").Subrouter()
	loginRouter.Use(rateLimitMW, timeoutMW)
	rt.authH.RegisterPublicRoutes(loginRouter)

	protected := func(prefix string, timeout bool) *mux.Router {
		sub := apiRouter.PathPrefix(prefix).Subrouter()
		sub.Use(rt.auth.Middleware, rateLimitMW)
		if timeout {
			sub.Use(timeoutMW)
		}
		return sub
	}

	rt.authH.RegisterRoutes(protected("/auth", true))
	rt.checkIns.RegisterRoutes(protected("/checkins", true))
	rt.suggestions.RegisterRoutes(protected("/suggestions", true))
	rt.contacts.RegisterRoutes(protected("/contacts", true))
	rt.executions.RegisterRoutes(protected("/executions", true))
	rt.analytics.RegisterRoutes(protected("/analytics", true))
	// Streams stay open; http.TimeoutHandler would cut them off and hides http.Flusher.
	rt.streams.RegisterRoutes(protected("/stream", false))

	// Preflights are answered by the CORS layer; this keeps stray OPTIONS off the 405 path.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// CORS wraps the router so preflights are answered before route matching.
	return rt.cors.Middleware()(r)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info
	_, _ = fmt.Fprintf(w, `{"version":"%s","timestamp":"%s"}`, version, time.Now().UTC().Format(time.RFC3339))
}
