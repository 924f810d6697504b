package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/dukerupert/webinarhub/internal/auth"
	"github.com/dukerupert/webinarhub/internal/handler"
	"github.com/dukerupert/webinarhub/internal/middleware"
	ws "github.com/dukerupert/webinarhub/internal/websocket"
)

// Deps are the collaborators the HTTP layer is built from. OAuth and
// Confirmations may be nil, which disables Google login and confirmation
// emails respectively.
type Deps struct {
	Validator     middleware.SessionValidator
	Credentials   *auth.Credentials
	Issuer        *auth.Issuer
	Sessions      handler.SessionDeactivator
	Ledger        handler.RegistrationLedger
	Webinars      handler.WebinarReader
	Categories    handler.CategoryLister
	OAuth         handler.OAuthProvider
	Confirmations handler.ConfirmationSender
	Ping          func(context.Context) error

	RateLimit         float64
	SecureCookies     bool
	AllowedOrigins    []string
	TrustProxyHeaders bool
}

type Server struct {
	hub            *ws.Hub
	validator      middleware.SessionValidator
	sessionH       *handler.SessionHandler
	authH          *handler.AuthHandler
	oauthH         *handler.OAuthHandler
	registrationH  *handler.RegistrationHandler
	webinarH       *handler.WebinarHandler
	ping           func(context.Context) error
	rateLimiter    *middleware.RateLimiter
	clientIP       func(*http.Request) string
	allowedOrigins []string
	logger         *slog.Logger
}

func New(d Deps, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	var oauthH *handler.OAuthHandler
	if d.OAuth != nil {
		oauthH = handler.NewOAuthHandler(d.OAuth, d.Credentials, d.Issuer, d.SecureCookies, logger)
	}

	registrationH := handler.NewRegistrationHandler(d.Ledger, hub, logger)
	if d.Confirmations != nil {
		registrationH.SendConfirmations(d.Confirmations, d.Webinars)
	}

	burst := int(d.RateLimit * 2)
	if burst < 1 {
		burst = 1
	}

	return &Server{
		hub:            hub,
		validator:      d.Validator,
		sessionH:       handler.NewSessionHandler(d.Validator, logger),
		authH:          handler.NewAuthHandler(d.Credentials, d.Issuer, d.Sessions, d.SecureCookies, logger),
		oauthH:         oauthH,
		registrationH:  registrationH,
		webinarH:       handler.NewWebinarHandler(d.Webinars, d.Categories, d.Ledger, logger),
		ping:           d.Ping,
		rateLimiter:    middleware.NewRateLimiter(rate.Limit(d.RateLimit), burst),
		clientIP:       middleware.ClientIP(d.TrustProxyHeaders),
		allowedOrigins: d.AllowedOrigins,
		logger:         logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	rateLimited := middleware.RateLimit(s.rateLimiter, s.clientIP)
	requireSession := middleware.RequireSession(s.validator, s.logger.With("component", "auth"))

	// Session and account routes
	mux.HandleFunc("POST /api/session/validate", s.sessionH.Validate)
	mux.Handle("POST /api/auth/signup", rateLimited(http.HandlerFunc(s.authH.Signup)))
	mux.Handle("POST /api/auth/login", rateLimited(http.HandlerFunc(s.authH.Login)))
	mux.Handle("POST /api/auth/logout", requireSession(http.HandlerFunc(s.authH.Logout)))

	if s.oauthH != nil {
		mux.Handle("GET /auth/google/login", rateLimited(http.HandlerFunc(s.oauthH.Login)))
		mux.Handle("GET /auth/google/callback", rateLimited(http.HandlerFunc(s.oauthH.Callback)))
	}

	// Registration routes
	mux.Handle("POST /api/registrations", requireSession(http.HandlerFunc(s.registrationH.Register)))
	mux.Handle("DELETE /api/registrations", requireSession(http.HandlerFunc(s.registrationH.Unregister)))
	mux.Handle("GET /api/registrations/status", requireSession(http.HandlerFunc(s.registrationH.Status)))
	mux.Handle("GET /api/me/registrations", requireSession(http.HandlerFunc(s.registrationH.Mine)))

	// Catalogue
	mux.HandleFunc("GET /api/webinars", s.webinarH.List)
	mux.HandleFunc("GET /api/webinars/{id}", s.webinarH.Get)
	mux.HandleFunc("GET /api/categories", s.webinarH.Categories)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger.With("component", "websocket")))
	mux.HandleFunc("GET /health", handler.Health(s.ping, s.logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}
