package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/contacts-auth/auth"
	"github.com/jrsteele09/contacts-auth/internal/config"
)

// Notifier delivers email verification and password reset tokens. Rendering and
// sending the mail belongs to the implementation.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// logNotifier only logs that a message would have been sent.
type logNotifier struct{}

func (logNotifier) SendVerification(_ context.Context, email, _ string) error {
	log.Info().Str("email", email).Msg("verification email queued")
	return nil
}

func (logNotifier) SendPasswordReset(_ context.Context, email, _ string) error {
	log.Info().Str("email", email).Msg("password reset email queued")
	return nil
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	notifier Notifier
}

type ServerOption func(*Server)

// WithNotifier replaces the default logging notifier.
func WithNotifier(n Notifier) ServerOption {
	return func(s *Server) {
		s.notifier = n
	}
}

func New(config config.Config, authService *auth.Service, options ...ServerOption) (*Server, error) {
	if config == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		auth:     authService,
		notifier: logNotifier{},
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", colourMethod(method)).Msg(path)
	}
}
