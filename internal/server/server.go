// Package server exposes the modspace entities over a JSON REST API.
package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/marshallshelly/modspace/pkg/orm"
)

// APIPrefix is the path prefix of every resource route.
const APIPrefix = "/api/v1"

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

// Server serves the REST API for the registered entities.
type Server struct {
	Router *mux.Router
	EM     *orm.EntityManager

	logger *zap.Logger
	srv    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for failed requests.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAccessLog redirects the access log, os.Stdout by default.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.srv.Handler = handlers.LoggingHandler(w, s.Router)
	}
}

// NewServer creates a server for em listening on addr. Routes are
// registered immediately.
func NewServer(em *orm.EntityManager, addr string, opts ...Option) *Server {
	router := mux.NewRouter()
	s := &Server{
		Router: router,
		EM:     em,
		logger: em.DB().Logger(),
		srv: &http.Server{
			Handler:      handlers.LoggingHandler(os.Stdout, router),
			Addr:         addr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Use(requestID)
	s.routes()
	return s
}

// Handler returns the root handler, access logging included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
