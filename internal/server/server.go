// Package server exposes the introspection workflow over HTTP.
//
//	POST /api/introspection                   start a job        → 202 {"jobId"}
//	GET  /api/introspection/{jobID}           poll a job         → 200 status | 404
//	GET  /api/connections/{connectionID}/schema  stored baseline → 200 | 404
//	PUT  /api/connections/{connectionID}/schema  accept a schema → 204
//	DELETE /api/connections/{connectionID}/schema  drop baseline → 204
//	GET  /api/connections                     connections with a baseline
//	POST /api/schema/diff                     reconcile two schemas synchronously
//	GET  /healthz
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dataquerypro/dataquery/internal/config"
	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/logger"
)

// Server is the HTTP front end of an introspect.Service.
type Server struct {
	svc     *introspect.Service
	cfg     config.ServerConfig
	version string
	log     *logger.Logger
	router  chi.Router
}

// New builds the router. Nothing listens until Run is called.
func New(svc *introspect.Service, cfg config.ServerConfig, version string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		version: version,
		log:     log.Component("http"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.log))
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/introspection", s.handleSubmit)
		r.Get("/introspection/{jobID}", s.handleStatus)

		r.Get("/connections", s.handleListConnections)
		r.Get("/connections/{connectionID}/schema", s.handleGetBaseline)
		r.Put("/connections/{connectionID}/schema", s.handleAccept)
		r.Delete("/connections/{connectionID}/schema", s.handleForget)

		r.Post("/schema/diff", s.handleDiff)
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
