// README: API server lifecycle; serves the router until the context ends, then drains.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nest/internal/logger"
)

// ShutdownGrace bounds how long in-flight requests may finish.
const ShutdownGrace = 15 * time.Second

type Server struct {
	srv *http.Server
	log logger.Logger
}

func NewServer(addr string, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run blocks until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", map[string]interface{}{"addr": s.srv.Addr})
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	s.log.Info("http server shutting down", nil)
	return s.srv.Shutdown(shutdownCtx)
}
