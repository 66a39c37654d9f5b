package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reviewdesk/review-engine/internal/config"
	handlers "github.com/reviewdesk/review-engine/internal/handlers/v1"
	"github.com/reviewdesk/review-engine/pkg/metrics"
	"github.com/reviewdesk/review-engine/pkg/middleware"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	handler  *handlers.ServiceHandler
	listener net.Listener
}

// New returns a new instance of the review engine api server.
func New(
	cfg *config.Config,
	handler *handlers.ServiceHandler,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		handler:  handler,
		listener: listener,
	}
}

func (s *Server) Router() (chi.Router, error) {
	router := chi.NewRouter()

	metricMiddleware := metrics.NewHTTPMiddleware("api_server")
	if err := metricMiddleware.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	s.handler.Routes(router)
	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router, err := s.Router()
	if err != nil {
		return err
	}
	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
