package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/souvik03-136/emotionclassifier/backend/internal/metrics"
	"github.com/souvik03-136/emotionclassifier/backend/internal/utils"
	"go.uber.org/zap"
)

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	Routes          RouteConfig
}

// Server is the HTTP front of the classifier.
type Server struct {
	echo            *echo.Echo
	logger          *utils.Logger
	addr            string
	shutdownTimeout time.Duration
}

// NewServer wires the handler into a fresh echo instance.
func NewServer(h *Handler, cfg ServerConfig) *Server {
	if h.Logger == nil {
		h.Logger = utils.NewNopLogger()
	}
	if h.Collector == nil {
		h.Collector = metrics.NewCollector()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code >= http.StatusInternalServerError {
			h.Logger.Error("handler error",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	RegisterRoutes(e, h, cfg.Routes)

	return &Server{
		echo:            e,
		logger:          h.Logger,
		addr:            cfg.Addr,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.addr))
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server exited cleanly")
	return nil
}
