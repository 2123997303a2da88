// Package adminapi exposes the admin product management surface over
// HTTP. Handlers stay thin: parsing and status mapping here, all
// lifecycle rules in the product service.
package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/storekit/storekit/config"
	"github.com/storekit/storekit/internal/product"
)

type Server struct {
	cfg     *config.AppConfig
	echo    *echo.Echo
	service *product.Service
	repo    product.Repository
}

func NewServer(cfg *config.AppConfig, service *product.Service, repo product.Repository) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	s := &Server{cfg: cfg, echo: e, service: service, repo: repo}
	s.registerProductRoutes()
	return s
}

// Start runs the HTTP listener until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.L().Info("admin api listening", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo { return s.echo }
