package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/btnalit/clash-cfg-edit/internal/config"
	v1 "github.com/btnalit/clash-cfg-edit/internal/http/handlers/v1"
	"github.com/btnalit/clash-cfg-edit/internal/http/middleware"
	"github.com/btnalit/clash-cfg-edit/internal/http/validator"
	"github.com/btnalit/clash-cfg-edit/internal/logger"
	"github.com/btnalit/clash-cfg-edit/internal/mihomo"
	"github.com/btnalit/clash-cfg-edit/internal/session"
	"github.com/btnalit/clash-cfg-edit/internal/storage"
)

type Server struct {
	e        *echo.Echo
	l        *logger.Logger
	config   *config.Config
	sessions *session.Manager
	store    *storage.Store
	mc       *mihomo.Client
}

// Run defines the required HTTP routes and starts the HTTP Server.
func (s *Server) Run() {
	s.e.Use(middleware.Logger(s.l))
	s.e.Use(middleware.General())
	s.e.Use(echoMiddleware.Recover())
	s.e.Use(echoMiddleware.BodyLimit("5M"))

	cors := echoMiddleware.DefaultCORSConfig
	if len(s.config.HttpServer.AllowedOrigins) > 0 {
		cors.AllowOrigins = s.config.HttpServer.AllowedOrigins
	}
	s.e.Use(echoMiddleware.CORSWithConfig(cors))

	s.e.Static("/", s.config.WebDir)

	g1 := s.e.Group("/api")
	g1.GET("/auth/status", v1.AuthStatus(s.config))
	g1.POST("/auth/login", v1.Login(s.config, s.sessions))

	g2 := s.e.Group("/api")
	g2.Use(middleware.Authorize(s.sessions, s.config.Auth.Enabled))

	g2.GET("/auth/verify", v1.AuthVerify())
	g2.POST("/auth/logout", v1.Logout(s.sessions))

	g2.POST("/mihomo/connect", v1.MihomoConnect(s.mc))
	g2.GET("/mihomo/config", v1.MihomoConfigShow(s.mc))
	g2.PATCH("/mihomo/config", v1.MihomoConfigUpdate(s.mc))
	g2.GET("/mihomo/proxies", v1.MihomoProxiesIndex(s.mc))
	g2.PUT("/mihomo/reload", v1.MihomoReload(s.mc))

	g2.POST("/ftp/connect", v1.FtpConnect(s.l))
	g2.POST("/ftp/read", v1.FtpRead(s.l))
	g2.POST("/ftp/save", v1.FtpSave(s.l))

	g2.GET("/files/list", v1.FilesIndex(s.store))
	g2.POST("/files/upload", v1.FilesUpload(s.store))
	g2.GET("/files/read/:filename", v1.FilesShow(s.store))
	g2.POST("/files/save", v1.FilesSave(s.store))
	g2.POST("/files/save-local", v1.FilesSaveLocal(s.store))
	g2.DELETE("/files/:filename", v1.FilesDelete(s.store))

	g2.POST("/config/parse", v1.ConfigParse())
	g2.POST("/config/validate", v1.ConfigValidate())

	go func() {
		address := fmt.Sprintf("%s:%d", s.config.HttpServer.Host, s.config.HttpServer.Port)
		if err := s.e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Fatal(
				"http server:  cannot start",
				zap.String("address", address),
				zap.Error(errors.WithStack(err)),
			)
		}
	}()
}

// Close closes the HTTP Server.
func (s *Server) Close() {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.e.Shutdown(c); err != nil {
		s.l.Error("http server:  cannot close", zap.Error(errors.WithStack(err)))
	} else {
		s.l.Info("http server:  closed successfully")
	}
}

// New creates a new instance of HTTP Server.
func New(
	config *config.Config,
	logger *logger.Logger,
	sessions *session.Manager,
	store *storage.Store,
	mc *mihomo.Client,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	return &Server{
		e:        e,
		l:        logger,
		config:   config,
		sessions: sessions,
		store:    store,
		mc:       mc,
	}
}
