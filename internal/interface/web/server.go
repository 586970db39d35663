package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/swaplink-labs/swaplink/internal/core/application"
	"github.com/swaplink-labs/swaplink/internal/core/ports"
	"github.com/swaplink-labs/swaplink/internal/interface/web/handlers"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type service struct {
	*gin.Engine
	server *http.Server
}

func NewService(
	port uint32,
	appSvc *application.Service,
	sessions ports.SessionManager,
	sentryEnabled bool,
) *service {
	router := gin.New()
	setupMiddleware(router, sentryEnabled)

	h := handlers.NewHandler(appSvc, sessions)
	router.POST("/api/v1/command", h.Command)
	router.GET("/healthz", h.Healthz)

	return &service{
		Engine: router,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		},
	}
}

func (s *service) Start() {
	go func() {
		log.Infof("web service listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("web service crashed")
		}
	}()
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// nolint:errcheck
	s.server.Shutdown(ctx)
	log.Info("web service stopped")
}
