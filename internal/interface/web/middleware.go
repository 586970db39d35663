package web

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// setupMiddleware wires panic recovery and, when enabled, Sentry error
// reporting into the engine.
func setupMiddleware(engine *gin.Engine, sentryEnabled bool) {
	engine.Use(gin.Recovery())

	if sentryEnabled {
		engine.Use(sentrygin.New(sentrygin.Options{
			Repanic:         true,
			WaitForDelivery: false,
			Timeout:         5 * time.Second,
		}))
		log.Info("Sentry error monitoring enabled")
	}
}
