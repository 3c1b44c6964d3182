// Package health exposes the liveness endpoint. It answers 200 to any request
// regardless of engine state and is started before the engine so orchestration
// health checks pass during warm-up.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Start runs the liveness server on addr in the background.
func Start(addr string) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	ok := func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	}
	r.GET("/healthz", ok)
	r.NoRoute(ok)

	go func() {
		if err := r.Run(addr); err != nil {
			logrus.WithField("component", "health").Errorf("liveness server stopped: %v", err)
		}
	}()
}
