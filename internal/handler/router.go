package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/metrics"
	"github.com/weiawesome/wes-io-chat/internal/web"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/response"
)

// NewRouter assembles the gin engine serving the directory API and the
// relay endpoint, plus metrics and the browser client when enabled.
func NewRouter(logger zerolog.Logger, cfg config.ServerConfig, httpHandler *Handler, wsHandler *WSHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)
	if cfg.Metrics {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	if cfg.StaticClient {
		web.RegisterRoutes(r)
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})
	return r
}
