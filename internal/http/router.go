package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/episode-duplication/internal/http/handlers"
	httpMW "github.com/yungbote/episode-duplication/internal/http/middleware"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins string

	HealthHandler      *httpH.HealthHandler
	DuplicationHandler *httpH.DuplicationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		// Duplications
		if cfg.DuplicationHandler != nil {
			api.POST("/episodes/:id/duplications", cfg.DuplicationHandler.Begin)
			api.GET("/episodes/:id/duplications", cfg.DuplicationHandler.ListForEpisode)
			api.GET("/duplications/:id", cfg.DuplicationHandler.Get)
		}
	}

	return r
}
