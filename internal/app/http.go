package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/episode-duplication/internal/http"
	httpH "github.com/yungbote/episode-duplication/internal/http/handlers"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Duplication *httpH.DuplicationHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Duplication: httpH.NewDuplicationHandler(log, services.Duplication),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                log,
		ServiceName:        cfg.ServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		HealthHandler:      handlers.Health,
		DuplicationHandler: handlers.Duplication,
	})
}
