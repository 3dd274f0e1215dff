package api

import (
	"github.com/contractflow/contractflow/internal/api/cron"
	v1 "github.com/contractflow/contractflow/internal/api/v1"
	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
	"github.com/contractflow/contractflow/internal/pyroscope"
	"github.com/contractflow/contractflow/internal/rest/middleware"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Contract *v1.ContractHandler
	// nil when the process does not run the scheduler
	CronSettlement *cron.SettlementCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, m *metrics.Metrics, pyroscopeSvc *pyroscope.Service) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.SentryTagsMiddleware,
		middleware.PyroscopeMiddleware(pyroscopeSvc),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)
	router.POST("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1Router := router.Group("/v1")
	{
		contracts := v1Router.Group("/contracts")
		contracts.GET("/:id", handlers.Contract.GetContract)
		contracts.GET("/:id/history", handlers.Contract.GetChangeHistory)
		contracts.POST("/:id/replay", handlers.Contract.Replay)

		if handlers.CronSettlement != nil {
			cronGroup := v1Router.Group("/cron")
			cronGroup.POST("/settlements/run", handlers.CronSettlement.RunSettlements)
		}
	}

	logger.Debugw("router configured", "cron_enabled", handlers.CronSettlement != nil)
	return router
}
