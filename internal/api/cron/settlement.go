package cron

import (
	"net/http"
	"time"

	"github.com/contractflow/contractflow/internal/api/dto"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/settlement"
	"github.com/gin-gonic/gin"
)

type SettlementCronHandler struct {
	scheduler *settlement.Scheduler
	logger    *logger.Logger
}

func NewSettlementCronHandler(scheduler *settlement.Scheduler, logger *logger.Logger) *SettlementCronHandler {
	return &SettlementCronHandler{scheduler: scheduler, logger: logger}
}

// RunSettlements starts a scan cycle in the background. A cycle that is
// already running is not interrupted and the request reports started=false.
func (h *SettlementCronHandler) RunSettlements(c *gin.Context) {
	h.logger.Infow("settlement cron triggered", "time", time.Now().UTC().Format(time.RFC3339))

	started := h.scheduler.Trigger(c.Request.Context())
	c.JSON(http.StatusAccepted, dto.TriggerSettlementResponse{
		Started:  started,
		InFlight: h.scheduler.InFlight(),
		Cycles:   h.scheduler.Cycles(),
		Skipped:  h.scheduler.Skipped(),
	})
}
