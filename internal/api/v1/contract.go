package v1

import (
	"net/http"

	"github.com/contractflow/contractflow/internal/api/dto"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/service"
	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	contracts service.ContractService
	fsm       service.ContractFSMService
	log       *logger.Logger
}

func NewContractHandler(contracts service.ContractService, fsm service.ContractFSMService, log *logger.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, fsm: fsm, log: log}
}

func (h *ContractHandler) GetContract(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("contract id is required").
			WithHint("Contract ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	ct, err := h.contracts.GetContract(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToContractResponse(ct))
}

func (h *ContractHandler) GetChangeHistory(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("contract id is required").
			WithHint("Contract ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	items, err := h.contracts.GetChangeHistory(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChangeHistoryResponse(id, items))
}

// Replay runs the posted events through the state machine without persisting anything
func (h *ContractHandler) Replay(c *gin.Context) {
	id := c.Param("id")
	var req dto.ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind replay request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	result, err := h.fsm.Replay(c.Request.Context(), id, req.ToEvents(id))
	if err != nil {
		h.log.Errorw("contract replay failed", "contract_id", id, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
