package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_gateway/internal/middleware"
	"github.com/GTDGit/gtd_gateway/internal/service"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

// InternalHandler serves endpoints called by the gateway runtime and the
// connection tracker, not by the portal.
type InternalHandler struct {
	gatewayService *service.GatewayService
}

// NewInternalHandler constructs an InternalHandler.
func NewInternalHandler(gatewayService *service.GatewayService) *InternalHandler {
	return &InternalHandler{gatewayService: gatewayService}
}

// SetActiveRequest is the connection state reported for a gateway.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// VerifyGateway handles POST /api/internal/v1/gateways/verify.
// The api-key header has already been verified by the auth middleware.
func (h *InternalHandler) VerifyGateway(c *gin.Context) {
	gateway := middleware.GetGateway(c)
	if gateway == nil {
		utils.Error(c, http.StatusUnauthorized, utils.ErrInvalidToken.Error(), utils.InvalidTokenMessage)
		return
	}
	c.JSON(http.StatusOK, gateway)
}

// SetGatewayActive handles PUT /api/internal/v1/gateways/:gatewayId/status
func (h *InternalHandler) SetGatewayActive(c *gin.Context) {
	gatewayID, ok := gatewayIDParam(c)
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	if err := h.gatewayService.SetActive(c.Request.Context(), gatewayID, *req.IsActive); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
