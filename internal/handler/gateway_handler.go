package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_gateway/internal/middleware"
	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/service"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

// GatewayHandler handles gateway management HTTP endpoints.
type GatewayHandler struct {
	gatewayService *service.GatewayService
	statusService  *service.StatusService
}

// NewGatewayHandler constructs a GatewayHandler.
func NewGatewayHandler(gatewayService *service.GatewayService, statusService *service.StatusService) *GatewayHandler {
	return &GatewayHandler{gatewayService: gatewayService, statusService: statusService}
}

// GatewayResponse is a gateway plus, on registration only, its first token.
type GatewayResponse struct {
	*models.Gateway
	Token *models.IssuedToken `json:"token,omitempty"`
}

// RegisterGateway handles POST /api/v1/gateways
func (h *GatewayHandler) RegisterGateway(c *gin.Context) {
	var req service.RegisterGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	gateway, token, err := h.gatewayService.Register(c.Request.Context(), middleware.GetOrganizationID(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, GatewayResponse{Gateway: gateway, Token: token})
}

// ListGateways handles GET /api/v1/gateways
func (h *GatewayHandler) ListGateways(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	orgID := middleware.GetOrganizationID(c)
	result, err := h.gatewayService.List(c.Request.Context(), &orgID, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewListResponse(result.Items, result.Total, result.Offset, result.Limit))
}

// GetGateway handles GET /api/v1/gateways/:gatewayId
func (h *GatewayHandler) GetGateway(c *gin.Context) {
	gatewayID, ok := gatewayIDParam(c)
	if !ok {
		return
	}

	gateway, err := h.gatewayService.Get(c.Request.Context(), gatewayID, middleware.GetOrganizationID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gateway)
}

// UpdateGateway handles PUT /api/v1/gateways/:gatewayId
func (h *GatewayHandler) UpdateGateway(c *gin.Context) {
	gatewayID, ok := gatewayIDParam(c)
	if !ok {
		return
	}

	var req service.UpdateGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	gateway, err := h.gatewayService.UpdateMetadata(c.Request.Context(), gatewayID, middleware.GetOrganizationID(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gateway)
}

// DeleteGateway handles DELETE /api/v1/gateways/:gatewayId
func (h *GatewayHandler) DeleteGateway(c *gin.Context) {
	gatewayID, ok := gatewayIDParam(c)
	if !ok {
		return
	}

	if err := h.gatewayService.Delete(c.Request.Context(), gatewayID, middleware.GetOrganizationID(c)); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetGatewayStatus handles GET /api/v1/status/gateways
func (h *GatewayHandler) GetGatewayStatus(c *gin.Context) {
	var gatewayID *string
	if id, ok := c.GetQuery("gatewayId"); ok {
		gatewayID = &id
	}

	list, err := h.statusService.GetStatus(c.Request.Context(), middleware.GetOrganizationID(c), gatewayID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewListResponse(list, len(list), 0, len(list)))
}

// gatewayIDParam reads :gatewayId and rejects malformed ids with 400.
func gatewayIDParam(c *gin.Context) (string, bool) {
	id := c.Param("gatewayId")
	if !service.ValidGatewayID(id) {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid gateway ID")
		return "", false
	}
	return id, true
}

func parsePage(c *gin.Context) (service.Page, bool) {
	var page service.Page
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, utils.NewValidationError(name, name+" must be an integer"))
			return page, false
		}
		*dst = v
	}
	return page, true
}
