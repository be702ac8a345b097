package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_gateway/internal/middleware"
	"github.com/GTDGit/gtd_gateway/internal/service"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

const rotationMessage = "New token generated successfully. Old token remains active until revoked."

// TokenHandler handles gateway token HTTP endpoints.
type TokenHandler struct {
	tokenService *service.TokenService
}

// NewTokenHandler constructs a TokenHandler.
func NewTokenHandler(tokenService *service.TokenService) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

// RotateTokenResponse carries the new plaintext token, shown once.
type RotateTokenResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	Message   string    `json:"message"`
}

// RotateToken handles POST /api/v1/gateways/:gatewayId/tokens
func (h *TokenHandler) RotateToken(c *gin.Context) {
	gatewayID, ok := gatewayIDParam(c)
	if !ok {
		return
	}

	issued, err := h.tokenService.Rotate(c.Request.Context(), gatewayID, middleware.GetOrganizationID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RotateTokenResponse{
		ID:        issued.ID,
		Token:     issued.Token,
		CreatedAt: issued.CreatedAt,
		Message:   rotationMessage,
	})
}

// ListTokens handles GET /api/v1/gateways/:gatewayId/tokens
func (h *TokenHandler) ListTokens(c *gin.Context) {
	gatewayID, ok := gatewayIDParam(c)
	if !ok {
		return
	}

	tokens, err := h.tokenService.ListTokens(c.Request.Context(), gatewayID, middleware.GetOrganizationID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewListResponse(tokens, len(tokens), 0, len(tokens)))
}

// RevokeToken handles DELETE /api/v1/gateways/:gatewayId/tokens/:tokenId
func (h *TokenHandler) RevokeToken(c *gin.Context) {
	gatewayID, ok := gatewayIDParam(c)
	if !ok {
		return
	}

	token, err := h.tokenService.Revoke(c.Request.Context(), gatewayID, c.Param("tokenId"), middleware.GetOrganizationID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}
