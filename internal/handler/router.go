package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_gateway/internal/metrics"
	"github.com/GTDGit/gtd_gateway/internal/middleware"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	Health   *HealthHandler
	Gateway  *GatewayHandler
	Token    *TokenHandler
	Internal *InternalHandler
}

// Middlewares holds the authentication middlewares the routes depend on.
type Middlewares struct {
	JWT  *middleware.JWTMiddleware
	Auth *middleware.AuthMiddleware
}

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, h *Handlers, mw *Middlewares) {
	// Health check and metrics (no auth)
	router.GET("/health", h.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Management API, scoped to the organization in the portal JWT
	v1 := router.Group("/api/v1")
	v1.Use(mw.JWT.Handle())
	{
		gateways := v1.Group("/gateways")
		gateways.POST("", h.Gateway.RegisterGateway)
		gateways.GET("", h.Gateway.ListGateways)
		gateways.GET("/:gatewayId", h.Gateway.GetGateway)
		gateways.PUT("/:gatewayId", h.Gateway.UpdateGateway)
		gateways.DELETE("/:gatewayId", h.Gateway.DeleteGateway)

		gateways.POST("/:gatewayId/tokens", h.Token.RotateToken)
		gateways.GET("/:gatewayId/tokens", h.Token.ListTokens)
		gateways.DELETE("/:gatewayId/tokens/:tokenId", h.Token.RevokeToken)

		v1.GET("/status/gateways", h.Gateway.GetGatewayStatus)
	}

	// Internal API
	internal := router.Group("/api/internal/v1/gateways")
	{
		internal.POST("/verify", mw.Auth.Gateway(), h.Internal.VerifyGateway)
		internal.PUT("/:gatewayId/status", mw.Auth.Internal(), h.Internal.SetGatewayActive)
	}
}
