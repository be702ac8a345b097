package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/service"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

const (
	gatewayKey = "gateway"

	// APIKeyHeader carries the gateway token on gateway-facing endpoints.
	APIKeyHeader = "api-key"
	// InternalKeyHeader carries the shared secret of internal collaborators.
	InternalKeyHeader = "X-Internal-Key"
)

// AuthMiddleware authenticates gateways by their token and internal
// collaborators by the shared internal key. Failed attempts are rate limited
// per client IP.
type AuthMiddleware struct {
	verifier    *service.VerificationService
	internalKey []byte
	rateLimiter *InvalidAuthRateLimiter
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(verifier *service.VerificationService, internalKey string, rateLimiter *InvalidAuthRateLimiter) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:    verifier,
		internalKey: []byte(internalKey),
		rateLimiter: rateLimiter,
	}
}

// Gateway returns a Gin middleware that requires a valid gateway token in the
// api-key header. Every rejection looks the same to the caller.
func (m *AuthMiddleware) Gateway() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if token == "" {
			m.handleAuthError(c, utils.ErrInvalidToken.Error(), utils.InvalidTokenMessage)
			return
		}

		gateway, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if utils.IsAuthFailure(err) {
				m.handleAuthError(c, utils.ErrInvalidToken.Error(), utils.InvalidTokenMessage)
				return
			}
			utils.RespondError(c, err)
			c.Abort()
			return
		}

		c.Set(gatewayKey, gateway)
		c.Set(organizationKey, gateway.OrganizationID)
		c.Next()
	}
}

// Internal returns a Gin middleware that requires the internal API key.
func (m *AuthMiddleware) Internal() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(InternalKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), m.internalKey) != 1 {
			m.handleAuthError(c, utils.ErrUnauthorized.Error(), "Invalid internal API key")
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) handleAuthError(c *gin.Context, code, message string) {
	// Apply rate limit for invalid auth attempts
	ip := c.ClientIP()
	if !m.rateLimiter.Allow(ip) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}

	utils.Error(c, 401, code, message)
	c.Abort()
}

// GetGateway returns the authenticated gateway from context.
func GetGateway(c *gin.Context) *models.Gateway {
	gateway, _ := c.Get(gatewayKey)
	if gateway == nil {
		return nil
	}
	return gateway.(*models.Gateway)
}
