package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/GTDGit/gtd_gateway/internal/utils"
)

const (
	organizationKey = "organization_id"
	subjectKey      = "subject"
)

// Claims are the portal JWT claims. Organization scopes every management call.
type Claims struct {
	Organization string `json:"organization"`
	jwt.RegisteredClaims
}

// JWTMiddleware authenticates management API callers with an HS256 bearer token.
type JWTMiddleware struct {
	secret []byte
	issuer string
}

// NewJWTMiddleware constructs a JWTMiddleware. An empty issuer disables the issuer check.
func NewJWTMiddleware(secret, issuer string) *JWTMiddleware {
	return &JWTMiddleware{secret: []byte(secret), issuer: issuer}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := m.parse(parts[1])
		if err != nil {
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(organizationKey, claims.Organization)
		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}

func (m *JWTMiddleware) parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Organization) == "" {
		return nil, errors.New("missing organization claim")
	}
	return claims, nil
}

// GetOrganizationID returns the organization of the authenticated caller.
func GetOrganizationID(c *gin.Context) string {
	return c.GetString(organizationKey)
}
