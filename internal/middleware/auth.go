package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleGuest is granted to demo sessions
const RoleGuest = "guest"

// DemoModeHeader lets the browser extension skip the token exchange
const DemoModeHeader = "X-Demo-Mode"

// Claims defines the structure of the JWT claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies demo session tokens
type Auth struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewAuth creates the token authority. An empty secret is replaced by a random
// one, so tokens do not survive a restart.
func NewAuth(secret string, ttl time.Duration, logger *zap.Logger) *Auth {
	if secret == "" {
		logger.Warn("JWT secret not configured, using a per-process random secret")
		secret = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Auth{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// IssueDemoToken signs a guest token and returns it with its expiry
func (a *Auth) IssueDemoToken() (string, time.Time, error) {
	now := a.now()
	expirationTime := now.Add(a.ttl)

	claims := &Claims{
		Role: RoleGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "demo-" + uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, expirationTime, nil
}

// Middleware admits requests carrying "X-Demo-Mode: true" or a valid Bearer
// token and sets "role" in the context.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(DemoModeHeader) == "true" {
			c.Set("role", RoleGuest)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			// Ensure the token's signing method is what we expect
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})

		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				return
			}
			a.logger.Debug("Invalid JWT token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("role", claims.Role)
		c.Next()
	}
}
