package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextServiceKey holds the authenticated caller in the gin context
const ContextServiceKey = "service"

// ServiceClaims identifies the command layer calling the API
type ServiceClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// TokenValidator checks HS256 service tokens
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator returns nil for an empty secret, which disables the check
func NewTokenValidator(secret string) *TokenValidator {
	if secret == "" {
		return nil
	}
	return &TokenValidator{secret: []byte(secret)}
}

// IssueToken signs a token for service valid for ttl
func (v *TokenValidator) IssueToken(service string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ValidateToken parses and verifies a token
func (v *TokenValidator) ValidateToken(tokenString string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*ServiceClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ServiceAuthMiddleware requires a valid Bearer service token. A nil validator
// lets every request through.
func ServiceAuthMiddleware(v *TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			HandleAppError(c, NewUnauthorizedError("Missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			HandleAppError(c, &AppError{
				StatusCode: http.StatusUnauthorized,
				Code:       "INVALID_AUTH_FORMAT",
				Message:    "Invalid authorization format. Use: Bearer <token>",
			})
			return
		}

		claims, err := v.ValidateToken(parts[1])
		if err != nil {
			HandleAppError(c, &AppError{
				StatusCode: http.StatusUnauthorized,
				Code:       "INVALID_TOKEN",
				Message:    "Invalid or expired token",
				Err:        err,
			})
			return
		}

		c.Set(ContextServiceKey, claims.Service)
		c.Next()
	}
}
