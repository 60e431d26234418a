package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepnest/mocktest-backend/internal/response"
	"github.com/prepnest/mocktest-backend/internal/service"
)

// ContextKeySessionID is the Gin context key for the authenticated session id.
const ContextKeySessionID = "session_id"

// RequireSessionToken validates the session token and checks that it was
// minted for the session named in the :id path parameter. A token from one
// session cannot read or mutate another.
func RequireSessionToken(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := extractSessionID(c, tokens)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		if pathID := c.Param("id"); pathID != "" {
			target, err := uuid.Parse(pathID)
			if err != nil {
				response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
				return
			}
			if target != sessionID {
				response.AbortFail(c, http.StatusForbidden, response.ErrTokenMismatch)
				return
			}
		}

		c.Set(ContextKeySessionID, sessionID)
		c.Next()
	}
}

// GetSessionID retrieves the authenticated session id from the Gin context.
func GetSessionID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(ContextKeySessionID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

func extractSessionID(c *gin.Context, tokens *service.TokenService) (uuid.UUID, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	// Fallback for WebSocket upgrades, which cannot send headers.
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	if tokenStr == "" {
		return uuid.Nil, fmt.Errorf("authorization header or token query required")
	}

	return tokens.Validate(tokenStr)
}
