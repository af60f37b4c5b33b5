package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/httputil"
	"github.com/jwalitptl/studio-api/pkg/scheduler"
)

const contextTriggerClaims = "trigger_claims"

// TriggerAuth verifies the bearer token the scheduler sends with reminder
// callbacks. The token was minted at registration time and scopes the
// caller to one appointment and kind.
func TriggerAuth(signingSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("missing trigger token"))
			c.Abort()
			return
		}

		claims, err := scheduler.ParseTriggerToken(signingSecret, token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid trigger token"))
			c.Abort()
			return
		}

		c.Set(contextTriggerClaims, claims)
		c.Next()
	}
}

// TriggerClaims returns the verified claims set by TriggerAuth, or nil.
func TriggerClaims(c *gin.Context) *scheduler.TriggerClaims {
	v, ok := c.Get(contextTriggerClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*scheduler.TriggerClaims)
	return claims
}
