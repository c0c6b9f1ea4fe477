package middleware

import (
	"net/http"
	"strings"

	"livequiz/services"

	"github.com/gin-gonic/gin"
)

// HostAuthorizer checks a bearer token against a room code.
type HostAuthorizer interface {
	AuthorizeHost(code, token string) error
}

// HostAuth requires "Authorization: Bearer <hostToken>" issued for the
// room named by the :code path parameter.
func HostAuth(auth HostAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "host token required",
				"code":  services.ErrorCode(services.ErrNotHost),
			})
			return
		}

		code := services.NormalizeCode(c.Param("code"))
		if err := auth.AuthorizeHost(code, strings.TrimSpace(token)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "host token is not valid for this room",
				"code":  services.ErrorCode(err),
			})
			return
		}

		c.Set("room_code", code)
		c.Next()
	}
}
