package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/purplefish/interviewchat/config"
	"github.com/purplefish/interviewchat/internal/utils"
)

func RequireRole(allowed ...string) gin.HandlerFunc {
	allow := map[string]struct{}{}
	for _, a := range allowed {
		a = strings.TrimSpace(strings.ToLower(a))
		if a != "" {
			allow[a] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		v, _ := c.Get("role")
		role, _ := v.(string)
		role = strings.ToLower(strings.TrimSpace(role))

		if _, ok := allow[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "forbidden",
			})
			return
		}

		c.Next()
	}
}

// RequireAdmin guards operator routes. It is a no-op when auth is disabled.
func RequireAdmin(cfg config.AuthConfig) []gin.HandlerFunc {
	if !cfg.Enabled() {
		return nil
	}
	return []gin.HandlerFunc{JWTAuth(cfg), RequireRole("admin")}
}
