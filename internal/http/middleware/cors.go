// Package middleware holds router-level middleware that depends on the
// application wiring rather than on the platform layer alone.
package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// OriginChecker reports whether a browser origin is allowed.
type OriginChecker interface {
	AllowsOrigin(origin string) bool
}

// CORS allows the tenant sites (and any extra origins) to call the API from
// the browser. Credentials are never allowed; the widget is anonymous.
func CORS(policy OriginChecker, extra []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(extra))
	for _, o := range extra {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if _, ok := allowed[strings.ToLower(origin)]; ok {
				return true
			}
			return policy != nil && policy.AllowsOrigin(origin)
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
