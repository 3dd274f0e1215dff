package middleware

import (
	"time"

	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/types"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware returns a middleware that captures errors and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryTagsMiddleware tags the request's sentry scope with the request id,
// the matched route and the contract being operated on. It must run after
// SentryMiddleware and does nothing while sentry is disabled.
func SentryTagsMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.Scope().SetTags(requestTags(c))
	}
	c.Next()
}

func requestTags(c *gin.Context) map[string]string {
	tags := make(map[string]string, 3)
	if id := types.GetRequestID(c.Request.Context()); id != "" {
		tags["request_id"] = id
	}
	if route := c.FullPath(); route != "" {
		tags["route"] = route
	}
	if id := c.Param("id"); id != "" {
		tags["contract_id"] = id
	}
	return tags
}
