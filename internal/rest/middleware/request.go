package middleware

import (
	"context"

	"github.com/contractflow/contractflow/internal/types"
	"github.com/gin-gonic/gin"
)

// HeaderRequestID carries the request id in and out of the operator API
const HeaderRequestID = "X-Request-ID"

func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(HeaderRequestID, requestID)
	c.Next()
}
