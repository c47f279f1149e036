package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/middleware"
	"github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// actorID returns the authenticated caller or writes a 401 response.
func actorID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return 0, false
	}
	return id, true
}

// uintParam parses a positive numeric path parameter or writes a 400 response.
func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, errors.InvalidInput("invalid "+prettifyFieldName(name), raw))
		return 0, false
	}
	return uint(id), true
}
