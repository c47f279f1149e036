package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/talentgate/internal/auditctx"
	"github.com/charlesng35/talentgate/internal/auth"
	"github.com/charlesng35/talentgate/pkg/errors"
	"github.com/charlesng35/talentgate/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxRequestIDKey = "requestID"
)

// IdentityConfig describes where the upstream caller identity is read from.
type IdentityConfig struct {
	// Header carries the numeric user id set by the upstream gateway.
	Header string
	// Verifier, when set, accepts a bearer token in place of the header.
	Verifier *auth.TokenVerifier
}

// Identity resolves the calling user and propagates it into the request context, including the
// metadata audit entries record. Requests without a valid identity are rejected with 401.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveUserID(c, cfg)
		if !ok {
			if cfg.Verifier != nil {
				c.Header("WWW-Authenticate", "Bearer")
			}
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, userID)

		actor := auditctx.Actor{
			UserID:    userID,
			RequestID: c.GetString(CtxRequestIDKey),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}

func resolveUserID(c *gin.Context, cfg IdentityConfig) (uint, bool) {
	if cfg.Verifier != nil {
		authz := c.GetHeader("Authorization")
		if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
			claims, err := cfg.Verifier.Verify(strings.TrimSpace(authz[7:]))
			if err != nil {
				return 0, false
			}
			userID, err := claims.UserID()
			return userID, err == nil
		}
	}

	if cfg.Header == "" {
		return 0, false
	}
	raw := strings.TrimSpace(c.GetHeader(cfg.Header))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// UserID returns the identity set by Identity.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
