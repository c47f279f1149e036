package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/talentgate/internal/auditctx"
	"github.com/charlesng35/talentgate/internal/auth"
)

func identityRouter(cfg IdentityConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID(), Identity(cfg))
	r.GET("/whoami", func(c *gin.Context) {
		userID, _ := UserID(c)
		actor, _ := auditctx.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "request_id": actor.RequestID})
	})
	return r
}

func TestIdentityFromHeader(t *testing.T) {
	r := identityRouter(IdentityConfig{Header: "X-User-ID"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "17")
	req.Header.Set(RequestIDHeader, "trace-1")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":17,"request_id":"trace-1"}`, w.Body.String())
	require.Equal(t, "trace-1", w.Header().Get(RequestIDHeader))
}

func TestIdentityRejectsMissingOrMalformedHeader(t *testing.T) {
	r := identityRouter(IdentityConfig{Header: "X-User-ID"})

	for _, value := range []string{"", "abc", "0", "-3"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if value != "" {
			req.Header.Set("X-User-ID", value)
		}
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, "value %q", value)
	}
}

func TestIdentityFromBearerToken(t *testing.T) {
	verifier, err := auth.NewTokenVerifier(auth.TokenConfig{Secret: "shared"})
	require.NoError(t, err)
	r := identityRouter(IdentityConfig{Header: "X-User-ID", Verifier: verifier})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "23",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("shared"))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-User-ID", "99")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":23`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	r := identityRouter(IdentityConfig{Header: "X-User-ID"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "1")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Header().Get(RequestIDHeader), 36)
}
