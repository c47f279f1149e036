package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/talentgate/internal/api"
	"github.com/charlesng35/talentgate/internal/app"
	sharedtestutil "github.com/charlesng35/talentgate/internal/database/testutil"
	"github.com/charlesng35/talentgate/internal/models"
	"github.com/charlesng35/talentgate/internal/services"
	"github.com/charlesng35/talentgate/pkg/logger"
	"github.com/charlesng35/talentgate/pkg/response"
)

// IdentityHeader is the header the test router reads the caller from.
const IdentityHeader = "X-User-ID"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Ring   *logger.Ring
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{IdentityHeader: IdentityHeader},
		Audit: app.AuditConfig{
			DefaultPageSize: 50,
		},
	}

	ring := logger.NewRing(32)
	log := zap.New(ring.Core(zap.DebugLevel))

	router, err := api.NewRouter(db, cfg, log, ring)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		Ring:   ring,
	}
}

// CreateUser inserts an active directory user and returns the record.
func (e *Env) CreateUser(name string) *models.User {
	e.T.Helper()

	user := &models.User{
		Name:     name,
		Email:    name + "-" + uuid.NewString() + "@example.com",
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// CreateUserWithProfile inserts a user bound to the seeded profile with the given code.
func (e *Env) CreateUserWithProfile(name, profileCode string) *models.User {
	e.T.Helper()

	user := e.CreateUser(name)
	e.AssignProfile(user.ID, profileCode)
	return user
}

// AssignProfile binds userID to the profile with the given code, bypassing the HTTP layer.
func (e *Env) AssignProfile(userID uint, profileCode string) {
	e.T.Helper()

	var profile models.Profile
	require.NoError(e.T, e.DB.Where("code = ?", profileCode).First(&profile).Error)

	audit, err := services.NewAuditService(e.DB)
	require.NoError(e.T, err)
	assignments, err := services.NewAssignmentService(e.DB, audit)
	require.NoError(e.T, err)

	_, err = assignments.AssignProfileToUser(context.Background(), userID, profile.ID, userID)
	require.NoError(e.T, err)
}

// ProfileID returns the id of the profile with the given code.
func (e *Env) ProfileID(code string) uint {
	e.T.Helper()

	var profile models.Profile
	require.NoError(e.T, e.DB.Where("code = ?", code).First(&profile).Error)
	return profile.ID
}

// PermissionID returns the id of the (resource, action) permission.
func (e *Env) PermissionID(resource, action string) uint {
	e.T.Helper()

	var perm models.Permission
	require.NoError(e.T, e.DB.Where("resource = ? AND action = ?", resource, action).First(&perm).Error)
	return perm.ID
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router as userID, applying JSON encoding
// automatically. A zero userID sends no identity.
func (e *Env) Request(method, path string, body any, userID uint) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set(IdentityHeader, strconv.FormatUint(uint64(userID), 10))
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
