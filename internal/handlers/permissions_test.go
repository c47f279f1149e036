package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/talentgate/internal/handlers/testutil"
	"github.com/charlesng35/talentgate/internal/models"
)

func TestPermissionHandler_RequiresIdentity(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/access/me/permissions", nil, 0)
	require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())

	payload := testutil.DecodeResponse(t, resp)
	require.False(t, payload.Success)
	require.Equal(t, "UNAUTHORIZED", payload.Error.Code)
}

func TestPermissionHandler_MyPermissions(t *testing.T) {
	env := testutil.NewEnv(t)
	employee := env.CreateUserWithProfile("erin", "employee")
	nobody := env.CreateUser("nolan")

	resp := env.Request(http.MethodGet, "/api/access/me/permissions", nil, employee.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var perms []models.Permission
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &perms)
	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		keys = append(keys, p.Key())
	}
	require.Contains(t, keys, "goals:view")
	require.Contains(t, keys, "time_clock:register")
	require.NotContains(t, keys, "goals:approve")

	resp = env.Request(http.MethodGet, "/api/access/me/permissions", nil, nobody.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &perms)
	require.Empty(t, perms)
}

func TestPermissionHandler_CatalogIsGuarded(t *testing.T) {
	env := testutil.NewEnv(t)
	employee := env.CreateUserWithProfile("erin", "employee")
	admin := env.CreateUserWithProfile("ada", "admin")

	resp := env.Request(http.MethodGet, "/api/access/permissions", nil, employee.ID)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/access/permissions?category=goals", nil, admin.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var perms []models.Permission
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &perms)
	require.NotEmpty(t, perms)
	for _, p := range perms {
		require.Equal(t, "goals", p.Category)
	}

	// The refused and the granted checks are both in the audit log.
	var denied, allowed int64
	require.NoError(t, env.DB.Model(&models.AccessAuditLog{}).
		Where("actor_id = ? AND resource = ? AND action = ? AND allowed = ?", employee.ID, "permissions", "view", false).
		Count(&denied).Error)
	require.NoError(t, env.DB.Model(&models.AccessAuditLog{}).
		Where("actor_id = ? AND resource = ? AND action = ? AND allowed = ?", admin.ID, "permissions", "view", true).
		Count(&allowed).Error)
	require.EqualValues(t, 1, denied)
	require.EqualValues(t, 1, allowed)
}

func TestPermissionHandler_Checks(t *testing.T) {
	env := testutil.NewEnv(t)
	manager := env.CreateUserWithProfile("mia", "manager")
	employee := env.CreateUserWithProfile("erin", "employee")

	resp := env.Request(http.MethodPost, "/api/access/me/check", map[string]string{
		"resource": "goals",
		"action":   "approve",
	}, manager.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result struct {
		UserID  uint `json:"user_id"`
		Allowed bool `json:"allowed"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &result)
	require.True(t, result.Allowed)
	require.Equal(t, manager.ID, result.UserID)

	resp = env.Request(http.MethodPost, "/api/access/me/check", map[string]string{"resource": "goals"}, manager.ID)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "INVALID_INPUT", testutil.DecodeResponse(t, resp).Error.Code)

	// Managers may inspect other users' grants.
	resp = env.Request(http.MethodGet, "/api/access/users/"+itoa(employee.ID)+"/permissions/check?resource=goals&action=approve", nil, manager.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &result)
	require.False(t, result.Allowed)
	require.Equal(t, employee.ID, result.UserID)

	resp = env.Request(http.MethodGet, "/api/access/users/"+itoa(employee.ID)+"/permissions/check?resource=goals", nil, manager.ID)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/access/users/abc/permissions", nil, manager.ID)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	// Employees lack assignments:view.
	resp = env.Request(http.MethodGet, "/api/access/users/"+itoa(manager.ID)+"/permissions", nil, employee.ID)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
}
