package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/talentgate/internal/handlers/testutil"
	"github.com/charlesng35/talentgate/internal/models"
)

func TestAuditHandler_ListWithFilters(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateUserWithProfile("ada", "admin")
	employee := env.CreateUserWithProfile("erin", "employee")

	// Two refused checks by the employee.
	for i := 0; i < 2; i++ {
		resp := env.Request(http.MethodGet, "/api/access/profiles", nil, employee.ID)
		require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
	}

	resp := env.Request(http.MethodGet, "/api/access/audit?allowed=false&actor_id="+itoa(employee.ID)+"&limit=1", nil, admin.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	payload := testutil.DecodeResponse(t, resp)
	require.NotNil(t, payload.Meta)
	require.EqualValues(t, 2, payload.Meta.Total)
	require.Equal(t, 1, payload.Meta.Limit)

	var logs []models.AccessAuditLog
	testutil.DecodeInto(t, payload.Data, &logs)
	require.Len(t, logs, 1)
	require.Equal(t, "profiles", logs[0].Resource)
	require.Equal(t, "view", logs[0].Action)
	require.False(t, logs[0].Allowed)
	require.Equal(t, "GET", logs[0].Context["method"])
	require.NotEmpty(t, logs[0].Context["request_id"])

	since := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	resp = env.Request(http.MethodGet, "/api/access/audit?since="+since, nil, admin.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &logs)
	require.Empty(t, logs)

	resp = env.Request(http.MethodGet, "/api/access/audit/export?resource=assignments", nil, admin.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &logs)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		require.Equal(t, "assign", entry.Action)
	}

	for _, query := range []string{"allowed=maybe", "actor_id=x", "since=yesterday"} {
		resp = env.Request(http.MethodGet, "/api/access/audit?"+query, nil, admin.ID)
		require.Equal(t, http.StatusBadRequest, resp.Code, query)
	}

	resp = env.Request(http.MethodGet, "/api/access/audit", nil, employee.ID)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
}

func TestOpsLogHandler_ServesRecentEntries(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateUserWithProfile("ada", "admin")
	employee := env.CreateUserWithProfile("erin", "employee")

	var resp *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		resp = env.Request(http.MethodGet, "/health", nil, 0)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp = env.Request(http.MethodGet, "/api/ops/logs", nil, employee.ID)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/ops/logs?level=info&limit=2", nil, admin.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var entries []struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &entries)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Equal(t, "info", e.Level)
	}
}

func TestHealthHandler(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/health", nil, 0)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var report struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
		Checks  []struct {
			Component string `json:"component"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	require.True(t, report.Success)
	require.Equal(t, "up", report.Status)
	require.Len(t, report.Checks, 2)

	resp = env.Request(http.MethodGet, "/api/health/live", nil, 0)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/nothing-here", nil, 0)
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
	require.Equal(t, "ROUTE_NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodGet, "/nothing-here", nil, 0)
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
}
