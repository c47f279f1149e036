package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dbtestutil "github.com/charlesng35/talentgate/internal/database/testutil"
	"github.com/charlesng35/talentgate/internal/monitoring"
	"github.com/charlesng35/talentgate/internal/monitoring/checks"
)

type reporterStub struct {
	at  time.Time
	err error
}

func (r reporterStub) LastRun() (time.Time, error) {
	return r.at, r.err
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("store", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "store", report.Checks[1].Component)
	require.False(t, report.CheckedAt.IsZero())

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Empty(t, live.Checks)
}

func TestHealthManagerDegradedStaysReady(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("reporter", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
}

func TestHealthManagerRecoversPanickingCheck(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("boom", func(ctx context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
	require.Equal(t, "boom", report.Checks[0].Component)
}

func TestResultFromError(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Second).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError("db", errors.New("refused"), 0).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError("db", context.DeadlineExceeded, 0).Status)
}

func TestDatabaseAndCatalogChecks(t *testing.T) {
	t.Parallel()

	empty := dbtestutil.MustOpenTestDB(t, dbtestutil.WithAutoMigrate())
	require.Equal(t, monitoring.StatusUp, checks.Database(empty, 0).Run(context.Background()).Status)
	require.Equal(t, monitoring.StatusDown, checks.Catalog(empty, 0).Run(context.Background()).Status)

	seeded := dbtestutil.MustOpenTestDB(t, dbtestutil.WithSeedData())
	result := checks.Catalog(seeded, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "active permissions")

	require.Equal(t, monitoring.StatusDown, checks.Database(nil, 0).Run(context.Background()).Status)
}

func TestReporterCheck(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cases := map[string]struct {
		status checks.ReporterStatus
		want   monitoring.ProbeStatus
	}{
		"disabled":      {nil, monitoring.StatusUp},
		"never ran":     {reporterStub{}, monitoring.StatusDegraded},
		"failed":        {reporterStub{at: now, err: errors.New("count failed")}, monitoring.StatusDegraded},
		"stale":         {reporterStub{at: now.Add(-2 * time.Hour)}, monitoring.StatusDegraded},
		"recent and ok": {reporterStub{at: now}, monitoring.StatusUp},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			result := checks.Reporter(tc.status, time.Hour).Run(context.Background())
			require.Equal(t, tc.want, result.Status)
		})
	}
}
