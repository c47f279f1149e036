package checks

import (
	"context"
	"time"

	"github.com/charlesng35/talentgate/internal/monitoring"
)

const defaultReporterMaxAge = 15 * time.Minute

// ReporterStatus exposes the outcome of the last gauge refresh.
type ReporterStatus interface {
	LastRun() (at time.Time, err error)
}

// Reporter verifies that the metrics reporter refreshed its gauges recently. A stale or
// failing reporter only degrades readiness; access checks do not depend on it.
func Reporter(status ReporterStatus, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultReporterMaxAge
	}

	return monitoring.NewCheck("metrics_reporter", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if status == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "reporter disabled"}
		}

		at, err := status.LastRun()
		switch {
		case at.IsZero():
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "pending first run",
				Duration: time.Since(start),
			}
		case err != nil:
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		case time.Since(at) > maxAge:
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "stale run " + at.UTC().Format(time.RFC3339),
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}
