package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/talentgate/pkg/metrics"
)

const defaultReportSpec = "@every 1m"

// PendingCounter reports the change-request backlog.
type PendingCounter interface {
	CountPending(ctx context.Context) (int64, error)
}

// AssignmentCounter reports how many user-profile bindings are active.
type AssignmentCounter interface {
	CountActiveAssignments(ctx context.Context) (int64, error)
}

// Reporter periodically refreshes the gauges that cannot be maintained incrementally.
type Reporter struct {
	pending     PendingCounter
	assignments AssignmentCounter
	cron        *cron.Cron
	log         *zap.Logger
	schedule    string

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// Option customises the Reporter.
type Option func(*Reporter)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reporter) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the refresh job.
func WithSchedule(spec string) Option {
	return func(r *Reporter) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// WithLogger sets the logger used to report failed refreshes.
func WithLogger(log *zap.Logger) Option {
	return func(r *Reporter) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReporter constructs a Reporter. A nil counter skips the corresponding gauge.
func NewReporter(pending PendingCounter, assignments AssignmentCounter, opts ...Option) *Reporter {
	reporter := &Reporter{
		pending:     pending,
		assignments: assignments,
		schedule:    defaultReportSpec,
		log:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(reporter)
	}

	if reporter.cron == nil {
		reporter.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	reporter.log = reporter.log.With(zap.String("module", "maintenance"))

	return reporter
}

// Start refreshes the gauges once and schedules further refreshes.
func (r *Reporter) Start() error {
	if r.pending == nil && r.assignments == nil {
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.log.Warn("metrics refresh failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if err := r.RunOnce(context.Background()); err != nil {
		r.log.Warn("initial metrics refresh failed", zap.Error(err))
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (r *Reporter) Stop() context.Context {
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return r.cron.Stop()
}

// RunOnce refreshes every gauge, continuing past individual failures.
func (r *Reporter) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if r.pending != nil {
		if total, err := r.pending.CountPending(ctx); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			metrics.PendingChangeRequests.Set(float64(total))
		}
	}

	if r.assignments != nil {
		if total, err := r.assignments.CountActiveAssignments(ctx); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			metrics.ActiveAssignments.Set(float64(total))
		}
	}

	r.mu.Lock()
	r.lastRun = time.Now()
	r.lastErr = errs
	r.mu.Unlock()

	return errs
}

// LastRun reports when the gauges were last refreshed and the error of that refresh.
func (r *Reporter) LastRun() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}
