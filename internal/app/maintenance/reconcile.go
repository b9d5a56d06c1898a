package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fleetgrid/fleetgrid/internal/services"
	"github.com/fleetgrid/fleetgrid/pkg/logger"
	"github.com/fleetgrid/fleetgrid/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultReconcileSpec      = "@hourly"
	defaultAuditSpec          = "@daily"
)

// Reconciler runs background maintenance for the group subsystem: pruning
// memberships whose target has left the catalog and enforcing audit log
// retention. Membership pruning is deliberately asynchronous — deleting a
// target never touches the membership index inline.
type Reconciler struct {
	groups  *services.GroupService
	targets *services.TargetService
	audit   *services.AuditService
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger

	retention         int
	reconcileSchedule string
	auditSchedule     string
}

// Option customises the Reconciler.
type Option func(*Reconciler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling comparisons.
func WithNow(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(r *Reconciler) {
		if days > 0 {
			r.retention = days
		}
	}
}

// WithReconcileSchedule overrides the cron specification for membership pruning.
func WithReconcileSchedule(spec string) Option {
	return func(r *Reconciler) {
		if spec != "" {
			r.reconcileSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention.
func WithAuditSchedule(spec string) Option {
	return func(r *Reconciler) {
		if spec != "" {
			r.auditSchedule = spec
		}
	}
}

// NewReconciler constructs a Reconciler with sensible defaults. A nil
// dependency disables the corresponding job.
func NewReconciler(groups *services.GroupService, targets *services.TargetService, audit *services.AuditService, opts ...Option) *Reconciler {
	r := &Reconciler{
		groups:            groups,
		targets:           targets,
		audit:             audit,
		now:               time.Now,
		retention:         defaultAuditRetentionDays,
		reconcileSchedule: defaultReconcileSpec,
		auditSchedule:     defaultAuditSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.cron == nil {
		r.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return r
}

// Start registers the maintenance jobs and launches the scheduler.
func (r *Reconciler) Start() error {
	if r.groups != nil && r.targets != nil {
		if _, err := r.cron.AddFunc(r.reconcileSchedule, func() {
			if _, err := r.PruneStaleMemberships(context.Background()); err != nil {
				r.log.Warn("membership reconcile failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if r.audit != nil && r.retention > 0 {
		if _, err := r.cron.AddFunc(r.auditSchedule, func() {
			if _, err := r.audit.CleanupOlderThan(context.Background(), r.retention); err != nil {
				r.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	r.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for running jobs to complete.
func (r *Reconciler) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes every configured maintenance routine sequentially.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if r.groups != nil && r.targets != nil {
		if _, err := r.PruneStaleMemberships(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if r.audit != nil && r.retention > 0 {
		if _, err := r.audit.CleanupOlderThan(ctx, r.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// PruneStaleMemberships removes every membership pair whose target id is no
// longer present in the catalog and returns how many pairs were pruned.
func (r *Reconciler) PruneStaleMemberships(ctx context.Context) (int, error) {
	known, err := r.targets.IDs(ctx)
	if err != nil {
		return 0, err
	}

	pruned := 0
	var errs error
	for _, m := range r.groups.AllMembers(ctx) {
		if _, ok := known[m.TargetID]; ok {
			continue
		}
		if err := r.groups.RemoveMember(ctx, m.GroupID, m.TargetID); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pruned++
	}

	if pruned > 0 {
		metrics.ReconcilePrunes.Add(float64(pruned))
		r.log.Info("pruned stale memberships", zap.Int("count", pruned))
	}
	return pruned, errs
}
