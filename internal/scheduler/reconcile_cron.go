package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/social-network/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reconciler is a job that repairs the relationship graph.
type Reconciler interface {
	Run(ctx context.Context) (jobs.ReconcileReport, error)
}

// StartReconcileCron runs the reconciler on schedule until the returned cron
// is stopped. Each run is bounded by timeout.
func StartReconcileCron(schedule string, timeout time.Duration, reconciler Reconciler) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report, err := reconciler.Run(ctx)
		if err != nil {
			logrus.WithError(err).Error("Relationship graph reconciliation failed")
			return
		}
		if report.Repaired > 0 || report.Failed > 0 || report.Skipped > 0 {
			logrus.WithFields(logrus.Fields{
				"repaired": report.Repaired,
				"skipped":  report.Skipped,
				"failed":   report.Failed,
			}).Warn("Relationship graph had inconsistencies")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	c.Start()
	logrus.WithField("schedule", schedule).Info("Reconcile cron started")
	return c, nil
}
