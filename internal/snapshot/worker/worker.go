// Package worker publishes snapshots on the policy cadence so replay
// windows stay bounded.
package worker

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/clock"
	"github.com/essentialops/stockledger/internal/config"
	organizationdomain "github.com/essentialops/stockledger/internal/organization/domain"
	"github.com/essentialops/stockledger/internal/orgcontext"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Policy      *config.PolicyHolder
	OrgRepo     organizationdomain.Repository
	SnapshotSvc snapshotdomain.Service
}

type Worker struct {
	log         *zap.Logger
	clock       clock.Clock
	policy      *config.PolicyHolder
	orgRepo     organizationdomain.Repository
	snapshotSvc snapshotdomain.Service
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:         p.Log.Named("snapshot.worker"),
		clock:       p.Clock,
		policy:      p.Policy,
		orgRepo:     p.OrgRepo,
		snapshotSvc: p.SnapshotSvc,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	for {
		interval := w.policy.Get().SnapshotInterval
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("snapshot run failed", zap.Error(err))
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce publishes a snapshot for every org whose newest snapshot is
// older than the configured cadence.
func (w *Worker) RunOnce(parentCtx context.Context) error {
	policy := w.policy.Get()
	ctx, cancel := context.WithTimeout(parentCtx, policy.SnapshotRunTimeout)
	defer cancel()

	orgIDs, err := w.orgRepo.ListIDs(ctx, policy.SnapshotBatchOrgs)
	if err != nil {
		return err
	}

	now := w.clock.Now()
	for _, orgID := range orgIDs {
		if err := w.publishIfDue(ctx, orgID, now, policy.SnapshotInterval); err != nil {
			w.log.Warn("snapshot publish failed",
				zap.Error(err),
				zap.String("org_id", orgID.String()),
			)
		}
	}
	return nil
}

func (w *Worker) publishIfDue(ctx context.Context, orgID snowflake.ID, now time.Time, interval time.Duration) error {
	orgCtx := orgcontext.WithOrgID(ctx, int64(orgID))

	latest, err := w.snapshotSvc.LatestBefore(orgCtx, now)
	if err != nil {
		return err
	}
	if latest != nil && now.Sub(latest.PublishedAt) < interval {
		return nil
	}

	_, err = w.snapshotSvc.Publish(orgCtx)
	return err
}
