package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/config"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	obsmetrics "github.com/essentialops/stockledger/internal/observability/metrics"
	"github.com/essentialops/stockledger/internal/orgcontext"
	reconstructdomain "github.com/essentialops/stockledger/internal/reconstruct/domain"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Policy      *config.PolicyHolder
	SnapshotSvc snapshotdomain.Service
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	policy      *config.PolicyHolder
	snapshotSvc snapshotdomain.Service
	metrics     *obsmetrics.Metrics
}

func NewService(p Params) reconstructdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reconstruct.service"),
		policy:      p.Policy,
		snapshotSvc: p.SnapshotSvc,
		metrics:     p.Metrics,
	}
}

// Reconstruct computes quantities as of the given instant. It starts
// from the newest snapshot published at or before the instant (or from
// empty state when none exists) and replays the events above the
// snapshot's sequence watermark whose occurred_at is at or before the
// instant. Replaying by watermark rather than by timestamp keeps the
// snapshot boundary exact even when events are recorded out of order.
func (s *Service) Reconstruct(ctx context.Context, locFilter snowflake.ID, at time.Time) (reconstructdomain.Result, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, reconstructdomain.ErrInvalidOrganization
	}
	if at.IsZero() {
		return nil, reconstructdomain.ErrInvalidInstant
	}
	at = at.UTC()

	snap, err := s.snapshotSvc.LatestBefore(ctx, at)
	if err != nil {
		return nil, err
	}

	var watermark int64
	state := reconstructdomain.Result{}
	if snap != nil {
		watermark = snap.EventSequence
		entries, err := s.snapshotSvc.Entries(ctx, snap)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			state[reconstructdomain.Key{
				LocationID: entry.LocationID,
				ItemID:     entry.ItemID,
			}] = entry.Quantity
		}
	}

	if err := s.checkRetainedHistory(ctx, orgID, watermark); err != nil {
		s.countFailure("history_pruned")
		return nil, err
	}

	var replayCount int64
	if err := s.db.WithContext(ctx).
		Model(&ledgerdomain.InventoryEvent{}).
		Where("org_id = ? AND sequence > ? AND occurred_at <= ?", orgID, watermark, at).
		Count(&replayCount).Error; err != nil {
		return nil, err
	}
	if limit := s.policy.Get().MaxReplayEvents; limit > 0 && replayCount > int64(limit) {
		s.countFailure("too_many_events")
		s.log.Warn("reconstruction window over replay limit",
			zap.String("org_id", orgID.String()),
			zap.Time("at", at),
			zap.Int64("events", replayCount),
			zap.Int("limit", limit),
		)
		return nil, &reconstructdomain.TooManyEventsError{Count: replayCount, Limit: limit}
	}

	var events []ledgerdomain.InventoryEvent
	if err := s.db.WithContext(ctx).
		Where("org_id = ? AND sequence > ? AND occurred_at <= ?", orgID, watermark, at).
		Order("occurred_at asc, sequence asc").
		Find(&events).Error; err != nil {
		return nil, err
	}

	for _, event := range events {
		key := reconstructdomain.Key{LocationID: event.LocationID, ItemID: event.ItemID}
		state[key] += event.Delta
	}

	result := reconstructdomain.Result{}
	for key, quantity := range state {
		if quantity == 0 {
			continue
		}
		if locFilter != 0 && key.LocationID != locFilter {
			continue
		}
		result[key] = quantity
	}

	if s.metrics != nil {
		s.metrics.ReplayEvents.Observe(float64(len(events)))
	}
	return result, nil
}

func (s *Service) EventsBetween(ctx context.Context, from, to time.Time) ([]ledgerdomain.InventoryEvent, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, reconstructdomain.ErrInvalidOrganization
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, reconstructdomain.ErrInvalidTimeRange
	}

	var events []ledgerdomain.InventoryEvent
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND occurred_at >= ? AND occurred_at <= ?", orgID, from.UTC(), to.UTC()).
		Order("occurred_at asc, sequence asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// checkRetainedHistory verifies the retained event log above the chosen
// watermark is gapless. Sequences are assigned contiguously per org, so
// a hole means events this reconstruction depends on were purged past
// the snapshot it starts from.
func (s *Service) checkRetainedHistory(ctx context.Context, orgID snowflake.ID, watermark int64) error {
	var bounds struct {
		Total int64
		Min   int64
		Max   int64
	}
	err := s.db.WithContext(ctx).
		Model(&ledgerdomain.InventoryEvent{}).
		Where("org_id = ? AND sequence > ?", orgID, watermark).
		Select("COUNT(*) AS total, COALESCE(MIN(sequence), 0) AS min, COALESCE(MAX(sequence), 0) AS max").
		Scan(&bounds).Error
	if err != nil {
		return err
	}
	if bounds.Total == 0 {
		return nil
	}
	if bounds.Min != watermark+1 || bounds.Total != bounds.Max-bounds.Min+1 {
		s.log.Error("retained event log has a gap",
			zap.String("org_id", orgID.String()),
			zap.Int64("watermark", watermark),
			zap.Int64("min_sequence", bounds.Min),
			zap.Int64("max_sequence", bounds.Max),
			zap.Int64("retained", bounds.Total),
		)
		return reconstructdomain.ErrHistoryPruned
	}
	return nil
}

func (s *Service) countFailure(reason string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReconstructFailures.WithLabelValues(reason).Inc()
}
