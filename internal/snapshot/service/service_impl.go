package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/clock"
	"github.com/essentialops/stockledger/internal/distlock"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	obsmetrics "github.com/essentialops/stockledger/internal/observability/metrics"
	"github.com/essentialops/stockledger/internal/orgcontext"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const publishLockTTL = time.Minute

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	LedgerSvc ledgerdomain.Service
	Locker    *distlock.Locker    `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	ledgerSvc ledgerdomain.Service
	locker    *distlock.Locker
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) snapshotdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("snapshot.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		ledgerSvc: p.LedgerSvc,
		locker:    p.Locker,
		metrics:   p.Metrics,
	}
}

func (s *Service) Publish(ctx context.Context) (*snapshotdomain.Snapshot, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, snapshotdomain.ErrInvalidOrganization
	}

	lockKey := "stockledger:snapshot:" + orgID.String()
	token, acquired, err := s.locker.TryLock(ctx, lockKey, publishLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.log.Info("snapshot publish already in progress", zap.String("org_id", orgID.String()))
		return nil, nil
	}
	defer func() {
		_ = s.locker.Release(context.WithoutCancel(ctx), lockKey, token)
	}()

	var snapshot *snapshotdomain.Snapshot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Holding the sequence row blocks appends for the org, so the
		// copy below observes a consistent point.
		watermark, err := s.freezeSequence(ctx, tx, orgID)
		if err != nil {
			return err
		}

		var records []ledgerdomain.CurrentInventoryRecord
		if err := tx.WithContext(ctx).
			Where("org_id = ? AND quantity > 0", orgID).
			Order("location_id asc, item_id asc").
			Find(&records).Error; err != nil {
			return err
		}

		now := s.clock.Now()
		snapshot = &snapshotdomain.Snapshot{
			ID:            s.genID.Generate(),
			OrgID:         orgID,
			PublishedAt:   now,
			EventSequence: watermark,
			EntryCount:    int64(len(records)),
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(snapshot).Error; err != nil {
			return err
		}

		if len(records) == 0 {
			return nil
		}
		entries := make([]snapshotdomain.SnapshotEntry, 0, len(records))
		for _, record := range records {
			entries = append(entries, snapshotdomain.SnapshotEntry{
				ID:         s.genID.Generate(),
				SnapshotID: snapshot.ID,
				LocationID: record.LocationID,
				ItemID:     record.ItemID,
				Quantity:   record.Quantity,
				CreatedAt:  snapshot.CreatedAt,
			})
		}
		return tx.WithContext(ctx).CreateInBatches(entries, 500).Error
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SnapshotsPublished.Inc()
		s.metrics.SnapshotEntries.Observe(float64(snapshot.EntryCount))
	}
	s.log.Info("snapshot published",
		zap.String("org_id", orgID.String()),
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.Int64("watermark", snapshot.EventSequence),
		zap.Int64("entries", snapshot.EntryCount),
	)
	return snapshot, nil
}

func (s *Service) LatestBefore(ctx context.Context, t time.Time) (*snapshotdomain.Snapshot, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, snapshotdomain.ErrInvalidOrganization
	}

	var snapshot snapshotdomain.Snapshot
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND published_at <= ?", orgID, t.UTC()).
		Order("published_at desc, event_sequence desc").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (s *Service) Entries(ctx context.Context, snapshot *snapshotdomain.Snapshot) ([]snapshotdomain.SnapshotEntry, error) {
	if snapshot == nil {
		return nil, nil
	}
	var entries []snapshotdomain.SnapshotEntry
	err := s.db.WithContext(ctx).
		Where("snapshot_id = ?", snapshot.ID).
		Order("location_id asc, item_id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) Verify(ctx context.Context, snapshotID string) error {
	orgID, snapshot, err := s.resolve(ctx, snapshotID)
	if err != nil {
		return err
	}

	// Replay needs the full event range below the watermark.
	var retained int64
	if err := s.db.WithContext(ctx).
		Model(&ledgerdomain.InventoryEvent{}).
		Where("org_id = ? AND sequence <= ?", orgID, snapshot.EventSequence).
		Count(&retained).Error; err != nil {
		return err
	}
	if retained != snapshot.EventSequence {
		return snapshotdomain.ErrHistoryPruned
	}

	type replayRow struct {
		LocationID snowflake.ID
		ItemID     snowflake.ID
		Quantity   int64
	}
	var replayed []replayRow
	if err := s.db.WithContext(ctx).
		Table("inventory_events").
		Select("location_id, item_id, SUM(delta) AS quantity").
		Where("org_id = ? AND sequence <= ?", orgID, snapshot.EventSequence).
		Group("location_id, item_id").
		Scan(&replayed).Error; err != nil {
		return err
	}

	entries, err := s.Entries(ctx, snapshot)
	if err != nil {
		return err
	}

	type key struct{ loc, item snowflake.ID }
	want := make(map[key]int64, len(entries))
	for _, entry := range entries {
		want[key{entry.LocationID, entry.ItemID}] = entry.Quantity
	}

	for _, row := range replayed {
		if row.Quantity == 0 {
			continue
		}
		k := key{row.LocationID, row.ItemID}
		if want[k] != row.Quantity {
			s.log.Error("snapshot diverges from replay",
				zap.String("org_id", orgID.String()),
				zap.String("snapshot_id", snapshot.ID.String()),
				zap.String("location_id", row.LocationID.String()),
				zap.String("item_id", row.ItemID.String()),
				zap.Int64("snapshot_quantity", want[k]),
				zap.Int64("replayed_quantity", row.Quantity),
			)
			return snapshotdomain.ErrSnapshotDivergence
		}
		delete(want, k)
	}
	if len(want) != 0 {
		s.log.Error("snapshot holds entries replay does not",
			zap.String("org_id", orgID.String()),
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Int("extra_entries", len(want)),
		)
		return snapshotdomain.ErrSnapshotDivergence
	}
	return nil
}

func (s *Service) PruneEventsThrough(ctx context.Context, snapshotID string) (int64, error) {
	_, snapshot, err := s.resolve(ctx, snapshotID)
	if err != nil {
		return 0, err
	}
	return s.ledgerSvc.PurgeThrough(ctx, snapshot.EventSequence)
}

func (s *Service) resolve(ctx context.Context, snapshotID string) (snowflake.ID, *snapshotdomain.Snapshot, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, nil, snapshotdomain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(snapshotID))
	if err != nil {
		return 0, nil, snapshotdomain.ErrInvalidSnapshot
	}

	var snapshot snapshotdomain.Snapshot
	err = s.db.WithContext(ctx).
		First(&snapshot, "org_id = ? AND id = ?", orgID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, snapshotdomain.ErrSnapshotNotFound
		}
		return 0, nil, err
	}
	return orgID, &snapshot, nil
}

func (s *Service) freezeSequence(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (int64, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE ledger_sequences SET updated_at = updated_at WHERE org_id = ?`, orgID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		// No appends have ever happened for this org.
		return 0, nil
	}

	var sequence int64
	if err := tx.WithContext(ctx).
		Raw(`SELECT last_sequence FROM ledger_sequences WHERE org_id = ?`, orgID).
		Scan(&sequence).Error; err != nil {
		return 0, err
	}
	return sequence, nil
}
