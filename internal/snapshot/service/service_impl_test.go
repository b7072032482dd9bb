package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/clock"
	"github.com/essentialops/stockledger/internal/config"
	itemdomain "github.com/essentialops/stockledger/internal/item/domain"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	ledgerservice "github.com/essentialops/stockledger/internal/ledger/service"
	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	organizationdomain "github.com/essentialops/stockledger/internal/organization/domain"
	"github.com/essentialops/stockledger/internal/orgcontext"
	recordversiondomain "github.com/essentialops/stockledger/internal/recordversion/domain"
	recordversionrepository "github.com/essentialops/stockledger/internal/recordversion/repository"
	recordversionservice "github.com/essentialops/stockledger/internal/recordversion/service"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type snapshotFixture struct {
	svc        snapshotdomain.Service
	ledgerSvc  ledgerdomain.Service
	db         *gorm.DB
	clock      *clock.FakeClock
	orgID      snowflake.ID
	locationID snowflake.ID
	itemID     snowflake.ID
}

func newSnapshotFixture(t *testing.T) *snapshotFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&organizationdomain.Organization{},
		&locationdomain.StorageLocation{},
		&itemdomain.Item{},
		&ledgerdomain.LedgerSequence{},
		&ledgerdomain.InventoryEvent{},
		&ledgerdomain.CurrentInventoryRecord{},
		&recordversiondomain.RecordVersion{},
		&snapshotdomain.Snapshot{},
		&snapshotdomain.SnapshotEntry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	versionSvc := recordversionservice.NewService(recordversionservice.Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Repo:  recordversionrepository.Provide(),
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:         db,
		Log:        logger,
		GenID:      node,
		Clock:      fakeClock,
		Policy:     config.NewStaticPolicyHolder(config.PolicyConfig{}),
		VersionSvc: versionSvc,
	})
	svc := NewService(Params{
		DB:        db,
		Log:       logger,
		GenID:     node,
		Clock:     fakeClock,
		LedgerSvc: ledgerSvc,
	})

	f := &snapshotFixture{
		svc:        svc,
		ledgerSvc:  ledgerSvc,
		db:         db,
		clock:      fakeClock,
		orgID:      node.Generate(),
		locationID: node.Generate(),
		itemID:     node.Generate(),
	}

	now := fakeClock.Now()
	require.NoError(t, db.Create(&organizationdomain.Organization{
		ID: f.orgID, Name: "Org", Slug: "org", CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&locationdomain.StorageLocation{
		ID: f.locationID, OrgID: f.orgID, Name: "Warehouse", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&itemdomain.Item{
		ID: f.itemID, OrgID: f.orgID, Name: "Wipes", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	return f
}

func (f *snapshotFixture) ctx() context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(f.orgID))
}

func (f *snapshotFixture) append(t *testing.T, delta int64) *ledgerdomain.InventoryEvent {
	t.Helper()
	event, err := f.ledgerSvc.Append(f.ctx(), ledgerdomain.AppendRequest{
		LocationID: f.locationID,
		ItemID:     f.itemID,
		Delta:      delta,
		Kind:       ledgerdomain.KindDonation,
	})
	require.NoError(t, err)
	return event
}

func TestPublishCapturesWatermarkAndEntries(t *testing.T) {
	f := newSnapshotFixture(t)
	ctx := f.ctx()

	f.append(t, 100)
	f.append(t, -25)

	snap, err := f.svc.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.EventSequence)
	assert.Equal(t, int64(1), snap.EntryCount)

	entries, err := f.svc.Entries(ctx, snap)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.locationID, entries[0].LocationID)
	assert.Equal(t, f.itemID, entries[0].ItemID)
	assert.Equal(t, int64(75), entries[0].Quantity)
}

func TestPublishOmitsZeroQuantities(t *testing.T) {
	f := newSnapshotFixture(t)
	ctx := f.ctx()

	f.append(t, 40)
	f.append(t, -40)

	snap, err := f.svc.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.EventSequence)
	assert.Equal(t, int64(0), snap.EntryCount)

	entries, err := f.svc.Entries(ctx, snap)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPublishOnEmptyLedgerHasZeroWatermark(t *testing.T) {
	f := newSnapshotFixture(t)

	snap, err := f.svc.Publish(f.ctx())
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.EventSequence)
	assert.Equal(t, int64(0), snap.EntryCount)
}

func TestLatestBeforeBoundaries(t *testing.T) {
	f := newSnapshotFixture(t)
	ctx := f.ctx()

	f.append(t, 10)
	first, err := f.svc.Publish(ctx)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	f.append(t, 10)
	second, err := f.svc.Publish(ctx)
	require.NoError(t, err)

	// Before any snapshot.
	snap, err := f.svc.LatestBefore(ctx, first.PublishedAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Nil(t, snap)

	// Exactly at a snapshot instant includes it.
	snap, err = f.svc.LatestBefore(ctx, first.PublishedAt)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, first.ID, snap.ID)

	// Between snapshots.
	snap, err = f.svc.LatestBefore(ctx, first.PublishedAt.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, first.ID, snap.ID)

	// After both.
	snap, err = f.svc.LatestBefore(ctx, second.PublishedAt.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, second.ID, snap.ID)
}

func TestVerifyAcceptsConsistentSnapshot(t *testing.T) {
	f := newSnapshotFixture(t)
	ctx := f.ctx()

	f.append(t, 30)
	f.append(t, -10)
	snap, err := f.svc.Publish(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Verify(ctx, snap.ID.String()))
}

func TestVerifyDetectsDivergence(t *testing.T) {
	f := newSnapshotFixture(t)
	ctx := f.ctx()

	f.append(t, 30)
	snap, err := f.svc.Publish(ctx)
	require.NoError(t, err)

	// Corrupt the snapshot copy.
	require.NoError(t, f.db.Model(&snapshotdomain.SnapshotEntry{}).
		Where("snapshot_id = ?", snap.ID).
		Update("quantity", 29).Error)

	err = f.svc.Verify(ctx, snap.ID.String())
	require.ErrorIs(t, err, snapshotdomain.ErrSnapshotDivergence)
}

func TestVerifyDetectsPrunedHistory(t *testing.T) {
	f := newSnapshotFixture(t)
	ctx := f.ctx()

	f.append(t, 30)
	f.append(t, 20)
	snap, err := f.svc.Publish(ctx)
	require.NoError(t, err)

	require.NoError(t, f.db.
		Where("org_id = ? AND sequence = 1", f.orgID).
		Delete(&ledgerdomain.InventoryEvent{}).Error)

	err = f.svc.Verify(ctx, snap.ID.String())
	require.ErrorIs(t, err, snapshotdomain.ErrHistoryPruned)
}

func TestPruneEventsThroughRemovesCoveredEvents(t *testing.T) {
	f := newSnapshotFixture(t)
	ctx := f.ctx()

	f.append(t, 10)
	f.append(t, 10)
	snap, err := f.svc.Publish(ctx)
	require.NoError(t, err)

	f.append(t, 10)

	deleted, err := f.svc.PruneEventsThrough(ctx, snap.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int64
	require.NoError(t, f.db.Model(&ledgerdomain.InventoryEvent{}).
		Where("org_id = ?", f.orgID).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestResolveRejectsUnknownSnapshot(t *testing.T) {
	f := newSnapshotFixture(t)

	err := f.svc.Verify(f.ctx(), "123456789")
	require.ErrorIs(t, err, snapshotdomain.ErrSnapshotNotFound)

	err = f.svc.Verify(f.ctx(), "not-an-id")
	require.ErrorIs(t, err, snapshotdomain.ErrInvalidSnapshot)
}
