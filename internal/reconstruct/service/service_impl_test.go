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
	reconstructdomain "github.com/essentialops/stockledger/internal/reconstruct/domain"
	recordversiondomain "github.com/essentialops/stockledger/internal/recordversion/domain"
	recordversionrepository "github.com/essentialops/stockledger/internal/recordversion/repository"
	recordversionservice "github.com/essentialops/stockledger/internal/recordversion/service"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	snapshotservice "github.com/essentialops/stockledger/internal/snapshot/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type reconstructFixture struct {
	svc         reconstructdomain.Service
	ledgerSvc   ledgerdomain.Service
	snapshotSvc snapshotdomain.Service
	policy      *config.PolicyHolder
	db          *gorm.DB
	clock       *clock.FakeClock
	orgID       snowflake.ID
	locationID  snowflake.ID
	secondLoc   snowflake.ID
	itemID      snowflake.ID
}

func newReconstructFixture(t *testing.T) *reconstructFixture {
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
	fakeClock := clock.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	logger := zap.NewNop()
	policy := config.NewStaticPolicyHolder(config.PolicyConfig{})

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
		Policy:     policy,
		VersionSvc: versionSvc,
	})
	snapshotSvc := snapshotservice.NewService(snapshotservice.Params{
		DB:        db,
		Log:       logger,
		GenID:     node,
		Clock:     fakeClock,
		LedgerSvc: ledgerSvc,
	})
	svc := NewService(Params{
		DB:          db,
		Log:         logger,
		Policy:      policy,
		SnapshotSvc: snapshotSvc,
	})

	f := &reconstructFixture{
		svc:         svc,
		ledgerSvc:   ledgerSvc,
		snapshotSvc: snapshotSvc,
		policy:      policy,
		db:          db,
		clock:       fakeClock,
		orgID:       node.Generate(),
		locationID:  node.Generate(),
		secondLoc:   node.Generate(),
		itemID:      node.Generate(),
	}

	now := fakeClock.Now()
	require.NoError(t, db.Create(&organizationdomain.Organization{
		ID: f.orgID, Name: "Org", Slug: "org", CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&locationdomain.StorageLocation{
		ID: f.locationID, OrgID: f.orgID, Name: "Warehouse", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&locationdomain.StorageLocation{
		ID: f.secondLoc, OrgID: f.orgID, Name: "Pantry", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&itemdomain.Item{
		ID: f.itemID, OrgID: f.orgID, Name: "Formula", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	return f
}

func (f *reconstructFixture) ctx() context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(f.orgID))
}

func (f *reconstructFixture) append(t *testing.T, loc snowflake.ID, delta int64, at time.Time) {
	t.Helper()
	// Events cannot be recorded ahead of the clock; backdating is fine.
	if at.After(f.clock.Now()) {
		f.clock.Set(at)
	}
	_, err := f.ledgerSvc.Append(f.ctx(), ledgerdomain.AppendRequest{
		LocationID: loc,
		ItemID:     f.itemID,
		Delta:      delta,
		Kind:       ledgerdomain.KindDonation,
		OccurredAt: at,
	})
	require.NoError(t, err)
}

func (f *reconstructFixture) key(loc snowflake.ID) reconstructdomain.Key {
	return reconstructdomain.Key{LocationID: loc, ItemID: f.itemID}
}

func TestReconstructReplaysUpToInstant(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 100, base)
	f.append(t, f.locationID, -30, base.Add(time.Hour))
	f.append(t, f.locationID, 50, base.Add(2*time.Hour))

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(70), state[f.key(f.locationID)])

	state, err = f.svc.Reconstruct(f.ctx(), 0, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(120), state[f.key(f.locationID)])
}

func TestReconstructInstantBoundaryIsInclusive(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 10, base)
	f.append(t, f.locationID, 5, base.Add(time.Hour))

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(15), state[f.key(f.locationID)])
}

func TestReconstructBeforeFirstEventIsEmpty(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 10, base)

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestReconstructOmitsZeroQuantities(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 10, base)
	f.append(t, f.locationID, -10, base.Add(time.Minute))

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestReconstructLocationFilter(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 10, base)
	f.append(t, f.secondLoc, 20, base)

	state, err := f.svc.Reconstruct(f.ctx(), f.secondLoc, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, state, 1)
	assert.Equal(t, int64(20), state[f.key(f.secondLoc)])
}

func TestReconstructOrdersBackdatedEventsByOccurredAt(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	// Recorded later but occurred earlier.
	f.append(t, f.locationID, 100, base.Add(2*time.Hour))
	f.append(t, f.locationID, 25, base)

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(25), state[f.key(f.locationID)])
}

func TestReconstructUsesSnapshotTransparently(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 100, base)
	f.append(t, f.locationID, -20, base.Add(time.Hour))

	f.clock.Set(base.Add(2 * time.Hour))
	snap, err := f.snapshotSvc.Publish(f.ctx())
	require.NoError(t, err)
	require.Equal(t, int64(2), snap.EventSequence)

	f.append(t, f.locationID, 7, base.Add(3*time.Hour))

	// The same instants must answer identically with or without the
	// snapshot in the path.
	withSnapshot, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(87), withSnapshot[f.key(f.locationID)])

	atSnapshotInstant, err := f.svc.Reconstruct(f.ctx(), 0, snap.PublishedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(80), atSnapshotInstant[f.key(f.locationID)])
}

func TestReconstructAfterPruneStillExact(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 100, base)
	f.append(t, f.locationID, -20, base.Add(time.Hour))

	f.clock.Set(base.Add(2 * time.Hour))
	snap, err := f.snapshotSvc.Publish(f.ctx())
	require.NoError(t, err)

	_, err = f.snapshotSvc.PruneEventsThrough(f.ctx(), snap.ID.String())
	require.NoError(t, err)

	f.append(t, f.locationID, 5, base.Add(3*time.Hour))

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(85), state[f.key(f.locationID)])
}

func TestReconstructBeforePrunedSnapshotFails(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 100, base)
	f.append(t, f.locationID, -20, base.Add(time.Hour))

	f.clock.Set(base.Add(2 * time.Hour))
	snap, err := f.snapshotSvc.Publish(f.ctx())
	require.NoError(t, err)
	_, err = f.snapshotSvc.PruneEventsThrough(f.ctx(), snap.ID.String())
	require.NoError(t, err)

	f.append(t, f.locationID, 5, base.Add(3*time.Hour))

	// An instant before the snapshot needs the purged events: the only
	// snapshot at or before it is genesis, and the retained log has a gap.
	_, err = f.svc.Reconstruct(f.ctx(), 0, base.Add(30*time.Minute))
	require.ErrorIs(t, err, reconstructdomain.ErrHistoryPruned)
}

func TestReconstructMatchesCurrentView(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	deltas := []int64{40, -10, 25, -5}
	for i, delta := range deltas {
		f.append(t, f.locationID, delta, base.Add(time.Duration(i)*time.Minute))
	}

	current, err := f.ledgerSvc.Get(f.ctx(), f.locationID, f.itemID)
	require.NoError(t, err)

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, current, state[f.key(f.locationID)])
}

func TestReconstructUnaffectedByOtherOrgActivity(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 40, base)
	f.append(t, f.locationID, -15, base.Add(time.Hour))

	at := base.Add(2 * time.Hour)
	before, err := f.svc.Reconstruct(f.ctx(), 0, at)
	require.NoError(t, err)

	// Another org appending and snapshotting between identical queries.
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	otherOrg := node.Generate()
	otherLoc := node.Generate()
	otherItem := node.Generate()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&organizationdomain.Organization{
		ID: otherOrg, Name: "Other Org", Slug: "other-org", CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, f.db.Create(&locationdomain.StorageLocation{
		ID: otherLoc, OrgID: otherOrg, Name: "Depot", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, f.db.Create(&itemdomain.Item{
		ID: otherItem, OrgID: otherOrg, Name: "Soap", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	otherCtx := orgcontext.WithOrgID(context.Background(), int64(otherOrg))
	for i := 0; i < 3; i++ {
		_, err := f.ledgerSvc.Append(otherCtx, ledgerdomain.AppendRequest{
			LocationID: otherLoc,
			ItemID:     otherItem,
			Delta:      int64(i + 1),
			Kind:       ledgerdomain.KindDonation,
		})
		require.NoError(t, err)
	}
	_, err = f.snapshotSvc.Publish(otherCtx)
	require.NoError(t, err)

	after, err := f.svc.Reconstruct(f.ctx(), 0, at)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NotContains(t, after, reconstructdomain.Key{LocationID: otherLoc, ItemID: otherItem})
}

func TestReconstructTooManyEvents(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.policy.Set(config.PolicyConfig{MaxReplayEvents: 2})

	for i := 0; i < 3; i++ {
		f.append(t, f.locationID, 1, base.Add(time.Duration(i)*time.Minute))
	}

	_, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(time.Hour))
	var tooMany *reconstructdomain.TooManyEventsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, int64(3), tooMany.Count)
	assert.Equal(t, 2, tooMany.Limit)

	// A closer snapshot shrinks the window under the limit.
	f.clock.Set(base.Add(time.Hour))
	_, err = f.snapshotSvc.Publish(f.ctx())
	require.NoError(t, err)

	state, err := f.svc.Reconstruct(f.ctx(), 0, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), state[f.key(f.locationID)])
}

func TestEventsBetweenOrdersAndBounds(t *testing.T) {
	f := newReconstructFixture(t)
	base := f.clock.Now()

	f.append(t, f.locationID, 1, base)
	f.append(t, f.locationID, 2, base.Add(time.Hour))
	f.append(t, f.locationID, 3, base.Add(2*time.Hour))

	events, err := f.svc.EventsBetween(f.ctx(), base.Add(time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Delta)
	assert.Equal(t, int64(3), events[1].Delta)

	_, err = f.svc.EventsBetween(f.ctx(), base.Add(time.Hour), base)
	require.ErrorIs(t, err, reconstructdomain.ErrInvalidTimeRange)
}

func TestReconstructRequiresOrgAndInstant(t *testing.T) {
	f := newReconstructFixture(t)

	_, err := f.svc.Reconstruct(context.Background(), 0, f.clock.Now())
	require.ErrorIs(t, err, reconstructdomain.ErrInvalidOrganization)

	_, err = f.svc.Reconstruct(f.ctx(), 0, time.Time{})
	require.ErrorIs(t, err, reconstructdomain.ErrInvalidInstant)
}
