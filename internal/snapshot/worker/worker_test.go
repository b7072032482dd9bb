package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/clock"
	"github.com/essentialops/stockledger/internal/config"
	organizationdomain "github.com/essentialops/stockledger/internal/organization/domain"
	"github.com/essentialops/stockledger/internal/orgcontext"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orgRepoStub struct {
	ids []snowflake.ID
}

func (s orgRepoStub) FindByID(ctx context.Context, id snowflake.ID) (*organizationdomain.Organization, error) {
	return nil, nil
}

func (s orgRepoStub) ListIDs(ctx context.Context, limit int) ([]snowflake.ID, error) {
	return s.ids, nil
}

type snapshotStub struct {
	mu        sync.Mutex
	published []snowflake.ID
	latest    map[snowflake.ID]*snapshotdomain.Snapshot
}

func orgFromCtx(ctx context.Context) snowflake.ID {
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	return orgID
}

func (s *snapshotStub) Publish(ctx context.Context) (*snapshotdomain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orgID := orgFromCtx(ctx)
	s.published = append(s.published, orgID)
	return &snapshotdomain.Snapshot{OrgID: orgID}, nil
}

func (s *snapshotStub) LatestBefore(ctx context.Context, t time.Time) (*snapshotdomain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[orgFromCtx(ctx)], nil
}

func (s *snapshotStub) Entries(ctx context.Context, snapshot *snapshotdomain.Snapshot) ([]snapshotdomain.SnapshotEntry, error) {
	return nil, nil
}

func (s *snapshotStub) Verify(ctx context.Context, snapshotID string) error { return nil }

func (s *snapshotStub) PruneEventsThrough(ctx context.Context, snapshotID string) (int64, error) {
	return 0, nil
}

func (s *snapshotStub) Published() []snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]snowflake.ID(nil), s.published...)
}

func TestRunOncePublishesForDueOrgs(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fresh := node.Generate()
	stale := node.Generate()
	missing := node.Generate()

	fakeClock := clock.NewFakeClock(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	now := fakeClock.Now()

	stub := &snapshotStub{latest: map[snowflake.ID]*snapshotdomain.Snapshot{
		fresh: {OrgID: fresh, PublishedAt: now.Add(-time.Hour)},
		stale: {OrgID: stale, PublishedAt: now.Add(-48 * time.Hour)},
	}}

	w := NewWorker(Params{
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Policy:      config.NewStaticPolicyHolder(config.PolicyConfig{SnapshotInterval: 24 * time.Hour}),
		OrgRepo:     orgRepoStub{ids: []snowflake.ID{fresh, stale, missing}},
		SnapshotSvc: stub,
	})

	require.NoError(t, w.RunOnce(context.Background()))

	published := stub.Published()
	assert.NotContains(t, published, fresh)
	assert.Contains(t, published, stale)
	assert.Contains(t, published, missing)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	stub := &snapshotStub{latest: map[snowflake.ID]*snapshotdomain.Snapshot{}}

	w := NewWorker(Params{
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Policy:      config.NewStaticPolicyHolder(config.PolicyConfig{}),
		OrgRepo:     orgRepoStub{},
		SnapshotSvc: stub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunForever(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
