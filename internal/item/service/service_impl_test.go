package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/item/domain"
	"github.com/essentialops/stockledger/internal/item/repository"
	"github.com/essentialops/stockledger/internal/orgcontext"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newItemService(t *testing.T) (domain.Service, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Item{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(db),
	})
	return svc, node.Generate()
}

func itemCtx(orgID snowflake.ID) context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(orgID))
}

func TestCreateItemRejectsCaseInsensitiveDuplicate(t *testing.T) {
	svc, orgID := newItemService(t)
	ctx := itemCtx(orgID)

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Diapers Size 3"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "diapers size 3"})
	require.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestListItemsSortsByNameCaseInsensitively(t *testing.T) {
	svc, orgID := newItemService(t)
	ctx := itemCtx(orgID)

	for _, name := range []string{"Wipes", "diapers", "Formula"} {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: name})
		require.NoError(t, err)
	}

	items, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "diapers", items[0].Name)
	assert.Equal(t, "Formula", items[1].Name)
	assert.Equal(t, "Wipes", items[2].Name)
}

func TestDeactivateAndReactivateItem(t *testing.T) {
	svc, orgID := newItemService(t)
	ctx := itemCtx(orgID)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Formula"})
	require.NoError(t, err)

	err = svc.Reactivate(ctx, created.ID.String())
	require.ErrorIs(t, err, domain.ErrItemNotDeactivated)

	require.NoError(t, svc.Deactivate(ctx, created.ID.String()))

	items, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.List(ctx, domain.ListRequest{IncludeDeactivated: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Active)

	require.NoError(t, svc.Reactivate(ctx, created.ID.String()))
}
