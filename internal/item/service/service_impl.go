package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/item/domain"
	"github.com/essentialops/stockledger/internal/orgcontext"
	"github.com/essentialops/stockledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("item.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Item, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	existing, err := s.repo.FindByName(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateName
	}

	item := &domain.Item{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		ValueInCents: req.ValueInCents,
		Active:       true,
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}
	return item, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	orgID, itemID, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, orgID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Item, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.List(ctx, orgID, req.IncludeDeactivated)
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	orgID, itemID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.SetActive(ctx, orgID, itemID, false)
}

func (s *Service) Reactivate(ctx context.Context, id string) error {
	orgID, itemID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, orgID, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrItemNotFound
	}
	if item.Active {
		return domain.ErrItemNotDeactivated
	}
	return s.repo.SetActive(ctx, orgID, itemID, true)
}

func (s *Service) resolve(ctx context.Context, id string) (snowflake.ID, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, 0, domain.ErrInvalidOrganization
	}
	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return 0, 0, domain.ErrInvalidItem
	}
	return orgID, itemID, nil
}
