package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/location/domain"
	"github.com/essentialops/stockledger/internal/orgcontext"
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
		log:   p.Log.Named("location.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.StorageLocation, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	loc := &domain.StorageLocation{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		Name:          name,
		Address:       strings.TrimSpace(req.Address),
		SquareFootage: req.SquareFootage,
		WarehouseType: strings.TrimSpace(req.WarehouseType),
		Active:        true,
	}
	if err := s.repo.Insert(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.StorageLocation, error) {
	orgID, locID, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	loc, err := s.repo.FindByID(ctx, orgID, locID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.ErrLocationNotFound
	}
	return loc, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.StorageLocation, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.List(ctx, orgID, req.IncludeDeactivated)
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	orgID, locID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	loc, err := s.repo.FindByID(ctx, orgID, locID)
	if err != nil {
		return err
	}
	if loc == nil {
		return domain.ErrLocationNotFound
	}

	holding, err := s.repo.HasNonzeroInventory(ctx, orgID, locID)
	if err != nil {
		return err
	}
	if holding {
		return domain.ErrLocationHasInventory
	}

	if err := s.repo.SetActive(ctx, orgID, locID, false); err != nil {
		return err
	}
	s.log.Info("storage location deactivated",
		zap.String("org_id", orgID.String()),
		zap.String("location_id", locID.String()),
	)
	return nil
}

func (s *Service) Reactivate(ctx context.Context, id string) error {
	orgID, locID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	loc, err := s.repo.FindByID(ctx, orgID, locID)
	if err != nil {
		return err
	}
	if loc == nil {
		return domain.ErrLocationNotFound
	}
	if loc.Active {
		return domain.ErrLocationNotDeactivated
	}

	return s.repo.SetActive(ctx, orgID, locID, true)
}

func (s *Service) resolve(ctx context.Context, id string) (snowflake.ID, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, 0, domain.ErrInvalidOrganization
	}
	locID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return 0, 0, domain.ErrInvalidLocation
	}
	return orgID, locID, nil
}
