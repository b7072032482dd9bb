package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		log:  p.Log.Named("organization.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	if id == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}

func (s *Service) StartOfDay(ctx context.Context, orgID snowflake.ID, year int, month time.Month, day int) (time.Time, error) {
	org, err := s.GetByID(ctx, orgID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, 0, 0, 0, 0, org.Location()), nil
}
