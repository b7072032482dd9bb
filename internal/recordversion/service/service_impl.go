package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/orgcontext"
	"github.com/essentialops/stockledger/internal/recordversion/domain"
	"github.com/essentialops/stockledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPageSize = 50

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("recordversion.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Track(ctx context.Context, tx *gorm.DB, version *domain.RecordVersion) error {
	if version == nil {
		return nil
	}
	if version.OrgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if strings.TrimSpace(version.RecordType) == "" {
		return domain.ErrInvalidRecordType
	}
	if version.ID == 0 {
		version.ID = s.genID.Generate()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	if tx == nil {
		tx = s.db
	}
	return s.repo.Insert(ctx, tx, version)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}

	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return domain.ListResponse{}, domain.ErrInvalidTimeRange
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}

	filter := domain.ListFilter{
		OrgID:      orgID,
		RecordType: req.RecordType,
		Field:      req.Field,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      limit,
	}

	if recordID := strings.TrimSpace(req.RecordID); recordID != "" {
		parsed, err := snowflake.ParseString(recordID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidRecordType
		}
		filter.RecordID = parsed
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := decodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	resp := domain.ListResponse{Versions: make([]domain.RecordVersion, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for _, row := range rows {
		resp.Versions = append(resp.Versions, *row)
	}
	resp.HasMore = hasMore

	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return domain.ListResponse{}, err
		}
		resp.NextPageToken = token
	}

	return resp, nil
}

func decodeCursor(token string) (*domain.Cursor, error) {
	raw, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	id, err := snowflake.ParseString(raw.ID)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, raw.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.Cursor{CreatedAt: createdAt, ID: id}, nil
}
