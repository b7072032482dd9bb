package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/organization/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (r *repo) ListIDs(ctx context.Context, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	stmt := r.db.WithContext(ctx).Model(&domain.Organization{}).Order("id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
