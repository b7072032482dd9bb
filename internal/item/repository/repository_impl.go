package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/item/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repo) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	err := r.db.WithContext(ctx).First(&item, "org_id = ? AND id = ?", orgID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindByName(ctx context.Context, orgID snowflake.ID, name string) (*domain.Item, error) {
	var item domain.Item
	err := r.db.WithContext(ctx).
		First(&item, "org_id = ? AND lower(name) = ?", orgID, strings.ToLower(name)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, orgID snowflake.ID, includeDeactivated bool) ([]domain.Item, error) {
	var items []domain.Item
	stmt := r.db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("org_id = ?", orgID)
	if !includeDeactivated {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("lower(name) asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetActive(ctx context.Context, orgID, id snowflake.ID, active bool) error {
	updates := map[string]any{
		"active":     active,
		"updated_at": time.Now().UTC(),
	}
	if active {
		updates["deactivated_at"] = nil
	} else {
		updates["deactivated_at"] = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Item{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}
