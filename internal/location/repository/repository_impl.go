package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/location/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, loc *domain.StorageLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *repo) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.StorageLocation, error) {
	var loc domain.StorageLocation
	err := r.db.WithContext(ctx).
		First(&loc, "org_id = ? AND id = ?", orgID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *repo) List(ctx context.Context, orgID snowflake.ID, includeDeactivated bool) ([]domain.StorageLocation, error) {
	var locations []domain.StorageLocation
	stmt := r.db.WithContext(ctx).
		Model(&domain.StorageLocation{}).
		Where("org_id = ?", orgID)
	if !includeDeactivated {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("name asc, id asc").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
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
		Model(&domain.StorageLocation{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}

func (r *repo) HasNonzeroInventory(ctx context.Context, orgID, id snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("current_inventory_records").
		Where("org_id = ? AND location_id = ? AND quantity > 0", orgID, id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
