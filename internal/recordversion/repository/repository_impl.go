package repository

import (
	"context"
	"strings"

	"github.com/essentialops/stockledger/internal/recordversion/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, version *domain.RecordVersion) error {
	if version == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO record_versions (
			id, org_id, record_type, record_id, field, old_value, new_value,
			actor_type, actor_id, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		version.ID,
		version.OrgID,
		version.RecordType,
		version.RecordID,
		version.Field,
		version.OldValue,
		version.NewValue,
		version.ActorType,
		version.ActorID,
		version.Metadata,
		version.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.RecordVersion, error) {
	var versions []*domain.RecordVersion
	stmt := db.WithContext(ctx).Model(&domain.RecordVersion{}).
		Where("org_id = ?", filter.OrgID)

	if recordType := strings.TrimSpace(filter.RecordType); recordType != "" {
		stmt = stmt.Where("record_type = ?", recordType)
	}
	if filter.RecordID != 0 {
		stmt = stmt.Where("record_id = ?", filter.RecordID)
	}
	if field := strings.TrimSpace(filter.Field); field != "" {
		stmt = stmt.Where("field = ?", field)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}
