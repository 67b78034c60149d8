package repository

import (
	"context"

	"erpadmin/internal/model"

	"gorm.io/gorm"
)

// DefectRepository is append-only.
type DefectRepository interface {
	Append(ctx context.Context, record *model.DefectRecord) error
	List(ctx context.Context, barcode string, page, limit int) ([]model.DefectRecord, int64, error)
}

type defectRepository struct {
	db *gorm.DB
}

func NewDefectRepository(db *gorm.DB) DefectRepository {
	return &defectRepository{db: db}
}

func (r *defectRepository) Append(ctx context.Context, record *model.DefectRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *defectRepository) List(ctx context.Context, barcode string, page, limit int) ([]model.DefectRecord, int64, error) {
	var records []model.DefectRecord
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if barcode != "" {
			return db.Where("barcode = ?", barcode)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.DefectRecord{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scope).Order("added_at DESC").Offset(offset(page, limit)).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
