package repository

import (
	"context"
	"errors"
	"time"

	"erpadmin/internal/model"

	"gorm.io/gorm"
)

type TaxRuleRepository interface {
	Create(ctx context.Context, rule *model.TaxRule) error
	List(ctx context.Context, taxType string, page, limit int) ([]model.TaxRule, int64, error)
	// ActiveAt returns the newest rule of taxType whose window contains at,
	// or nil when none does.
	ActiveAt(ctx context.Context, taxType string, at time.Time) (*model.TaxRule, error)
	// Overlaps reports whether [from, to] intersects an existing window of taxType.
	// A nil to is open ended.
	Overlaps(ctx context.Context, taxType string, from time.Time, to *time.Time) (bool, error)
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

func (r *taxRuleRepository) Create(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *taxRuleRepository) List(ctx context.Context, taxType string, page, limit int) ([]model.TaxRule, int64, error) {
	var rules []model.TaxRule
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if taxType != "" {
			db = db.Where("tax_type = ?", taxType)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.TaxRule{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scope).Order("effective_from DESC").Offset(offset(page, limit)).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (r *taxRuleRepository) ActiveAt(ctx context.Context, taxType string, at time.Time) (*model.TaxRule, error) {
	var rule model.TaxRule
	err := GetDB(ctx, r.db).
		Where("tax_type = ? AND effective_from <= ?", taxType, at).
		Where("effective_to IS NULL OR effective_to >= ?", at).
		Order("effective_from DESC").
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *taxRuleRepository) Overlaps(ctx context.Context, taxType string, from time.Time, to *time.Time) (bool, error) {
	// two windows overlap unless one ends before the other starts
	query := GetDB(ctx, r.db).Model(&model.TaxRule{}).
		Where("tax_type = ?", taxType).
		Where("effective_to IS NULL OR effective_to >= ?", from)
	if to != nil {
		query = query.Where("effective_from <= ?", *to)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
