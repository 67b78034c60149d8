package repository

import (
	"context"

	"erpadmin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DispatchRepository interface {
	Create(ctx context.Context, dispatch *model.Dispatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Dispatch, error)
	Save(ctx context.Context, dispatch *model.Dispatch) error
	List(ctx context.Context, status model.DispatchStatus, page, limit int) ([]model.Dispatch, int64, error)
	// OpenBarcodes returns which of barcodes already sit on an open dispatch.
	OpenBarcodes(ctx context.Context, barcodes []string) ([]string, error)
}

type dispatchRepository struct {
	db *gorm.DB
}

func NewDispatchRepository(db *gorm.DB) DispatchRepository {
	return &dispatchRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

func (r *dispatchRepository) Create(ctx context.Context, dispatch *model.Dispatch) error {
	return GetDB(ctx, r.db).Create(dispatch).Error
}

func (r *dispatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Dispatch, error) {
	var dispatch model.Dispatch
	if err := preloadItems(GetDB(ctx, r.db)).First(&dispatch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dispatch, nil
}

// Save persists the dispatch header; items are fixed at creation.
func (r *dispatchRepository) Save(ctx context.Context, dispatch *model.Dispatch) error {
	res := GetDB(ctx, r.db).Model(&model.Dispatch{}).Where("id = ?", dispatch.ID).Updates(map[string]any{
		"status":            dispatch.Status,
		"source_store":      dispatch.SourceStore,
		"destination_store": dispatch.DestinationStore,
		"note":              dispatch.Note,
		"approved_at":       dispatch.ApprovedAt,
		"shipped_at":        dispatch.ShippedAt,
		"delivered_at":      dispatch.DeliveredAt,
		"cancelled_at":      dispatch.CancelledAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *dispatchRepository) List(ctx context.Context, status model.DispatchStatus, page, limit int) ([]model.Dispatch, int64, error) {
	var dispatches []model.Dispatch
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if status != "" {
			return db.Where("status = ?", status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Dispatch{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := preloadItems(db.Scopes(scope)).Order("created_at DESC").Offset(offset(page, limit)).Limit(limit).Find(&dispatches).Error; err != nil {
		return nil, 0, err
	}
	return dispatches, total, nil
}

func (r *dispatchRepository) OpenBarcodes(ctx context.Context, barcodes []string) ([]string, error) {
	var held []string
	if len(barcodes) == 0 {
		return held, nil
	}
	err := GetDB(ctx, r.db).Model(&model.DispatchItem{}).
		Joins("JOIN dispatches ON dispatches.id = dispatch_items.dispatch_id").
		Where("dispatch_items.barcode IN ? AND dispatches.status IN ?", barcodes, model.OpenDispatchStatuses).
		Distinct().
		Order("dispatch_items.barcode ASC").
		Pluck("dispatch_items.barcode", &held).Error
	if err != nil {
		return nil, err
	}
	return held, nil
}
