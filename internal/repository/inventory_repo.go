package repository

import (
	"context"

	"erpadmin/internal/model"

	"gorm.io/gorm"
)

type InventoryFilter struct {
	StoreID string
	Status  model.InventoryStatus
}

type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	FindByBarcode(ctx context.Context, barcode string) (*model.InventoryItem, error)
	FindByBarcodes(ctx context.Context, barcodes []string) ([]model.InventoryItem, error)
	Save(ctx context.Context, item *model.InventoryItem) error
	// MoveToStore relocates in-stock units held at from; other units are left alone.
	MoveToStore(ctx context.Context, barcodes []string, from, to string) (int64, error)
	List(ctx context.Context, filter InventoryFilter, page, limit int) ([]model.InventoryItem, int64, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *inventoryRepository) FindByBarcode(ctx context.Context, barcode string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).First(&item, "barcode = ?", barcode).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) FindByBarcodes(ctx context.Context, barcodes []string) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	if len(barcodes) == 0 {
		return items, nil
	}
	if err := GetDB(ctx, r.db).Where("barcode IN ?", barcodes).Order("barcode ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save replaces the stored item. It returns gorm.ErrRecordNotFound when the
// barcode is unknown.
func (r *inventoryRepository) Save(ctx context.Context, item *model.InventoryItem) error {
	res := GetDB(ctx, r.db).Model(&model.InventoryItem{}).Where("barcode = ?", item.Barcode).Updates(map[string]any{
		"product_name": item.ProductName,
		"store_id":     item.StoreID,
		"status":       item.Status,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryRepository) MoveToStore(ctx context.Context, barcodes []string, from, to string) (int64, error) {
	if len(barcodes) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Model(&model.InventoryItem{}).
		Where("barcode IN ? AND store_id = ? AND status = ?", barcodes, from, model.InventoryInStock).
		Update("store_id", to)
	return res.RowsAffected, res.Error
}

func (r *inventoryRepository) List(ctx context.Context, filter InventoryFilter, page, limit int) ([]model.InventoryItem, int64, error) {
	var items []model.InventoryItem
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.StoreID != "" {
			db = db.Where("store_id = ?", filter.StoreID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.InventoryItem{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scope).Order("updated_at DESC").Offset(offset(page, limit)).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}
