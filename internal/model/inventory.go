package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryStatus string

const (
	InventoryInStock   InventoryStatus = "in_stock"
	InventoryDefective InventoryStatus = "defective"
	InventorySold      InventoryStatus = "sold"
)

var inventoryTransitions = map[InventoryStatus][]InventoryStatus{
	InventoryInStock: {InventoryDefective, InventorySold},
}

func (s InventoryStatus) Valid() bool {
	switch s {
	case InventoryInStock, InventoryDefective, InventorySold:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to target.
func (s InventoryStatus) CanTransitionTo(target InventoryStatus) bool {
	for _, next := range inventoryTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// InventoryItem is a single physical unit identified by its barcode.
type InventoryItem struct {
	Barcode     string          `gorm:"type:varchar(100);primaryKey" json:"barcode"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"productName"`
	StoreID     string          `gorm:"type:varchar(100);not null;index" json:"storeId"`
	Status      InventoryStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (i *InventoryItem) TransitionTo(target InventoryStatus) error {
	if !i.Status.CanTransitionTo(target) {
		return &TransitionError{Entity: "inventory item", ID: i.Barcode, From: string(i.Status), To: string(target)}
	}
	i.Status = target
	return nil
}

// DefectRecord keeps the reporting payload as-is.
type DefectRecord struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Barcode string     `gorm:"type:varchar(100);not null;index" json:"barcode"`
	Details Attributes `gorm:"type:jsonb" json:"details"`
	AddedAt time.Time  `gorm:"not null;index" json:"addedAt"`
}

func (d *DefectRecord) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
