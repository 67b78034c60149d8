package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateOrder     = "CREATE_ORDER"
	ActionExchangeOrder   = "EXCHANGE_ORDER"
	ActionRecordPayment   = "RECORD_PAYMENT"
	ActionReceiveItem     = "RECEIVE_INVENTORY_ITEM"
	ActionSellItem        = "SELL_INVENTORY_ITEM"
	ActionReportDefect    = "REPORT_DEFECT"
	ActionCreateDispatch  = "CREATE_DISPATCH"
	ActionApproveDispatch = "APPROVE_DISPATCH"
	ActionShipDispatch    = "SHIP_DISPATCH"
	ActionDeliverDispatch = "DELIVER_DISPATCH"
	ActionCancelDispatch  = "CANCEL_DISPATCH"
	ActionRebalance       = "REBALANCE_STOCK"
	ActionCreateTaxRule   = "CREATE_TAX_RULE"
	ActionCreateEmployee  = "CREATE_EMPLOYEE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"userId"` // nil for system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entityId"`
	EntityName string     `gorm:"type:varchar(255)" json:"entityName,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
