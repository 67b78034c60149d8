package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxType enum constants
const (
	TaxTypeVAT = "VAT"
	TaxTypeFCT = "FCT"
)

// TaxRule stores tax rates with temporal validity
type TaxRule struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TaxType       string          `gorm:"type:varchar(20);not null;index" json:"taxType"`
	Rate          decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"` // e.g. 0.05 = 5%
	EffectiveFrom time.Time       `gorm:"not null;index" json:"effectiveFrom"`
	EffectiveTo   *time.Time      `gorm:"index" json:"effectiveTo"` // nil = open ended
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (t *TaxRule) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Percent converts the fractional rate to the percentage stored on orders.
func (t *TaxRule) Percent() decimal.Decimal {
	return t.Rate.Mul(decimal.NewFromInt(100))
}
