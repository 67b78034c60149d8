package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Exchange classification notes
const (
	NoteCustomerOwes = "Customer owes additional payment"
	NoteRefund       = "Refund to customer"
	NoteNoDifference = "No payment difference"
)

// Order is a customer order snapshot; Products keep display order via Position.
type Order struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OrderCode       string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"orderCode"`
	CustomerName    string           `gorm:"type:varchar(255)" json:"customerName"`
	Products        []LineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"products"`
	Amounts         OrderAmounts     `gorm:"embedded;embeddedPrefix:amount_" json:"amounts"`
	Payments        OrderPayments    `gorm:"embedded;embeddedPrefix:payment_" json:"payments"`
	ExchangeHistory []ExchangeRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"exchangeHistory"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderAmounts holds derived totals. VATRate is a percentage (5 = 5%).
type OrderAmounts struct {
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"subtotal"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"totalDiscount"`
	VAT           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"vat"`
	VATRate       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"vatRate"`
	TransportCost decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"transportCost"`
	Total         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total"`
}

type OrderPayments struct {
	TotalPaid decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"totalPaid"`
	Due       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"due"`
	Method    string          `gorm:"type:varchar(30)" json:"method,omitempty"`
}

// LineItem is a single product entry of an order. Amount = Price*Qty - Discount.
type LineItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Position    int             `gorm:"not null;default:0" json:"-"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"productName"`
	Size        string          `gorm:"type:varchar(50)" json:"size,omitempty"`
	Qty         int             `gorm:"type:int;not null" json:"qty"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
}

func (l *LineItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// RemovedProduct asks for Quantity units of line item ProductID to be returned.
type RemovedProduct struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ReplacementProduct is an item handed to the customer during an exchange.
type ReplacementProduct struct {
	Name     string          `json:"name"`
	Size     string          `json:"size,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type RemovedProducts []RemovedProduct

func (r RemovedProducts) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return jsonValue([]RemovedProduct(r))
}

func (r *RemovedProducts) Scan(src any) error {
	return jsonScan(src, (*[]RemovedProduct)(r))
}

type ReplacementProducts []ReplacementProduct

func (r ReplacementProducts) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return jsonValue([]ReplacementProduct(r))
}

func (r *ReplacementProducts) Scan(src any) error {
	return jsonScan(src, (*[]ReplacementProduct)(r))
}

// ExchangeRecord is an immutable audit entry appended on every exchange.
type ExchangeRecord struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID             uuid.UUID           `gorm:"type:uuid;not null;index" json:"-"`
	Date                time.Time           `gorm:"not null;index" json:"date"`
	RemovedProducts     RemovedProducts     `gorm:"type:jsonb" json:"removedProducts"`
	ReplacementProducts ReplacementProducts `gorm:"type:jsonb" json:"replacementProducts"`
	UnmatchedRemovals   RemovedProducts     `gorm:"type:jsonb" json:"unmatchedRemovals,omitempty"`
	OriginalTotal       decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"originalTotal"`
	NewTotal            decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"newTotal"`
	Difference          decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"difference"`
	Note                string              `gorm:"type:varchar(64);not null" json:"note"`
}

func (e *ExchangeRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
