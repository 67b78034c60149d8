package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "pending"
	DispatchApproved  DispatchStatus = "approved"
	DispatchInTransit DispatchStatus = "in_transit"
	DispatchDelivered DispatchStatus = "delivered"
	DispatchCancelled DispatchStatus = "cancelled"
)

const (
	DispatchReasonManual    = "manual"
	DispatchReasonRebalance = "rebalance"
)

var dispatchTransitions = map[DispatchStatus][]DispatchStatus{
	DispatchPending:   {DispatchApproved, DispatchCancelled},
	DispatchApproved:  {DispatchInTransit, DispatchCancelled},
	DispatchInTransit: {DispatchDelivered},
}

// OpenDispatchStatuses are the states in which a dispatch still holds its units.
var OpenDispatchStatuses = []DispatchStatus{DispatchPending, DispatchApproved, DispatchInTransit}

func (s DispatchStatus) Valid() bool {
	switch s {
	case DispatchPending, DispatchApproved, DispatchInTransit, DispatchDelivered, DispatchCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to target. Delivered and
// cancelled are terminal.
func (s DispatchStatus) CanTransitionTo(target DispatchStatus) bool {
	for _, next := range dispatchTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Dispatch moves goods between two stores.
type Dispatch struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Status           DispatchStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	SourceStore      string          `gorm:"type:varchar(100);not null;index" json:"sourceStore"`
	DestinationStore string          `gorm:"type:varchar(100);not null;index" json:"destinationStore"`
	Reason           string          `gorm:"type:varchar(20);not null;default:'manual'" json:"reason"`
	Note             string          `gorm:"type:text" json:"note,omitempty"`
	Items            []DispatchItem  `gorm:"foreignKey:DispatchID;constraint:OnDelete:CASCADE" json:"items"`
	TotalQuantity    int             `gorm:"not null;default:0" json:"totalQuantity"`
	TotalValue       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"totalValue"`
	CreatedBy        *uuid.UUID      `gorm:"type:uuid" json:"createdBy,omitempty"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
	ShippedAt        *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt      *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt      *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (d *Dispatch) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Recalculate derives item amounts and dispatch totals from the items.
func (d *Dispatch) Recalculate() {
	d.TotalQuantity = 0
	d.TotalValue = decimal.Zero
	for i := range d.Items {
		item := &d.Items[i]
		item.Position = i
		item.Amount = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		d.TotalQuantity += item.Quantity
		d.TotalValue = d.TotalValue.Add(item.Amount)
	}
}

// TransitionTo moves the dispatch to target, stamping the matching timestamp.
func (d *Dispatch) TransitionTo(target DispatchStatus, at time.Time) error {
	if !d.Status.CanTransitionTo(target) {
		return &TransitionError{Entity: "dispatch", ID: d.ID.String(), From: string(d.Status), To: string(target)}
	}
	switch target {
	case DispatchApproved:
		d.ApprovedAt = &at
	case DispatchInTransit:
		d.ShippedAt = &at
	case DispatchDelivered:
		d.DeliveredAt = &at
	case DispatchCancelled:
		d.CancelledAt = &at
	}
	d.Status = target
	return nil
}

// Barcodes returns the barcodes of tracked units on the dispatch.
func (d *Dispatch) Barcodes() []string {
	var codes []string
	for _, item := range d.Items {
		if item.Barcode != "" {
			codes = append(codes, item.Barcode)
		}
	}
	return codes
}

type DispatchItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DispatchID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Position    int             `gorm:"not null;default:0" json:"-"`
	Barcode     string          `gorm:"type:varchar(100);index" json:"barcode,omitempty"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"productName"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"unitPrice"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount"`
}

func (i *DispatchItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
