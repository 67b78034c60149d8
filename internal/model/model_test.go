package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchStatusTransitions(t *testing.T) {
	allowed := map[DispatchStatus][]DispatchStatus{
		DispatchPending:   {DispatchApproved, DispatchCancelled},
		DispatchApproved:  {DispatchInTransit, DispatchCancelled},
		DispatchInTransit: {DispatchDelivered},
	}
	all := []DispatchStatus{DispatchPending, DispatchApproved, DispatchInTransit, DispatchDelivered, DispatchCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestDispatchTransitionStampsTimestamps(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d := &Dispatch{Status: DispatchPending}

	require.NoError(t, d.TransitionTo(DispatchApproved, at))
	require.NoError(t, d.TransitionTo(DispatchInTransit, at.Add(time.Hour)))
	require.NoError(t, d.TransitionTo(DispatchDelivered, at.Add(2*time.Hour)))

	assert.Equal(t, DispatchDelivered, d.Status)
	require.NotNil(t, d.ApprovedAt)
	require.NotNil(t, d.ShippedAt)
	require.NotNil(t, d.DeliveredAt)
	assert.Equal(t, at.Add(2*time.Hour), *d.DeliveredAt)
	assert.Nil(t, d.CancelledAt)

	err := d.TransitionTo(DispatchApproved, at)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, DispatchDelivered, d.Status)
}

func TestDispatchRecalculate(t *testing.T) {
	d := &Dispatch{Items: []DispatchItem{
		{ProductName: "Saree", Quantity: 2, UnitPrice: decimal.NewFromInt(800)},
		{ProductName: "Kurta", Quantity: 1, UnitPrice: decimal.NewFromInt(450), Barcode: "B-1"},
	}}
	d.Recalculate()

	assert.Equal(t, 3, d.TotalQuantity)
	assert.True(t, decimal.NewFromInt(2050).Equal(d.TotalValue))
	assert.True(t, decimal.NewFromInt(1600).Equal(d.Items[0].Amount))
	assert.Equal(t, 1, d.Items[1].Position)
	assert.Equal(t, []string{"B-1"}, d.Barcodes())
}

func TestInventoryTransitions(t *testing.T) {
	assert.True(t, InventoryInStock.CanTransitionTo(InventoryDefective))
	assert.True(t, InventoryInStock.CanTransitionTo(InventorySold))
	assert.False(t, InventorySold.CanTransitionTo(InventoryInStock))
	assert.False(t, InventoryDefective.CanTransitionTo(InventorySold))

	item := &InventoryItem{Barcode: "B-9", Status: InventorySold}
	err := item.TransitionTo(InventoryDefective)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, InventorySold, item.Status)
}

func TestAttributesRoundTripThroughColumn(t *testing.T) {
	in := Attributes{"issue": "torn", "severity": float64(2)}
	v, err := in.Value()
	require.NoError(t, err)

	var out Attributes
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)

	var empty Attributes
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
}
