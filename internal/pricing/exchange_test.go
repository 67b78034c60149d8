package pricing

import (
	"testing"
	"time"

	"erpadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exchangeTime = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

func newOrder(items ...model.LineItem) model.Order {
	for i := range items {
		items[i].ID = uuid.New()
	}
	order := model.Order{
		ID:        uuid.New(),
		OrderCode: "ORD-1",
		Products:  items,
		Amounts:   model.OrderAmounts{VATRate: d("5"), TransportCost: d("100")},
		Payments:  model.OrderPayments{TotalPaid: d("2000")},
	}
	Recalculate(&order)
	return order
}

func TestApplyExchangeWorkedExample(t *testing.T) {
	order := newOrder(item("Saree A", 3, "1000", "0"))
	require.True(t, d("3250").Equal(order.Amounts.Total))

	updated, record, outcome := ApplyExchange(order,
		[]model.RemovedProduct{{ProductID: order.Products[0].ID.String(), Quantity: 3}},
		[]model.ReplacementProduct{{Name: "Saree B", Quantity: 2, Price: d("800")}},
		exchangeTime, nil)

	require.Len(t, updated.Products, 1)
	assert.Equal(t, "Saree B", updated.Products[0].ProductName)
	assert.Equal(t, 2, updated.Products[0].Qty)
	assert.True(t, d("1600").Equal(updated.Products[0].Amount))
	assert.NotEqual(t, uuid.Nil, updated.Products[0].ID)

	assert.True(t, d("1600").Equal(updated.Amounts.Subtotal))
	assert.True(t, d("80").Equal(updated.Amounts.VAT))
	assert.True(t, d("1780").Equal(updated.Amounts.Total))
	assert.True(t, d("-220").Equal(updated.Payments.Due))

	assert.True(t, d("-1470").Equal(outcome.Difference))
	assert.True(t, d("-220").Equal(outcome.TotalDue))
	assert.Equal(t, model.NoteRefund, outcome.Note)
	assert.Empty(t, outcome.UnmatchedRemovals)

	assert.Equal(t, exchangeTime, record.Date)
	assert.True(t, d("3250").Equal(record.OriginalTotal))
	assert.True(t, d("1780").Equal(record.NewTotal))
	assert.Equal(t, model.NoteRefund, record.Note)
	require.Len(t, updated.ExchangeHistory, 1)
	assert.Equal(t, record.ID, updated.ExchangeHistory[0].ID)
	assertInvariants(t, updated)
}

func TestApplyExchangeLeavesInputUntouched(t *testing.T) {
	order := newOrder(item("Saree A", 3, "1000", "0"), item("Kurta", 1, "500", "0"))
	before := order.Products[0]

	_, _, _ = ApplyExchange(order,
		[]model.RemovedProduct{{ProductID: order.Products[0].ID.String(), Quantity: 1}},
		[]model.ReplacementProduct{{Name: "kurta", Quantity: 1, Price: d("500")}},
		exchangeTime, nil)

	assert.Equal(t, before.Qty, order.Products[0].Qty)
	assert.True(t, before.Amount.Equal(order.Products[0].Amount))
	assert.Equal(t, 1, order.Products[1].Qty)
	assert.Empty(t, order.ExchangeHistory)
}

func TestApplyExchangePartialRemovalKeepsDiscount(t *testing.T) {
	order := newOrder(item("Saree A", 3, "1000", "100"))

	updated, _, _ := ApplyExchange(order,
		[]model.RemovedProduct{{ProductID: order.Products[0].ID.String(), Quantity: 1}},
		nil, exchangeTime, nil)

	require.Len(t, updated.Products, 1)
	assert.Equal(t, 2, updated.Products[0].Qty)
	assert.True(t, d("100").Equal(updated.Products[0].Discount))
	assert.True(t, d("1900").Equal(updated.Products[0].Amount))
	assertInvariants(t, updated)
}

func TestApplyExchangeRemovesWhenQuantityExceedsLine(t *testing.T) {
	order := newOrder(item("Saree A", 2, "1000", "0"), item("Kurta", 1, "500", "0"))

	updated, _, _ := ApplyExchange(order,
		[]model.RemovedProduct{{ProductID: order.Products[0].ID.String(), Quantity: 5}},
		nil, exchangeTime, nil)

	require.Len(t, updated.Products, 1)
	assert.Equal(t, "Kurta", updated.Products[0].ProductName)
	assert.Equal(t, 0, updated.Products[0].Position)
}

func TestApplyExchangeMergesReplacementByName(t *testing.T) {
	order := newOrder(item("Saree B", 1, "800", "0"))

	updated, _, outcome := ApplyExchange(order, nil,
		[]model.ReplacementProduct{{Name: "SAREE b", Quantity: 2, Price: d("800")}},
		exchangeTime, nil)

	require.Len(t, updated.Products, 1)
	assert.Equal(t, 3, updated.Products[0].Qty)
	assert.True(t, d("2400").Equal(updated.Products[0].Amount))
	assert.Equal(t, model.NoteCustomerOwes, outcome.Note)
	assertInvariants(t, updated)
}

func TestApplyExchangeReportsUnmatchedRemovals(t *testing.T) {
	order := newOrder(item("Saree A", 1, "1000", "0"))
	missing := model.RemovedProduct{ProductID: uuid.NewString(), Quantity: 1}

	updated, record, outcome := ApplyExchange(order, []model.RemovedProduct{missing}, nil, exchangeTime, nil)

	assert.Equal(t, []model.RemovedProduct{missing}, outcome.UnmatchedRemovals)
	assert.Equal(t, model.RemovedProducts{missing}, record.UnmatchedRemovals)
	assert.Equal(t, 1, updated.Products[0].Qty)
	assert.Equal(t, model.NoteNoDifference, outcome.Note)
	assert.True(t, outcome.Difference.IsZero())
}

func TestApplyExchangeUsesInjectedIDs(t *testing.T) {
	order := newOrder(item("Saree A", 1, "1000", "0"))
	fixed := uuid.MustParse("00000000-0000-0000-0000-000000000042")

	updated, record, _ := ApplyExchange(order, nil,
		[]model.ReplacementProduct{{Name: "Scarf", Quantity: 1, Price: d("100")}},
		exchangeTime, func() uuid.UUID { return fixed })

	assert.Equal(t, fixed, updated.Products[1].ID)
	assert.Equal(t, fixed, record.ID)
	assert.Equal(t, order.ID, record.OrderID)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.NoteCustomerOwes, Classify(d("0.01")))
	assert.Equal(t, model.NoteRefund, Classify(d("-5")))
	assert.Equal(t, model.NoteNoDifference, Classify(decimal.Zero))
}
