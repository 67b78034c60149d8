package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"erpadmin/internal/lock"
	"erpadmin/internal/model"
	pkgerrors "erpadmin/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func sareeOrder(t *testing.T, h *harness) *model.Order {
	t.Helper()
	vat := dec("5")
	order, err := h.orderSvc.CreateOrder(context.Background(), CreateOrderRequest{
		OrderCode:     "ORD-" + uuid.NewString()[:8],
		CustomerName:  "Asha",
		Products:      []OrderLineRequest{{ProductName: "Saree A", Qty: 3, Price: dec("1000")}},
		VATRate:       &vat,
		TransportCost: dec("100"),
		TotalPaid:     dec("2000"),
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderComputesAmounts(t *testing.T) {
	h := newHarness(t)
	order := sareeOrder(t, h)

	assert.True(t, dec("3000").Equal(order.Amounts.Subtotal))
	assert.True(t, dec("150").Equal(order.Amounts.VAT))
	assert.True(t, dec("3250").Equal(order.Amounts.Total))
	assert.True(t, dec("1250").Equal(order.Payments.Due))
	assert.EqualValues(t, 1, h.auditCount(t, model.ActionCreateOrder))
}

func TestCreateOrderDefaultsVATFromActiveRule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.taxSvc.CreateTaxRule(ctx, CreateTaxRuleRequest{TaxType: model.TaxTypeVAT, Rate: "0.12", EffectiveFrom: "2024-01-01"})
	require.NoError(t, err)

	order, err := h.orderSvc.CreateOrder(ctx, CreateOrderRequest{
		OrderCode: "ORD-VAT",
		Products:  []OrderLineRequest{{ProductName: "Kurta", Qty: 1, Price: dec("500")}},
	})
	require.NoError(t, err)

	assert.True(t, dec("12").Equal(order.Amounts.VATRate), order.Amounts.VATRate.String())
	assert.True(t, dec("60").Equal(order.Amounts.VAT))
}

func TestCreateOrderWithoutTaxRuleUsesZeroVAT(t *testing.T) {
	h := newHarness(t)
	order, err := h.orderSvc.CreateOrder(context.Background(), CreateOrderRequest{
		OrderCode: "ORD-NOVAT",
		Products:  []OrderLineRequest{{ProductName: "Kurta", Qty: 2, Price: dec("500")}},
	})
	require.NoError(t, err)
	assert.True(t, order.Amounts.VAT.IsZero())
	assert.True(t, dec("1000").Equal(order.Amounts.Total))
}

func TestCreateOrderRejectsDuplicateCode(t *testing.T) {
	h := newHarness(t)
	req := CreateOrderRequest{OrderCode: "ORD-DUP", Products: []OrderLineRequest{{ProductName: "Kurta", Qty: 1, Price: dec("1")}}}
	_, err := h.orderSvc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	_, err = h.orderSvc.CreateOrder(context.Background(), req)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestApplyExchangeWorkedExamplePersists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := sareeOrder(t, h)

	resp, err := h.orderSvc.ApplyExchange(ctx, ExchangeRequest{
		OrderID:             order.ID.String(),
		RemovedProducts:     []model.RemovedProduct{{ProductID: order.Products[0].ID.String(), Quantity: 3}},
		ReplacementProducts: []model.ReplacementProduct{{Name: "Saree B", Quantity: 2, Price: dec("800")}},
	})
	require.NoError(t, err)

	assert.True(t, dec("-1470").Equal(resp.Difference))
	assert.True(t, dec("-220").Equal(resp.TotalDue))
	assert.Equal(t, model.NoteRefund, resp.Note)
	assert.True(t, dec("1780").Equal(resp.Order.Amounts.Total))

	stored, err := h.orderSvc.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	require.Len(t, stored.Products, 1)
	assert.Equal(t, "Saree B", stored.Products[0].ProductName)
	assert.True(t, dec("1780").Equal(stored.Amounts.Total))
	assert.True(t, dec("-220").Equal(stored.Payments.Due))
	require.Len(t, stored.ExchangeHistory, 1)
	assert.Equal(t, model.NoteRefund, stored.ExchangeHistory[0].Note)
	assert.True(t, dec("3250").Equal(stored.ExchangeHistory[0].OriginalTotal))

	assert.EqualValues(t, 1, h.auditCount(t, model.ActionExchangeOrder))
	assert.Contains(t, h.events.types(), EventOrderExchanged)
	assert.Equal(t, 1.0, h.counter(t, "erpadmin_order_exchanges_total", model.NoteRefund))
}

func TestApplyExchangeMissingOrderID(t *testing.T) {
	h := newHarness(t)

	_, err := h.orderSvc.ApplyExchange(context.Background(), ExchangeRequest{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = h.orderSvc.ApplyExchange(context.Background(), ExchangeRequest{OrderID: "42"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestApplyExchangeUnknownOrder(t *testing.T) {
	h := newHarness(t)

	_, err := h.orderSvc.ApplyExchange(context.Background(), ExchangeRequest{OrderID: uuid.NewString()})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestApplyExchangeRejectsBadQuantities(t *testing.T) {
	h := newHarness(t)
	order := sareeOrder(t, h)

	_, err := h.orderSvc.ApplyExchange(context.Background(), ExchangeRequest{
		OrderID:         order.ID.String(),
		RemovedProducts: []model.RemovedProduct{{ProductID: order.Products[0].ID.String(), Quantity: 0}},
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

type failingAudit struct{ AuditService }

func (failingAudit) Record(context.Context, string, string, string, any) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "audit store down")
}

func TestApplyExchangeFailureLeavesOrderUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := sareeOrder(t, h)

	broken := h.infra
	broken.Audit = failingAudit{}
	svc := NewOrderService(broken, h.orders, h.taxSvc)

	_, err := svc.ApplyExchange(ctx, ExchangeRequest{
		OrderID:             order.ID.String(),
		RemovedProducts:     []model.RemovedProduct{{ProductID: order.Products[0].ID.String(), Quantity: 3}},
		ReplacementProducts: []model.ReplacementProduct{{Name: "Saree B", Quantity: 2, Price: dec("800")}},
	})
	require.Error(t, err)

	stored, err := h.orderSvc.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	require.Len(t, stored.Products, 1)
	assert.Equal(t, "Saree A", stored.Products[0].ProductName)
	assert.True(t, dec("3250").Equal(stored.Amounts.Total))
	assert.Empty(t, stored.ExchangeHistory)
}

func TestConcurrentExchangesAreSerialised(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := sareeOrder(t, h)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orderSvc.ApplyExchange(ctx, ExchangeRequest{
				OrderID:             order.ID.String(),
				ReplacementProducts: []model.ReplacementProduct{{Name: "Scarf", Quantity: 1, Price: dec("100")}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := h.orderSvc.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	require.Len(t, stored.Products, 2)
	assert.Equal(t, 4, stored.Products[1].Qty)
	assert.Len(t, stored.ExchangeHistory, 4)
}

func TestRecordPayment(t *testing.T) {
	h := newHarness(t)
	order := sareeOrder(t, h)

	updated, err := h.orderSvc.RecordPayment(context.Background(), order.ID.String(), RecordPaymentRequest{Amount: dec("1250"), Method: "cash"})
	require.NoError(t, err)
	assert.True(t, updated.Payments.Due.IsZero())
	assert.Equal(t, "cash", updated.Payments.Method)

	_, err = h.orderSvc.RecordPayment(context.Background(), order.ID.String(), RecordPaymentRequest{Amount: dec("-1")})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)
	sareeOrder(t, h)
	sareeOrder(t, h)

	orders, total, err := h.orderSvc.ListOrders(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)
}

func TestLockTimeoutIsConflict(t *testing.T) {
	h := newHarness(t)
	order := sareeOrder(t, h)

	infra := h.infra
	infra.Locker = lock.NewLocal(20 * time.Millisecond)
	svc := NewOrderService(infra, h.orders, h.taxSvc)

	release, err := infra.Locker.Acquire(context.Background(), lock.Key("order", order.ID.String()))
	require.NoError(t, err)
	defer func() { _ = release() }()

	_, err = svc.RecordPayment(context.Background(), order.ID.String(), RecordPaymentRequest{Amount: dec("1")})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.ErrorIs(t, err, lock.ErrTimeout)
	assert.Equal(t, 1.0, h.counter(t, "erpadmin_lock_timeouts_total", "order"))
}
