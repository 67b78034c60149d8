package service

import (
	"context"
	"strings"

	"erpadmin/internal/model"
	"erpadmin/internal/pricing"
	"erpadmin/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderExchanged = "order.exchanged"
	EventOrderPaid      = "order.payment_recorded"
)

type OrderLineRequest struct {
	ProductName string          `json:"productName" binding:"required"`
	Size        string          `json:"size"`
	Qty         int             `json:"qty" binding:"required,gt=0"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
}

type CreateOrderRequest struct {
	OrderCode     string             `json:"orderCode" binding:"required"`
	CustomerName  string             `json:"customerName"`
	Products      []OrderLineRequest `json:"products" binding:"required,min=1,dive"`
	VATRate       *decimal.Decimal   `json:"vatRate"` // percent; defaults to the active VAT rule
	TransportCost decimal.Decimal    `json:"transportCost"`
	TotalPaid     decimal.Decimal    `json:"totalPaid"`
	PaymentMethod string             `json:"paymentMethod"`
}

type ExchangeRequest struct {
	OrderID             string                     `json:"orderId"`
	RemovedProducts     []model.RemovedProduct     `json:"removedProducts"`
	ReplacementProducts []model.ReplacementProduct `json:"replacementProducts"`
}

type ExchangeResponse struct {
	Order             *model.Order           `json:"order"`
	Difference        decimal.Decimal        `json:"difference"`
	TotalDue          decimal.Decimal        `json:"totalDue"`
	Note              string                 `json:"note"`
	UnmatchedRemovals []model.RemovedProduct `json:"unmatchedRemovals"`
}

type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, page, limit int) ([]model.Order, int64, error)
	RecordPayment(ctx context.Context, id string, req RecordPaymentRequest) (*model.Order, error)
	ApplyExchange(ctx context.Context, req ExchangeRequest) (*ExchangeResponse, error)
}

type orderService struct {
	infra  Infra
	orders repository.OrderRepository
	taxes  TaxService
}

func NewOrderService(infra Infra, orders repository.OrderRepository, taxes TaxService) OrderService {
	return &orderService{infra: infra, orders: orders, taxes: taxes}
}

func parseOrderID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, invalid("orderId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("orderId %q is not a valid id", raw)
	}
	return id, nil
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	if strings.TrimSpace(req.OrderCode) == "" {
		return nil, invalid("orderCode is required")
	}
	if len(req.Products) == 0 {
		return nil, invalid("an order needs at least one product")
	}
	if req.TransportCost.IsNegative() || req.TotalPaid.IsNegative() {
		return nil, invalid("transportCost and totalPaid must not be negative")
	}

	items := make([]model.LineItem, 0, len(req.Products))
	for i, p := range req.Products {
		if strings.TrimSpace(p.ProductName) == "" || p.Qty <= 0 {
			return nil, invalid("product %d needs a name and a positive qty", i+1)
		}
		if p.Price.IsNegative() || p.Discount.IsNegative() {
			return nil, invalid("product %d has a negative price or discount", i+1)
		}
		items = append(items, model.LineItem{
			ProductName: strings.TrimSpace(p.ProductName),
			Size:        p.Size,
			Qty:         p.Qty,
			Price:       p.Price,
			Discount:    p.Discount,
		})
	}
	pricing.Reprice(items)

	vatRate := decimal.Zero
	if req.VATRate != nil {
		if req.VATRate.IsNegative() {
			return nil, invalid("vatRate must not be negative")
		}
		vatRate = *req.VATRate
	} else {
		rate, err := s.taxes.VATPercent(ctx, s.infra.now())
		if err != nil {
			return nil, err
		}
		vatRate = rate
	}

	order := &model.Order{
		OrderCode:    strings.TrimSpace(req.OrderCode),
		CustomerName: req.CustomerName,
		Products:     items,
		Amounts:      model.OrderAmounts{VATRate: vatRate, TransportCost: req.TransportCost},
		Payments:     model.OrderPayments{TotalPaid: req.TotalPaid, Method: req.PaymentMethod},
	}
	pricing.Recalculate(order)

	err := s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Create(txCtx, order); err != nil {
			return storageError(err, "order")
		}
		return s.infra.Audit.Record(txCtx, model.ActionCreateOrder, order.ID.String(), order.OrderCode, map[string]any{
			"total": order.Amounts.Total,
			"items": len(order.Products),
		})
	})
	if err != nil {
		return nil, err
	}

	s.infra.publish(ctx, EventOrderCreated, order)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storageError(err, "order")
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.orders.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storageError(err, "order")
	}
	return orders, total, nil
}

func (s *orderService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest) (*model.Order, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, invalid("payment amount must be positive")
	}

	var order *model.Order
	err = s.infra.withLock(ctx, "order", orderID.String(), func() error {
		return s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
			found, err := s.orders.FindByID(txCtx, orderID)
			if err != nil {
				return storageError(err, "order")
			}
			found.Payments.TotalPaid = found.Payments.TotalPaid.Add(req.Amount)
			if req.Method != "" {
				found.Payments.Method = req.Method
			}
			pricing.Recalculate(found)

			if err := s.orders.Replace(txCtx, found); err != nil {
				return storageError(err, "order")
			}
			order = found
			return s.infra.Audit.Record(txCtx, model.ActionRecordPayment, found.ID.String(), found.OrderCode, req)
		})
	})
	if err != nil {
		return nil, err
	}

	s.infra.publish(ctx, EventOrderPaid, map[string]any{"orderId": order.ID, "due": order.Payments.Due})
	return order, nil
}

func validateExchange(req ExchangeRequest) error {
	for i, r := range req.RemovedProducts {
		if strings.TrimSpace(r.ProductID) == "" || r.Quantity <= 0 {
			return invalid("removedProducts[%d] needs a productId and a positive quantity", i)
		}
	}
	for i, p := range req.ReplacementProducts {
		if strings.TrimSpace(p.Name) == "" || p.Quantity <= 0 {
			return invalid("replacementProducts[%d] needs a name and a positive quantity", i)
		}
		if p.Price.IsNegative() {
			return invalid("replacementProducts[%d] has a negative price", i)
		}
	}
	return nil
}

// ApplyExchange reconciles removed and replacement products against the
// stored order. The new snapshot, the exchange record and the audit entry
// are written in one transaction.
func (s *orderService) ApplyExchange(ctx context.Context, req ExchangeRequest) (*ExchangeResponse, error) {
	orderID, err := parseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := validateExchange(req); err != nil {
		return nil, err
	}

	log := s.infra.logger()
	ctx = log.WithField(ctx, "order_id", orderID.String())

	var resp *ExchangeResponse
	err = s.infra.withLock(ctx, "order", orderID.String(), func() error {
		return s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
			order, err := s.orders.FindByID(txCtx, orderID)
			if err != nil {
				return storageError(err, "order")
			}

			updated, record, outcome := pricing.ApplyExchange(*order, req.RemovedProducts, req.ReplacementProducts, s.infra.now(), nil)

			if err := s.orders.Replace(txCtx, &updated); err != nil {
				return storageError(err, "order")
			}
			if err := s.orders.AppendExchange(txCtx, &record); err != nil {
				return storageError(err, "exchange record")
			}
			if err := s.infra.Audit.Record(txCtx, model.ActionExchangeOrder, updated.ID.String(), updated.OrderCode, record); err != nil {
				return err
			}

			resp = &ExchangeResponse{
				Order:             &updated,
				Difference:        outcome.Difference,
				TotalDue:          outcome.TotalDue,
				Note:              outcome.Note,
				UnmatchedRemovals: outcome.UnmatchedRemovals,
			}
			return nil
		})
	})
	if err != nil {
		log.Error(ctx, "order.exchange_failed", err)
		return nil, err
	}

	if len(resp.UnmatchedRemovals) > 0 {
		log.Warn(log.WithField(ctx, "unmatched", len(resp.UnmatchedRemovals)), "order.exchange_unmatched_removals")
	}
	log.Info(log.WithFields(ctx, map[string]any{"difference": resp.Difference.String(), "note": resp.Note}), "order.exchanged")
	s.infra.Metrics.IncExchange(resp.Note)
	s.infra.publish(ctx, EventOrderExchanged, map[string]any{
		"orderId":    orderID,
		"difference": resp.Difference,
		"totalDue":   resp.TotalDue,
		"note":       resp.Note,
	})
	return resp, nil
}
