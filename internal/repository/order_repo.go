package repository

import (
	"context"

	"erpadmin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Replace(ctx context.Context, order *model.Order) error
	AppendExchange(ctx context.Context, record *model.ExchangeRecord) error
	List(ctx context.Context, page, limit int) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("ExchangeHistory", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") })
}

// Create stores the order with its line items. Exchange history is not
// written here; use AppendExchange.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	for i := range order.Products {
		order.Products[i].Position = i
	}
	return GetDB(ctx, r.db).Omit("ExchangeHistory").Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := preloadOrder(GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Replace overwrites the stored order row and its line items with the given
// snapshot. It returns gorm.ErrRecordNotFound when the order does not exist.
func (r *orderRepository) Replace(ctx context.Context, order *model.Order) error {
	db := GetDB(ctx, r.db)

	res := db.Model(&model.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"order_code":            order.OrderCode,
		"customer_name":         order.CustomerName,
		"amount_subtotal":       order.Amounts.Subtotal,
		"amount_total_discount": order.Amounts.TotalDiscount,
		"amount_vat":            order.Amounts.VAT,
		"amount_vat_rate":       order.Amounts.VATRate,
		"amount_transport_cost": order.Amounts.TransportCost,
		"amount_total":          order.Amounts.Total,
		"payment_total_paid":    order.Payments.TotalPaid,
		"payment_due":           order.Payments.Due,
		"payment_method":        order.Payments.Method,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	if err := db.Where("order_id = ?", order.ID).Delete(&model.LineItem{}).Error; err != nil {
		return err
	}
	if len(order.Products) == 0 {
		return nil
	}
	for i := range order.Products {
		order.Products[i].OrderID = order.ID
		order.Products[i].Position = i
	}
	return db.Omit(clause.Associations).Create(&order.Products).Error
}

func (r *orderRepository) AppendExchange(ctx context.Context, record *model.ExchangeRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *orderRepository) List(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := preloadOrder(db).
		Order("created_at DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
