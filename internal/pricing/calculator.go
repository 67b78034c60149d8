// Package pricing derives order amounts and reconciles product exchanges.
package pricing

import (
	"erpadmin/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Amounts is the derived money summary of a list of line items.
type Amounts struct {
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	VAT           decimal.Decimal
	VATRate       decimal.Decimal
	TransportCost decimal.Decimal
	Total         decimal.Decimal
	Due           decimal.Decimal
}

// LineAmount returns price*qty - discount.
func LineAmount(price decimal.Decimal, qty int, discount decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Sub(discount)
}

// VAT rounds subtotal*rate/100 to a whole amount, half away from zero.
func VAT(subtotal, ratePercent decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(ratePercent).Div(hundred).Round(0)
}

// Calculate sums the items' stored amounts and discounts and applies VAT and
// transport cost. Zero values stand in for a missing rate, cost or payment.
func Calculate(items []model.LineItem, vatRate, transportCost, totalPaid decimal.Decimal) Amounts {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount)
		discount = discount.Add(item.Discount)
	}

	vat := VAT(subtotal, vatRate)
	total := subtotal.Add(vat).Add(transportCost)

	return Amounts{
		Subtotal:      subtotal,
		TotalDiscount: discount,
		VAT:           vat,
		VATRate:       vatRate,
		TransportCost: transportCost,
		Total:         total,
		Due:           total.Sub(totalPaid),
	}
}

// Reprice recomputes every item's amount from price, qty and discount.
func Reprice(items []model.LineItem) {
	for i := range items {
		items[i].Amount = LineAmount(items[i].Price, items[i].Qty, items[i].Discount)
	}
}

// Recalculate refreshes order's amounts and due from its current products,
// keeping its VAT rate, transport cost and total paid.
func Recalculate(order *model.Order) {
	a := Calculate(order.Products, order.Amounts.VATRate, order.Amounts.TransportCost, order.Payments.TotalPaid)
	order.Amounts = model.OrderAmounts{
		Subtotal:      a.Subtotal,
		TotalDiscount: a.TotalDiscount,
		VAT:           a.VAT,
		VATRate:       a.VATRate,
		TransportCost: a.TransportCost,
		Total:         a.Total,
	}
	order.Payments.Due = a.Due
}
