package pricing

import (
	"strings"
	"time"

	"erpadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeOutcome summarises one applied exchange.
type ExchangeOutcome struct {
	Difference        decimal.Decimal
	TotalDue          decimal.Decimal
	Note              string
	UnmatchedRemovals []model.RemovedProduct
}

// Classify maps a total difference to its exchange note.
func Classify(difference decimal.Decimal) string {
	switch difference.Sign() {
	case 1:
		return model.NoteCustomerOwes
	case -1:
		return model.NoteRefund
	default:
		return model.NoteNoDifference
	}
}

// ApplyExchange removes and adds products on a copy of order, recalculates it
// and builds the exchange record to append. The input order is not modified.
// Removals are matched by line item id; those that match nothing are skipped
// and reported in the outcome.
func ApplyExchange(
	order model.Order,
	removed []model.RemovedProduct,
	replacements []model.ReplacementProduct,
	now time.Time,
	newID func() uuid.UUID,
) (model.Order, model.ExchangeRecord, ExchangeOutcome) {
	if newID == nil {
		newID = uuid.New
	}

	updated := order
	updated.Products = append([]model.LineItem(nil), order.Products...)
	updated.ExchangeHistory = append([]model.ExchangeRecord(nil), order.ExchangeHistory...)
	originalTotal := order.Amounts.Total

	var unmatched []model.RemovedProduct
	for _, r := range removed {
		idx := indexByID(updated.Products, r.ProductID)
		if idx < 0 {
			unmatched = append(unmatched, r)
			continue
		}
		item := &updated.Products[idx]
		if r.Quantity >= item.Qty {
			updated.Products = append(updated.Products[:idx], updated.Products[idx+1:]...)
			continue
		}
		item.Qty -= r.Quantity
		item.Amount = LineAmount(item.Price, item.Qty, item.Discount)
	}

	for _, p := range replacements {
		idx := indexByName(updated.Products, p.Name)
		if idx >= 0 {
			item := &updated.Products[idx]
			item.Qty += p.Quantity
			item.Amount = LineAmount(item.Price, item.Qty, item.Discount)
			continue
		}
		updated.Products = append(updated.Products, model.LineItem{
			ID:          newID(),
			OrderID:     order.ID,
			ProductName: p.Name,
			Size:        p.Size,
			Qty:         p.Quantity,
			Price:       p.Price,
			Discount:    decimal.Zero,
			Amount:      LineAmount(p.Price, p.Quantity, decimal.Zero),
		})
	}
	for i := range updated.Products {
		updated.Products[i].Position = i
	}

	Recalculate(&updated)

	difference := updated.Amounts.Total.Sub(originalTotal)
	note := Classify(difference)

	record := model.ExchangeRecord{
		ID:                  newID(),
		OrderID:             order.ID,
		Date:                now,
		RemovedProducts:     append(model.RemovedProducts{}, removed...),
		ReplacementProducts: append(model.ReplacementProducts{}, replacements...),
		UnmatchedRemovals:   unmatched,
		OriginalTotal:       originalTotal,
		NewTotal:            updated.Amounts.Total,
		Difference:          difference,
		Note:                note,
	}
	updated.ExchangeHistory = append(updated.ExchangeHistory, record)

	return updated, record, ExchangeOutcome{
		Difference:        difference,
		TotalDue:          updated.Payments.Due,
		Note:              note,
		UnmatchedRemovals: unmatched,
	}
}

func indexByID(items []model.LineItem, productID string) int {
	id := strings.TrimSpace(productID)
	for i, item := range items {
		if strings.EqualFold(item.ID.String(), id) {
			return i
		}
	}
	return -1
}

func indexByName(items []model.LineItem, name string) int {
	for i, item := range items {
		if strings.EqualFold(item.ProductName, name) {
			return i
		}
	}
	return -1
}
