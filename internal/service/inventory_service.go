package service

import (
	"context"
	"errors"
	"strings"

	"erpadmin/internal/model"
	"erpadmin/internal/repository"
	pkgerrors "erpadmin/pkg/errors"
)

const (
	EventItemSold       = "inventory.sold"
	EventDefectReported = "inventory.defect_reported"
)

type ReceiveItemRequest struct {
	Barcode     string `json:"barcode" binding:"required"`
	ProductName string `json:"productName" binding:"required"`
	StoreID     string `json:"storeId" binding:"required"`
}

type InventoryService interface {
	ReceiveItem(ctx context.Context, req ReceiveItemRequest) (*model.InventoryItem, error)
	GetItem(ctx context.Context, barcode string) (*model.InventoryItem, error)
	ListItems(ctx context.Context, filter repository.InventoryFilter, page, limit int) ([]model.InventoryItem, int64, error)
	MarkSold(ctx context.Context, barcode string) (*model.InventoryItem, error)
	// ReportDefect flags the unit named by payload["barcode"] defective and
	// keeps the whole payload as the defect details.
	ReportDefect(ctx context.Context, payload map[string]any) (*model.DefectRecord, error)
	ListDefects(ctx context.Context, barcode string, page, limit int) ([]model.DefectRecord, int64, error)
}

type inventoryService struct {
	infra   Infra
	items   repository.InventoryRepository
	defects repository.DefectRepository
}

func NewInventoryService(infra Infra, items repository.InventoryRepository, defects repository.DefectRepository) InventoryService {
	return &inventoryService{infra: infra, items: items, defects: defects}
}

// stateConflict codes a refused status change.
func stateConflict(err error) error {
	var te *model.TransitionError
	if errors.As(err, &te) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, model.ErrInvalidTransition, te.Error())
	}
	return err
}

func (s *inventoryService) ReceiveItem(ctx context.Context, req ReceiveItemRequest) (*model.InventoryItem, error) {
	item := &model.InventoryItem{
		Barcode:     strings.TrimSpace(req.Barcode),
		ProductName: strings.TrimSpace(req.ProductName),
		StoreID:     strings.TrimSpace(req.StoreID),
		Status:      model.InventoryInStock,
	}
	if item.Barcode == "" || item.ProductName == "" || item.StoreID == "" {
		return nil, invalid("barcode, productName and storeId are required")
	}

	err := s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.items.Create(txCtx, item); err != nil {
			return storageError(err, "inventory item")
		}
		return s.infra.Audit.Record(txCtx, model.ActionReceiveItem, item.Barcode, item.ProductName, req)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *inventoryService) GetItem(ctx context.Context, barcode string) (*model.InventoryItem, error) {
	item, err := s.items.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, storageError(err, "inventory item")
	}
	return item, nil
}

func (s *inventoryService) ListItems(ctx context.Context, filter repository.InventoryFilter, page, limit int) ([]model.InventoryItem, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, invalid("unknown inventory status %q", filter.Status)
	}
	page, limit = normalizePage(page, limit)
	items, total, err := s.items.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, storageError(err, "inventory item")
	}
	return items, total, nil
}

func (s *inventoryService) MarkSold(ctx context.Context, barcode string) (*model.InventoryItem, error) {
	var item *model.InventoryItem
	err := s.infra.withLock(ctx, "inventory", barcode, func() error {
		return s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
			found, err := s.items.FindByBarcode(txCtx, barcode)
			if err != nil {
				return storageError(err, "inventory item")
			}
			if err := found.TransitionTo(model.InventorySold); err != nil {
				return stateConflict(err)
			}
			if err := s.items.Save(txCtx, found); err != nil {
				return storageError(err, "inventory item")
			}
			item = found
			return s.infra.Audit.Record(txCtx, model.ActionSellItem, found.Barcode, found.ProductName, map[string]string{"storeId": found.StoreID})
		})
	})
	if err != nil {
		return nil, err
	}

	s.infra.publish(ctx, EventItemSold, item)
	return item, nil
}

func (s *inventoryService) ReportDefect(ctx context.Context, payload map[string]any) (*model.DefectRecord, error) {
	raw, _ := payload["barcode"].(string)
	barcode := strings.TrimSpace(raw)
	if barcode == "" {
		return nil, invalid("barcode is required")
	}

	record := &model.DefectRecord{Barcode: barcode, Details: model.Attributes(payload)}
	err := s.infra.withLock(ctx, "inventory", barcode, func() error {
		return s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
			item, err := s.items.FindByBarcode(txCtx, barcode)
			if err != nil {
				return storageError(err, "inventory item")
			}
			// repeat reports on a defective unit only add a record
			if item.Status != model.InventoryDefective {
				if err := item.TransitionTo(model.InventoryDefective); err != nil {
					return stateConflict(err)
				}
				if err := s.items.Save(txCtx, item); err != nil {
					return storageError(err, "inventory item")
				}
			}

			record.AddedAt = s.infra.now()
			if err := s.defects.Append(txCtx, record); err != nil {
				return storageError(err, "defect record")
			}
			return s.infra.Audit.Record(txCtx, model.ActionReportDefect, barcode, item.ProductName, payload)
		})
	})
	if err != nil {
		return nil, err
	}

	s.infra.Metrics.IncDefect()
	s.infra.logger().Info(s.infra.logger().WithField(ctx, "barcode", barcode), "inventory.defect_reported")
	s.infra.publish(ctx, EventDefectReported, record)
	return record, nil
}

func (s *inventoryService) ListDefects(ctx context.Context, barcode string, page, limit int) ([]model.DefectRecord, int64, error) {
	page, limit = normalizePage(page, limit)
	records, total, err := s.defects.List(ctx, barcode, page, limit)
	if err != nil {
		return nil, 0, storageError(err, "defect record")
	}
	return records, total, nil
}

func missingBarcodes(requested []string, found []model.InventoryItem) []string {
	seen := make(map[string]bool, len(found))
	for _, item := range found {
		seen[item.Barcode] = true
	}
	var missing []string
	for _, code := range requested {
		if !seen[code] {
			missing = append(missing, code)
		}
	}
	return missing
}

// checkUnitsAt verifies every barcode is an in-stock unit at store.
func checkUnitsAt(ctx context.Context, items repository.InventoryRepository, barcodes []string, store string) ([]model.InventoryItem, error) {
	found, err := items.FindByBarcodes(ctx, barcodes)
	if err != nil {
		return nil, storageError(err, "inventory item")
	}
	if missing := missingBarcodes(barcodes, found); len(missing) > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory items not found: %s", strings.Join(missing, ", "))
	}
	for _, item := range found {
		if item.Status != model.InventoryInStock {
			return nil, invalid("item %s is %s, not in stock", item.Barcode, item.Status)
		}
		if item.StoreID != store {
			return nil, invalid("item %s is held at store %s, not %s", item.Barcode, item.StoreID, store)
		}
	}
	return found, nil
}
