package service

import (
	"context"
	"strings"

	"erpadmin/internal/auth"
	"erpadmin/internal/model"
	"erpadmin/internal/repository"
	pkgerrors "erpadmin/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DispatchItemRequest struct {
	Barcode     string          `json:"barcode"`
	ProductName string          `json:"productName" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type CreateDispatchRequest struct {
	SourceStore      string                `json:"sourceStore" binding:"required"`
	DestinationStore string                `json:"destinationStore" binding:"required,nefield=SourceStore"`
	Note             string                `json:"note"`
	Items            []DispatchItemRequest `json:"items" binding:"required,min=1,dive"`
}

type RebalanceRequest struct {
	SourceStore      string   `json:"sourceStore" binding:"required"`
	DestinationStore string   `json:"destinationStore" binding:"required,nefield=SourceStore"`
	Barcodes         []string `json:"barcodes" binding:"required,min=1,dive,required"`
	Note             string   `json:"note"`
}

type DispatchService interface {
	CreateDispatch(ctx context.Context, req CreateDispatchRequest) (*model.Dispatch, error)
	GetDispatch(ctx context.Context, id string) (*model.Dispatch, error)
	ListDispatches(ctx context.Context, status model.DispatchStatus, page, limit int) ([]model.Dispatch, int64, error)
	Approve(ctx context.Context, id string) (*model.Dispatch, error)
	Ship(ctx context.Context, id string) (*model.Dispatch, error)
	Deliver(ctx context.Context, id string) (*model.Dispatch, error)
	Cancel(ctx context.Context, id string) (*model.Dispatch, error)
	// Rebalance drafts a pending dispatch moving in-stock units between stores.
	Rebalance(ctx context.Context, req RebalanceRequest) (*model.Dispatch, error)
}

type dispatchService struct {
	infra      Infra
	dispatches repository.DispatchRepository
	items      repository.InventoryRepository
}

func NewDispatchService(infra Infra, dispatches repository.DispatchRepository, items repository.InventoryRepository) DispatchService {
	return &dispatchService{infra: infra, dispatches: dispatches, items: items}
}

var transitionActions = map[model.DispatchStatus]string{
	model.DispatchApproved:  model.ActionApproveDispatch,
	model.DispatchInTransit: model.ActionShipDispatch,
	model.DispatchDelivered: model.ActionDeliverDispatch,
	model.DispatchCancelled: model.ActionCancelDispatch,
}

func parseDispatchID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalid("dispatch id %q is not a valid id", raw)
	}
	return id, nil
}

func (s *dispatchService) CreateDispatch(ctx context.Context, req CreateDispatchRequest) (*model.Dispatch, error) {
	source := strings.TrimSpace(req.SourceStore)
	destination := strings.TrimSpace(req.DestinationStore)
	if source == "" || destination == "" {
		return nil, invalid("sourceStore and destinationStore are required")
	}
	if source == destination {
		return nil, invalid("source and destination store must differ")
	}
	if len(req.Items) == 0 {
		return nil, invalid("a dispatch needs at least one item")
	}

	dispatch := &model.Dispatch{
		Status:           model.DispatchPending,
		SourceStore:      source,
		DestinationStore: destination,
		Reason:           model.DispatchReasonManual,
		Note:             req.Note,
		CreatedBy:        auth.ActorID(ctx),
	}
	var barcodes []string
	for i, it := range req.Items {
		if strings.TrimSpace(it.ProductName) == "" || it.Quantity <= 0 {
			return nil, invalid("items[%d] needs a productName and a positive quantity", i)
		}
		if it.UnitPrice.IsNegative() {
			return nil, invalid("items[%d] has a negative unitPrice", i)
		}
		barcode := strings.TrimSpace(it.Barcode)
		if barcode != "" {
			if it.Quantity != 1 {
				return nil, invalid("items[%d] names a single unit by barcode, quantity must be 1", i)
			}
			barcodes = append(barcodes, barcode)
		}
		dispatch.Items = append(dispatch.Items, model.DispatchItem{
			Barcode:     barcode,
			ProductName: strings.TrimSpace(it.ProductName),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	if len(dedupe(barcodes)) != len(barcodes) {
		return nil, invalid("a barcode may appear only once per dispatch")
	}
	dispatch.Recalculate()

	err := s.draft(ctx, source, func(txCtx context.Context) error {
		if len(barcodes) > 0 {
			if _, err := s.reserveUnits(txCtx, barcodes, source); err != nil {
				return err
			}
		}
		return s.create(txCtx, dispatch, model.ActionCreateDispatch)
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, dispatch)
	return dispatch, nil
}

func (s *dispatchService) Rebalance(ctx context.Context, req RebalanceRequest) (*model.Dispatch, error) {
	source := strings.TrimSpace(req.SourceStore)
	destination := strings.TrimSpace(req.DestinationStore)
	if source == "" || destination == "" || source == destination {
		return nil, invalid("rebalancing needs two different stores")
	}
	barcodes := dedupe(req.Barcodes)
	if len(barcodes) == 0 {
		return nil, invalid("barcodes are required")
	}

	dispatch := &model.Dispatch{
		Status:           model.DispatchPending,
		SourceStore:      source,
		DestinationStore: destination,
		Reason:           model.DispatchReasonRebalance,
		Note:             req.Note,
		CreatedBy:        auth.ActorID(ctx),
	}

	err := s.draft(ctx, source, func(txCtx context.Context) error {
		units, err := s.reserveUnits(txCtx, barcodes, source)
		if err != nil {
			return err
		}
		for _, unit := range units {
			dispatch.Items = append(dispatch.Items, model.DispatchItem{
				Barcode:     unit.Barcode,
				ProductName: unit.ProductName,
				Quantity:    1,
				UnitPrice:   decimal.Zero,
			})
		}
		dispatch.Recalculate()
		return s.create(txCtx, dispatch, model.ActionRebalance)
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, dispatch)
	return dispatch, nil
}

// draft runs fn in a transaction while holding the source store lock, so two
// drafts cannot claim the same unit.
func (s *dispatchService) draft(ctx context.Context, source string, fn func(txCtx context.Context) error) error {
	return s.infra.withLock(ctx, "store", source, func() error {
		return s.infra.Tx.RunInTx(ctx, fn)
	})
}

// reserveUnits checks the units are in stock at source and not already
// claimed by an open dispatch.
func (s *dispatchService) reserveUnits(ctx context.Context, barcodes []string, source string) ([]model.InventoryItem, error) {
	units, err := checkUnitsAt(ctx, s.items, barcodes, source)
	if err != nil {
		return nil, err
	}
	held, err := s.dispatches.OpenBarcodes(ctx, barcodes)
	if err != nil {
		return nil, storageError(err, "dispatch")
	}
	if len(held) > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "items already on an open dispatch: %s", strings.Join(held, ", "))
	}
	return units, nil
}

func (s *dispatchService) create(ctx context.Context, dispatch *model.Dispatch, action string) error {
	if err := s.dispatches.Create(ctx, dispatch); err != nil {
		return storageError(err, "dispatch")
	}
	return s.infra.Audit.Record(ctx, action, dispatch.ID.String(), dispatch.SourceStore+" -> "+dispatch.DestinationStore, map[string]any{
		"reason":        dispatch.Reason,
		"totalQuantity": dispatch.TotalQuantity,
		"totalValue":    dispatch.TotalValue,
	})
}

func (s *dispatchService) GetDispatch(ctx context.Context, id string) (*model.Dispatch, error) {
	dispatchID, err := parseDispatchID(id)
	if err != nil {
		return nil, err
	}
	dispatch, err := s.dispatches.FindByID(ctx, dispatchID)
	if err != nil {
		return nil, storageError(err, "dispatch")
	}
	return dispatch, nil
}

func (s *dispatchService) ListDispatches(ctx context.Context, status model.DispatchStatus, page, limit int) ([]model.Dispatch, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, invalid("unknown dispatch status %q", status)
	}
	page, limit = normalizePage(page, limit)
	dispatches, total, err := s.dispatches.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, storageError(err, "dispatch")
	}
	return dispatches, total, nil
}

func (s *dispatchService) Approve(ctx context.Context, id string) (*model.Dispatch, error) {
	return s.transition(ctx, id, model.DispatchApproved)
}

func (s *dispatchService) Ship(ctx context.Context, id string) (*model.Dispatch, error) {
	return s.transition(ctx, id, model.DispatchInTransit)
}

// Deliver also relocates the dispatched units to the destination store.
func (s *dispatchService) Deliver(ctx context.Context, id string) (*model.Dispatch, error) {
	return s.transition(ctx, id, model.DispatchDelivered)
}

func (s *dispatchService) Cancel(ctx context.Context, id string) (*model.Dispatch, error) {
	return s.transition(ctx, id, model.DispatchCancelled)
}

func (s *dispatchService) transition(ctx context.Context, id string, target model.DispatchStatus) (*model.Dispatch, error) {
	dispatchID, err := parseDispatchID(id)
	if err != nil {
		return nil, err
	}

	var dispatch *model.Dispatch
	err = s.infra.withLock(ctx, "dispatch", dispatchID.String(), func() error {
		return s.infra.Tx.RunInTx(ctx, func(txCtx context.Context) error {
			found, err := s.dispatches.FindByID(txCtx, dispatchID)
			if err != nil {
				return storageError(err, "dispatch")
			}
			from := found.Status
			if err := found.TransitionTo(target, s.infra.now()); err != nil {
				return stateConflict(err)
			}
			if target == model.DispatchDelivered {
				if err := s.moveUnits(txCtx, found); err != nil {
					return err
				}
			}
			if err := s.dispatches.Save(txCtx, found); err != nil {
				return storageError(err, "dispatch")
			}
			dispatch = found
			return s.infra.Audit.Record(txCtx, transitionActions[target], found.ID.String(), found.SourceStore+" -> "+found.DestinationStore, map[string]string{
				"from": string(from),
				"to":   string(target),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	s.infra.Metrics.IncDispatchTransition(string(target))
	s.announce(ctx, dispatch)
	return dispatch, nil
}

// moveUnits relocates the dispatched units. Every unit must still be in stock
// at the source store, otherwise the delivery is refused.
func (s *dispatchService) moveUnits(ctx context.Context, dispatch *model.Dispatch) error {
	barcodes := dispatch.Barcodes()
	moved, err := s.items.MoveToStore(ctx, barcodes, dispatch.SourceStore, dispatch.DestinationStore)
	if err != nil {
		return storageError(err, "inventory item")
	}
	if moved != int64(len(barcodes)) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "dispatch %s: %d of %d units are no longer in stock at %s",
			dispatch.ID, int64(len(barcodes))-moved, len(barcodes), dispatch.SourceStore)
	}
	return nil
}

func (s *dispatchService) announce(ctx context.Context, dispatch *model.Dispatch) {
	log := s.infra.logger()
	log.Info(log.WithFields(ctx, map[string]any{"dispatch_id": dispatch.ID.String(), "status": string(dispatch.Status)}), "dispatch.updated")
	s.infra.publish(ctx, "dispatch."+string(dispatch.Status), dispatch)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
