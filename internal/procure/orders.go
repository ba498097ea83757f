package procure

import (
	"context"
	"errors"
	"fmt"

	"procurio.org/internal/record"
)

// OrderInput carries the fields accepted when creating a purchase order.
type OrderInput struct {
	Supplier    string
	Items       []LineItem
	TotalAmount float64
	Notes       *string
}

// OrderUpdate carries the allow-listed mutable fields. Nil fields are left
// untouched.
type OrderUpdate struct {
	Supplier    *string
	Items       *[]LineItem
	TotalAmount *float64
	Status      *string
	Notes       *string
}

func (u OrderUpdate) empty() bool {
	return u.Supplier == nil && u.Items == nil && u.TotalAmount == nil &&
		u.Status == nil && u.Notes == nil
}

func validateLineItems(items []LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items must be a non-empty list", ErrInvalidInput)
	}
	for _, li := range items {
		if li.Name == "" || li.Quantity == 0 || li.UnitPrice == 0 {
			return fmt.Errorf("%w: each item must have name, quantity, and unit_price", ErrInvalidInput)
		}
	}
	return nil
}

// ListOrders returns orders visible to the caller, newest first. Admins see
// every order; other callers only their own.
func (s *Service) ListOrders(ctx context.Context) ([]PurchaseOrder, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	var filter record.Filter
	if !ident.IsAdmin() {
		filter = func(item record.Item) bool {
			creator, _ := item["created_by"].(string)
			return creator == ident.Subject
		}
	}
	items, err := s.records.Scan(ctx, record.TablePurchaseOrders, filter)
	if err != nil {
		return nil, err
	}
	orders := make([]PurchaseOrder, 0, len(items))
	for _, item := range items {
		po, err := OrderFromItem(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	sortByCreatedAtDesc(orders, func(po PurchaseOrder) string { return po.CreatedAt })
	return orders, nil
}

// CreateOrder validates the input and persists a new order in draft status
// owned by the caller. Non-admins need the purchase_order_create permission.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (PurchaseOrder, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.requirePermission(ctx, ident, PermPurchaseOrderCreate); err != nil {
		return PurchaseOrder{}, err
	}
	if in.Supplier == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: missing required field: supplier", ErrInvalidInput)
	}
	if err := validateLineItems(in.Items); err != nil {
		return PurchaseOrder{}, err
	}
	if in.TotalAmount <= 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: total amount must be a positive number", ErrInvalidInput)
	}

	now := s.timestamp()
	po := PurchaseOrder{
		ID:          s.newID(),
		Supplier:    in.Supplier,
		Items:       in.Items,
		TotalAmount: in.TotalAmount,
		Status:      OrderDraft,
		CreatedBy:   ident.Subject,
		CreatedAt:   now,
		UpdatedAt:   now,
		Notes:       in.Notes,
	}
	if err := s.records.Put(ctx, record.TablePurchaseOrders, po.ToItem()); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// GetOrder loads one order. Missing ids report not-found before the
// ownership gate runs.
func (s *Service) GetOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po, err := s.loadOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !canAccess(ident, po.CreatedBy) {
		return PurchaseOrder{}, ErrForbidden
	}
	return po, nil
}

// UpdateOrder applies the allow-listed fields present in upd. Any in-set
// status value is accepted; transition edges are not enforced.
func (s *Service) UpdateOrder(ctx context.Context, id string, upd OrderUpdate) (PurchaseOrder, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po, err := s.loadOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !canAccess(ident, po.CreatedBy) {
		return PurchaseOrder{}, ErrForbidden
	}
	if upd.empty() {
		return PurchaseOrder{}, fmt.Errorf("%w: no valid fields to update", ErrInvalidInput)
	}

	if upd.Supplier != nil {
		po.Supplier = *upd.Supplier
	}
	if upd.Items != nil {
		if err := validateLineItems(*upd.Items); err != nil {
			return PurchaseOrder{}, err
		}
		po.Items = *upd.Items
	}
	if upd.TotalAmount != nil {
		if *upd.TotalAmount <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: total amount must be a positive number", ErrInvalidInput)
		}
		po.TotalAmount = *upd.TotalAmount
	}
	if upd.Status != nil {
		status, err := ParseOrderStatus(*upd.Status)
		if err != nil {
			return PurchaseOrder{}, err
		}
		po.Status = status
	}
	if upd.Notes != nil {
		po.Notes = upd.Notes
	}

	po.UpdatedAt = s.timestamp()
	if err := s.records.Put(ctx, record.TablePurchaseOrders, po.ToItem()); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// DeleteOrder removes one order after the ownership gate.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	ident, err := s.caller(ctx)
	if err != nil {
		return err
	}
	po, err := s.loadOrder(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(ident, po.CreatedBy) {
		return ErrForbidden
	}
	return s.records.Delete(ctx, record.TablePurchaseOrders, id)
}

func (s *Service) loadOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	item, err := s.records.Get(ctx, record.TablePurchaseOrders, id)
	if err != nil {
		if errors.Is(err, record.ErrItemNotFound) {
			return PurchaseOrder{}, fmt.Errorf("%w: purchase order not found", ErrNotFound)
		}
		return PurchaseOrder{}, err
	}
	return OrderFromItem(item)
}
