package procure

import (
	"context"
	"errors"
	"fmt"

	"procurio.org/internal/record"
)

// ShipmentInput carries the fields accepted when creating a shipment.
type ShipmentInput struct {
	POID              string
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery *string
	Notes             *string
}

// ShipmentUpdate carries the allow-listed mutable fields. Nil fields are
// left untouched.
type ShipmentUpdate struct {
	TrackingNumber    *string
	Carrier           *string
	Status            *string
	EstimatedDelivery *string
	ActualDelivery    *string
	Notes             *string
}

func (u ShipmentUpdate) empty() bool {
	return u.TrackingNumber == nil && u.Carrier == nil && u.Status == nil &&
		u.EstimatedDelivery == nil && u.ActualDelivery == nil && u.Notes == nil
}

// ListShipments returns shipments visible to the caller, newest first.
// A non-empty poID narrows the result to shipments of that purchase order
// via the secondary index; the ownership filter still applies.
func (s *Service) ListShipments(ctx context.Context, poID string) ([]Shipment, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	var items []record.Item
	if poID != "" {
		items, err = s.records.Query(ctx, record.TableShipments, record.IndexShipmentsByPO, poID)
	} else {
		items, err = s.records.Scan(ctx, record.TableShipments, nil)
	}
	if err != nil {
		return nil, err
	}

	shipments := make([]Shipment, 0, len(items))
	for _, item := range items {
		sh, err := ShipmentFromItem(item)
		if err != nil {
			return nil, err
		}
		if !canAccess(ident, sh.CreatedBy) {
			continue
		}
		shipments = append(shipments, sh)
	}
	sortByCreatedAtDesc(shipments, func(sh Shipment) string { return sh.CreatedAt })
	return shipments, nil
}

// CreateShipment validates the referenced purchase order and persists a new
// shipment in pending status owned by the caller. Non-admins need the
// shipment_create permission. A dangling po_id is caller input, so it maps
// to invalid input rather than not-found.
func (s *Service) CreateShipment(ctx context.Context, in ShipmentInput) (Shipment, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return Shipment{}, err
	}
	if err := s.requirePermission(ctx, ident, PermShipmentCreate); err != nil {
		return Shipment{}, err
	}
	if in.POID == "" {
		return Shipment{}, fmt.Errorf("%w: missing required field: po_id", ErrInvalidInput)
	}
	if in.TrackingNumber == "" {
		return Shipment{}, fmt.Errorf("%w: missing required field: tracking_number", ErrInvalidInput)
	}
	if in.Carrier == "" {
		return Shipment{}, fmt.Errorf("%w: missing required field: carrier", ErrInvalidInput)
	}

	if _, err := s.records.Get(ctx, record.TablePurchaseOrders, in.POID); err != nil {
		if errors.Is(err, record.ErrItemNotFound) {
			return Shipment{}, fmt.Errorf("%w: purchase order not found", ErrInvalidInput)
		}
		return Shipment{}, err
	}

	now := s.timestamp()
	sh := Shipment{
		ID:                s.newID(),
		POID:              in.POID,
		TrackingNumber:    in.TrackingNumber,
		Carrier:           in.Carrier,
		Status:            ShipmentPending,
		CreatedBy:         ident.Subject,
		EstimatedDelivery: in.EstimatedDelivery,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.records.Put(ctx, record.TableShipments, sh.ToItem()); err != nil {
		return Shipment{}, err
	}
	return sh, nil
}

// GetShipment loads one shipment. Missing ids report not-found before the
// ownership gate runs.
func (s *Service) GetShipment(ctx context.Context, id string) (Shipment, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return Shipment{}, err
	}
	sh, err := s.loadShipment(ctx, id)
	if err != nil {
		return Shipment{}, err
	}
	if !canAccess(ident, sh.CreatedBy) {
		return Shipment{}, ErrForbidden
	}
	return sh, nil
}

// UpdateShipment applies the allow-listed fields present in upd. The first
// transition to delivered stamps actual_delivery when unset; an explicit
// actual_delivery in the same payload is applied afterwards and wins.
func (s *Service) UpdateShipment(ctx context.Context, id string, upd ShipmentUpdate) (Shipment, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return Shipment{}, err
	}
	sh, err := s.loadShipment(ctx, id)
	if err != nil {
		return Shipment{}, err
	}
	if !canAccess(ident, sh.CreatedBy) {
		return Shipment{}, ErrForbidden
	}
	if upd.empty() {
		return Shipment{}, fmt.Errorf("%w: no valid fields to update", ErrInvalidInput)
	}

	if upd.TrackingNumber != nil {
		sh.TrackingNumber = *upd.TrackingNumber
	}
	if upd.Carrier != nil {
		sh.Carrier = *upd.Carrier
	}
	if upd.Status != nil {
		status, err := ParseShipmentStatus(*upd.Status)
		if err != nil {
			return Shipment{}, err
		}
		sh.Status = status
		if status == ShipmentDelivered && sh.ActualDelivery == nil {
			stamp := s.timestamp()
			sh.ActualDelivery = &stamp
		}
	}
	if upd.EstimatedDelivery != nil {
		sh.EstimatedDelivery = upd.EstimatedDelivery
	}
	if upd.ActualDelivery != nil {
		sh.ActualDelivery = upd.ActualDelivery
	}
	if upd.Notes != nil {
		sh.Notes = upd.Notes
	}

	sh.UpdatedAt = s.timestamp()
	if err := s.records.Put(ctx, record.TableShipments, sh.ToItem()); err != nil {
		return Shipment{}, err
	}
	return sh, nil
}

// DeleteShipment removes one shipment after the ownership gate.
func (s *Service) DeleteShipment(ctx context.Context, id string) error {
	ident, err := s.caller(ctx)
	if err != nil {
		return err
	}
	sh, err := s.loadShipment(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(ident, sh.CreatedBy) {
		return ErrForbidden
	}
	return s.records.Delete(ctx, record.TableShipments, id)
}

func (s *Service) loadShipment(ctx context.Context, id string) (Shipment, error) {
	item, err := s.records.Get(ctx, record.TableShipments, id)
	if err != nil {
		if errors.Is(err, record.ErrItemNotFound) {
			return Shipment{}, fmt.Errorf("%w: shipment not found", ErrNotFound)
		}
		return Shipment{}, err
	}
	return ShipmentFromItem(item)
}
