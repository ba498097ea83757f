package procure

import (
	"fmt"

	"procurio.org/internal/record"
)

// Shipment tracks one delivery against an existing purchase order.
type Shipment struct {
	ID                string         `json:"shipment_id"`
	POID              string         `json:"po_id"`
	TrackingNumber    string         `json:"tracking_number"`
	Carrier           string         `json:"carrier"`
	Status            ShipmentStatus `json:"status"`
	CreatedBy         string         `json:"created_by"`
	EstimatedDelivery *string        `json:"estimated_delivery"`
	ActualDelivery    *string        `json:"actual_delivery"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	Notes             *string        `json:"notes"`
}

// ToItem flattens the shipment into a store item.
func (sh Shipment) ToItem() record.Item {
	item := record.Item{
		"shipment_id":        sh.ID,
		"po_id":              sh.POID,
		"tracking_number":    sh.TrackingNumber,
		"carrier":            sh.Carrier,
		"status":             string(sh.Status),
		"created_by":         sh.CreatedBy,
		"estimated_delivery": nil,
		"actual_delivery":    nil,
		"created_at":         sh.CreatedAt,
		"updated_at":         sh.UpdatedAt,
		"notes":              nil,
	}
	if sh.EstimatedDelivery != nil {
		item["estimated_delivery"] = *sh.EstimatedDelivery
	}
	if sh.ActualDelivery != nil {
		item["actual_delivery"] = *sh.ActualDelivery
	}
	if sh.Notes != nil {
		item["notes"] = *sh.Notes
	}
	return item
}

// ShipmentFromItem rebuilds a shipment, rejecting unknown status values.
func ShipmentFromItem(item record.Item) (Shipment, error) {
	id, err := itemString(item, "shipment_id")
	if err != nil {
		return Shipment{}, err
	}
	poID, err := itemString(item, "po_id")
	if err != nil {
		return Shipment{}, err
	}
	tracking, err := itemString(item, "tracking_number")
	if err != nil {
		return Shipment{}, err
	}
	carrier, err := itemString(item, "carrier")
	if err != nil {
		return Shipment{}, err
	}
	rawStatus, err := itemString(item, "status")
	if err != nil {
		return Shipment{}, err
	}
	status, err := ParseShipmentStatus(rawStatus)
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: unknown shipment status %q", ErrCorruptRecord, rawStatus)
	}
	createdBy, err := itemString(item, "created_by")
	if err != nil {
		return Shipment{}, err
	}
	sh := Shipment{
		ID:                id,
		POID:              poID,
		TrackingNumber:    tracking,
		Carrier:           carrier,
		Status:            status,
		CreatedBy:         createdBy,
		EstimatedDelivery: itemOptString(item, "estimated_delivery"),
		ActualDelivery:    itemOptString(item, "actual_delivery"),
		Notes:             itemOptString(item, "notes"),
	}
	if v := itemOptString(item, "created_at"); v != nil {
		sh.CreatedAt = *v
	}
	if v := itemOptString(item, "updated_at"); v != nil {
		sh.UpdatedAt = *v
	}
	return sh, nil
}
