package procure

import (
	"fmt"

	"procurio.org/internal/record"
)

// LineItem is a single ordered position on a purchase order.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// PurchaseOrder is a supplier order owned by its creator.
type PurchaseOrder struct {
	ID          string      `json:"po_id"`
	Supplier    string      `json:"supplier"`
	Items       []LineItem  `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
	Notes       *string     `json:"notes"`
}

// ToItem flattens the order into a store item. Notes stay present as nil
// when unset, mirroring the stored shape.
func (po PurchaseOrder) ToItem() record.Item {
	items := make([]any, len(po.Items))
	for i, li := range po.Items {
		items[i] = map[string]any{
			"name":       li.Name,
			"quantity":   li.Quantity,
			"unit_price": li.UnitPrice,
		}
	}
	item := record.Item{
		"po_id":        po.ID,
		"supplier":     po.Supplier,
		"items":        items,
		"total_amount": po.TotalAmount,
		"status":       string(po.Status),
		"created_by":   po.CreatedBy,
		"created_at":   po.CreatedAt,
		"updated_at":   po.UpdatedAt,
		"notes":        nil,
	}
	if po.Notes != nil {
		item["notes"] = *po.Notes
	}
	return item
}

// OrderFromItem rebuilds a purchase order, rejecting unknown status values.
func OrderFromItem(item record.Item) (PurchaseOrder, error) {
	id, err := itemString(item, "po_id")
	if err != nil {
		return PurchaseOrder{}, err
	}
	supplier, err := itemString(item, "supplier")
	if err != nil {
		return PurchaseOrder{}, err
	}
	rawStatus, err := itemString(item, "status")
	if err != nil {
		return PurchaseOrder{}, err
	}
	status, err := ParseOrderStatus(rawStatus)
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: unknown order status %q", ErrCorruptRecord, rawStatus)
	}
	createdBy, err := itemString(item, "created_by")
	if err != nil {
		return PurchaseOrder{}, err
	}
	total, err := itemNumber(item, "total_amount")
	if err != nil {
		return PurchaseOrder{}, err
	}
	lineItems, err := lineItemsFromValue(item["items"])
	if err != nil {
		return PurchaseOrder{}, err
	}
	po := PurchaseOrder{
		ID:          id,
		Supplier:    supplier,
		Items:       lineItems,
		TotalAmount: total,
		Status:      status,
		CreatedBy:   createdBy,
		Notes:       itemOptString(item, "notes"),
	}
	if v := itemOptString(item, "created_at"); v != nil {
		po.CreatedAt = *v
	}
	if v := itemOptString(item, "updated_at"); v != nil {
		po.UpdatedAt = *v
	}
	return po, nil
}

func lineItemsFromValue(v any) ([]LineItem, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: items is not a list", ErrCorruptRecord)
	}
	out := make([]LineItem, 0, len(raw))
	for _, e := range raw {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: malformed line item", ErrCorruptRecord)
		}
		li := LineItem{}
		if name, ok := entry["name"].(string); ok {
			li.Name = name
		}
		li.Quantity = numberOrZero(entry["quantity"])
		li.UnitPrice = numberOrZero(entry["unit_price"])
		out = append(out, li)
	}
	return out, nil
}

func numberOrZero(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
