// Package record abstracts the durable keyed-table store backing all entity
// tables. Items are schemaless attribute maps; each table declares its key
// attribute and optional secondary indexes.
package record

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrItemNotFound   = errors.New("record: item not found")
	ErrUnknownTable   = errors.New("record: unknown table")
	ErrMissingKey     = errors.New("record: item is missing its key attribute")
	ErrUnknownIndex   = errors.New("record: unknown index")
)

// Item is a single schemaless row. Values carry whatever JSON produced.
type Item map[string]any

// Clone returns a shallow copy of the item with list values copied.
func (it Item) Clone() Item {
	if it == nil {
		return nil
	}
	out := make(Item, len(it))
	for k, v := range it {
		if list, ok := v.([]any); ok {
			cp := make([]any, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Table names used by the service.
const (
	TableUsers          = "users"
	TablePurchaseOrders = "purchase_orders"
	TableShipments      = "shipments"
)

// IndexShipmentsByPO is the secondary index on the shipments table.
const IndexShipmentsByPO = "po-id-index"

var tableKeys = map[string]string{
	TableUsers:          "user_id",
	TablePurchaseOrders: "po_id",
	TableShipments:      "shipment_id",
}

var tableIndexes = map[string]map[string]string{
	TableShipments: {IndexShipmentsByPO: "po_id"},
}

// KeyAttribute returns the primary key attribute of a known table.
func KeyAttribute(table string) (string, error) {
	attr, ok := tableKeys[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return attr, nil
}

// IndexAttribute resolves a secondary index of a table to its attribute.
func IndexAttribute(table, index string) (string, error) {
	if _, err := KeyAttribute(table); err != nil {
		return "", err
	}
	attr, ok := tableIndexes[table][index]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownIndex, table, index)
	}
	return attr, nil
}

// Filter selects items during a Scan. A nil filter matches everything.
type Filter func(Item) bool

// Store is the capability surface of the keyed-table service. Put overwrites
// unconditionally (last write wins); Delete is idempotent.
type Store interface {
	Get(ctx context.Context, table, key string) (Item, error)
	Put(ctx context.Context, table string, item Item) error
	Delete(ctx context.Context, table, key string) error
	Scan(ctx context.Context, table string, filter Filter) ([]Item, error)
	Query(ctx context.Context, table, index, value string) ([]Item, error)
}

func itemKey(table string, item Item) (string, error) {
	attr, err := KeyAttribute(table)
	if err != nil {
		return "", err
	}
	key, _ := item[attr].(string)
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, attr)
	}
	return key, nil
}
