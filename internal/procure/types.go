// Package procure implements the entity services for users, purchase orders
// and shipments, including the shared authorization policy and the status
// state machines.
package procure

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// timeLayout is fixed width so that created_at strings compare
// lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// OrderStatus is the closed status set for purchase orders.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus validates a raw status value. Only set membership is
// checked; transition edges are deliberately not enforced.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(raw) {
	case OrderDraft, OrderPending, OrderApproved, OrderCancelled:
		return OrderStatus(raw), nil
	default:
		return "", fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}
}

// ShipmentStatus is the closed status set for shipments.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// ParseShipmentStatus validates a raw status value against the closed set.
func ParseShipmentStatus(raw string) (ShipmentStatus, error) {
	switch ShipmentStatus(raw) {
	case ShipmentPending, ShipmentInTransit, ShipmentDelivered, ShipmentCancelled:
		return ShipmentStatus(raw), nil
	default:
		return "", fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail applies the RFC-lite format check used across the service.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// sortByCreatedAtDesc orders entities newest first. Timestamps are fixed
// width so plain string comparison is chronological; order among equal
// timestamps is unspecified but stable.
func sortByCreatedAtDesc[T any](items []T, createdAt func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]) > createdAt(items[j])
	})
}
