package httpapi

import (
	"net/http"
	"strings"

	"procurio.org/internal/procure"
)

type orderRequest struct {
	Supplier    string             `json:"supplier"`
	Items       []procure.LineItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Notes       *string            `json:"notes"`
}

type orderUpdateRequest struct {
	Supplier    *string             `json:"supplier"`
	Items       *[]procure.LineItem `json:"items"`
	TotalAmount *float64            `json:"total_amount"`
	Status      *string             `json:"status"`
	Notes       *string             `json:"notes"`
}

func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		orders, err := a.svc.ListOrders(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"purchase_orders": orders,
			"count":           len(orders),
		})
	case http.MethodPost:
		var req orderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		order, err := a.svc.CreateOrder(r.Context(), procure.OrderInput{
			Supplier:    req.Supplier,
			Items:       req.Items,
			TotalAmount: req.TotalAmount,
			Notes:       req.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "purchase_order.create", "purchase_order", order.ID, map[string]any{
			"supplier": order.Supplier,
		})
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":        "purchase order created successfully",
			"purchase_order": order,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrderResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/purchase-orders/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "endpoint not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		order, err := a.svc.GetOrder(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"purchase_order": order,
		})
	case http.MethodPut:
		var req orderUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		order, err := a.svc.UpdateOrder(r.Context(), id, procure.OrderUpdate{
			Supplier:    req.Supplier,
			Items:       req.Items,
			TotalAmount: req.TotalAmount,
			Status:      req.Status,
			Notes:       req.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "purchase_order.update", "purchase_order", order.ID, nil)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "purchase order updated successfully",
			"purchase_order": order,
		})
	case http.MethodDelete:
		if err := a.svc.DeleteOrder(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "purchase_order.delete", "purchase_order", id, nil)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "purchase order deleted successfully",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
