package httpapi

import (
	"net/http"
	"strings"

	"procurio.org/internal/procure"
)

type shipmentRequest struct {
	POID              string  `json:"po_id"`
	TrackingNumber    string  `json:"tracking_number"`
	Carrier           string  `json:"carrier"`
	EstimatedDelivery *string `json:"estimated_delivery"`
	Notes             *string `json:"notes"`
}

type shipmentUpdateRequest struct {
	TrackingNumber    *string `json:"tracking_number"`
	Carrier           *string `json:"carrier"`
	Status            *string `json:"status"`
	EstimatedDelivery *string `json:"estimated_delivery"`
	ActualDelivery    *string `json:"actual_delivery"`
	Notes             *string `json:"notes"`
}

func (a *API) handleShipments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		shipments, err := a.svc.ListShipments(r.Context(), r.URL.Query().Get("po_id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"shipments": shipments,
			"count":     len(shipments),
		})
	case http.MethodPost:
		var req shipmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		shipment, err := a.svc.CreateShipment(r.Context(), procure.ShipmentInput{
			POID:              req.POID,
			TrackingNumber:    req.TrackingNumber,
			Carrier:           req.Carrier,
			EstimatedDelivery: req.EstimatedDelivery,
			Notes:             req.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "shipment.create", "shipment", shipment.ID, map[string]any{
			"po_id":   shipment.POID,
			"carrier": shipment.Carrier,
		})
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":  "shipment created successfully",
			"shipment": shipment,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleShipmentResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/shipments/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "endpoint not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		shipment, err := a.svc.GetShipment(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"shipment": shipment,
		})
	case http.MethodPut:
		var req shipmentUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		shipment, err := a.svc.UpdateShipment(r.Context(), id, procure.ShipmentUpdate{
			TrackingNumber:    req.TrackingNumber,
			Carrier:           req.Carrier,
			Status:            req.Status,
			EstimatedDelivery: req.EstimatedDelivery,
			ActualDelivery:    req.ActualDelivery,
			Notes:             req.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "shipment.update", "shipment", shipment.ID, nil)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "shipment updated successfully",
			"shipment": shipment,
		})
	case http.MethodDelete:
		if err := a.svc.DeleteShipment(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "shipment.delete", "shipment", id, nil)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "shipment deleted successfully",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
