package web

import (
	"net/http"

	"pharmacy-orders/internal/app"
)

// createDrug handles POST /api/drugs.
func (h *Handler) createDrug(w http.ResponseWriter, r *http.Request) {
	var req app.CreateDrugRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreateDrug(r.Context(), actor(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// getDrug handles GET /api/drugs/{id}.
func (h *Handler) getDrug(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetDrug(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// adjustStock handles POST /api/drugs/{id}/stock.
func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.AdjustStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.DrugID = id

	result, err := h.svc.AdjustStock(r.Context(), actor(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// inventoryLog handles GET /api/drugs/{id}/inventory-log?limit=N.
func (h *Handler) inventoryLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.InventoryLog(r.Context(), actor(r), id, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// lowStock handles GET /api/inventory/low-stock?threshold=N.
func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, ok := queryInt(w, r, "threshold")
	if !ok {
		return
	}
	result, err := h.svc.LowStock(r.Context(), actor(r), threshold)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// reconcile handles GET /api/inventory/reconcile.
func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Reconcile(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
