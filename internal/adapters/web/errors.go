package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"pharmacy-orders/internal/core"
)

type errorResponse struct {
	Error     string        `json:"error"`
	Code      string        `json:"code"`
	RequestID string        `json:"request_id,omitempty"`
	Details   *stockDetails `json:"details,omitempty"`
}

// stockDetails names the drug that blocked a checkout.
type stockDetails struct {
	DrugID    int64  `json:"drug_id"`
	DrugName  string `json:"drug_name,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, status, errorResponse{Error: message, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, resp errorResponse) {
	resp.RequestID = requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindUnauthorized:
		return http.StatusForbidden
	case core.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError translates an application error into its HTTP response.
// Internal failures are reported without their cause.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := statusForKind(kind)
	resp := errorResponse{Error: err.Error(), Code: core.CodeOf(err)}

	var stockErr *core.StockError
	if errors.As(err, &stockErr) {
		resp.Details = &stockDetails{
			DrugID:    stockErr.DrugID,
			DrugName:  stockErr.DrugName,
			Available: stockErr.Available,
			Requested: stockErr.Requested,
		}
	}

	switch kind {
	case core.KindBusy:
		w.Header().Set("Retry-After", "1")
		resp.Error = "resource busy, retry later"
	case core.KindInternal:
		resp.Error = "internal server error"
		if errors.Is(err, core.ErrOrderFailed) {
			resp.Error = "order failed"
		}
	}
	writeErrorResponse(w, r, status, resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
