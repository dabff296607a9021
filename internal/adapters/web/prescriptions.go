package web

import (
	"errors"
	"net/http"
	"strconv"

	"pharmacy-orders/internal/app"
)

// uploadPrescription handles POST /api/prescriptions (multipart/form-data).
// Form fields: "file" (the prescription scan) and "refill_allowed".
// The file is hashed and discarded; only its digest is stored.
func (h *Handler) uploadPrescription(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "file too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, "invalid multipart form: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	refills, err := strconv.Atoi(r.FormValue("refill_allowed"))
	if err != nil {
		writeError(w, r, "refill_allowed must be an integer", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "file is required", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.svc.UploadPrescription(r.Context(), actor(r), app.UploadPrescriptionRequest{
		Content:       file,
		RefillAllowed: refills,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// listPrescriptions handles GET /api/prescriptions?limit=N.
func (h *Handler) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListPrescriptions(r.Context(), actor(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getPrescription handles GET /api/prescriptions/{id}.
func (h *Handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetPrescription(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// dispensePrescription handles POST /api/prescriptions/{id}/dispense.
// The body is optional: {"override_refill_allowed": N}.
func (h *Handler) dispensePrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.DispenseRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	req.PrescriptionID = id

	result, err := h.svc.DispensePrescription(r.Context(), actor(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// rejectPrescription handles POST /api/prescriptions/{id}/reject.
func (h *Handler) rejectPrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.PrescriptionID = id

	result, err := h.svc.RejectPrescription(r.Context(), actor(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
