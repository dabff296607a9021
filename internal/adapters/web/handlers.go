package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"pharmacy-orders/internal/app"
	"pharmacy-orders/internal/core"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the settings the routes need.
type Handler struct {
	svc            app.ApplicationService
	logger         *zap.Logger
	jwtSecret      string
	maxUploadBytes int64
}

// Options configures NewHandler.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	h := &Handler{
		svc:            svc,
		logger:         logger,
		jwtSecret:      opts.JWTSecret,
		maxUploadBytes: maxUpload,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.With(RequestBodyLimit(1<<20)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		// Prescription upload: multipart, limited to maxUploadBytes inside the handler.
		r.Post("/api/prescriptions", h.uploadPrescription)

		// All other protected endpoints: 1 MB body limit.
		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(1 << 20))

			r.Get("/api/auth/me", h.me)

			// ── Drugs and inventory ───────────────────────────────────────────
			r.Post("/api/drugs", h.createDrug)
			r.Get("/api/drugs/{id}", h.getDrug)
			r.Post("/api/drugs/{id}/stock", h.adjustStock)
			r.Get("/api/drugs/{id}/inventory-log", h.inventoryLog)
			r.Get("/api/inventory/low-stock", h.lowStock)
			r.Get("/api/inventory/reconcile", h.reconcile)

			// ── Orders ────────────────────────────────────────────────────────
			r.Post("/api/orders", h.submitOrder)
			r.Get("/api/orders", h.listOrders)
			r.Get("/api/orders/{id}", h.getOrder)
			r.Post("/api/orders/{id}/cancel", h.cancelOrder)
			r.Post("/api/orders/{id}/complete", h.completeOrder)

			// ── Prescriptions ─────────────────────────────────────────────────
			r.Get("/api/prescriptions", h.listPrescriptions)
			r.Get("/api/prescriptions/{id}", h.getPrescription)
			r.Post("/api/prescriptions/{id}/dispense", h.dispensePrescription)
			r.Post("/api/prescriptions/{id}/reject", h.rejectPrescription)
		})
	})

	return r
}

// health reports service and database status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSONStatus(w, http.StatusServiceUnavailable, response{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// pathID parses the {id} URL parameter. On failure it writes a 400 and returns false.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id "+strconv.Quote(raw), "VALIDATION_ERROR", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter. Absent parameters yield (nil, true).
func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, "invalid "+name+" parameter", "VALIDATION_ERROR", http.StatusBadRequest)
		return nil, false
	}
	return &n, true
}

// limitParam returns the ?limit= value, or 0 to let the service choose.
func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, ok := queryInt(w, r, "limit")
	if !ok || n == nil {
		return 0, ok
	}
	return *n, true
}

// actor returns the authenticated actor. RequireAuth guarantees it is present.
func actor(r *http.Request) core.Actor {
	a, _ := actorFromContext(r.Context())
	return a
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeRequestBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted. An empty
// body, including an empty chunked one, leaves v untouched.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeRequestBody(w, r, v, true)
}

func decodeRequestBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return false
	}
	return true
}
