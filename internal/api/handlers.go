/**
 * @description
 * This file contains the HTTP handlers for the catalog and service-request endpoints.
 * Handlers parse incoming requests, call the application service with the caller's
 * identity, and write the JSON response. Every application error is mapped to an
 * HTTP status in `writeAppError`.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: For URL parameters.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/elllyers/ineza/internal/app"
	"github.com/elllyers/ineza/internal/domain"
	"github.com/elllyers/ineza/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

const (
	codeValidation      = "VALIDATION_ERROR"
	codeUnauthorized    = "UNAUTHORIZED"
	codeForbidden       = "FORBIDDEN"
	codeNotFound        = "NOT_FOUND"
	codeUniqueViolation = "UNIQUE_CONSTRAINT_VIOLATION"
	codeForeignKey      = "FOREIGN_KEY_CONSTRAINT"
	codeInternal        = "INTERNAL"
)

type errorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details map[string][]string `json:"details,omitempty"`
}

type dataResponse struct {
	Data interface{} `json:"data"`
}

type deletedServiceResponse struct {
	Message string `json:"message"`
	Data    struct {
		ID uuid.UUID `json:"id"`
	} `json:"data"`
}

// Handler holds the application service that handlers will use.
type Handler struct {
	service app.Service
	logger  *slog.Logger
}

// NewHandler creates a new instance of Handler.
func NewHandler(service app.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context(), IdentityFromContext(r.Context()), r.URL.Query().Get("type"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: services})
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.service.GetService(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "serviceId"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: svc})
}

func (h *Handler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var payload domain.CreateServicePayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	svc, err := h.service.CreateService(r.Context(), caller, payload)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: svc})
}

func (h *Handler) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var payload domain.UpdateServicePayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	svc, err := h.service.UpdateService(r.Context(), caller, chi.URLParam(r, "serviceId"), payload)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: svc})
}

func (h *Handler) handleSetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var payload domain.SetPaymentMethodPayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	method, err := h.service.SetPaymentMethodEnabled(
		r.Context(),
		caller,
		chi.URLParam(r, "serviceId"),
		chi.URLParam(r, "methodType"),
		payload,
	)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: method})
}

func (h *Handler) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.DeleteService(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "serviceId"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	resp := deletedServiceResponse{Message: "Service deleted successfully"}
	resp.Data.ID = id
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload domain.CreateServiceRequestPayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	req, err := h.service.SubmitRequest(r.Context(), IdentityFromContext(r.Context()), payload)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: req})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.ListRequests(r.Context(), IdentityFromContext(r.Context()), domain.ServiceRequestQuery{
		Status:    q.Get("status"),
		Query:     q.Get("query"),
		Page:      q.Get("page"),
		Limit:     q.Get("limit"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.GetRequest(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "requestId"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: req})
}

func (h *Handler) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	var payload domain.UpdateServiceRequestPayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	req, err := h.service.UpdateRequest(r.Context(), caller, chi.URLParam(r, "requestId"), payload)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: req})
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteRequest(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "requestId"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: deleted})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), IdentityFromContext(r.Context()))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.service.WhoAmI(IdentityFromContext(r.Context()))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: me})
}

// requireAdmin rejects non-admin callers before the request body is read.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	caller := IdentityFromContext(r.Context())
	switch {
	case !caller.Authenticated():
		h.writeAppError(w, r, app.ErrUnauthenticated)
		return nil, false
	case !caller.Admin():
		h.writeAppError(w, r, app.ErrAdminRequired)
		return nil, false
	}
	return caller, true
}

// decodeJSONBody requires an application/json body and decodes it into dest.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return &app.ValidationError{Message: "Invalid content type. Expected application/json"}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &app.ValidationError{Message: "Request body too large"}
		case errors.Is(err, io.EOF):
			return &app.ValidationError{Message: "Request body is required"}
		default:
			return &app.ValidationError{Message: "Invalid JSON payload"}
		}
	}
	return nil
}

// writeAppError maps application and store errors to the JSON error envelope.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *app.ValidationError
	switch {
	case errors.As(err, &validationErr):
		resp := errorResponse{Error: validationErr.Message, Code: codeValidation}
		if len(validationErr.Fields) > 0 {
			resp.Details = validationErr.Fields
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, app.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized", Code: codeUnauthorized})
	case errors.Is(err, app.ErrAdminRequired):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Admin access required", Code: codeForbidden})
	case errors.Is(err, app.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Access denied", Code: codeForbidden})
	case errors.Is(err, store.ErrServiceNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Service not found", Code: codeNotFound})
	case errors.Is(err, store.ErrPaymentMethodNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Payment method not found", Code: codeNotFound})
	case errors.Is(err, store.ErrUniqueViolation):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "A record with this identifier already exists", Code: codeUniqueViolation})
	case errors.Is(err, store.ErrForeignKeyViolation):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "A referenced record does not exist", Code: codeForeignKey})
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Code: codeInternal})
	}
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
