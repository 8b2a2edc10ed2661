// Package api maps the task and log services onto the JSON HTTP surface.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kuitang/taskboard/internal/audit"
	"github.com/kuitang/taskboard/internal/errs"
	"github.com/kuitang/taskboard/internal/obs"
	"github.com/kuitang/taskboard/internal/tasks"
)

// Handler wraps the task and log services and provides HTTP handlers.
type Handler struct {
	tasks *tasks.Service
	logs  *audit.Service
}

// NewHandler creates a new API handler.
func NewHandler(taskService *tasks.Service, logService *audit.Service) *Handler {
	return &Handler{tasks: taskService, logs: logService}
}

// RegisterRoutes registers all API routes on the given mux using
// Go 1.22+ routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /tasks", h.ListTasks)
	mux.HandleFunc("POST /tasks", h.CreateTask)
	mux.HandleFunc("PUT /tasks/{id}", h.UpdateTask)
	mux.HandleFunc("DELETE /tasks/{id}", h.DeleteTask)
	mux.HandleFunc("GET /logs", h.ListLogs)
}

// ListTasks handles GET /tasks?page&limit&q.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	page := positiveIntParam(r, "page")
	limit := positiveIntParam(r, "limit")
	q := r.URL.Query().Get("q")

	result, err := h.tasks.List(r.Context(), page, limit, q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResponse{
		Data:       result.Tasks,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
		Total:      result.Total,
	})
}

// CreateTask handles POST /tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var params tasks.CreateTaskParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	task, err := h.tasks.Create(r.Context(), params)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Data: task})
}

// UpdateTask handles PUT /tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var params tasks.UpdateTaskParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	task, err := h.tasks.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: task})
}

// DeleteTask handles DELETE /tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Task deleted"})
}

// ListLogs handles GET /logs?page&limit.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	page := positiveIntParam(r, "page")
	limit := positiveIntParam(r, "limit")

	result, err := h.logs.List(r.Context(), page, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResponse{
		Data:       result.Entries,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
		Total:      result.Total,
	})
}

// positiveIntParam parses a positive integer query parameter, returning 0
// (meaning "use the service default") when absent or malformed.
func positiveIntParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0
	}
	return parsed
}

// pageResponse wraps a result page with its pagination metadata.
type pageResponse struct {
	Data       any `json:"data"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

type dataResponse struct {
	Data any `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type fieldErrorsResponse struct {
	Errors []errs.FieldError `json:"errors"`
}

// writeServiceError maps a service error to a response. Validation detail
// goes out as an errors array; anything uncoded becomes a generic 500 with
// the cause logged server-side only.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(errs.CodeOf(err))
	if status == http.StatusInternalServerError {
		obs.From(r.Context()).With("pkg", "api").Error(
			"request_failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, status, errorResponse{Error: "Internal Server Error"})
		return
	}

	if fields := errs.FieldsOf(err); len(fields) > 0 {
		writeJSON(w, status, fieldErrorsResponse{Errors: fields})
		return
	}
	writeJSON(w, status, errorResponse{Error: errs.MessageOf(err)})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
