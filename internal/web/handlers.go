package web

import (
	"net/http"
	"strconv"

	"github.com/kuitang/taskboard/internal/audit"
	"github.com/kuitang/taskboard/internal/errs"
	"github.com/kuitang/taskboard/internal/obs"
	"github.com/kuitang/taskboard/internal/tasks"
)

// Handler serves the browser UI.
type Handler struct {
	tasks    *tasks.Service
	logs     *audit.Service
	renderer *Renderer
}

// NewHandler creates a web UI handler.
func NewHandler(taskService *tasks.Service, logService *audit.Service, renderer *Renderer) *Handler {
	return &Handler{tasks: taskService, logs: logService, renderer: renderer}
}

// RegisterRoutes registers the UI routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /ui/tasks", h.TasksPage)
	mux.HandleFunc("POST /ui/tasks", h.CreateTask)
	mux.HandleFunc("GET /ui/tasks/{id}/edit", h.EditTaskPage)
	mux.HandleFunc("POST /ui/tasks/{id}", h.UpdateTask)
	mux.HandleFunc("POST /ui/tasks/{id}/delete", h.DeleteTask)
	mux.HandleFunc("GET /ui/logs", h.LogsPage)
}

// Home redirects to the task list.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/ui/tasks", http.StatusFound)
}

// taskPageData feeds tasks/list.html.
type taskPageData struct {
	Result *tasks.TaskList
	Query  string
	Errors []errs.FieldError
	Form   tasks.CreateTaskParams
}

// TasksPage renders the paginated, searchable task table.
func (h *Handler) TasksPage(w http.ResponseWriter, r *http.Request) {
	h.renderTasksPage(w, r, nil, tasks.CreateTaskParams{})
}

func (h *Handler) renderTasksPage(w http.ResponseWriter, r *http.Request, formErrors []errs.FieldError, form tasks.CreateTaskParams) {
	page := positiveIntParam(r, "page")
	limit := positiveIntParam(r, "limit")
	query := r.URL.Query().Get("q")

	result, err := h.tasks.List(r.Context(), page, limit, query)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := taskPageData{Result: result, Query: query, Errors: formErrors, Form: form}
	if err := h.renderer.Render(w, "tasks/list.html", data); err != nil {
		h.serverError(w, r, err)
	}
}

// CreateTask handles the create form post.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "invalid form")
		return
	}

	params := tasks.CreateTaskParams{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
	}
	if _, err := h.tasks.Create(r.Context(), params); err != nil {
		if fields := errs.FieldsOf(err); len(fields) > 0 {
			w.WriteHeader(http.StatusBadRequest)
			h.renderTasksPage(w, r, fields, params)
			return
		}
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/ui/tasks", http.StatusSeeOther)
}

// editPageData feeds tasks/edit.html.
type editPageData struct {
	Task   *tasks.Task
	Errors []errs.FieldError
}

// EditTaskPage renders the edit form for one task.
func (h *Handler) EditTaskPage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	task, err := h.findTask(r, id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.renderer.Render(w, "tasks/edit.html", editPageData{Task: task}); err != nil {
		h.serverError(w, r, err)
	}
}

// UpdateTask handles the edit form post.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "invalid form")
		return
	}

	id := r.PathValue("id")
	title := r.PostFormValue("title")
	description := r.PostFormValue("description")
	params := tasks.UpdateTaskParams{Title: &title, Description: &description}

	_, err := h.tasks.Update(r.Context(), id, params)
	if err != nil {
		fields := errs.FieldsOf(err)
		if len(fields) == 0 && errs.CodeOf(err) == errs.InvalidArgument {
			fields = []errs.FieldError{{Field: "task", Message: errs.MessageOf(err)}}
		}
		if len(fields) > 0 {
			current, findErr := h.findTask(r, id)
			if findErr != nil {
				h.serviceError(w, r, findErr)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			if err := h.renderer.Render(w, "tasks/edit.html", editPageData{Task: current, Errors: fields}); err != nil {
				h.serverError(w, r, err)
			}
			return
		}
		h.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/ui/tasks", http.StatusSeeOther)
}

// DeleteTask handles the delete form post.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.serviceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/ui/tasks", http.StatusSeeOther)
}

// logPageData feeds logs/list.html.
type logPageData struct {
	Result *audit.EntryList
}

// LogsPage renders the paginated audit log table.
func (h *Handler) LogsPage(w http.ResponseWriter, r *http.Request) {
	page := positiveIntParam(r, "page")
	limit := positiveIntParam(r, "limit")

	result, err := h.logs.List(r.Context(), page, limit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if err := h.renderer.Render(w, "logs/list.html", logPageData{Result: result}); err != nil {
		h.serverError(w, r, err)
	}
}

// findTask fetches a single task through the service layer.
func (h *Handler) findTask(r *http.Request, id string) (*tasks.Task, error) {
	return h.tasks.Get(r.Context(), id)
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(errs.CodeOf(err))
	if status == http.StatusInternalServerError {
		h.serverError(w, r, err)
		return
	}
	h.renderer.RenderError(w, status, errs.MessageOf(err))
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	obs.From(r.Context()).With("pkg", "web").Error(
		"page_failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	h.renderer.RenderError(w, http.StatusInternalServerError, "Internal Server Error")
}

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
