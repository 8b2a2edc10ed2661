// Package tasks implements task CRUD with validation, markup stripping,
// search-and-paginate listing, and best-effort audit logging.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kuitang/taskboard/internal/audit"
	"github.com/kuitang/taskboard/internal/db"
	"github.com/kuitang/taskboard/internal/errs"
	"github.com/kuitang/taskboard/internal/logutil"
	"github.com/kuitang/taskboard/internal/obs"
	"github.com/kuitang/taskboard/internal/sanitize"
)

const (
	// MaxFieldChars bounds title and description length, in runes.
	MaxFieldChars = 100

	// DefaultLimit is the default number of tasks per page.
	DefaultLimit = 5
)

// ErrNoChanges is returned by Update when every provided field equals the
// stored value. It is a client error, not a server fault.
var ErrNoChanges = errs.New(errs.InvalidArgument, "No changes provided")

// Auditor records one entry per successful mutation.
type Auditor interface {
	Record(ctx context.Context, action audit.Action, taskID string, updatedContent map[string]any) error
}

// Service handles task CRUD operations using the db layer.
type Service struct {
	store   *db.Store
	auditor Auditor
}

// NewService creates a task service. auditor may not be nil.
func NewService(store *db.Store, auditor Auditor) *Service {
	return &Service{
		store:   store,
		auditor: auditor,
	}
}

// validateField trims, validates, and sanitizes one free-text field. The
// returned value is what gets stored: plain text, non-empty, within bounds.
func validateField(field, raw string) (string, *errs.FieldError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &errs.FieldError{Field: field, Message: field + " cannot be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxFieldChars {
		return "", &errs.FieldError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, MaxFieldChars)}
	}

	clean := sanitize.StripAndTrim(trimmed)
	if clean == "" {
		// Markup-only input strips down to nothing.
		return "", &errs.FieldError{Field: field, Message: field + " cannot be empty"}
	}
	return clean, nil
}

// List returns one page of tasks matching searchText, newest first.
// page defaults to 1 and limit to DefaultLimit. searchText matches as a
// case-insensitive substring of title or description; empty matches all.
// A page past the end yields an empty slice with the total unchanged.
func (s *Service) List(ctx context.Context, page, limit int, searchText string) (*TaskList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	searchText = strings.TrimSpace(searchText)

	total, err := s.store.CountTasks(ctx, searchText)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := s.store.ListTasks(ctx, searchText, int64(limit), int64(page-1)*int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	list := make([]Task, 0, len(rows))
	for _, row := range rows {
		list = append(list, taskFromRow(row))
	}

	return &TaskList{
		Tasks:      list,
		Total:      int(total),
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(int(total), limit),
	}, nil
}

// Get returns a single task by id.
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	row, err := s.store.GetTask(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("read task: %w", err)
	}
	task := taskFromRow(row)
	return &task, nil
}

// Create validates, sanitizes, and persists a new task, then records a
// Create audit entry holding the full stored snapshot.
func (s *Service) Create(ctx context.Context, params CreateTaskParams) (*Task, error) {
	var fields []errs.FieldError
	title, fe := validateField("title", params.Title)
	if fe != nil {
		fields = append(fields, *fe)
	}
	description, fe := validateField("description", params.Description)
	if fe != nil {
		fields = append(fields, *fe)
	}
	if len(fields) > 0 {
		return nil, errs.Invalid(fields...)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	task := Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
	}

	err := s.store.CreateTask(ctx, db.TaskRow{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		CreatedAt:   now.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.recordAudit(ctx, audit.ActionCreate, task.ID, map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"createdAt":   task.CreatedAt.Format(time.RFC3339Nano),
	})

	return &task, nil
}

// Update applies the provided fields to an existing task. Each provided
// field is validated and sanitized independently; only fields that differ
// from the stored value are written. If nothing actually changed the call
// fails with ErrNoChanges. The audit entry holds exactly the changed subset.
func (s *Service) Update(ctx context.Context, id string, params UpdateTaskParams) (*Task, error) {
	existing, err := s.store.GetTask(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("read task: %w", err)
	}

	var fields []errs.FieldError
	newTitle := existing.Title
	newDescription := existing.Description
	changed := map[string]any{}

	if params.Title != nil {
		value, fe := validateField("title", *params.Title)
		switch {
		case fe != nil:
			fields = append(fields, *fe)
		case value != existing.Title:
			newTitle = value
			changed["title"] = value
		}
	}
	if params.Description != nil {
		value, fe := validateField("description", *params.Description)
		switch {
		case fe != nil:
			fields = append(fields, *fe)
		case value != existing.Description:
			newDescription = value
			changed["description"] = value
		}
	}

	if len(fields) > 0 {
		return nil, errs.Invalid(fields...)
	}
	if len(changed) == 0 {
		return nil, ErrNoChanges
	}

	if err := s.store.UpdateTask(ctx, id, newTitle, newDescription); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.recordAudit(ctx, audit.ActionUpdate, id, changed)

	task := taskFromRow(existing)
	task.Title = newTitle
	task.Description = newDescription
	return &task, nil
}

// Delete removes a task and records a Delete audit entry with null content.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.store.GetTask(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.New(errs.NotFound, "Task not found")
	}
	if err != nil {
		return fmt.Errorf("read task: %w", err)
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.recordAudit(ctx, audit.ActionDelete, id, nil)
	return nil
}

// recordAudit appends an audit entry after a successful primary write.
// A failed audit write is logged and swallowed: the task mutation stands
// and the gap is accepted rather than rolled back.
func (s *Service) recordAudit(ctx context.Context, action audit.Action, taskID string, updatedContent map[string]any) {
	if err := s.auditor.Record(ctx, action, taskID, updatedContent); err != nil {
		obs.From(ctx).With("pkg", "tasks").Warn(
			"audit_write_failed",
			"action", string(action),
			"task_id", taskID,
			"content_preview", logutil.TruncateForLog(fmt.Sprint(updatedContent), 120),
			"error", err,
		)
	}
}

func taskFromRow(row db.TaskRow) Task {
	return Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		CreatedAt:   time.UnixMilli(row.CreatedAt).UTC(),
	}
}

func totalPages(total, limit int) int {
	return (total + limit - 1) / limit
}
