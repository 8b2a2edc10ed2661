// Package audit records one immutable log entry per successful task
// mutation and serves paginated, read-only access to the log.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kuitang/taskboard/internal/db"
)

// Action identifies the kind of mutation an entry describes.
type Action string

const (
	ActionCreate Action = "Create Task"
	ActionUpdate Action = "Update Task"
	ActionDelete Action = "Delete Task"
)

const (
	// DefaultLimit is the default number of entries per page.
	DefaultLimit = 20
)

// Entry is an audit log record. TaskID is a non-owning back-reference: the
// task it names may have been deleted since, and readers must tolerate that.
// UpdatedContent is nil for deletions and serializes as JSON null.
type Entry struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Action         Action         `json:"action"`
	TaskID         string         `json:"taskId"`
	UpdatedContent map[string]any `json:"updatedContent"`
}

// EntryList is one page of the audit log plus pagination metadata.
type EntryList struct {
	Entries    []Entry
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// Service appends and lists audit entries.
type Service struct {
	store *db.Store
}

// NewService creates an audit service over the given store.
func NewService(store *db.Store) *Service {
	return &Service{store: store}
}

// Record appends one entry. updatedContent carries the full snapshot for
// creations, the changed-field subset for updates, and nil for deletions.
func (s *Service) Record(ctx context.Context, action Action, taskID string, updatedContent map[string]any) error {
	var content sql.NullString
	if updatedContent != nil {
		data, err := json.Marshal(updatedContent)
		if err != nil {
			return fmt.Errorf("encode audit content: %w", err)
		}
		content = sql.NullString{String: string(data), Valid: true}
	}

	row := db.LogRow{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC().UnixMilli(),
		Action:         string(action),
		TaskID:         taskID,
		UpdatedContent: content,
	}
	if err := s.store.InsertLog(ctx, row); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns one page of entries, newest first. page defaults to 1 and
// limit to DefaultLimit; a page past the end yields an empty slice.
func (s *Service) List(ctx context.Context, page, limit int) (*EntryList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	total, err := s.store.CountLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	rows, err := s.store.ListLogs(ctx, int64(limit), int64(page-1)*int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{
			ID:        row.ID,
			Timestamp: time.UnixMilli(row.Timestamp).UTC(),
			Action:    Action(row.Action),
			TaskID:    row.TaskID,
		}
		if row.UpdatedContent.Valid {
			if err := json.Unmarshal([]byte(row.UpdatedContent.String), &entry.UpdatedContent); err != nil {
				return nil, fmt.Errorf("decode audit content for entry %s: %w", row.ID, err)
			}
		}
		entries = append(entries, entry)
	}

	return &EntryList{
		Entries:    entries,
		Total:      int(total),
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(int(total), limit),
	}, nil
}

func totalPages(total, limit int) int {
	return (total + limit - 1) / limit
}
