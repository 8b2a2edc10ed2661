package tasks

import "time"

// Task is a titled, described unit of work. ID and CreatedAt are assigned
// at creation and never change; only Title and Description are mutable.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateTaskParams holds the fields for creating a task.
type CreateTaskParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTaskParams holds the fields for updating a task.
// Nil pointer fields are left unchanged.
type UpdateTaskParams struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// TaskList is one page of tasks plus pagination metadata.
type TaskList struct {
	Tasks      []Task
	Total      int
	Page       int
	Limit      int
	TotalPages int
}
