package db

// Schema defines the two tables: tasks and their append-only audit log.
// task_logs.task_id is a non-owning back-reference with no foreign key,
// so log rows outlive the tasks they describe.
const Schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL,
    created_at  INTEGER NOT NULL -- unix milliseconds
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at DESC);

CREATE TABLE IF NOT EXISTS task_logs (
    id              TEXT PRIMARY KEY,
    timestamp       INTEGER NOT NULL, -- unix milliseconds
    action          TEXT NOT NULL,
    task_id         TEXT NOT NULL,
    updated_content TEXT -- JSON object, NULL for deletions
);

CREATE INDEX IF NOT EXISTS idx_task_logs_timestamp ON task_logs(timestamp DESC);
`
