package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/taskboard/internal/testdb"
)

type fataler interface {
	Fatalf(format string, args ...any)
}

func setupService(t fataler) *Service {
	store, err := testdb.NewStoreInMemory()
	if err != nil {
		t.Fatalf("create in-memory store: %v", err)
	}
	return NewService(store)
}

func TestRecordAndList(t *testing.T) {
	t.Parallel()
	svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, ActionCreate, "task-1", map[string]any{"title": "Buy milk"}))
	require.NoError(t, svc.Record(ctx, ActionUpdate, "task-1", map[string]any{"description": "Whole milk"}))
	require.NoError(t, svc.Record(ctx, ActionDelete, "task-1", nil))

	list, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 3, list.Total)
	require.Len(t, list.Entries, 3)

	// Newest first, even when writes land in the same millisecond.
	require.Equal(t, ActionDelete, list.Entries[0].Action)
	require.Equal(t, ActionUpdate, list.Entries[1].Action)
	require.Equal(t, ActionCreate, list.Entries[2].Action)

	for _, entry := range list.Entries {
		require.NotEmpty(t, entry.ID)
		require.Equal(t, "task-1", entry.TaskID)
		require.False(t, entry.Timestamp.IsZero())
	}

	require.Nil(t, list.Entries[0].UpdatedContent)
	require.Equal(t, map[string]any{"description": "Whole milk"}, list.Entries[1].UpdatedContent)
	require.Equal(t, map[string]any{"title": "Buy milk"}, list.Entries[2].UpdatedContent)
}

func TestEntriesOutliveTheirTask(t *testing.T) {
	t.Parallel()
	svc := setupService(t)
	ctx := context.Background()

	// task_logs has no foreign key to tasks: entries for ids that no longer
	// exist (or never existed) must still record and list.
	require.NoError(t, svc.Record(ctx, ActionDelete, "long-gone", nil))

	list, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	require.Equal(t, "long-gone", list.Entries[0].TaskID)
}

func TestList_Defaults(t *testing.T) {
	t.Parallel()
	svc := setupService(t)
	ctx := context.Background()

	for i := 0; i < DefaultLimit+3; i++ {
		require.NoError(t, svc.Record(ctx, ActionCreate, "task", map[string]any{"title": "t"}))
	}

	list, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, list.Page)
	require.Equal(t, DefaultLimit, list.Limit)
	require.Len(t, list.Entries, DefaultLimit)
	require.Equal(t, DefaultLimit+3, list.Total)
	require.Equal(t, 2, list.TotalPages)
}

func TestEntryJSON(t *testing.T) {
	t.Parallel()
	svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, ActionDelete, "task-1", nil))

	list, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)

	data, err := json.Marshal(list.Entries[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "Delete Task", decoded["action"])
	require.Equal(t, "task-1", decoded["taskId"])

	// A deletion serializes its content as an explicit null, not an omission.
	content, present := decoded["updatedContent"]
	require.True(t, present)
	require.Nil(t, content)
}

func testList_Pagination_Properties(t *rapid.T) {
	svc := setupService(t)
	ctx := context.Background()

	n := rapid.IntRange(0, 30).Draw(t, "n")
	limit := rapid.IntRange(1, 7).Draw(t, "limit")

	for i := 0; i < n; i++ {
		if err := svc.Record(ctx, ActionCreate, "task", map[string]any{"title": "t"}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	wantPages := (n + limit - 1) / limit
	seen := 0
	for page := 1; page <= wantPages; page++ {
		list, err := svc.List(ctx, page, limit)
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if list.Total != n || list.TotalPages != wantPages {
			t.Fatalf("page %d: total=%d pages=%d, want %d/%d", page, list.Total, list.TotalPages, n, wantPages)
		}
		seen += len(list.Entries)
	}
	if seen != n {
		t.Fatalf("pages covered %d entries, want %d", seen, n)
	}

	past, err := svc.List(ctx, wantPages+1, limit)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(past.Entries) != 0 || past.Total != n {
		t.Fatalf("past-end page: len=%d total=%d, want 0/%d", len(past.Entries), past.Total, n)
	}
}

func TestList_Pagination_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testList_Pagination_Properties)
}

func FuzzList_Pagination_Properties(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testList_Pagination_Properties))
}
