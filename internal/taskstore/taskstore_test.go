package taskstore

import (
	"context"
	"testing"

	"github.com/nexus-agent/core/internal/task"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fsm := task.NewFSM("task-1", &task.Context{
		InputText: "hello",
		Channel:   task.ChannelCoordinate{Type: "cli", ChannelID: "stdin"},
	})

	if err := store.Save(ctx, fsm); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	record, err := store.Get(ctx, "task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if record.InputText != "hello" {
		t.Errorf("InputText = %q, want %q", record.InputText, "hello")
	}
	if record.Channel.Type != "cli" {
		t.Errorf("Channel.Type = %q, want cli", record.Channel.Type)
	}
}

func TestStore_SaveUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fsm := task.NewFSM("task-2", &task.Context{InputText: "hi"})
	if err := store.Save(ctx, fsm); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := fsm.Transition(task.StateReasoning); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if err := store.Save(ctx, fsm); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	record, err := store.Get(ctx, "task-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if record.State != string(task.StateReasoning) {
		t.Errorf("State = %q, want %q", record.State, task.StateReasoning)
	}
}

func TestStore_ListAllReturnsEveryRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		fsm := task.NewFSM(id, &task.Context{InputText: id})
		if err := store.Save(ctx, fsm); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(records) != 3 {
		t.Errorf("len(records) = %d, want 3", len(records))
	}
}

func TestStore_GetUnknownIDErrors(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected an error for an unknown task id")
	}
}
