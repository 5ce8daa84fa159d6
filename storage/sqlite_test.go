package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/richinex/cair/cost"
	"github.com/richinex/cair/pipeline"
)

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:             id,
		InitialPrompt:  "Create a REST endpoint",
		FinalOutput:    "draft 2",
		QualityScore:   0.8,
		IterationCount: 3,
		History:        []string{"draft 0", "draft 1", "draft 2"},
		Scores:         []float64{0.7, 0.8},
		Metadata:       map[string]any{"initialPrompt": "Create a REST endpoint", "context": map[string]any{"lang": "py"}},
		StartedAt:      started,
		Duration:       1500 * time.Millisecond,
	}
}

func testStores(t *testing.T) map[string]RunStore {
	t.Helper()
	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]RunStore{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			started := time.Unix(1700000000, 123)

			if err := store.SaveRun(ctx, sampleRun("run-1", started)); err != nil {
				t.Fatalf("SaveRun failed: %v", err)
			}

			loaded, err := store.LoadRun(ctx, "run-1")
			if err != nil {
				t.Fatalf("LoadRun failed: %v", err)
			}

			if len(loaded.History) != 3 {
				t.Fatalf("expected 3 drafts, got %d", len(loaded.History))
			}
			if loaded.History[2] != "draft 2" || loaded.FinalOutput != "draft 2" {
				t.Errorf("unexpected drafts %v / %q", loaded.History, loaded.FinalOutput)
			}
			if len(loaded.Scores) != 2 || loaded.Scores[1] != 0.8 {
				t.Errorf("unexpected scores %v", loaded.Scores)
			}
			if loaded.IterationCount != 3 || loaded.QualityScore != 0.8 {
				t.Errorf("unexpected summary fields %+v", loaded)
			}
			if !loaded.StartedAt.Equal(started) {
				t.Errorf("expected start %v, got %v", started, loaded.StartedAt)
			}
			if loaded.Duration != 1500*time.Millisecond {
				t.Errorf("expected 1.5s, got %v", loaded.Duration)
			}
			if loaded.Metadata["initialPrompt"] != "Create a REST endpoint" {
				t.Errorf("unexpected metadata %v", loaded.Metadata)
			}
		})
	}
}

func TestLoadMissingRun(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.LoadRun(context.Background(), "nonexistent")
			if !errors.Is(err, ErrRunNotFound) {
				t.Errorf("expected ErrRunNotFound, got %v", err)
			}
		})
	}
}

func TestSaveRunReplaces(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := sampleRun("run-1", time.Now())
			if err := store.SaveRun(ctx, run); err != nil {
				t.Fatalf("SaveRun failed: %v", err)
			}

			run.History = []string{"only"}
			run.Scores = nil
			run.FinalOutput = "only"
			if err := store.SaveRun(ctx, run); err != nil {
				t.Fatalf("SaveRun failed: %v", err)
			}

			loaded, err := store.LoadRun(ctx, "run-1")
			if err != nil {
				t.Fatalf("LoadRun failed: %v", err)
			}
			if len(loaded.History) != 1 || loaded.History[0] != "only" {
				t.Errorf("expected replaced history, got %v", loaded.History)
			}
		})
	}
}

func TestSaveRunRequiresID(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveRun(context.Background(), Run{}); err == nil {
				t.Error("expected error for empty run ID")
			}
		})
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now()
			for i, id := range []string{"old", "mid", "new"} {
				if err := store.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
					t.Fatalf("SaveRun failed: %v", err)
				}
			}

			all, err := store.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(all) != 3 || all[0].ID != "new" || all[2].ID != "old" {
				t.Errorf("unexpected order %+v", all)
			}

			limited, err := store.ListRuns(ctx, 2)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(limited) != 2 || limited[1].ID != "mid" {
				t.Errorf("unexpected limited list %+v", limited)
			}
		})
	}
}

func TestCallsRoundTripAndDelete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.SaveRun(ctx, sampleRun("run-1", time.Now())); err != nil {
				t.Fatalf("SaveRun failed: %v", err)
			}

			ledger := cost.NewLedger()
			ledger.Record("gpt-4", 1000, 500, nil)
			ledger.Record("gpt-4o", 10, 20, nil)
			if err := store.SaveCalls(ctx, "run-1", ledger.Calls()); err != nil {
				t.Fatalf("SaveCalls failed: %v", err)
			}

			calls, err := store.LoadCalls(ctx, "run-1")
			if err != nil {
				t.Fatalf("LoadCalls failed: %v", err)
			}
			if len(calls) != 2 || calls[0].Model != "gpt-4" || calls[0].CostUSD != 0.06 {
				t.Errorf("unexpected calls %+v", calls)
			}

			if err := store.DeleteRun(ctx, "run-1"); err != nil {
				t.Fatalf("DeleteRun failed: %v", err)
			}
			if _, err := store.LoadRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("expected deleted run, got %v", err)
			}
			calls, err = store.LoadCalls(ctx, "run-1")
			if err != nil {
				t.Fatalf("LoadCalls failed: %v", err)
			}
			if calls == nil || len(calls) != 0 {
				t.Errorf("expected empty non-nil calls, got %#v", calls)
			}
		})
	}
}

func TestFromResult(t *testing.T) {
	result := &pipeline.Result{
		RunID:          "abc",
		FinalOutput:    "b",
		QualityScore:   0.9,
		IterationCount: 2,
		History:        []string{"a", "b"},
		Scores:         []float64{0.9},
		Metadata:       map[string]any{pipeline.MetaInitialPrompt: "task"},
	}

	run := FromResult(result)
	result.History[0] = "mutated"

	if run.ID != "abc" || run.InitialPrompt != "task" {
		t.Errorf("unexpected run %+v", run)
	}
	if run.History[0] != "a" {
		t.Error("run must not share history with the result")
	}
}

func TestOpenSqliteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")

	store, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveRun(ctx, sampleRun("persisted", time.Now())); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	store.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.LoadRun(ctx, "persisted"); err != nil {
		t.Errorf("expected run to survive reopen: %v", err)
	}
}
