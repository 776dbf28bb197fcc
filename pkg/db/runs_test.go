package db

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// every connection to :memory: is a separate database
	database.SetMaxOpenConns(1)

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func TestStartAndFinishRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	okID, err := db.StartRun("transfer", []string{"src.pdf", "dst.pdf"})
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	failID, err := db.StartRun("sync", nil)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if okID == 0 || failID == okID {
		t.Fatalf("StartRun() ids = %d, %d", okID, failID)
	}

	if err := db.FinishRun(okID, nil); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	runErr := syncerr.NewAlignment(2, "anchor count mismatch", "dst.pdf")
	if err := db.FinishRun(failID, runErr); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() returned %d runs, want 2", len(runs))
	}

	// newest first
	failed, ok := runs[0], runs[1]
	if failed.RunID != failID || failed.Status != StatusFailed {
		t.Errorf("runs[0] = %+v, want failed run %d", failed, failID)
	}
	if failed.ErrorCode != string(syncerr.CodeAlignment) {
		t.Errorf("error_code = %q, want %q", failed.ErrorCode, syncerr.CodeAlignment)
	}
	if failed.ErrorMessage != runErr.Error() {
		t.Errorf("error_message = %q, want %q", failed.ErrorMessage, runErr.Error())
	}
	if len(failed.Args) != 0 {
		t.Errorf("args = %v, want empty", failed.Args)
	}

	if ok.Status != StatusSucceeded || ok.ErrorCode != "" || ok.FinishedAt == nil {
		t.Errorf("runs[1] = %+v, want finished success", ok)
	}
	if diff := cmp.Diff([]string{"src.pdf", "dst.pdf"}, ok.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if ok.FinishedAt.Before(ok.StartedAt) {
		t.Errorf("finished_at %v before started_at %v", ok.FinishedAt, ok.StartedAt)
	}

	limited, err := db.ListRuns(1)
	if err != nil {
		t.Fatalf("ListRuns(1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].RunID != failID {
		t.Errorf("ListRuns(1) = %+v, want only run %d", limited, failID)
	}
}

func TestFinishRun_PlainError(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id, _ := db.StartRun("merge", []string{"a.pdf"})
	if err := db.FinishRun(id, errors.New("disk full")); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	runs, _ := db.ListRuns(0)
	if runs[0].ErrorCode != "" || runs[0].ErrorMessage != "disk full" {
		t.Errorf("run = %+v, want message without code", runs[0])
	}

	if err := db.FinishRun(9999, nil); err == nil {
		t.Error("FinishRun() for unknown run should fail")
	}
}

func TestRunRunning(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.StartRun("mix", []string{"ref.pdf"}); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	runs, _ := db.ListRuns(0)
	if runs[0].Status != StatusRunning || runs[0].FinishedAt != nil {
		t.Errorf("run = %+v, want running and unfinished", runs[0])
	}
}

func TestRecordOffsets(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id, _ := db.StartRun("offsets", []string{"a.pdf", "b.pdf"})
	other, _ := db.StartRun("offsets", []string{"c.pdf", "d.pdf"})

	want := []OffsetRecord{
		{Reference: "a.pdf", Document: "b.pdf", Page: 1, DX: 1.5, DY: -2},
		{Reference: "a.pdf", Document: "b.pdf", Page: 2, DX: 0, DY: 3.25},
	}
	for _, o := range want {
		if err := db.RecordOffset(id, o); err != nil {
			t.Fatalf("RecordOffset() error = %v", err)
		}
	}
	if err := db.RecordOffset(other, OffsetRecord{Reference: "c.pdf", Document: "d.pdf", Page: 1}); err != nil {
		t.Fatalf("RecordOffset() error = %v", err)
	}

	got, err := db.GetRunOffsets(id)
	if err != nil {
		t.Fatalf("GetRunOffsets() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetRunOffsets() mismatch (-want +got):\n%s", diff)
	}

	if err := db.RecordOffset(12345, OffsetRecord{Reference: "x", Document: "y", Page: 1}); err == nil {
		t.Error("RecordOffset() for unknown run should violate the foreign key")
	}
}

func TestRecordTransfers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id, _ := db.StartRun("sync", []string{"a.pdf", "b.pdf"})
	want := []TransferRecord{
		{Source: "a.pdf", SourcePage: 1, Target: "b.pdf", TargetPage: 1, Selected: 3, Positioned: 2, Relabelled: 1},
		{Source: "a.pdf", SourcePage: 2, Target: "b.pdf", TargetPage: 2},
	}
	for _, tr := range want {
		if err := db.RecordTransfer(id, tr); err != nil {
			t.Fatalf("RecordTransfer() error = %v", err)
		}
	}

	got, err := db.GetRunTransfers(id)
	if err != nil {
		t.Fatalf("GetRunTransfers() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetRunTransfers() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id, _ := db.StartRun("recolor", []string{"--from=#FF0000"})
	got, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Command != "recolor" || got.Status != StatusRunning {
		t.Errorf("GetRun() = %+v", got)
	}
	if _, err := db.GetRun(id + 100); err == nil {
		t.Error("GetRun() for unknown run should fail")
	}
}
