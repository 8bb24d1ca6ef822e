package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/hirssa/internal/pipeline"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun("run-1")

	if err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if diff := cmp.Diff(run, got, cmpopts.IgnoreFields(pipeline.FunctionResult{}, "Function")); diff != "" {
		t.Errorf("ReadRun() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
			t.Fatalf("WriteRun() attempt %d failed: %v", i, err)
		}
	}

	var runs, fns int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs); err != nil {
		t.Fatal(err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM functions").Scan(&fns); err != nil {
		t.Fatal(err)
	}
	if runs != 1 || fns != 2 {
		t.Errorf("after duplicate write: runs=%d functions=%d, want 1 and 2", runs, fns)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Ids sort in the opposite order of insertion; seq must win.
	for _, id := range []string{"run-c", "run-b", "run-a"} {
		if err := s.WriteRun(ctx, createTestRun(id)); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	var ids []string
	for i, r := range runs {
		ids = append(ids, r.ID)
		if r.Seq != int64(i+1) {
			t.Errorf("run %s seq = %d, want %d", r.ID, r.Seq, i+1)
		}
		if r.Functions != 2 || r.Failed != 1 {
			t.Errorf("run %s functions=%d failed=%d, want 2 and 1", r.ID, r.Functions, r.Failed)
		}
	}
	if diff := cmp.Diff([]string{"run-c", "run-b", "run-a"}, ids); diff != "" {
		t.Errorf("ListRuns() order mismatch (-want +got):\n%s", diff)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("ListRuns() = %v, want empty non-nil slice", runs)
	}
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRun() on empty store error = %v, want ErrRunNotFound", err)
	}

	for _, id := range []string{"run-1", "run-2"} {
		if err := s.WriteRun(ctx, createTestRun(id)); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}
	id, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if id != "run-2" {
		t.Errorf("LatestRun() = %q, want run-2", id)
	}
}

func TestFindFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2"} {
		if err := s.WriteRun(ctx, createTestRun(id)); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}

	refs, err := s.FindFingerprint(ctx, "abc123")
	if err != nil {
		t.Fatalf("FindFingerprint() failed: %v", err)
	}
	want := []FunctionRef{
		{RunID: "run-1", Seq: 1, Filename: "test.cue", Name: "f"},
		{RunID: "run-2", Seq: 2, Filename: "test.cue", Name: "f"},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("FindFingerprint() mismatch (-want +got):\n%s", diff)
	}

	// g failed, so its stored fingerprint is empty.
	for _, fp := range []string{"", "unknown"} {
		refs, err := s.FindFingerprint(ctx, fp)
		if err != nil {
			t.Fatalf("FindFingerprint(%q) failed: %v", fp, err)
		}
		if refs == nil || len(refs) != 0 {
			t.Errorf("FindFingerprint(%q) = %v, want empty non-nil slice", fp, refs)
		}
	}
}
