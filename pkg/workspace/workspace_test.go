package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJob_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir(), nil)

	job, err := m.NewJob(ctx, "/drawings/A-101 rev.2.pdf")
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(job.Dir()), "A-101_rev_2-") {
		t.Errorf("job dir = %q, want prefix A-101_rev_2-", job.Dir())
	}

	path, err := job.Write(ctx, "page.svg", []byte("<svg/>"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if path != job.Path("page.svg") {
		t.Errorf("Write() path = %q, want %q", path, job.Path("page.svg"))
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "<svg/>" {
		t.Fatalf("ReadFile() = %q, %v", data, err)
	}

	job.Cleanup(ctx)
	if _, err := os.Stat(job.Dir()); !os.IsNotExist(err) {
		t.Errorf("job dir still exists after Cleanup(): %v", err)
	}
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	dst := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Copy(ctx, nil, src, dst); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "%PDF-1.7" {
		t.Errorf("copied file = %q, %v", data, err)
	}

	if err := Copy(ctx, nil, filepath.Join(dir, "missing.pdf"), dst); err == nil {
		t.Error("Copy() error = nil, want error for missing source")
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"plan.pdf":             "plan",
		"/a/b/Level 2 (A).pdf": "Level_2_A",
		"###.pdf":              "job",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
