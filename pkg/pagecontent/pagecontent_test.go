package pagecontent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/combine"
	"github.com/dtnitsch/drawing-sync/pkg/geometry"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
	"github.com/dtnitsch/drawing-sync/pkg/workspace"
)

// writeTestPDF writes a PDF with one 200x100 page per rotation.
func writeTestPDF(t *testing.T, path string, rotations ...int) {
	t.Helper()
	content := "0 0 m 10 10 l S"

	var objs []string
	kids := make([]string, len(rotations))
	for i, rot := range rotations {
		pageObj := 3 + 2*i
		kids[i] = fmt.Sprintf("%d 0 R", pageObj)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Rotate %d /Resources << >> /Contents %d 0 R >>", rot, pageObj+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objs = append([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(rotations)),
	}, objs...)

	var sb strings.Builder
	sb.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = sb.Len()
		fmt.Fprintf(&sb, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := sb.Len()
	fmt.Fprintf(&sb, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&sb, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&sb, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

// firstContent returns the decoded first content stream of a page.
func firstContent(t *testing.T, ctx *model.Context, page int) string {
	t.Helper()
	d, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		t.Fatalf("PageDict(%d) error = %v", page, err)
	}
	obj, _ := d.Find("Contents")
	arr, err := ctx.DereferenceArray(obj)
	if err != nil || len(arr) == 0 {
		t.Fatalf("page %d contents = %v, %v; want an array", page, obj, err)
	}
	sd, _, err := ctx.DereferenceStreamDict(arr[0])
	if err != nil || sd == nil {
		t.Fatalf("DereferenceStreamDict() = %v, %v", sd, err)
	}
	if err := sd.Decode(); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return string(sd.Content)
}

func newTestTransformer(t *testing.T) *Transformer {
	t.Helper()
	tr, _ := newTestTransformerAt(t)
	return tr
}

// newTestTransformerAt also returns the job base directory.
func newTestTransformerAt(t *testing.T) (*Transformer, string) {
	t.Helper()
	cfg := models.DefaultConfig()
	cfg.Workers = 2
	base := t.TempDir()
	return NewTransformer(cfg, combine.NewPDF(nil), workspace.NewManager(base, nil), nil), base
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {90, 90}, {270, 270}, {360, 0}, {-90, 270}, {-180, 180}, {450, 90}, {45, 45},
	}
	for _, tt := range tests {
		if got := normalizeRotation(tt.in); got != tt.want {
			t.Errorf("normalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMoveOperator(t *testing.T) {
	tests := []struct {
		rotation int
		want     string
	}{
		{0, "1 0 0 1 5 7 cm"},
		{90, "1 0 0 1 -7 5 cm"},
		{180, "1 0 0 1 -5 -7 cm"},
		{270, "1 0 0 1 7 -5 cm"},
		{-90, "1 0 0 1 7 -5 cm"},
		{450, "1 0 0 1 -7 5 cm"},
	}
	for _, tt := range tests {
		got, err := moveOperator(tt.rotation, models.Offset{DX: 5, DY: 7})
		if err != nil {
			t.Errorf("moveOperator(%d) error = %v", tt.rotation, err)
			continue
		}
		if got != tt.want {
			t.Errorf("moveOperator(%d) = %q, want %q", tt.rotation, got, tt.want)
		}
	}

	if _, err := moveOperator(45, models.Offset{}); !errors.Is(err, syncerr.ErrUnsupportedRotation) {
		t.Errorf("moveOperator(45) error = %v, want ErrUnsupportedRotation", err)
	}
}

func TestSelected(t *testing.T) {
	got, err := selected(3, nil)
	if err != nil {
		t.Fatalf("selected() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("selected(all) mismatch (-want +got):\n%s", diff)
	}

	got, err = selected(3, []models.PageIndex{2, 0, 2})
	if err != nil {
		t.Fatalf("selected() error = %v", err)
	}
	if diff := cmp.Diff([]int{3, 1}, got); diff != "" {
		t.Errorf("selected(2,0,2) mismatch (-want +got):\n%s", diff)
	}

	if _, err := selected(3, []models.PageIndex{3}); err == nil {
		t.Error("selected(out of range) error = nil, want error")
	}
}

func TestMoveContent(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	writeTestPDF(t, in, 0, 90, 0)

	err := newTestTransformer(t).MoveContent(in, out, models.Offset{DX: 5, DY: 7}, []models.PageIndex{0, 1})
	if err != nil {
		t.Fatalf("MoveContent() error = %v", err)
	}

	ctx, err := api.ReadContextFile(out)
	if err != nil {
		t.Fatalf("ReadContextFile() error = %v", err)
	}
	if got := firstContent(t, ctx, 1); !strings.HasPrefix(got, "q 1 0 0 1 5 7 cm") {
		t.Errorf("page 1 first stream = %q", got)
	}
	if got := firstContent(t, ctx, 2); !strings.HasPrefix(got, "q 1 0 0 1 -7 5 cm") {
		t.Errorf("page 2 first stream = %q", got)
	}

	// page 3 is outside the selection and keeps its single stream
	d, _, _, err := ctx.PageDict(3, false)
	if err != nil {
		t.Fatalf("PageDict(3) error = %v", err)
	}
	obj, _ := d.Find("Contents")
	if _, ok := obj.(types.IndirectRef); !ok {
		t.Errorf("page 3 contents = %T, want an untouched stream reference", obj)
	}
}

func TestResize(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	writeTestPDF(t, in, 0)

	plan := geometry.ComposeTranslateScale(
		geometry.ScaleSpec{Scale: 100, Size: models.Size{Width: 200, Height: 100}},
		geometry.ScaleSpec{Scale: 100, Size: models.Size{Width: 400, Height: 200}},
	)
	if err := newTestTransformer(t).Resize(in, out, plan); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}

	dims, err := api.PageDimsFile(out)
	if err != nil {
		t.Fatalf("PageDimsFile() error = %v", err)
	}
	if len(dims) != 1 || dims[0].Width != 400 || dims[0].Height != 200 {
		t.Errorf("page dims = %v, want 400x200", dims)
	}

	ctx, err := api.ReadContextFile(out)
	if err != nil {
		t.Fatalf("ReadContextFile() error = %v", err)
	}
	// page scale 2 times content scale 0.5 leaves content at its original size
	if got := firstContent(t, ctx, 1); !strings.HasPrefix(got, "q 1 0 0 1 0 0 cm") {
		t.Errorf("first stream = %q", got)
	}
}

func TestMovePages(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	writeTestPDF(t, in, 0, 0, 0)
	tr, base := newTestTransformerAt(t)

	offsets := []models.Offset{{DX: 1, DY: 1}, {DX: 2, DY: 2}, {DX: 3, DY: 3}}
	if err := tr.MovePages(context.Background(), in, out, offsets); err != nil {
		t.Fatalf("MovePages() error = %v", err)
	}

	ctx, err := api.ReadContextFile(out)
	if err != nil {
		t.Fatalf("ReadContextFile() error = %v", err)
	}
	if ctx.PageCount != 3 {
		t.Fatalf("page count = %d, want 3", ctx.PageCount)
	}
	for i := 1; i <= 3; i++ {
		want := fmt.Sprintf("q 1 0 0 1 %d %d cm", i, i)
		if got := firstContent(t, ctx, i); !strings.HasPrefix(got, want) {
			t.Errorf("page %d first stream = %q, want prefix %q", i, got, want)
		}
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("job directory left behind: %v", entries)
	}
}

func TestMovePages_OffsetCountMismatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	writeTestPDF(t, in, 0, 0)

	err := newTestTransformer(t).MovePages(context.Background(), in, filepath.Join(dir, "out.pdf"), []models.Offset{{}})
	if err == nil {
		t.Fatal("MovePages() error = nil, want error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.pdf")); !os.IsNotExist(statErr) {
		t.Error("output written despite error")
	}
}

type recordingCombiner struct {
	calls int
}

func (r *recordingCombiner) Combine(context.Context, []string, string) error {
	r.calls++
	return nil
}

func TestMovePages_WorkerFailureAbortsRecombination(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	writeTestPDF(t, in, 0, 0, 0, 0)

	cfg := models.DefaultConfig()
	cfg.Workers = 2
	base := t.TempDir()
	comb := &recordingCombiner{}
	tr := NewTransformer(cfg, comb, workspace.NewManager(base, nil), nil)
	tr.movePage = func(in, out string, offset models.Offset) error {
		if offset.DX == 2 {
			return syncerr.NewUnsupportedRotation(45, in, 1)
		}
		return tr.MoveContent(in, out, offset, nil)
	}

	offsets := []models.Offset{{DX: 1}, {DX: 2}, {DX: 3}, {DX: 4}}
	err := tr.MovePages(context.Background(), in, filepath.Join(dir, "out.pdf"), offsets)
	if !errors.Is(err, syncerr.ErrUnsupportedRotation) {
		t.Fatalf("MovePages() error = %v, want ErrUnsupportedRotation", err)
	}
	var e *syncerr.Error
	if errors.As(err, &e) && (e.Page != 2 || e.Paths[0] != in) {
		t.Errorf("error location = %v page %d, want %s page 2", e.Paths, e.Page, in)
	}
	if comb.calls != 0 {
		t.Errorf("combiner called %d times after a worker failure, want 0", comb.calls)
	}
	entries, _ := os.ReadDir(base)
	if len(entries) != 0 {
		t.Errorf("job directory left behind: %v", entries)
	}
}
