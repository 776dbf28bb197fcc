package recolor

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/compositor"
	"github.com/dtnitsch/drawing-sync/pkg/workspace"
)

const pageSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100">
<path fill="#ff0000" stroke="#00FF00"/>
<path fill="#FF0000"/>
<path fill="none" stroke="url(#g)"/>
<rect fill="#123456ff"/>
</svg>`

func TestColors(t *testing.T) {
	got, err := Colors([]byte(pageSVG))
	if err != nil {
		t.Fatalf("Colors() error = %v", err)
	}
	want := []string{"#00FF00", "#123456ff", "#FF0000", "#ff0000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Colors() mismatch (-want +got):\n%s", diff)
	}
}

func TestApply(t *testing.T) {
	root, err := compositor.Parse([]byte(pageSVG))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	n := Apply(root, "#FF0000", "#0000ff", 0.5)
	if n != 2 {
		t.Errorf("Apply() = %d, want 2", n)
	}
	paths := root.SelectElements("path")
	if got := paths[0].SelectAttrValue("fill", ""); got != "#0000ff" {
		t.Errorf("path 0 fill = %q", got)
	}
	if got := paths[0].SelectAttrValue("fill-opacity", ""); got != "0.5" {
		t.Errorf("path 0 fill-opacity = %q, want 0.5", got)
	}
	if paths[0].SelectAttr("stroke-opacity") != nil {
		t.Error("untouched stroke got an opacity")
	}
	if got := paths[1].SelectAttrValue("fill", ""); got != "#0000ff" {
		t.Errorf("path 1 fill = %q", got)
	}

	root, _ = compositor.Parse([]byte(pageSVG))
	Apply(root, "#ff0000", "#000000", 1)
	if root.FindElement(".//*[@fill-opacity]") != nil {
		t.Error("opacity 1 should not add opacity attributes")
	}
}

type fakeRenderer struct {
	pages int
}

func (f fakeRenderer) PageCount(string) (int, error) { return f.pages, nil }

func (f fakeRenderer) PageSVG(_ context.Context, _ string, idx models.PageIndex) ([]byte, error) {
	return []byte(pageSVG), nil
}

// copyConverter keeps the svg text as the "pdf" so tests can inspect it.
type copyConverter struct{}

func (copyConverter) Convert(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

type capturingCombiner struct {
	mu    sync.Mutex
	pages []string
}

func (c *capturingCombiner) Combine(_ context.Context, inputs []string, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		c.pages = append(c.pages, string(data))
	}
	return nil
}

func TestRecolor_OnlySelectedPages(t *testing.T) {
	cfg := models.DefaultConfig()
	comb := &capturingCombiner{}
	base := t.TempDir()
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	r := NewRecolorer(cfg, fakeRenderer{pages: 3}, copyConverter{}, comb, workspace.NewManager(base, nil), logger)

	err := r.Recolor(context.Background(), "in.pdf", []models.PageIndex{1}, "#ff0000", "#0000FF", 1, "out.pdf")
	if err != nil {
		t.Fatalf("Recolor() error = %v", err)
	}
	if len(comb.pages) != 3 {
		t.Fatalf("combined %d pages, want 3", len(comb.pages))
	}
	for i, page := range comb.pages {
		recolored := strings.Contains(page, "#0000FF")
		if recolored != (i == 1) {
			t.Errorf("page %d recolored = %v, want %v", i, recolored, i == 1)
		}
	}
	entries, _ := os.ReadDir(base)
	if len(entries) != 0 {
		t.Errorf("job directory left behind: %v", entries)
	}
	for _, want := range []string{`"page_count":3`, `"recolored_page_count":1`} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log %q missing %s", logs.String(), want)
		}
	}
}
