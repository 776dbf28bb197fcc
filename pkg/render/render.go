// Package render answers page-level questions about PDF documents: page
// count, page size and an SVG rendering of a page.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/engine"
)

// Renderer reads page geometry with pdfcpu and renders pages to SVG with
// MuPDF's mutool.
type Renderer struct {
	cfg    *models.Config
	runner engine.Runner
	logger *slog.Logger
}

func NewRenderer(cfg *models.Config, runner engine.Runner, logger *slog.Logger) *Renderer {
	if runner == nil {
		runner = engine.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{cfg: cfg, runner: runner, logger: logger}
}

func (r *Renderer) PageCount(doc string) (int, error) {
	n, err := api.PageCountFile(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages of %s: %w", doc, err)
	}
	return n, nil
}

// PageSize returns the size of page idx (0-indexed).
func (r *Renderer) PageSize(doc string, idx models.PageIndex) (models.Size, error) {
	dims, err := api.PageDimsFile(doc)
	if err != nil {
		return models.Size{}, fmt.Errorf("failed to read page sizes of %s: %w", doc, err)
	}
	if int(idx) < 0 || int(idx) >= len(dims) {
		return models.Size{}, fmt.Errorf("%s of %s out of range (%d pages)", idx, doc, len(dims))
	}
	return models.Size{Width: dims[idx].Width, Height: dims[idx].Height}, nil
}

// PageSVG renders page idx (0-indexed) of doc as SVG text.
func (r *Renderer) PageSVG(ctx context.Context, doc string, idx models.PageIndex) ([]byte, error) {
	if idx < 0 {
		return nil, fmt.Errorf("invalid %s", idx)
	}
	f, err := os.CreateTemp(r.cfg.TempDir, "page-*.svg")
	if err != nil {
		return nil, fmt.Errorf("failed to create svg file: %w", err)
	}
	out := f.Name()
	f.Close()
	defer os.Remove(out)

	page := fmt.Sprintf("%d", int(idx.Number()))
	r.logger.Debug("Rendering page", "document", doc, "page", int(idx.Number()))
	if _, err := r.runner.Run(ctx, r.cfg.MutoolPath, "draw", "-q", "-F", "svg", "-o", out, doc, page); err != nil {
		return nil, fmt.Errorf("failed to render %s of %s: %w", idx, doc, err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("renderer produced no output for %s of %s", idx, doc)
	}
	return data, nil
}
