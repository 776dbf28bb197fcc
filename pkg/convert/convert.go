// Package convert turns SVG pages into single-page PDFs.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/engine"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// Converter writes the PDF rendering of the SVG at src to dst.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// New returns the converter selected by cfg.Converter.
func New(cfg *models.Config, runner engine.Runner, logger *slog.Logger) (Converter, error) {
	switch cfg.Converter {
	case models.ConverterInkscape:
		return NewInkscape(cfg.InkscapePath, runner, logger), nil
	case models.ConverterChrome:
		return NewChrome(cfg.ChromePath, logger), nil
	default:
		return nil, fmt.Errorf("unknown converter %q", cfg.Converter)
	}
}

// Inkscape converts with the inkscape command line.
type Inkscape struct {
	path   string
	runner engine.Runner
	logger *slog.Logger
}

func NewInkscape(path string, runner engine.Runner, logger *slog.Logger) *Inkscape {
	if runner == nil {
		runner = engine.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inkscape{path: path, runner: runner, logger: logger}
}

// Convert fails when inkscape exits non-zero or leaves no output.
func (c *Inkscape) Convert(ctx context.Context, src, dst string) error {
	c.logger.Debug("Converting svg", "src", src, "dst", dst)
	if _, err := c.runner.Run(ctx, c.path, src, "--export-type=pdf", "--export-filename="+dst); err != nil {
		return syncerr.NewConverter("inkscape failed", err, src, dst)
	}
	return checkOutput(src, dst)
}

func checkOutput(src, dst string) error {
	info, err := os.Stat(dst)
	if err != nil {
		return syncerr.NewConverter("converter produced no output", err, src, dst)
	}
	if info.Size() == 0 {
		return syncerr.NewConverter("converter produced an empty file", nil, src, dst)
	}
	return nil
}
