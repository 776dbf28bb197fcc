// Package combine concatenates single-page PDFs into one document.
package combine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/viant/afs"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/workspace"
)

// Combiner writes inputs, in order, to output. A single input is copied.
type Combiner interface {
	Combine(ctx context.Context, inputs []string, output string) error
}

// New returns the combiner selected by cfg.Combiner. eng is the annotation
// engine client (*engine.Client), used by the engine combiner.
func New(cfg *models.Config, eng Combiner, logger *slog.Logger) (Combiner, error) {
	switch cfg.Combiner {
	case models.CombinerEngine:
		return NewEngine(eng, logger), nil
	case models.CombinerPDF:
		return NewPDF(logger), nil
	default:
		return nil, fmt.Errorf("unknown combiner %q", cfg.Combiner)
	}
}

type base struct {
	fs     afs.Service
	logger *slog.Logger
}

func newBase(logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{fs: afs.New(), logger: logger}
}

// single handles the zero and one input cases. It reports whether it did.
func (b base) single(ctx context.Context, inputs []string, output string) (bool, error) {
	switch len(inputs) {
	case 0:
		return true, fmt.Errorf("nothing to combine into %s", output)
	case 1:
		b.logger.Debug("Single input, copying", "src", inputs[0], "dst", output)
		return true, workspace.Copy(ctx, b.fs, inputs[0], output)
	}
	return false, nil
}

// Engine combines through the annotation engine, which keeps markups intact.
type Engine struct {
	base
	engine Combiner
}

func NewEngine(eng Combiner, logger *slog.Logger) *Engine {
	return &Engine{base: newBase(logger), engine: eng}
}

func (c *Engine) Combine(ctx context.Context, inputs []string, output string) error {
	if done, err := c.single(ctx, inputs, output); done {
		return err
	}
	c.logger.Info("Combining documents", "combiner", models.CombinerEngine, "input_count", len(inputs), "output", output)
	return c.engine.Combine(ctx, inputs, output)
}

// PDF combines with pdfcpu.
type PDF struct {
	base
}

func NewPDF(logger *slog.Logger) *PDF {
	return &PDF{base: newBase(logger)}
}

func (c *PDF) Combine(ctx context.Context, inputs []string, output string) error {
	if done, err := c.single(ctx, inputs, output); done {
		return err
	}
	c.logger.Info("Combining documents", "combiner", models.CombinerPDF, "input_count", len(inputs), "output", output)
	if err := api.MergeCreateFile(inputs, output, false, nil); err != nil {
		return fmt.Errorf("failed to merge %d documents into %s: %w", len(inputs), output, err)
	}
	return nil
}
