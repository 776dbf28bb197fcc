// Package pagecontent moves and resizes the drawn content of PDF pages.
//
// Edits wrap each page's existing content streams in a "q <cm> ... Q" pair,
// so the original streams are never rewritten.
package pagecontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/combine"
	"github.com/dtnitsch/drawing-sync/pkg/geometry"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
	"github.com/dtnitsch/drawing-sync/pkg/workspace"
)

// Transformer edits page content.
type Transformer struct {
	workers  int
	combiner combine.Combiner
	jobs     *workspace.Manager
	logger   *slog.Logger

	// movePage moves one split page; MoveContent unless replaced in tests.
	movePage func(in, out string, offset models.Offset) error
}

func NewTransformer(cfg *models.Config, combiner combine.Combiner, jobs *workspace.Manager, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transformer{workers: cfg.Workers, combiner: combiner, jobs: jobs, logger: logger}
	t.movePage = func(in, out string, offset models.Offset) error {
		return t.MoveContent(in, out, offset, nil)
	}
	return t
}

// normalizeRotation folds a /Rotate value into [0, 360).
func normalizeRotation(r int) int {
	return ((r % 360) + 360) % 360
}

// moveOperator is the content operator that translates a page displayed at
// rotation by offset.
func moveOperator(rotation int, offset models.Offset) (string, error) {
	m, err := geometry.TranslateForRotation(normalizeRotation(rotation), offset.DX, offset.DY)
	if err != nil {
		return "", err
	}
	return geometry.ContentOperator(m), nil
}

// selected returns the 1-based page numbers named by pages, or every page
// when pages is empty.
func selected(pageCount int, pages []models.PageIndex) ([]int, error) {
	if len(pages) == 0 {
		all := make([]int, pageCount)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}
	out := make([]int, 0, len(pages))
	seen := map[int]bool{}
	for _, p := range pages {
		if int(p) < 0 || int(p) >= pageCount {
			return nil, fmt.Errorf("%s out of range (%d pages)", p, pageCount)
		}
		if n := int(p.Number()); !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

func newStream(ctx *model.Context, content string) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf([]byte(content))
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// wrapContent surrounds the page's content streams with "q op" and "Q".
func wrapContent(ctx *model.Context, page types.Dict, op string) error {
	pre, err := newStream(ctx, "q "+op+"\n")
	if err != nil {
		return fmt.Errorf("failed to create content stream: %w", err)
	}
	post, err := newStream(ctx, "\nQ\n")
	if err != nil {
		return fmt.Errorf("failed to create content stream: %w", err)
	}

	contents := types.Array{*pre}
	if obj, found := page.Find("Contents"); found && obj != nil {
		switch o := obj.(type) {
		case types.IndirectRef:
			deref, err := ctx.Dereference(o)
			if err != nil {
				return fmt.Errorf("failed to resolve page contents: %w", err)
			}
			if arr, ok := deref.(types.Array); ok {
				contents = append(contents, arr...)
			} else {
				contents = append(contents, o)
			}
		case types.Array:
			contents = append(contents, o...)
		default:
			return fmt.Errorf("unexpected page contents of type %T", obj)
		}
	}
	contents = append(contents, *post)
	page["Contents"] = contents
	return nil
}

// withLocation points a classified error at path and page.
func withLocation(err error, path string, page int) error {
	var e *syncerr.Error
	if errors.As(err, &e) {
		e.Paths = []string{path}
		e.Page = page
	}
	return err
}

// MoveContent translates the content of the selected pages (all when pages is
// empty) by offset and writes the result to out. The offset is given in the
// unrotated page frame and remapped per page rotation.
func (t *Transformer) MoveContent(in, out string, offset models.Offset, pages []models.PageIndex) error {
	ctx, err := api.ReadContextFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}
	targets, err := selected(ctx.PageCount, pages)
	if err != nil {
		return fmt.Errorf("invalid page selection for %s: %w", in, err)
	}

	for _, n := range targets {
		d, _, inh, err := ctx.PageDict(n, false)
		if err != nil {
			return fmt.Errorf("failed to read page %d of %s: %w", n, in, err)
		}
		if d == nil || inh == nil {
			return fmt.Errorf("page %d of %s not found", n, in)
		}
		op, err := moveOperator(inh.Rotate, offset)
		if err != nil {
			return withLocation(err, in, n)
		}
		if err := wrapContent(ctx, d, op); err != nil {
			return fmt.Errorf("page %d of %s: %w", n, in, err)
		}
	}

	if err := api.WriteContextFile(ctx, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	t.logger.Debug("Moved page content", "document", in, "output", out, "page_count", len(targets), "dx", offset.DX, "dy", offset.DY)
	return nil
}

func scaleBox(r *types.Rectangle, sx, sy float64) types.Array {
	return types.NewRectangle(r.LL.X*sx, r.LL.Y*sy, r.UR.X*sx, r.UR.Y*sy).Array()
}

// Resize applies plan to every page: the page boxes are scaled by the page
// stage and the content by every stage. The /VP viewport entry is dropped
// since its measurements no longer apply.
func (t *Transformer) Resize(in, out string, plan geometry.ResizePlan) error {
	ctx, err := api.ReadContextFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}

	stages := plan.Stages()
	var op string
	if len(stages) > 0 {
		op = geometry.ContentOperator(plan.Combined())
	}
	for n := 1; n <= ctx.PageCount; n++ {
		d, _, inh, err := ctx.PageDict(n, false)
		if err != nil {
			return fmt.Errorf("failed to read page %d of %s: %w", n, in, err)
		}
		if d == nil || inh == nil {
			return fmt.Errorf("page %d of %s not found", n, in)
		}
		d.Delete("VP")
		if plan.ScalesPage() {
			if inh.MediaBox != nil {
				d["MediaBox"] = scaleBox(inh.MediaBox, plan.PageScaleX, plan.PageScaleY)
			}
			if inh.CropBox != nil {
				d["CropBox"] = scaleBox(inh.CropBox, plan.PageScaleX, plan.PageScaleY)
			}
		}
		if op != "" {
			if err := wrapContent(ctx, d, op); err != nil {
				return fmt.Errorf("page %d of %s: %w", n, in, err)
			}
		}
	}

	if err := api.WriteContextFile(ctx, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	t.logger.Info("Resized document", "document", in, "output", out, "stage_count", len(stages),
		"page_scale_x", plan.PageScaleX, "page_scale_y", plan.PageScaleY,
		"content_scale_x", plan.ContentScaleX, "content_scale_y", plan.ContentScaleY)
	return nil
}

// MovePages splits in into single-page files, moves page i by offsets[i] on a
// bounded pool of workers and recombines the pages into out. Any worker
// failure cancels the rest and nothing is recombined. The job directory is
// removed on every path.
func (t *Transformer) MovePages(ctx context.Context, in, out string, offsets []models.Offset) error {
	count, err := api.PageCountFile(in)
	if err != nil {
		return fmt.Errorf("failed to count pages of %s: %w", in, err)
	}
	if len(offsets) != count {
		return fmt.Errorf("%s has %d pages but %d offsets were given", in, count, len(offsets))
	}

	job, err := t.jobs.NewJob(ctx, in)
	if err != nil {
		return err
	}
	defer job.Cleanup(ctx)

	moved := make([]string, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page := strconv.Itoa(i + 1)
			split := job.Path("page-%04d.pdf", i+1)
			if err := api.TrimFile(in, split, []string{page}, nil); err != nil {
				return fmt.Errorf("failed to split page %s of %s: %w", page, in, err)
			}
			dst := job.Path("moved-%04d.pdf", i+1)
			if err := t.movePage(split, dst, offsets[i]); err != nil {
				return withLocation(err, in, i+1)
			}
			moved[i] = dst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.logger.Error("Page transform failed, not recombining", "document", in, "error", err)
		return err
	}

	t.logger.Info("Moved pages", "document", in, "page_count", count, "workers", t.workers)
	return t.combiner.Combine(ctx, moved, out)
}

// MoveAll moves every page of in by the same offset.
func (t *Transformer) MoveAll(ctx context.Context, in, out string, offset models.Offset) error {
	count, err := api.PageCountFile(in)
	if err != nil {
		return fmt.Errorf("failed to count pages of %s: %w", in, err)
	}
	offsets := make([]models.Offset, count)
	for i := range offsets {
		offsets[i] = offset
	}
	return t.MovePages(ctx, in, out, offsets)
}
