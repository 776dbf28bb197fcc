// Package mix lines up partial drawings against a reference drawing and
// composes them into one document.
//
// Each source carries one anchor markup whose color also appears on page 1
// of the reference; the anchor pair defines where the source page lands on
// the reference canvas.
package mix

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/beevik/etree"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/align"
	"github.com/dtnitsch/drawing-sync/pkg/combine"
	"github.com/dtnitsch/drawing-sync/pkg/compositor"
	"github.com/dtnitsch/drawing-sync/pkg/convert"
	"github.com/dtnitsch/drawing-sync/pkg/engine"
	"github.com/dtnitsch/drawing-sync/pkg/geometry"
	"github.com/dtnitsch/drawing-sync/pkg/markup"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
	"github.com/dtnitsch/drawing-sync/pkg/transfer"
	"github.com/dtnitsch/drawing-sync/pkg/workspace"
)

// drawingScale is the nominal drawing scale of a freshly converted page.
const drawingScale = 100

// Renderer reads page geometry and renders pages to SVG.
type Renderer interface {
	PageCount(doc string) (int, error)
	PageSize(doc string, idx models.PageIndex) (models.Size, error)
	PageSVG(ctx context.Context, doc string, idx models.PageIndex) ([]byte, error)
}

// Content rewrites page content streams.
type Content interface {
	Resize(in, out string, plan geometry.ResizePlan) error
	MovePages(ctx context.Context, in, out string, offsets []models.Offset) error
	MoveAll(ctx context.Context, in, out string, offset models.Offset) error
}

// MarkupSetter updates markup properties.
type MarkupSetter interface {
	SetMarkups(ctx context.Context, doc string, page models.PageNumber, updates []engine.Update) error
}

// Transferer copies markups between pages.
type Transferer interface {
	Transfer(ctx context.Context, src string, srcPage models.PageNumber, dst string, dstPage models.PageNumber, opts transfer.Options) (transfer.Result, error)
}

// Mixer runs the multi-document operations.
type Mixer struct {
	aligner    *align.Aligner
	renderer   Renderer
	compositor *compositor.Compositor
	converter  convert.Converter
	content    Content
	markups    MarkupSetter
	transfers  Transferer
	combiner   combine.Combiner
	jobs       *workspace.Manager
	logger     *slog.Logger
}

// Deps groups the collaborators of a Mixer.
type Deps struct {
	Aligner    *align.Aligner
	Renderer   Renderer
	Compositor *compositor.Compositor
	Converter  convert.Converter
	Content    Content
	Markups    MarkupSetter
	Transfers  Transferer
	Combiner   combine.Combiner
	Jobs       *workspace.Manager
}

func NewMixer(d Deps, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = slog.Default()
	}
	comp := d.Compositor
	if comp == nil {
		comp = compositor.New()
	}
	return &Mixer{
		aligner:    d.Aligner,
		renderer:   d.Renderer,
		compositor: comp,
		converter:  d.Converter,
		content:    d.Content,
		markups:    d.Markups,
		transfers:  d.Transfers,
		combiner:   d.Combiner,
		jobs:       d.Jobs,
		logger:     logger,
	}
}

// MixPatch composes sources onto the reference layout page by page and
// writes the result to output. Page i of the output merges page i of every
// source that has one, on a canvas the size of the reference's first page,
// and carries the markups of the reference's first page.
func (m *Mixer) MixPatch(ctx context.Context, reference string, sources []string, output string) error {
	if len(sources) == 0 {
		return fmt.Errorf("no source documents given")
	}
	table, err := m.aligner.BuildColorTable(ctx, reference)
	if err != nil {
		return err
	}
	pageCount := 0
	for _, src := range sources {
		n, err := m.renderer.PageCount(src)
		if err != nil {
			return err
		}
		pageCount = max(pageCount, n)
	}
	stdSize, err := m.renderer.PageSize(reference, 0)
	if err != nil {
		return err
	}

	job, err := m.jobs.NewJob(ctx, output)
	if err != nil {
		return err
	}
	defer job.Cleanup(ctx)

	pages := make([]string, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		page, err := m.mixPage(ctx, job, reference, table, sources, models.PageIndex(i), stdSize)
		if err != nil {
			return err
		}
		pages = append(pages, page)
	}

	if err := m.combiner.Combine(ctx, pages, output); err != nil {
		return fmt.Errorf("failed to combine mixed pages: %w", err)
	}
	m.logger.Info("Mixed documents", "reference", reference, "output", output,
		"source_count", len(sources), "page_count", pageCount)
	return nil
}

func (m *Mixer) mixPage(ctx context.Context, job *workspace.Job, reference string, table align.ColorTable, sources []string, idx models.PageIndex, stdSize models.Size) (string, error) {
	placed, err := m.aligner.DeriveMultiSourceOffset(ctx, table, sources, idx.Number())
	if err != nil {
		return "", err
	}

	fragments := make([]*etree.Element, 0, len(placed))
	offsets := make([]models.Offset, 0, len(placed))
	for _, so := range placed {
		svg, err := m.renderer.PageSVG(ctx, so.Doc, idx)
		if err != nil {
			return "", err
		}
		root, err := compositor.Parse(svg)
		if err != nil {
			return "", fmt.Errorf("%s of %s: %w", idx, so.Doc, err)
		}
		fragments = append(fragments, root)
		offsets = append(offsets, so.Offset)
	}

	doc, err := m.compositor.Merge(fragments, offsets, stdSize)
	if err != nil {
		return "", err
	}
	data, err := compositor.Encode(doc)
	if err != nil {
		return "", err
	}
	svgPath, err := job.Write(ctx, fmt.Sprintf("%d.svg", int(idx)), data)
	if err != nil {
		return "", err
	}
	converted := job.Path("%d.converted.pdf", int(idx))
	if err := m.converter.Convert(ctx, svgPath, converted); err != nil {
		return "", err
	}

	// the converter picks its own page size; bring the page back to the
	// reference size
	newSize, err := m.renderer.PageSize(converted, 0)
	if err != nil {
		return "", err
	}
	plan := geometry.ComposeTranslateScale(
		geometry.ScaleSpec{Scale: drawingScale, Size: newSize},
		geometry.ScaleSpec{Scale: drawingScale / stdSize.Width * newSize.Width, Size: stdSize},
	)
	pagePath := job.Path("%d.pdf", int(idx))
	if err := m.content.Resize(converted, pagePath, plan); err != nil {
		return "", err
	}

	if _, err := m.transfers.Transfer(ctx, reference, 1, pagePath, 1, transfer.Options{}); err != nil {
		return "", err
	}
	m.logger.Debug("Mixed page", "page", int(idx.Number()), "source_count", len(placed))
	return pagePath, nil
}

// AlignSources moves the content of every page of every source so that its
// anchor lands where the reference's anchor of the same color sits, and
// snaps the anchor markup to that position. Sources are rewritten in place.
func (m *Mixer) AlignSources(ctx context.Context, reference string, sources []string) ([]align.SourceOffset, error) {
	table, err := m.aligner.BuildColorTable(ctx, reference)
	if err != nil {
		return nil, err
	}

	var all []align.SourceOffset
	for _, src := range sources {
		count, err := m.renderer.PageCount(src)
		if err != nil {
			return all, err
		}
		contentOffsets := make([]models.Offset, 0, count)
		for p := models.PageNumber(1); int(p) <= count; p++ {
			placed, err := m.aligner.DeriveMultiSourceOffset(ctx, table, []string{src}, p)
			if err != nil {
				return all, err
			}
			so := placed[0]
			if err := m.snapAnchor(ctx, src, p, so.MarkupID, so.Target); err != nil {
				return all, err
			}
			// markup y grows downwards, content y upwards
			contentOffsets = append(contentOffsets, models.Offset{DX: so.Offset.DX, DY: -so.Offset.DY})
			all = append(all, so)
		}
		if err := m.content.MovePages(ctx, src, src, contentOffsets); err != nil {
			return all, err
		}
		m.logger.Info("Aligned source", "document", src, "reference", reference, "page_count", count)
	}
	return all, nil
}

func (m *Mixer) snapAnchor(ctx context.Context, doc string, page models.PageNumber, id string, pos models.Offset) error {
	return m.markups.SetMarkups(ctx, doc, page, []engine.Update{{
		ID: id,
		Props: map[string]string{
			markup.PropX: formatFloat(pos.DX),
			markup.PropY: formatFloat(pos.DY),
		},
	}})
}

// AlignToCenter centres the single anchor markup of page 1 inside box and
// moves the content of every page by the same amount. It returns the content
// offset applied.
func (m *Mixer) AlignToCenter(ctx context.Context, doc string, box models.Region, anchorColor string) (models.Offset, error) {
	anchor, err := m.aligner.Anchor(ctx, doc, 1, anchorColor)
	if err != nil {
		return models.Offset{}, err
	}
	if anchor.Width == nil || anchor.Height == nil {
		return models.Offset{}, syncerr.NewAlignment(1, fmt.Sprintf("anchor %s has no size", anchor.ID), doc)
	}
	x, y := anchor.Position()
	w, h := *anchor.Width, *anchor.Height
	ax, ay := x+w/2, y+h/2
	cx, cy := box.X+box.Width/2, box.Y+box.Height/2
	offset := models.Offset{DX: cx - ax, DY: -cy + ay}

	if err := m.snapAnchor(ctx, doc, 1, anchor.ID, models.Offset{DX: cx - w/2, DY: cy - h/2}); err != nil {
		return models.Offset{}, err
	}
	if err := m.content.MoveAll(ctx, doc, doc, offset); err != nil {
		return models.Offset{}, err
	}
	m.logger.Info("Centred drawing", "document", doc, "dx", offset.DX, "dy", offset.DY)
	return offset, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Overlay draws page ovIdx of overlay on top of page bgIdx of background,
// translated by position, and writes the single-page result to output.
func (m *Mixer) Overlay(ctx context.Context, background string, bgIdx models.PageIndex, overlay string, ovIdx models.PageIndex, position models.Offset, output string) error {
	bgSVG, err := m.renderer.PageSVG(ctx, background, bgIdx)
	if err != nil {
		return err
	}
	bg, err := compositor.Parse(bgSVG)
	if err != nil {
		return fmt.Errorf("%s of %s: %w", bgIdx, background, err)
	}
	ovSVG, err := m.renderer.PageSVG(ctx, overlay, ovIdx)
	if err != nil {
		return err
	}
	ov, err := compositor.Parse(ovSVG)
	if err != nil {
		return fmt.Errorf("%s of %s: %w", ovIdx, overlay, err)
	}

	data, err := compositor.Encode(m.compositor.Overlay(bg, ov, position))
	if err != nil {
		return err
	}

	job, err := m.jobs.NewJob(ctx, output)
	if err != nil {
		return err
	}
	defer job.Cleanup(ctx)

	svgPath, err := job.Write(ctx, "overlay.svg", data)
	if err != nil {
		return err
	}
	if err := m.converter.Convert(ctx, svgPath, output); err != nil {
		return err
	}
	m.logger.Info("Overlaid pages", "background", background, "overlay", overlay, "output", output,
		"dx", position.DX, "dy", position.DY)
	return nil
}
