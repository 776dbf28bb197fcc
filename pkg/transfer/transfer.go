// Package transfer copies markups from one document page to another through
// the annotation engine: copy, paste, reposition and relabel.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/align"
	"github.com/dtnitsch/drawing-sync/pkg/engine"
	"github.com/dtnitsch/drawing-sync/pkg/markup"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// Engine is the subset of *engine.Client the pipeline drives.
type Engine interface {
	CopyMarkups(ctx context.Context, doc string, page models.PageNumber, ids []string) ([]string, error)
	PasteMarkups(ctx context.Context, doc string, page models.PageNumber, pastes []engine.Paste) ([][]string, error)
	SetMarkups(ctx context.Context, doc string, page models.PageNumber, updates []engine.Update) error
}

// Options narrow and adjust one transfer.
type Options struct {
	// Region, when set, keeps only markups strictly inside it.
	Region *models.Region
	// Offset is added to every markup position.
	Offset models.Offset
	// ContentReplace rewrites a pasted markup's comment when the source
	// comment equals a key.
	ContentReplace map[string]string
}

// Result summarises a transfer.
type Result struct {
	SourcePage models.PageNumber `json:"source_page"`
	TargetPage models.PageNumber `json:"target_page"`
	Selected   int               `json:"selected"`
	PastedIDs  []string          `json:"pasted_ids"`
	Positioned int               `json:"positioned"`
	Relabelled int               `json:"relabelled"`
}

// Pipeline runs transfers. Engine calls are issued one at a time; callers
// must not run two pipelines against the same document concurrently.
type Pipeline struct {
	markups align.Querier
	engine  Engine
	aligner *align.Aligner
	logger  *slog.Logger
}

func NewPipeline(markups align.Querier, eng Engine, aligner *align.Aligner, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{markups: markups, engine: eng, aligner: aligner, logger: logger}
}

// placement is a selected markup's target position. Fields are nil when the
// source markup did not report them.
type placement struct {
	id      string
	x, y    *float64
	height  *float64
	comment string
}

func (p placement) complete() bool {
	return p.x != nil && p.y != nil && p.height != nil
}

// pastePoint is where the engine is asked to drop the markup. Incomplete
// placements go to the origin and keep whatever position the paste gives
// them.
func (p placement) pastePoint() (float64, float64) {
	if !p.complete() {
		return 0, 0
	}
	return *p.y + *p.height, *p.x
}

func place(m models.Markup, o models.Offset) placement {
	p := placement{id: m.ID, height: m.Height, comment: m.Comment}
	if m.X != nil {
		x := *m.X + o.DX
		p.x = &x
	}
	if m.Y != nil {
		y := *m.Y + o.DY
		p.y = &y
	}
	return p
}

// Transfer copies the markups of srcPage in src onto dstPage in dst. An empty
// selection is logged and skipped.
func (p *Pipeline) Transfer(ctx context.Context, src string, srcPage models.PageNumber, dst string, dstPage models.PageNumber, opts Options) (Result, error) {
	res := Result{SourcePage: srcPage, TargetPage: dstPage}

	selected, err := p.markups.QueryPage(ctx, src, srcPage)
	if err != nil {
		return res, err
	}
	if opts.Region != nil {
		selected = selected.InRegion(*opts.Region)
	}
	if selected.Len() == 0 {
		p.logger.Warn("Skipping transfer", "error", syncerr.NewEmptySelection(src, int(srcPage), "no markups selected"))
		return res, nil
	}
	res.Selected = selected.Len()

	placements := make([]placement, 0, selected.Len())
	for _, m := range selected.All() {
		placements = append(placements, place(m, opts.Offset))
	}

	formats, err := p.engine.CopyMarkups(ctx, src, srcPage, selected.IDs())
	if err != nil {
		return res, fmt.Errorf("failed to copy markups: %w", err)
	}

	pastes := make([]engine.Paste, len(placements))
	for i, pl := range placements {
		x, y := pl.pastePoint()
		pastes[i] = engine.Paste{Format: formats[i], X: x, Y: y}
	}
	pasted, err := p.engine.PasteMarkups(ctx, dst, dstPage, pastes)
	if err != nil {
		return res, fmt.Errorf("failed to paste markups: %w", err)
	}

	var updates []engine.Update
	for i, pl := range placements {
		if len(pasted[i]) == 0 || pasted[i][0] == "" {
			e := syncerr.NewExternalEngine(fmt.Sprintf("no id returned for pasted markup %s", pl.id), nil, dst)
			e.Page = int(dstPage)
			return res, e
		}
		newID := pasted[i][0]
		res.PastedIDs = append(res.PastedIDs, newID)
		if !pl.complete() {
			p.logger.Debug("Markup position incomplete, leaving paste position", "markup_id", pl.id, "page", int(srcPage))
			continue
		}
		props := map[string]string{
			markup.PropX: formatFloat(*pl.x),
			markup.PropY: formatFloat(*pl.y),
		}
		if after, ok := opts.ContentReplace[pl.comment]; ok {
			props[markup.PropComment] = after
			res.Relabelled++
		}
		updates = append(updates, engine.Update{ID: newID, Props: props})
	}
	res.Positioned = len(updates)

	if err := p.engine.SetMarkups(ctx, dst, dstPage, updates); err != nil {
		return res, fmt.Errorf("failed to position pasted markups: %w", err)
	}
	p.logger.Info("Transferred markups",
		"source", src, "target", dst,
		"page", int(srcPage), "target_page", int(dstPage),
		"markup_count", res.Selected, "positioned", res.Positioned)
	return res, nil
}

// TransferAllPagesByAnchor transfers every page of src onto the same page of
// dst, offset by that page's anchor displacement.
func (p *Pipeline) TransferAllPagesByAnchor(ctx context.Context, src, dst, anchorColor string) ([]Result, error) {
	pages, err := p.aligner.SamePageCount(src, dst)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, pages)
	for page := models.PageNumber(1); int(page) <= pages; page++ {
		offset, err := p.aligner.DeriveOffset(ctx, src, dst, page, anchorColor, align.UnitScale)
		if err != nil {
			return results, err
		}
		res, err := p.Transfer(ctx, src, page, dst, page, Options{Offset: offset})
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Relabel sets the comment of every markup whose comment matches one of
// before to after. It returns the number of markups changed.
func (p *Pipeline) Relabel(ctx context.Context, doc string, page models.PageNumber, before []string, after string) (int, error) {
	c, err := p.markups.QueryPage(ctx, doc, page)
	if err != nil {
		return 0, err
	}
	matches := c.WithContent(before...)
	if matches.Len() == 0 {
		p.logger.Warn("Skipping relabel", "error", syncerr.NewEmptySelection(doc, int(page), "no markup matches the given content"))
		return 0, nil
	}
	updates := make([]engine.Update, 0, matches.Len())
	for _, id := range matches.IDs() {
		updates = append(updates, engine.Update{ID: id, Props: map[string]string{markup.PropComment: after}})
	}
	if err := p.engine.SetMarkups(ctx, doc, page, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
