// Package align derives translation offsets between documents from anchor
// markups.
package align

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"seehuhn.de/go/geom/vec"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/markup"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// PageCounter reports how many pages a document has.
type PageCounter interface {
	PageCount(doc string) (int, error)
}

// Querier returns the markups of one page.
type Querier interface {
	QueryPage(ctx context.Context, doc string, page models.PageNumber) (*markup.Collection, error)
}

// UnitScale leaves offsets in document units.
var UnitScale = [2]float64{1, 1}

type Aligner struct {
	markups Querier
	pages   PageCounter
	logger  *slog.Logger
}

func NewAligner(markups Querier, pages PageCounter, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aligner{markups: markups, pages: pages, logger: logger}
}

// Anchor returns the single markup of the given color on a page. Zero or
// several matches, or a match without a position, is an alignment error.
func (a *Aligner) Anchor(ctx context.Context, doc string, page models.PageNumber, color string) (models.Markup, error) {
	c, err := a.markups.QueryPage(ctx, doc, page)
	if err != nil {
		return models.Markup{}, err
	}
	anchors := c.WithColor(color)
	if anchors.Len() != 1 {
		return models.Markup{}, syncerr.NewAlignment(int(page),
			fmt.Sprintf("anchor count mismatch: expected 1 markup of color %s, found %d", color, anchors.Len()), doc)
	}
	m := anchors.All()[0]
	if !m.HasPosition() {
		return models.Markup{}, syncerr.NewAlignment(int(page),
			fmt.Sprintf("anchor %s has no position", m.ID), doc)
	}
	return m, nil
}

// DeriveOffset returns the translation from docA's anchor to docB's anchor on
// page, with each axis divided by the matching scale component.
func (a *Aligner) DeriveOffset(ctx context.Context, docA, docB string, page models.PageNumber, color string, scale [2]float64) (models.Offset, error) {
	if scale[0] == 0 || scale[1] == 0 {
		return models.Offset{}, fmt.Errorf("scale components must be non-zero, got %v", scale)
	}
	anchorA, err := a.Anchor(ctx, docA, page, color)
	if err != nil {
		return models.Offset{}, err
	}
	anchorB, err := a.Anchor(ctx, docB, page, color)
	if err != nil {
		return models.Offset{}, err
	}
	ax, ay := anchorA.Position()
	bx, by := anchorB.Position()
	d := vec.Vec2{X: bx, Y: by}.Sub(vec.Vec2{X: ax, Y: ay})

	offset := models.Offset{DX: d.X, DY: d.Y}.Scale(scale[0], scale[1])
	a.logger.Debug("Derived anchor offset", "page", int(page), "dx", offset.DX, "dy", offset.DY)
	return offset, nil
}

// SamePageCount returns the shared page count of docA and docB, or a
// PageCountMismatch error.
func (a *Aligner) SamePageCount(docA, docB string) (int, error) {
	countA, err := a.pages.PageCount(docA)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages of %s: %w", docA, err)
	}
	countB, err := a.pages.PageCount(docB)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages of %s: %w", docB, err)
	}
	if countA != countB {
		return 0, syncerr.NewPageCountMismatch(docA, countA, docB, countB)
	}
	return countA, nil
}

// DeriveOffsetPerPage returns one offset per page; element i belongs to
// page i+1.
func (a *Aligner) DeriveOffsetPerPage(ctx context.Context, docA, docB, color string, scale [2]float64) ([]models.Offset, error) {
	pages, err := a.SamePageCount(docA, docB)
	if err != nil {
		return nil, err
	}
	offsets := make([]models.Offset, 0, pages)
	for p := models.PageNumber(1); int(p) <= pages; p++ {
		o, err := a.DeriveOffset(ctx, docA, docB, p, color, scale)
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, o)
	}
	a.logger.Info("Derived offsets", "document", docB, "reference", docA, "page_count", pages)
	return offsets, nil
}

// ColorTable maps an upper-cased anchor color to its position on the
// reference page.
type ColorTable map[string]vec.Vec2

// BuildColorTable reads page 1 of reference. Markups without a color or a
// position are ignored; for a repeated color the last markup wins.
func (a *Aligner) BuildColorTable(ctx context.Context, reference string) (ColorTable, error) {
	c, err := a.markups.QueryPage(ctx, reference, 1)
	if err != nil {
		return nil, err
	}
	table := ColorTable{}
	for _, m := range c.All() {
		if m.Color == "" || !m.HasPosition() {
			continue
		}
		x, y := m.Position()
		table[strings.ToUpper(m.Color)] = vec.Vec2{X: x, Y: y}
	}
	if len(table) == 0 {
		return nil, syncerr.NewAlignment(1, "reference page has no colored anchors", reference)
	}
	return table, nil
}

// SourceOffset is the translation that carries one source page onto the
// reference layout.
type SourceOffset struct {
	Doc      string
	Page     models.PageNumber
	MarkupID string
	Color    string
	// Target is the anchor position on the reference page.
	Target models.Offset
	Offset models.Offset
}

// DeriveMultiSourceOffset finds, on page of every source, the one markup whose
// color appears in table and returns reference position minus source
// position. Sources with fewer pages than page are skipped.
func (a *Aligner) DeriveMultiSourceOffset(ctx context.Context, table ColorTable, sources []string, page models.PageNumber) ([]SourceOffset, error) {
	var out []SourceOffset
	for _, src := range sources {
		count, err := a.pages.PageCount(src)
		if err != nil {
			return nil, fmt.Errorf("failed to count pages of %s: %w", src, err)
		}
		if int(page) > count {
			a.logger.Debug("Source has no such page", "document", src, "page", int(page))
			continue
		}

		c, err := a.markups.QueryPage(ctx, src, page)
		if err != nil {
			return nil, err
		}
		matches := c.Filter(func(m models.Markup) bool {
			_, ok := table[strings.ToUpper(m.Color)]
			return ok && m.HasPosition()
		})
		if matches.Len() != 1 {
			return nil, syncerr.NewAlignment(int(page),
				fmt.Sprintf("expected exactly 1 reference-colored anchor, found %d", matches.Len()), src)
		}
		m := matches.All()[0]
		x, y := m.Position()
		color := strings.ToUpper(m.Color)
		target := table[color]
		d := target.Sub(vec.Vec2{X: x, Y: y})
		out = append(out, SourceOffset{
			Doc:      src,
			Page:     page,
			MarkupID: m.ID,
			Color:    color,
			Target:   models.Offset{DX: target.X, DY: target.Y},
			Offset:   models.Offset{DX: d.X, DY: d.Y},
		})
	}
	return out, nil
}
