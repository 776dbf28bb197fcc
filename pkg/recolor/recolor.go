// Package recolor lists and replaces the stroke and fill colors of drawing
// pages.
package recolor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/combine"
	"github.com/dtnitsch/drawing-sync/pkg/compositor"
	"github.com/dtnitsch/drawing-sync/pkg/convert"
	"github.com/dtnitsch/drawing-sync/pkg/workspace"
)

var hexColor = regexp.MustCompile(`^#[A-Fa-f0-9]{6}`)

// Colors returns the distinct fill and stroke values of an SVG page that
// start with a six-digit hex color, sorted.
func Colors(svg []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	seen := map[string]struct{}{}
	doc.Find("[fill], [stroke]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"fill", "stroke"} {
			if v, ok := s.Attr(attr); ok && hexColor.MatchString(v) {
				seen[v] = struct{}{}
			}
		}
	})
	colors := make([]string, 0, len(seen))
	for c := range seen {
		colors = append(colors, c)
	}
	sort.Strings(colors)
	return colors, nil
}

// Apply replaces from with to in every fill and stroke under root. The lower
// and upper case spellings of from are matched. With opacity below 1 the
// matching fill-opacity or stroke-opacity is set too. It returns the number
// of attributes changed.
func Apply(root *etree.Element, from, to string, opacity float64) int {
	lower, upper := strings.ToLower(from), strings.ToUpper(from)
	changed := 0
	var visit func(e *etree.Element)
	visit = func(e *etree.Element) {
		for _, attr := range []string{"fill", "stroke"} {
			a := e.SelectAttr(attr)
			if a == nil || !(strings.Contains(a.Value, lower) || strings.Contains(a.Value, upper)) {
				continue
			}
			a.Value = strings.ReplaceAll(strings.ReplaceAll(a.Value, lower, to), upper, to)
			if opacity < 1 {
				e.CreateAttr(attr+"-opacity", strconv.FormatFloat(opacity, 'f', -1, 64))
			}
			changed++
		}
		for _, c := range e.ChildElements() {
			visit(c)
		}
	}
	visit(root)
	return changed
}

// Renderer renders document pages to SVG.
type Renderer interface {
	PageCount(doc string) (int, error)
	PageSVG(ctx context.Context, doc string, idx models.PageIndex) ([]byte, error)
}

// Recolorer rewrites page colors by rendering each page to SVG, editing it
// and converting it back.
type Recolorer struct {
	workers   int
	renderer  Renderer
	converter convert.Converter
	combiner  combine.Combiner
	jobs      *workspace.Manager
	logger    *slog.Logger
}

func NewRecolorer(cfg *models.Config, renderer Renderer, converter convert.Converter, combiner combine.Combiner, jobs *workspace.Manager, logger *slog.Logger) *Recolorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recolorer{
		workers:   cfg.Workers,
		renderer:  renderer,
		converter: converter,
		combiner:  combiner,
		jobs:      jobs,
		logger:    logger,
	}
}

// PageColors lists the hex colors used on one page.
func (r *Recolorer) PageColors(ctx context.Context, doc string, idx models.PageIndex) ([]string, error) {
	svg, err := r.renderer.PageSVG(ctx, doc, idx)
	if err != nil {
		return nil, err
	}
	return Colors(svg)
}

// Recolor writes a copy of in to out with from replaced by to on the given
// pages (0-indexed). Other pages are re-rendered unchanged.
func (r *Recolorer) Recolor(ctx context.Context, in string, pages []models.PageIndex, from, to string, opacity float64, out string) error {
	count, err := r.renderer.PageCount(in)
	if err != nil {
		return err
	}
	want := make(map[models.PageIndex]bool, len(pages))
	for _, p := range pages {
		want[p] = true
	}

	job, err := r.jobs.NewJob(ctx, out)
	if err != nil {
		return err
	}
	defer job.Cleanup(ctx)

	pdfs := make([]string, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < count; i++ {
		idx := models.PageIndex(i)
		g.Go(func() error {
			svg, err := r.renderer.PageSVG(gctx, in, idx)
			if err != nil {
				return err
			}
			if want[idx] {
				svg, err = recolorSVG(svg, from, to, opacity)
				if err != nil {
					return fmt.Errorf("%s: %w", idx, err)
				}
			}
			src, err := job.Write(gctx, fmt.Sprintf("%d.svg", i), svg)
			if err != nil {
				return err
			}
			pdfs[i] = job.Path("%d.pdf", i)
			return r.converter.Convert(gctx, src, pdfs[i])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("Recolored document", "document", in, "output", out, "from", from, "to", to, "page_count", count, "recolored_page_count", len(pages))
	return r.combiner.Combine(ctx, pdfs, out)
}

func recolorSVG(svg []byte, from, to string, opacity float64) ([]byte, error) {
	root, err := compositor.Parse(svg)
	if err != nil {
		return nil, err
	}
	Apply(root, from, to, opacity)
	return compositor.Encode(etree.NewDocumentWithRoot(root))
}
