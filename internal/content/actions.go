package content

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/drawing-sync/internal/common"
	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/align"
	"github.com/dtnitsch/drawing-sync/pkg/db"
	"github.com/dtnitsch/drawing-sync/pkg/geometry"
)

// MoveAction translates page content. With --pages only those pages are
// moved in one pass; with --align-to each page is moved by its own anchor
// offset against the reference; otherwise every page is moved by --offset
// on the worker pool.
func MoveAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	in, out := c.String("in"), c.String("out")
	return s.Track(c, func(runID int64) error {
		if c.IsSet("align-to") {
			reference := c.String("align-to")
			color := s.Config.AnchorColor
			if c.IsSet("color") {
				color = c.String("color")
			}
			offsets, err := s.Aligner.DeriveOffsetPerPage(c.Context, in, reference, color, align.UnitScale)
			if err != nil {
				return err
			}
			for i := range offsets {
				rec := db.OffsetRecord{Reference: reference, Document: in, Page: i + 1, DX: offsets[i].DX, DY: offsets[i].DY}
				if err := s.Ledger.RecordOffset(runID, rec); err != nil {
					s.Logger.Warn("Failed to record offset", "run_id", runID, "error", err)
				}
				// markup y grows downwards, content y upwards
				offsets[i].DY = -offsets[i].DY
			}
			return s.Content.MovePages(c.Context, in, out, offsets)
		}

		offset, err := common.ParseOffset(c.String("offset"))
		if err != nil {
			return err
		}
		if c.IsSet("pages") {
			pages, err := common.ParsePages(c.String("pages"))
			if err != nil {
				return err
			}
			return s.Content.MoveContent(in, out, offset, common.PageIndexes(pages))
		}
		return s.Content.MoveAll(c.Context, in, out, offset)
	})
}

// ResizeAction rescales pages from one drawing scale and page size to
// another. The input size defaults to the size of the first page.
func ResizeAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	in, out := c.String("in"), c.String("out")
	inSize := models.Size{Width: c.Float64("in-width"), Height: c.Float64("in-height")}
	if !c.IsSet("in-width") || !c.IsSet("in-height") {
		size, err := s.Renderer.PageSize(in, 0)
		if err != nil {
			return err
		}
		if !c.IsSet("in-width") {
			inSize.Width = size.Width
		}
		if !c.IsSet("in-height") {
			inSize.Height = size.Height
		}
	}
	outSize := models.Size{Width: c.Float64("out-width"), Height: c.Float64("out-height")}
	if outSize.Width <= 0 || outSize.Height <= 0 || inSize.Width <= 0 || inSize.Height <= 0 {
		return fmt.Errorf("page sizes must be positive: in %vx%v, out %vx%v",
			inSize.Width, inSize.Height, outSize.Width, outSize.Height)
	}
	if c.Float64("in-scale") <= 0 || c.Float64("out-scale") <= 0 {
		return fmt.Errorf("drawing scales must be positive")
	}

	plan := geometry.ComposeTranslateScale(
		geometry.ScaleSpec{Scale: c.Float64("in-scale"), Size: inSize},
		geometry.ScaleSpec{Scale: c.Float64("out-scale"), Size: outSize},
	)
	if err := s.Track(c, func(int64) error { return s.Content.Resize(in, out, plan) }); err != nil {
		return err
	}
	return common.Write(c, resizeReport{ResizePlan: plan, PageSize: plan.ScaleSize(inSize)})
}

type resizeReport struct {
	geometry.ResizePlan `yaml:",inline"`
	PageSize            models.Size `json:"page_size" yaml:"page_size"`
}

// MergeAction concatenates the argument documents into --out.
func MergeAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return fmt.Errorf("no input documents given")
	}
	return s.Track(c, func(int64) error {
		return s.Combiner.Combine(c.Context, inputs, c.String("out"))
	})
}
