package markups

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/drawing-sync/internal/common"
	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/db"
	"github.com/dtnitsch/drawing-sync/pkg/transfer"
)

// MarkupsAction lists the markups of one page, optionally filtered.
func MarkupsAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	page := models.PageNumber(c.Int("page"))
	markups, err := s.Markups.QueryPage(c.Context, c.String("doc"), page)
	if err != nil {
		return err
	}

	if c.IsSet("region") {
		region, err := common.ParseRegion(c.String("region"))
		if err != nil {
			return err
		}
		markups = markups.InRegion(region)
	}
	if c.IsSet("color") {
		markups = markups.WithColor(c.String("color"))
	}
	if contents := c.StringSlice("content"); len(contents) > 0 {
		markups = markups.WithContent(contents...)
	}
	where, err := common.ParseWhere(c.StringSlice("where"))
	if err != nil {
		return err
	}
	if where != nil {
		markups = markups.ByProperties(where)
	}

	out := make([]map[string]any, 0, markups.Len())
	for _, m := range markups.All() {
		out = append(out, common.FilterFields(m, c.String("fields")))
	}
	s.Logger.Info("Listed markups", "document", c.String("doc"), "page", int(page), "markup_count", len(out))
	return common.Write(c, out)
}

type pageOffset struct {
	Page int     `json:"page" yaml:"page"`
	DX   float64 `json:"dx" yaml:"dx"`
	DY   float64 `json:"dy" yaml:"dy"`
}

// OffsetsAction reports the anchor offset of every page of --doc relative to
// --reference, divided by the configured anchor scale.
func OffsetsAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	scale := s.Config.AnchorScale
	if c.IsSet("scale") {
		if scale, err = common.ParseScale(c.String("scale")); err != nil {
			return err
		}
	}
	reference, doc := c.String("reference"), c.String("doc")
	color := anchorColor(c, s.Config)

	var out []pageOffset
	err = s.Track(c, func(runID int64) error {
		offsets, err := s.Aligner.DeriveOffsetPerPage(c.Context, reference, doc, color, scale)
		if err != nil {
			return err
		}
		for i, o := range offsets {
			out = append(out, pageOffset{Page: i + 1, DX: o.DX, DY: o.DY})
			rec := db.OffsetRecord{Reference: reference, Document: doc, Page: i + 1, DX: o.DX, DY: o.DY}
			if err := s.Ledger.RecordOffset(runID, rec); err != nil {
				s.Logger.Warn("Failed to record offset", "run_id", runID, "page", i+1, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return common.Write(c, out)
}

// TransferAction copies the markups of one page onto a page of another
// document.
func TransferAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := transfer.Options{}
	if c.IsSet("region") {
		region, err := common.ParseRegion(c.String("region"))
		if err != nil {
			return err
		}
		opts.Region = &region
	}
	if c.IsSet("offset") {
		if opts.Offset, err = common.ParseOffset(c.String("offset")); err != nil {
			return err
		}
	}
	if opts.ContentReplace, err = common.ParseReplacements(c.StringSlice("replace")); err != nil {
		return err
	}

	src, dst := c.String("from"), c.String("to")
	srcPage, dstPage := models.PageNumber(c.Int("from-page")), models.PageNumber(c.Int("to-page"))
	if !srcPage.Valid() || !dstPage.Valid() {
		return fmt.Errorf("page numbers start at 1")
	}

	var res transfer.Result
	err = s.Track(c, func(runID int64) error {
		res, err = s.Transfers.Transfer(c.Context, src, srcPage, dst, dstPage, opts)
		if err != nil {
			return err
		}
		recordTransfer(s, runID, src, dst, res)
		return nil
	})
	if err != nil {
		return err
	}
	return common.Write(c, res)
}

// SyncAction transfers every page of --from onto the same page of --to,
// aligned by the anchor markups of each page.
func SyncAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	src, dst := c.String("from"), c.String("to")
	var results []transfer.Result
	err = s.Track(c, func(runID int64) error {
		var err error
		results, err = s.Transfers.TransferAllPagesByAnchor(c.Context, src, dst, anchorColor(c, s.Config))
		for _, res := range results {
			recordTransfer(s, runID, src, dst, res)
		}
		return err
	})
	if err != nil {
		return err
	}
	return common.Write(c, results)
}

// RelabelAction rewrites the comment of markups matching --before.
func RelabelAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, page := c.String("doc"), models.PageNumber(c.Int("page"))
	var changed int
	err = s.Track(c, func(int64) error {
		var err error
		changed, err = s.Transfers.Relabel(c.Context, doc, page, c.StringSlice("before"), c.String("after"))
		return err
	})
	if err != nil {
		return err
	}
	return common.Write(c, map[string]any{"document": doc, "page": int(page), "relabelled": changed})
}

func anchorColor(c *cli.Context, cfg *models.Config) string {
	if c.IsSet("color") {
		return c.String("color")
	}
	return cfg.AnchorColor
}

func recordTransfer(s *common.Services, runID int64, src, dst string, res transfer.Result) {
	rec := db.TransferRecord{
		Source:     src,
		SourcePage: int(res.SourcePage),
		Target:     dst,
		TargetPage: int(res.TargetPage),
		Selected:   res.Selected,
		Positioned: res.Positioned,
		Relabelled: res.Relabelled,
	}
	if err := s.Ledger.RecordTransfer(runID, rec); err != nil {
		s.Logger.Warn("Failed to record transfer", "run_id", runID, "error", err)
	}
}
