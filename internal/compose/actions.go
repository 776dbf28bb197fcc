package compose

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/drawing-sync/internal/common"
	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/align"
	"github.com/dtnitsch/drawing-sync/pkg/db"
)

// OverlayAction draws one page on top of another and writes a single-page
// document.
func OverlayAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	position := models.Offset{}
	if c.IsSet("position") {
		if position, err = common.ParseOffset(c.String("position")); err != nil {
			return err
		}
	}
	bgPage := models.PageNumber(c.Int("page"))
	ovPage := bgPage
	if c.IsSet("overlay-page") {
		ovPage = models.PageNumber(c.Int("overlay-page"))
	}
	if !bgPage.Valid() || !ovPage.Valid() {
		return fmt.Errorf("page numbers start at 1")
	}

	return s.Track(c, func(int64) error {
		return s.Mixer.Overlay(c.Context, c.String("background"), bgPage.Index(),
			c.String("overlay"), ovPage.Index(), position, c.String("out"))
	})
}

// MixAction composes the argument documents onto the --reference layout.
func MixAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	sources := c.Args().Slice()
	return s.Track(c, func(int64) error {
		return s.Mixer.MixPatch(c.Context, c.String("reference"), sources, c.String("out"))
	})
}

// AlignSourcesAction moves every argument document onto the --reference
// anchors in place.
func AlignSourcesAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	reference := c.String("reference")
	sources := c.Args().Slice()
	if len(sources) == 0 {
		return fmt.Errorf("no source documents given")
	}

	var placed []align.SourceOffset
	err = s.Track(c, func(runID int64) error {
		var err error
		placed, err = s.Mixer.AlignSources(c.Context, reference, sources)
		for _, so := range placed {
			rec := db.OffsetRecord{Reference: reference, Document: so.Doc, Page: int(so.Page), DX: so.Offset.DX, DY: so.Offset.DY}
			if err := s.Ledger.RecordOffset(runID, rec); err != nil {
				s.Logger.Warn("Failed to record offset", "run_id", runID, "error", err)
			}
		}
		return err
	})
	if err != nil {
		return err
	}
	return common.Write(c, placed)
}

// AlignCenterAction centres the anchor of --doc inside --box.
func AlignCenterAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	box, err := common.ParseRegion(c.String("box"))
	if err != nil {
		return err
	}
	color := s.Config.AnchorColor
	if c.IsSet("color") {
		color = c.String("color")
	}

	doc := c.String("doc")
	var offset models.Offset
	err = s.Track(c, func(runID int64) error {
		var err error
		if offset, err = s.Mixer.AlignToCenter(c.Context, doc, box, color); err != nil {
			return err
		}
		rec := db.OffsetRecord{Reference: "box", Document: doc, Page: 1, DX: offset.DX, DY: offset.DY}
		if err := s.Ledger.RecordOffset(runID, rec); err != nil {
			s.Logger.Warn("Failed to record offset", "run_id", runID, "error", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return common.Write(c, offset)
}
