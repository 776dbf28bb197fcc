package color

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/drawing-sync/internal/common"
	"github.com/dtnitsch/drawing-sync/models"
)

// ColorsAction lists the hex stroke and fill colors of one page.
func ColorsAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	page := models.PageNumber(c.Int("page"))
	if !page.Valid() {
		return fmt.Errorf("page numbers start at 1")
	}
	colors, err := s.Recolorer.PageColors(c.Context, c.String("doc"), page.Index())
	if err != nil {
		return err
	}
	return common.Write(c, colors)
}

// RecolorAction replaces one color with another on the selected pages.
func RecolorAction(c *cli.Context) error {
	s, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer s.Close()

	pages, err := common.ParsePages(c.String("pages"))
	if err != nil {
		return err
	}
	opacity := c.Float64("opacity")
	if opacity <= 0 || opacity > 1 {
		return fmt.Errorf("opacity must be in (0, 1], got %v", opacity)
	}

	return s.Track(c, func(int64) error {
		return s.Recolorer.Recolor(c.Context, c.String("in"), common.PageIndexes(pages),
			c.String("from"), c.String("to"), opacity, c.String("out"))
	})
}
