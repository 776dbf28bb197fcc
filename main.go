package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/drawing-sync/internal/color"
	"github.com/dtnitsch/drawing-sync/internal/compose"
	"github.com/dtnitsch/drawing-sync/internal/content"
	"github.com/dtnitsch/drawing-sync/internal/history"
	"github.com/dtnitsch/drawing-sync/internal/markups"
)

func main() {
	app := &cli.App{
		Name:  "drawsync",
		Usage: "Keep annotation markups and drawing content aligned across revisions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "YAML configuration file"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log debug output"},
			&cli.StringFlag{Name: "format", Value: "yaml", Usage: "Output format: yaml or json"},
			&cli.StringFlag{Name: "engine", Usage: "Annotation engine executable"},
			&cli.StringFlag{Name: "temp-dir", Usage: "Directory for transient scripts and job files"},
			&cli.IntFlag{Name: "workers", Usage: "Page worker pool size"},
			&cli.DurationFlag{Name: "timeout", Usage: "Engine invocation timeout"},
			&cli.StringFlag{Name: "encoding", Usage: "Engine reply encoding: gbk or utf-8"},
			&cli.StringFlag{Name: "combiner", Usage: "Page combiner: engine or pdfcpu"},
			&cli.StringFlag{Name: "converter", Usage: "SVG converter: inkscape or chrome"},
			&cli.StringFlag{Name: "db", Usage: "Run ledger database path"},
		},
		Commands: []*cli.Command{
			{
				Name:   "markups",
				Usage:  "List the markups of a page",
				Action: markups.MarkupsAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Required: true},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.StringFlag{Name: "region", Usage: "Keep markups strictly inside x,y,width,height"},
					&cli.StringFlag{Name: "color", Usage: "Keep markups of this color"},
					&cli.StringSliceFlag{Name: "content", Usage: "Keep markups whose comment matches (case-insensitive)"},
					&cli.StringSliceFlag{Name: "where", Usage: "Keep markups with property=value[|value...]"},
					&cli.StringFlag{Name: "fields", Usage: "Comma-separated output fields"},
				},
			},
			{
				Name:   "offsets",
				Usage:  "Report per-page anchor offsets of a document against a reference",
				Action: markups.OffsetsAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reference", Required: true},
					&cli.StringFlag{Name: "doc", Required: true},
					&cli.StringFlag{Name: "color", Usage: "Anchor color (default from config)"},
					&cli.StringFlag{Name: "scale", Usage: "Divisors sx,sy (default from config)"},
				},
			},
			{
				Name:   "transfer",
				Usage:  "Copy the markups of one page onto a page of another document",
				Action: markups.TransferAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.IntFlag{Name: "from-page", Value: 1},
					&cli.StringFlag{Name: "to", Required: true},
					&cli.IntFlag{Name: "to-page", Value: 1},
					&cli.StringFlag{Name: "region", Usage: "Only markups strictly inside x,y,width,height"},
					&cli.StringFlag{Name: "offset", Usage: "Translation dx,dy added to every markup"},
					&cli.StringSliceFlag{Name: "replace", Usage: "Rewrite comment FROM=TO"},
				},
			},
			{
				Name:   "sync",
				Usage:  "Transfer every page's markups, aligned by anchors",
				Action: markups.SyncAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "to", Required: true},
					&cli.StringFlag{Name: "color", Usage: "Anchor color (default from config)"},
				},
			},
			{
				Name:   "relabel",
				Usage:  "Rewrite the comment of matching markups",
				Action: markups.RelabelAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Required: true},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.StringSliceFlag{Name: "before", Required: true},
					&cli.StringFlag{Name: "after", Required: true},
				},
			},
			{
				Name:   "move",
				Usage:  "Translate page content",
				Action: content.MoveAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Required: true},
					&cli.StringFlag{Name: "out", Required: true},
					&cli.StringFlag{Name: "offset", Value: "0,0", Usage: "Translation dx,dy"},
					&cli.StringFlag{Name: "pages", Usage: "Only these pages, e.g. 1,3-5"},
					&cli.StringFlag{Name: "align-to", Usage: "Move each page onto this reference's anchors"},
					&cli.StringFlag{Name: "color", Usage: "Anchor color for --align-to"},
				},
			},
			{
				Name:   "resize",
				Usage:  "Rescale pages between drawing scales and page sizes",
				Action: content.ResizeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Required: true},
					&cli.StringFlag{Name: "out", Required: true},
					&cli.Float64Flag{Name: "in-scale", Value: 100},
					&cli.Float64Flag{Name: "in-width"},
					&cli.Float64Flag{Name: "in-height"},
					&cli.Float64Flag{Name: "out-scale", Value: 100},
					&cli.Float64Flag{Name: "out-width", Required: true},
					&cli.Float64Flag{Name: "out-height", Required: true},
				},
			},
			{
				Name:      "merge",
				Usage:     "Concatenate documents",
				ArgsUsage: "<doc>...",
				Action:    content.MergeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Required: true},
				},
			},
			{
				Name:   "overlay",
				Usage:  "Draw one page on top of another",
				Action: compose.OverlayAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "background", Required: true},
					&cli.StringFlag{Name: "overlay", Required: true},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "overlay-page", Usage: "Overlay page (default --page)"},
					&cli.StringFlag{Name: "position", Usage: "Overlay translation dx,dy"},
					&cli.StringFlag{Name: "out", Required: true},
				},
			},
			{
				Name:      "mix",
				Usage:     "Compose partial drawings onto a reference layout",
				ArgsUsage: "<source>...",
				Action:    compose.MixAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reference", Required: true},
					&cli.StringFlag{Name: "out", Required: true},
				},
			},
			{
				Name:      "align-sources",
				Usage:     "Move partial drawings onto the reference anchors in place",
				ArgsUsage: "<source>...",
				Action:    compose.AlignSourcesAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reference", Required: true},
				},
			},
			{
				Name:   "align-center",
				Usage:  "Centre a drawing's anchor inside a box in place",
				Action: compose.AlignCenterAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Required: true},
					&cli.StringFlag{Name: "box", Required: true, Usage: "x,y,width,height"},
					&cli.StringFlag{Name: "color", Usage: "Anchor color (default from config)"},
				},
			},
			{
				Name:   "colors",
				Usage:  "List the hex colors used on a page",
				Action: color.ColorsAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Required: true},
					&cli.IntFlag{Name: "page", Value: 1},
				},
			},
			{
				Name:   "recolor",
				Usage:  "Replace a color on selected pages",
				Action: color.RecolorAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Required: true},
					&cli.StringFlag{Name: "out", Required: true},
					&cli.StringFlag{Name: "pages", Value: "1"},
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "to", Required: true},
					&cli.Float64Flag{Name: "opacity", Value: 1},
				},
			},
			{
				Name:   "history",
				Usage:  "Show recorded runs",
				Action: history.HistoryAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.Int64Flag{Name: "run", Usage: "Show one run with its offsets and transfers"},
				},
			},
		},
		Compiled: time.Now(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
