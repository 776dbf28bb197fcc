package convert

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/dtnitsch/drawing-sync/pkg/compositor"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// Chrome prints SVG pages to PDF with a headless Chrome.
type Chrome struct {
	execPath string
	logger   *slog.Logger
}

// NewChrome creates a converter. An empty execPath lets chromedp find Chrome.
func NewChrome(execPath string, logger *slog.Logger) *Chrome {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chrome{execPath: execPath, logger: logger}
}

func (c *Chrome) Convert(ctx context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return syncerr.NewConverter("failed to read svg", err, src)
	}
	root, err := compositor.Parse(data)
	if err != nil {
		return syncerr.NewConverter("invalid svg", err, src)
	}
	width, err := lengthInches(root.SelectAttrValue("width", ""))
	if err != nil {
		return syncerr.NewConverter("invalid svg width", err, src)
	}
	height, err := lengthInches(root.SelectAttrValue("height", ""))
	if err != nil {
		return syncerr.NewConverter("invalid svg height", err, src)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Headless)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURI := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data)
	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(dataURI),
		chromedp.WaitVisible("svg", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPrintBackground(true).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		return syncerr.NewConverter("chrome print failed", err, src, dst)
	}
	if err := os.WriteFile(dst, pdf, 0o644); err != nil {
		return syncerr.NewConverter("failed to write pdf", err, dst)
	}
	c.logger.Debug("Converted svg", "src", src, "dst", dst, "bytes", len(pdf))
	return checkOutput(src, dst)
}

// lengthInches converts an SVG length to inches. Unitless lengths are CSS
// pixels (96 per inch).
func lengthInches(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing length")
	}
	units := map[string]float64{"px": 96, "pt": 72, "pc": 6, "in": 1, "mm": 25.4, "cm": 2.54}
	per := 96.0
	for suffix, v := range units {
		if strings.HasSuffix(s, suffix) {
			per = v
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("length must be positive, got %v", n)
	}
	return n / per, nil
}
