// Package compositor merges SVG page fragments into one canvas.
//
// Fragments are placed in input order, each inside a group translated by its
// offset, so later fragments draw on top. The first fragment owns the id
// namespace: every later fragment has its ids, url(#...) references and
// href="#..." references suffixed so nothing collides.
package compositor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/dtnitsch/drawing-sync/models"
)

const svgNS = "http://www.w3.org/2000/svg"

var (
	entityRe = regexp.MustCompile(`^&(#[0-9]+|#x[0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
	urlRefRe = regexp.MustCompile(`url\(#([^)]*)\)`)
)

// escapeAmpersands escapes every '&' that does not start an entity.
func escapeAmpersands(data []byte) []byte {
	if !strings.ContainsRune(string(data), '&') {
		return data
	}
	var sb strings.Builder
	sb.Grow(len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '&' && !entityRe.Match(data[i:]) {
			sb.WriteString("&amp;")
			continue
		}
		sb.WriteByte(data[i])
	}
	return []byte(sb.String())
}

// Parse reads an SVG document and returns its root element.
func Parse(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(escapeAmpersands(data)); err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, fmt.Errorf("failed to parse svg: root element is not <svg>")
	}
	return root, nil
}

// NewSuffix returns a short random id suffix.
func NewSuffix() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// RenameIDs appends "_"+suffix to every id in the tree under root and to
// every local reference to one.
func RenameIDs(root *etree.Element, suffix string) {
	walk(root, func(e *etree.Element) {
		for i := range e.Attr {
			a := &e.Attr[i]
			switch {
			case a.Space == "" && a.Key == "id":
				a.Value = a.Value + "_" + suffix
			case strings.HasSuffix(a.Key, "href") && strings.HasPrefix(a.Value, "#"):
				a.Value = a.Value + "_" + suffix
			case strings.Contains(a.Value, "url(#"):
				a.Value = urlRefRe.ReplaceAllString(a.Value, "url(#${1}_"+suffix+")")
			}
		}
	})
}

func walk(e *etree.Element, fn func(*etree.Element)) {
	fn(e)
	for _, c := range e.ChildElements() {
		walk(c, fn)
	}
}

// Compositor builds composed SVG documents. NewSuffix produces the id suffix
// for each renamed fragment.
type Compositor struct {
	NewSuffix func() string
}

func New() *Compositor {
	return &Compositor{NewSuffix: NewSuffix}
}

func newCanvas(width, height string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", svgNS)
	svg.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
	svg.CreateAttr("version", "1.1")
	svg.CreateAttr("width", width)
	svg.CreateAttr("height", height)
	svg.CreateElement("defs")
	return doc, svg
}

func translate(dx, dy float64) string {
	return fmt.Sprintf("translate(%s, %s)", formatNumber(dx), formatNumber(dy))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Merge places fragments on a canvas of the given size. Fragments after the
// first are renamed in place.
func (c *Compositor) Merge(fragments []*etree.Element, offsets []models.Offset, size models.Size) (*etree.Document, error) {
	if len(fragments) != len(offsets) {
		return nil, fmt.Errorf("got %d fragments but %d offsets", len(fragments), len(offsets))
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}
	for _, f := range fragments[1:] {
		RenameIDs(f, c.NewSuffix())
	}

	doc, canvas := newCanvas(formatNumber(size.Width), formatNumber(size.Height))
	for i, f := range fragments {
		g := canvas.CreateElement("g")
		g.CreateAttr("id", fmt.Sprintf("svg_%d", i))
		g.CreateAttr("transform", translate(offsets[i].DX, offsets[i].DY))
		g.AddChild(f)
	}
	return doc, nil
}

// Overlay draws overlay on top of background, translated by position. The
// canvas takes the background's width and height.
func (c *Compositor) Overlay(background, overlay *etree.Element, position models.Offset) *etree.Document {
	RenameIDs(overlay, c.NewSuffix())

	doc, canvas := newCanvas(
		background.SelectAttrValue("width", "100%"),
		background.SelectAttrValue("height", "100%"),
	)
	bg := canvas.CreateElement("g")
	bg.CreateAttr("id", "background")
	bg.AddChild(background)

	ov := canvas.CreateElement("g")
	ov.CreateAttr("id", "overlay")
	ov.CreateAttr("transform", translate(position.DX, position.DY))
	ov.AddChild(overlay)
	return doc
}

// Encode serialises a composed document.
func Encode(doc *etree.Document) ([]byte, error) {
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode svg: %w", err)
	}
	return b, nil
}
