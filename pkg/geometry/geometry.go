// Package geometry holds the affine helpers used to move and resize page
// content: rotation-aware translation and two-stage page/content scaling.
package geometry

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// unitTolerance is how close to 1.0 a scale factor must be to count as a no-op.
const unitTolerance = 1e-9

// RotateOffset maps an offset given in the unrotated page frame onto a page
// displayed at the given rotation.
func RotateOffset(rotation int, o models.Offset) (models.Offset, error) {
	v, err := remap(rotation, vec.Vec2{X: o.DX, Y: o.DY})
	if err != nil {
		return models.Offset{}, err
	}
	return models.Offset{DX: v.X, DY: v.Y}, nil
}

func remap(rotation int, v vec.Vec2) (vec.Vec2, error) {
	if !slices.Contains(models.SupportedRotations, rotation) {
		return vec.Vec2{}, syncerr.NewUnsupportedRotation(rotation, "", 0)
	}
	switch rotation {
	case 0:
		return v, nil
	case 90:
		return vec.Vec2{X: -v.Y, Y: v.X}, nil
	case 180:
		return vec.Vec2{X: -v.X, Y: -v.Y}, nil
	default:
		return vec.Vec2{X: v.Y, Y: -v.X}, nil
	}
}

// TranslateForRotation returns the translation matrix for offset (dx, dy)
// applied to a page at the given rotation.
func TranslateForRotation(rotation int, dx, dy float64) (matrix.Matrix, error) {
	v, err := remap(rotation, vec.Vec2{X: dx, Y: dy})
	if err != nil {
		return matrix.Identity, err
	}
	return matrix.Translate(v.X, v.Y), nil
}

// ScaleSpec describes one side of a resize: the drawing's physical scale
// (e.g. 100 for 1:100) and the page dimensions.
type ScaleSpec struct {
	Scale float64
	Size  models.Size
}

// ResizePlan is the result of ComposeTranslateScale. Page scaling fixes the
// raw page-dimension mismatch; content scaling fixes the physical-unit
// mismatch left over after page scaling.
type ResizePlan struct {
	PageScaleX    float64
	PageScaleY    float64
	ContentScaleX float64
	ContentScaleY float64
}

// ComposeTranslateScale computes the page and content scale factors needed to
// bring a page drawn at in onto a page drawn at out.
func ComposeTranslateScale(in, out ScaleSpec) ResizePlan {
	p := ResizePlan{
		PageScaleX: out.Size.Width / in.Size.Width,
		PageScaleY: out.Size.Height / in.Size.Height,
	}
	ratio := in.Scale / out.Scale
	p.ContentScaleX = ratio / p.PageScaleX
	p.ContentScaleY = ratio / p.PageScaleY
	return p
}

// ScalesPage reports whether the page-scale stage is needed.
func (p ResizePlan) ScalesPage() bool {
	return !isUnit(p.PageScaleX) || !isUnit(p.PageScaleY)
}

// ScalesContent reports whether the content-scale stage is needed.
func (p ResizePlan) ScalesContent() bool {
	return !isUnit(p.ContentScaleX) || !isUnit(p.ContentScaleY)
}

// PageMatrix is the page-scale stage.
func (p ResizePlan) PageMatrix() matrix.Matrix {
	return matrix.Scale(p.PageScaleX, p.PageScaleY)
}

// ContentMatrix is the content-scale stage.
func (p ResizePlan) ContentMatrix() matrix.Matrix {
	return matrix.Scale(p.ContentScaleX, p.ContentScaleY)
}

// Stages lists the non-trivial stages in application order: page, then content.
func (p ResizePlan) Stages() []matrix.Matrix {
	var stages []matrix.Matrix
	if p.ScalesPage() {
		stages = append(stages, p.PageMatrix())
	}
	if p.ScalesContent() {
		stages = append(stages, p.ContentMatrix())
	}
	return stages
}

// Combined multiplies all stages into one matrix.
func (p ResizePlan) Combined() matrix.Matrix {
	m := matrix.Identity
	for _, s := range p.Stages() {
		m = m.Mul(s)
	}
	return m
}

// ScaleSize applies the page-scale stage to a page size.
func (p ResizePlan) ScaleSize(s models.Size) models.Size {
	return models.Size{Width: s.Width * p.PageScaleX, Height: s.Height * p.PageScaleY}
}

func isUnit(f float64) bool {
	return math.Abs(f-1) <= unitTolerance
}

// ContentOperator renders m as a PDF "cm" operator.
func ContentOperator(m matrix.Matrix) string {
	parts := make([]string, 0, 7)
	for _, x := range m {
		parts = append(parts, formatNumber(x))
	}
	parts = append(parts, "cm")
	return strings.Join(parts, " ")
}

func formatNumber(x float64) string {
	if x == 0 {
		// avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
