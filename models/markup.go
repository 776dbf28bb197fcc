package models

import "strings"

// Markup is one annotation on one page of one document, as reported by the
// annotation engine. Optional numeric fields are nil when the engine did not
// report them.
type Markup struct {
	ID      string         `json:"id" yaml:"id"`
	X       *float64       `json:"x,omitempty" yaml:"x,omitempty"`
	Y       *float64       `json:"y,omitempty" yaml:"y,omitempty"`
	Width   *float64       `json:"width,omitempty" yaml:"width,omitempty"`
	Height  *float64       `json:"height,omitempty" yaml:"height,omitempty"`
	Color   string         `json:"color,omitempty" yaml:"color,omitempty"`
	Comment string         `json:"comment,omitempty" yaml:"comment,omitempty"`
	Props   map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
}

// HasPosition reports whether both x and y are known.
func (m Markup) HasPosition() bool {
	return m.X != nil && m.Y != nil
}

// Position returns the markup position. Callers must check HasPosition first.
func (m Markup) Position() (float64, float64) {
	return *m.X, *m.Y
}

// ColorIs compares the markup color case-insensitively.
func (m Markup) ColorIs(color string) bool {
	return strings.EqualFold(m.Color, color)
}

// Region is an axis-aligned rectangle in document units.
type Region struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ContainsStrict reports whether (x, y) lies strictly inside the region.
// Points on the boundary are outside.
func (r Region) ContainsStrict(x, y float64) bool {
	return r.X < x && x < r.X+r.Width && r.Y < y && y < r.Y+r.Height
}

// Offset is a translation between two coordinate frames.
type Offset struct {
	DX float64 `json:"dx" yaml:"dx"`
	DY float64 `json:"dy" yaml:"dy"`
}

// Scale divides each axis by the matching divisor.
func (o Offset) Scale(sx, sy float64) Offset {
	return Offset{DX: o.DX / sx, DY: o.DY / sy}
}
