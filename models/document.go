package models

import "fmt"

// PageNumber addresses a page the way the annotation engine does: 1-indexed.
type PageNumber int

// PageIndex addresses a page the way the renderer and PDF tooling do: 0-indexed.
type PageIndex int

// Index converts an engine page number to a render index.
func (n PageNumber) Index() PageIndex {
	return PageIndex(n - 1)
}

// Valid reports whether n can address a page.
func (n PageNumber) Valid() bool {
	return n >= 1
}

func (n PageNumber) String() string {
	return fmt.Sprintf("page %d", int(n))
}

// Number converts a render index to an engine page number.
func (i PageIndex) Number() PageNumber {
	return PageNumber(i + 1)
}

func (i PageIndex) String() string {
	return fmt.Sprintf("page index %d", int(i))
}

// Size is a page size in document units.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// SupportedRotations lists the page rotations the transformer accepts.
var SupportedRotations = []int{0, 90, 180, 270}
