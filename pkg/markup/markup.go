// Package markup converts engine markup tables into models.Markup values and
// filters them.
package markup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/quasijson"
)

// Property names with a typed field on models.Markup.
const (
	PropX       = "x"
	PropY       = "y"
	PropWidth   = "width"
	PropHeight  = "height"
	PropColor   = "color"
	PropComment = "comment"
)

// Collection is an ordered set of markups keyed by id. Filters return new
// collections and never modify the receiver.
type Collection struct {
	ids  []string
	byID map[string]models.Markup
}

// NewCollection builds a collection in the given order. A repeated id keeps
// its first position and its last value.
func NewCollection(markups ...models.Markup) *Collection {
	c := &Collection{byID: make(map[string]models.Markup, len(markups))}
	for _, m := range markups {
		c.add(m)
	}
	return c
}

func (c *Collection) add(m models.Markup) {
	if _, ok := c.byID[m.ID]; !ok {
		c.ids = append(c.ids, m.ID)
	}
	c.byID[m.ID] = m
}

func (c *Collection) Len() int {
	return len(c.ids)
}

// IDs returns markup ids in engine order.
func (c *Collection) IDs() []string {
	return append([]string(nil), c.ids...)
}

func (c *Collection) Get(id string) (models.Markup, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// All returns the markups in engine order.
func (c *Collection) All() []models.Markup {
	out := make([]models.Markup, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// Filter keeps the markups for which keep returns true.
func (c *Collection) Filter(keep func(models.Markup) bool) *Collection {
	out := NewCollection()
	for _, id := range c.ids {
		if m := c.byID[id]; keep(m) {
			out.add(m)
		}
	}
	return out
}

// InRegion keeps markups whose position lies strictly inside r. Markups
// without a position are dropped.
func (c *Collection) InRegion(r models.Region) *Collection {
	return c.Filter(func(m models.Markup) bool {
		if !m.HasPosition() {
			return false
		}
		x, y := m.Position()
		return r.ContainsStrict(x, y)
	})
}

// WithContent keeps markups whose trimmed comment equals one of contents,
// ignoring case.
func (c *Collection) WithContent(contents ...string) *Collection {
	targets := make(map[string]struct{}, len(contents))
	for _, s := range contents {
		targets[normalizeContent(s)] = struct{}{}
	}
	return c.Filter(func(m models.Markup) bool {
		_, ok := targets[normalizeContent(m.Comment)]
		return ok
	})
}

func normalizeContent(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WithColor keeps markups of the given color, ignoring case.
func (c *Collection) WithColor(color string) *Collection {
	return c.Filter(func(m models.Markup) bool { return m.ColorIs(color) })
}

// ByProperties keeps markups whose value for every named property is one of
// the accepted values. Values are compared in their printed form, so a
// numeric 10 matches "10". A markup lacking a property never matches it.
func (c *Collection) ByProperties(props map[string][]string) *Collection {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	out := c
	for _, name := range names {
		accepted := make(map[string]struct{}, len(props[name]))
		for _, v := range props[name] {
			accepted[v] = struct{}{}
		}
		out = out.Filter(func(m models.Markup) bool {
			v, ok := m.Props[name]
			if !ok || v == nil {
				return false
			}
			_, ok = accepted[fmt.Sprint(v)]
			return ok
		})
	}
	return out
}

// FromObject converts a decoded markup table (id -> property object).
func FromObject(obj *quasijson.Object) (*Collection, error) {
	c := NewCollection()
	for _, id := range obj.Keys {
		v, _ := obj.Get(id)
		m, err := FromValue(id, v)
		if err != nil {
			return nil, err
		}
		c.add(m)
	}
	return c, nil
}

// FromValue converts one markup's property object.
func FromValue(id string, v any) (models.Markup, error) {
	var props map[string]any
	switch t := v.(type) {
	case *quasijson.Object:
		props = t.Map()
	case map[string]any:
		props = t
	default:
		return models.Markup{}, fmt.Errorf("markup %s: expected property object, got %T", id, v)
	}

	m := models.Markup{ID: id, Props: props}
	fields := []struct {
		name string
		dst  **float64
	}{
		{PropX, &m.X},
		{PropY, &m.Y},
		{PropWidth, &m.Width},
		{PropHeight, &m.Height},
	}
	for _, f := range fields {
		raw, ok := props[f.name]
		if !ok || raw == nil {
			continue
		}
		n, err := toFloat(raw)
		if err != nil {
			return models.Markup{}, fmt.Errorf("markup %s: invalid %s: %w", id, f.name, err)
		}
		*f.dst = &n
	}
	if s, ok := props[PropColor].(string); ok {
		m.Color = s
	}
	if s, ok := props[PropComment].(string); ok {
		m.Comment = s
	}
	return m, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
