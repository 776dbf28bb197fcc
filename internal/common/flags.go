package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dtnitsch/drawing-sync/models"
)

func parseFloats(s string, n int, what string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("invalid %s %q: want %d comma-separated numbers", what, s, n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", what, s, err)
		}
		out[i] = f
	}
	return out, nil
}

// ParseRegion parses "x,y,width,height".
func ParseRegion(s string) (models.Region, error) {
	f, err := parseFloats(s, 4, "region")
	if err != nil {
		return models.Region{}, err
	}
	if f[2] < 0 || f[3] < 0 {
		return models.Region{}, fmt.Errorf("invalid region %q: negative size", s)
	}
	return models.Region{X: f[0], Y: f[1], Width: f[2], Height: f[3]}, nil
}

// ParseOffset parses "dx,dy".
func ParseOffset(s string) (models.Offset, error) {
	f, err := parseFloats(s, 2, "offset")
	if err != nil {
		return models.Offset{}, err
	}
	return models.Offset{DX: f[0], DY: f[1]}, nil
}

// ParseScale parses "sx,sy"; both must be non-zero.
func ParseScale(s string) ([2]float64, error) {
	f, err := parseFloats(s, 2, "scale")
	if err != nil {
		return [2]float64{}, err
	}
	if f[0] == 0 || f[1] == 0 {
		return [2]float64{}, fmt.Errorf("invalid scale %q: components must be non-zero", s)
	}
	return [2]float64{f[0], f[1]}, nil
}

// ParsePages parses a 1-indexed page list such as "1,3-5" into sorted,
// de-duplicated page numbers.
func ParsePages(s string) ([]models.PageNumber, error) {
	seen := map[models.PageNumber]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid page %q: %w", part, err)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", part, err)
			}
		}
		if first < 1 || last < first {
			return nil, fmt.Errorf("invalid page range %q", part)
		}
		for p := first; p <= last; p++ {
			seen[models.PageNumber(p)] = true
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no pages in %q", s)
	}
	pages := make([]models.PageNumber, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages, nil
}

// PageIndexes converts engine page numbers to render indexes.
func PageIndexes(pages []models.PageNumber) []models.PageIndex {
	out := make([]models.PageIndex, len(pages))
	for i, p := range pages {
		out[i] = p.Index()
	}
	return out
}

// ParseReplacements parses "FROM=TO" pairs.
func ParseReplacements(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		from, to, ok := strings.Cut(pair, "=")
		if !ok || from == "" {
			return nil, fmt.Errorf("invalid replacement %q: want FROM=TO", pair)
		}
		out[from] = to
	}
	return out, nil
}

// ParseWhere parses "property=value1|value2" filters.
func ParseWhere(filters []string) (map[string][]string, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(filters))
	for _, f := range filters {
		key, values, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want property=value[|value...]", f)
		}
		out[key] = append(out[key], strings.Split(values, "|")...)
	}
	return out, nil
}
