// Package enginetest provides an in-memory stand-in for the annotation
// engine process. It understands the subset of the scripting protocol the
// client emits and answers in the engine's count-prefixed reply format.
package enginetest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Markup is a fake markup: an id plus string properties (x, y, color, ...).
type Markup struct {
	ID    string
	Props map[string]string
}

// PasteCall records one MarkupPaste command.
type PasteCall struct {
	Doc    string
	Page   int
	Format string
	X, Y   float64
	NewID  string
}

// Engine is a fake engine. Populate Docs before use; inspect Scripts,
// Pastes and Combined afterwards.
type Engine struct {
	mu sync.Mutex

	// Docs maps document path -> page number (1-indexed) -> markups.
	Docs map[string]map[int][]*Markup

	// Scripts holds the command lines of every script run, in order.
	Scripts [][]string

	Pastes   []PasteCall
	Combined map[string][]string

	// Fail, when set, is returned by every Run.
	Fail error
	// Block makes Run wait for ctx to be done.
	Block bool

	clipboard map[string]*Markup
	nextID    int
}

// New creates an empty fake engine.
func New() *Engine {
	return &Engine{
		Docs:      map[string]map[int][]*Markup{},
		Combined:  map[string][]string{},
		clipboard: map[string]*Markup{},
	}
}

// Add places a markup on a page.
func (e *Engine) Add(doc string, page int, id string, props map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Docs[doc] == nil {
		e.Docs[doc] = map[int][]*Markup{}
	}
	cp := make(map[string]string, len(props))
	for k, v := range props {
		cp[k] = v
	}
	e.Docs[doc][page] = append(e.Docs[doc][page], &Markup{ID: id, Props: cp})
}

// Page returns the markups currently on a page.
func (e *Engine) Page(doc string, page int) []*Markup {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Docs[doc][page]
}

// Find returns a markup by id.
func (e *Engine) Find(doc string, page int, id string) *Markup {
	for _, m := range e.Page(doc, page) {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Run implements engine.Runner.
func (e *Engine) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.Fail != nil {
		return nil, e.Fail
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("fake engine: want one argument, got %d", len(args))
	}
	fnArgs, fn, err := splitCall(args[0])
	if err != nil || fn != "Script" || len(fnArgs) != 1 {
		return nil, fmt.Errorf("fake engine: expected Script(...), got %q", args[0])
	}
	data, err := os.ReadFile(fnArgs[0])
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Scripts = append(e.Scripts, lines)

	var out []string
	var current string
	var combine []string
	for _, line := range lines {
		a, fn, err := splitCall(line)
		if err != nil {
			return nil, err
		}
		switch fn {
		case "Open":
			current = a[0]
		case "Close":
			current = ""
		case "Save":
			if len(a) == 1 && combine != nil {
				e.Combined[a[0]] = combine
				combine = nil
			}
		case "Combine":
			combine = a
		case "MarkupGetExList":
			page, _ := strconv.Atoi(a[0])
			out = append(out, "1", e.encodePage(current, page))
		case "MarkupCopy":
			page, _ := strconv.Atoi(a[0])
			format := ""
			for _, m := range e.Docs[current][page] {
				if m.ID == a[1] {
					format = "FMT-" + m.ID
					e.clipboard[format] = m
				}
			}
			if format == "" {
				out = append(out, "0")
			} else {
				out = append(out, "1", format)
			}
		case "MarkupPaste":
			page, _ := strconv.Atoi(a[0])
			x, _ := strconv.ParseFloat(a[2], 64)
			y, _ := strconv.ParseFloat(a[3], 64)
			src := e.clipboard[a[1]]
			e.nextID++
			id := fmt.Sprintf("P%d", e.nextID)
			props := map[string]string{}
			if src != nil {
				for k, v := range src.Props {
					props[k] = v
				}
			}
			if e.Docs[current] == nil {
				e.Docs[current] = map[int][]*Markup{}
			}
			e.Docs[current][page] = append(e.Docs[current][page], &Markup{ID: id, Props: props})
			e.Pastes = append(e.Pastes, PasteCall{Doc: current, Page: page, Format: a[1], X: x, Y: y, NewID: id})
			out = append(out, "1", id)
		case "MarkupSet":
			page, _ := strconv.Atoi(a[0])
			var props map[string]string
			if err := json.Unmarshal([]byte(a[2]), &props); err != nil {
				return nil, fmt.Errorf("fake engine: bad MarkupSet json %q: %w", a[2], err)
			}
			for _, m := range e.Docs[current][page] {
				if m.ID == a[1] {
					for k, v := range props {
						m.Props[k] = v
					}
				}
			}
		default:
			return nil, fmt.Errorf("fake engine: unknown command %q", fn)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return []byte(strings.Join(out, "\r\n") + "\r\n"), nil
}

func (e *Engine) encodePage(doc string, page int) string {
	markups := e.Docs[doc][page]
	if len(markups) == 0 {
		return ""
	}
	entries := make([]string, 0, len(markups))
	for _, m := range markups {
		keys := make([]string, 0, len(m.Props))
		for k := range m.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		props := make([]string, 0, len(keys))
		for _, k := range keys {
			props = append(props, fmt.Sprintf("%s: %s", encodeString(k), encodeString(m.Props[k])))
		}
		entries = append(entries, fmt.Sprintf("%s: {%s}", encodeString(m.ID), strings.Join(props, ", ")))
	}
	return "{" + strings.Join(entries, ", ") + "}"
}

func encodeString(s string) string {
	r := strings.NewReplacer(
		`'`, `|'`,
		"\r", `||r`,
		"\n", `||n`,
		"\t", `||t`,
	)
	return "'" + r.Replace(s) + "'"
}

// splitCall splits `Name(arg, 'quoted', ...)` into its name and arguments,
// with quotes removed and |' unescaped.
func splitCall(line string) ([]string, string, error) {
	line = strings.TrimSpace(line)
	open := strings.IndexByte(line, '(')
	if open < 0 || !strings.HasSuffix(line, ")") {
		return nil, "", fmt.Errorf("fake engine: malformed command %q", line)
	}
	name := line[:open]
	body := line[open+1 : len(line)-1]

	var args []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inQuote && c == '|' && i+1 < len(body) && body[i+1] == '\'':
			cur.WriteByte('\'')
			i++
		case c == '\'':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" || len(args) > 0 {
		args = append(args, s)
	}
	return args, name, nil
}
