// Package quasijson decodes the Python-repr flavoured JSON dialect printed by
// the annotation engine.
//
// Grammar:
//
//	value   = object | array | string | number | literal
//	object  = "{" [ string ":" value { "," string ":" value } ] "}"
//	array   = "[" [ value { "," value } ] "]"
//	string  = "'" { char } "'" | `"` { char } `"` | `|"` { char } `|"`
//	literal = true | false | null | True | False | None
//
// Inside strings a pipe introduces an escape: `|"` and `|'` stand for the
// quote character itself and `||` plays the role of the JSON backslash, so
// `||n` is a newline and `||||` a single backslash. Strings may also be
// delimited by `|"` itself, as in '{|"subject|": |"Cloud|"}'. A single-quoted string
// whose body is an object ('{...}') is the object itself, and the quoted
// words 'True', 'False' and 'None' in value position are the corresponding
// literals.
package quasijson

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Object is a decoded object that remembers the order of its keys.
type Object struct {
	Keys   []string
	Values map[string]any
}

func newObject() *Object {
	return &Object{Values: map[string]any{}}
}

func (o *Object) set(key string, v any) {
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.Keys)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// Map converts the object to plain Go maps and slices, the same shape
// encoding/json produces for canonical JSON.
func (o *Object) Map() map[string]any {
	m := make(map[string]any, len(o.Keys))
	for _, k := range o.Keys {
		m[k] = plain(o.Values[k])
	}
	return m
}

func plain(v any) any {
	switch v := v.(type) {
	case *Object:
		return v.Map()
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = plain(x)
		}
		return out
	default:
		return v
	}
}

// SyntaxError reports malformed input.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("quasijson: %s at offset %d", e.Msg, e.Offset)
}

// Decode parses an object. Empty or whitespace-only input decodes to an
// empty object.
func Decode(data []byte) (*Object, error) {
	if strings.TrimSpace(string(data)) == "" {
		return newObject(), nil
	}
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, &SyntaxError{Offset: 0, Msg: fmt.Sprintf("expected object, got %T", v)}
	}
	return obj, nil
}

// DecodeValue parses any single value.
func DecodeValue(data []byte) (any, error) {
	p := &parser{src: data}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing %q", p.peek())
	}
	return v, nil
}

type parser struct {
	src []byte
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(n int) byte {
	if p.pos+n >= len(p.src) {
		return 0
	}
	return p.src[p.pos+n]
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) value() (any, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case p.eof():
		return nil, p.errorf("unexpected end of input")
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '\'':
		if p.peekAt(1) == '{' {
			if obj, ok := p.tryQuotedObject(); ok {
				return obj, nil
			}
		}
		s, raw, err := p.str()
		if err != nil {
			return nil, err
		}
		if raw {
			if lit, ok := literal(s); ok {
				return lit, nil
			}
		}
		return s, nil
	case c == '"' || p.pipeQuote():
		s, _, err := p.str()
		return s, err
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.bareword()
	}
}

// tryQuotedObject parses '{...}' as an object. On failure the position is
// restored so the caller can read the same bytes as a plain string.
func (p *parser) tryQuotedObject() (*Object, bool) {
	start := p.pos
	p.pos++ // opening quote
	obj, err := p.object()
	if err == nil && p.peek() == '\'' {
		p.pos++
		return obj, true
	}
	p.pos = start
	return nil, false
}

func (p *parser) object() (*Object, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	obj := newObject()
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return obj, nil
	}
	for {
		p.skipSpace()
		if c := p.peek(); c != '\'' && c != '"' && !p.pipeQuote() {
			return nil, p.errorf("expected object key")
		}
		key, _, err := p.str()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		obj.set(key, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, p.errorf("expected ',' or '}' in object")
		}
	}
}

func (p *parser) array() ([]any, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	out := []any{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return out, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ']' in array")
		}
	}
}

// pipeQuote reports whether the input continues with |" or |', the quote
// form used inside quoted objects.
func (p *parser) pipeQuote() bool {
	return p.peek() == '|' && (p.peekAt(1) == '"' || p.peekAt(1) == '\'')
}

// str reads a quoted string. raw is true when the body contained no escapes.
// A string opened by |" closes on |".
func (p *parser) str() (string, bool, error) {
	piped := p.pipeQuote()
	if piped {
		p.pos++
	}
	quote := p.peek()
	p.pos++
	var sb strings.Builder
	raw := true
	for {
		if p.eof() {
			return "", false, p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case !piped && c == quote:
			p.pos++
			return sb.String(), raw, nil
		case piped && c == '|' && p.peekAt(1) == quote:
			p.pos += 2
			return sb.String(), false, nil
		case c == '|' && (p.peekAt(1) == '"' || p.peekAt(1) == '\''):
			sb.WriteByte(p.peekAt(1))
			p.pos += 2
			raw = false
		case c == '|' && p.peekAt(1) == '|':
			p.pos += 2
			if err := p.escape(&sb); err != nil {
				return "", false, err
			}
			raw = false
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

// escape decodes the character sequence following a "||" backslash.
func (p *parser) escape(sb *strings.Builder) error {
	if p.eof() {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	switch c {
	case '|':
		switch p.peekAt(1) {
		case '|':
			sb.WriteByte('\\')
			p.pos += 2
		case '"', '\'':
			sb.WriteByte(p.peekAt(1))
			p.pos += 2
		default:
			return p.errorf("invalid escape")
		}
		return nil
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case '/', '"', '\'':
		sb.WriteByte(c)
	case 'u':
		if p.pos+5 > len(p.src) {
			return p.errorf("short unicode escape")
		}
		n, err := strconv.ParseUint(string(p.src[p.pos+1:p.pos+5]), 16, 32)
		if err != nil {
			return p.errorf("invalid unicode escape")
		}
		r := rune(n)
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}
		sb.WriteRune(r)
		p.pos += 5
		return nil
	default:
		return p.errorf("invalid escape %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) number() (any, error) {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	tok := string(p.src[start:p.pos])
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid number %q", tok)
	}
	return f, nil
}

func (p *parser) bareword() (any, error) {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			p.pos++
			continue
		}
		break
	}
	word := string(p.src[start:p.pos])
	switch word {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	if lit, ok := literal(word); ok {
		return lit, nil
	}
	p.pos = start
	return nil, p.errorf("unexpected %q", p.peek())
}

func literal(s string) (any, bool) {
	switch s {
	case "True":
		return true, true
	case "False":
		return false, true
	case "None":
		return nil, true
	}
	return nil, false
}
