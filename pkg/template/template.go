// Package template implements the OpenNebula template syntax used by the
// frontend for resource attributes.
//
// A template is a list of attribute assignments. Scalar attributes hold a
// single value, vector attributes hold a list of named sub-attributes:
//
//	NAME   = "tenant_web_1"
//	VN_MAD = "bridge"
//	AR     = [ TYPE = "IP4", IP = "192.168.0.1", SIZE = "10" ]
//
// Attribute names are case-insensitive and are normalized to upper case.
// The same name may appear more than once (multiple address ranges, for
// example), so a Document preserves every pair in order rather than
// collapsing into a map.
package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nebulaops/vnetctl/pkg/errors"
)

// Document is an ordered list of template attribute pairs.
type Document struct {
	Pairs []Pair
}

// Pair is a single attribute assignment.
type Pair struct {
	Key   string
	Value Value
}

// Value is either a scalar string or a vector of sub-attribute pairs.
// A nil Vector means the value is scalar.
type Value struct {
	Str    string
	Vector []Pair
}

// String creates a scalar value.
func String(s string) Value {
	return Value{Str: s}
}

// Vector creates a vector value from sub-attribute pairs.
func Vector(pairs []Pair) Value {
	if pairs == nil {
		pairs = []Pair{}
	}
	return Value{Vector: pairs}
}

// IsVector reports whether the value is a vector.
func (v Value) IsVector() bool {
	return v.Vector != nil
}

// Len returns the number of attribute pairs in the document.
func (d Document) Len() int {
	return len(d.Pairs)
}

// Get returns the first value for key, normalizing key case.
func (d Document) Get(key string) (Value, bool) {
	key = strings.ToUpper(key)
	for _, p := range d.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// GetString returns the first scalar value for key, or "" when the key is
// missing or holds a vector.
func (d Document) GetString(key string) string {
	v, ok := d.Get(key)
	if !ok || v.IsVector() {
		return ""
	}
	return v.Str
}

// Set replaces every occurrence of key with a single scalar value,
// appending when the key is not present.
func (d *Document) Set(key, value string) {
	key = strings.ToUpper(key)
	kept := d.Pairs[:0]
	replaced := false
	for _, p := range d.Pairs {
		if p.Key == key {
			if !replaced {
				kept = append(kept, Pair{Key: key, Value: String(value)})
				replaced = true
			}
			continue
		}
		kept = append(kept, p)
	}
	if !replaced {
		kept = append(kept, Pair{Key: key, Value: String(value)})
	}
	d.Pairs = kept
}

// Parse parses template text into a Document.
func Parse(text string) (Document, error) {
	p := &parser{input: text, line: 1}
	doc, err := p.parseDocument()
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// compile-time-constant templates.
func MustParse(text string) Document {
	doc, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return doc
}

// Render serializes the document back to template text.
func (d Document) Render() string {
	var b strings.Builder
	for _, p := range d.Pairs {
		if p.Value.IsVector() {
			b.WriteString(p.Key)
			b.WriteString(" = [ ")
			for i, sub := range p.Value.Vector {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(sub.Key)
				b.WriteString(" = ")
				b.WriteString(quote(sub.Value.Str))
			}
			b.WriteString(" ]\n")
			continue
		}
		b.WriteString(p.Key)
		b.WriteString(" = ")
		b.WriteString(quote(p.Value.Str))
		b.WriteString("\n")
	}
	return b.String()
}

// Equal compares two documents the way the frontend treats templates:
// attribute order between distinct keys is irrelevant, order between
// repeated occurrences of the same key is preserved, and vector
// sub-attributes compare order-insensitively.
func (d Document) Equal(other Document) bool {
	a := d.group()
	b := other.group()
	if len(a) != len(b) {
		return false
	}
	for key, vals := range a {
		otherVals, ok := b[key]
		if !ok || len(vals) != len(otherVals) {
			return false
		}
		for i := range vals {
			if !valueEqual(vals[i], otherVals[i]) {
				return false
			}
		}
	}
	return true
}

// Map converts the document into the map shape the original tooling
// reports: scalar values as strings, vectors as string maps, and repeated
// keys as slices.
func (d Document) Map() map[string]any {
	out := make(map[string]any, len(d.Pairs))
	for _, p := range d.Pairs {
		var val any
		if p.Value.IsVector() {
			sub := make(map[string]any, len(p.Value.Vector))
			for _, s := range p.Value.Vector {
				sub[s.Key] = s.Value.Str
			}
			val = sub
		} else {
			val = p.Value.Str
		}

		existing, ok := out[p.Key]
		if !ok {
			out[p.Key] = val
			continue
		}
		if list, isList := existing.([]any); isList {
			out[p.Key] = append(list, val)
		} else {
			out[p.Key] = []any{existing, val}
		}
	}
	return out
}

// group collects values per key, preserving per-key order.
func (d Document) group() map[string][]Value {
	out := make(map[string][]Value, len(d.Pairs))
	for _, p := range d.Pairs {
		out[p.Key] = append(out[p.Key], p.Value)
	}
	return out
}

func valueEqual(a, b Value) bool {
	if a.IsVector() != b.IsVector() {
		return false
	}
	if !a.IsVector() {
		return a.Str == b.Str
	}
	if len(a.Vector) != len(b.Vector) {
		return false
	}
	return canonicalVector(a.Vector) == canonicalVector(b.Vector)
}

// canonicalVector builds an order-independent fingerprint of vector
// sub-attributes.
func canonicalVector(pairs []Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Key + "\x00" + p.Value.Str
	}
	sort.Strings(parts)
	return strings.Join(parts, "\x01")
}

func quote(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

// parser is a single-pass recursive-descent parser over template text.
type parser struct {
	input string
	pos   int
	line  int
}

func (p *parser) parseDocument() (Document, error) {
	var doc Document
	for {
		p.skipSpaceAndComments()
		if p.eof() {
			return doc, nil
		}

		key, err := p.parseKey()
		if err != nil {
			return Document{}, err
		}

		p.skipSpaceAndComments()
		if !p.consume('=') {
			return Document{}, p.errorf("expected '=' after attribute %s", key)
		}

		p.skipInlineSpace()
		value, err := p.parseValue()
		if err != nil {
			return Document{}, err
		}

		doc.Pairs = append(doc.Pairs, Pair{Key: key, Value: value})
	}
}

func (p *parser) parseValue() (Value, error) {
	if p.eof() {
		return String(""), nil
	}

	switch p.input[p.pos] {
	case '[':
		return p.parseVector()
	case '"':
		s, err := p.parseQuoted()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	default:
		return String(p.parseBare(false)), nil
	}
}

func (p *parser) parseVector() (Value, error) {
	// consume '['
	p.pos++
	pairs := []Pair{}
	for {
		p.skipSpaceAndComments()
		if p.eof() {
			return Value{}, p.errorf("unterminated vector value")
		}
		if p.consume(']') {
			return Vector(pairs), nil
		}

		key, err := p.parseKey()
		if err != nil {
			return Value{}, err
		}

		p.skipSpaceAndComments()
		if !p.consume('=') {
			return Value{}, p.errorf("expected '=' after vector attribute %s", key)
		}

		p.skipInlineSpace()
		var val string
		if !p.eof() && p.input[p.pos] == '"' {
			val, err = p.parseQuoted()
			if err != nil {
				return Value{}, err
			}
		} else {
			val = p.parseBare(true)
		}
		pairs = append(pairs, Pair{Key: key, Value: String(val)})

		p.skipSpaceAndComments()
		// separators between sub-attributes are optional before ']'
		p.consume(',')
	}
}

func (p *parser) parseKey() (string, error) {
	start := p.pos
	for !p.eof() {
		c := p.input[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errorf("expected attribute name, found %q", p.peek())
	}
	return strings.ToUpper(p.input[start:p.pos]), nil
}

func (p *parser) parseQuoted() (string, error) {
	// consume opening quote
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.input[p.pos]
		switch c {
		case '\\':
			if p.pos+1 < len(p.input) {
				next := p.input[p.pos+1]
				if next == '"' || next == '\\' {
					b.WriteByte(next)
					p.pos += 2
					continue
				}
			}
			b.WriteByte(c)
			p.pos++
		case '"':
			p.pos++
			return b.String(), nil
		case '\n':
			p.line++
			b.WriteByte(c)
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated quoted string")
}

// parseBare reads an unquoted value. Inside a vector it stops at ',' and
// ']', otherwise it runs to end of line.
func (p *parser) parseBare(inVector bool) string {
	start := p.pos
	for !p.eof() {
		c := p.input[p.pos]
		if c == '\n' || c == '#' {
			break
		}
		if inVector && (c == ',' || c == ']') {
			break
		}
		p.pos++
	}
	return strings.TrimSpace(p.input[start:p.pos])
}

func (p *parser) skipSpaceAndComments() {
	for !p.eof() {
		c := p.input[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '#':
			for !p.eof() && p.input[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) skipInlineSpace() {
	for !p.eof() && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) consume(c byte) bool {
	if !p.eof() && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) peek() string {
	if p.eof() {
		return "EOF"
	}
	return string(p.input[p.pos])
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) errorf(format string, args ...any) error {
	return &errors.ParseError{
		Format:  "template",
		Line:    p.line,
		Message: fmt.Sprintf(format, args...),
	}
}
