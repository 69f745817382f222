// Package tag is a small XML/HTML document model: named elements with string attributes and
// ordered children, rendered as indented text.
package tag

import (
	"math"
	"strconv"
	"strings"
)

// Node is an element or a text leaf.
type Node interface {
	render(p *printer, indent int)
}

// Element is a named node with attributes and ordered children.
type Element struct {
	Name     string
	Children []Node

	attrs map[string]string
	order []string
}

// NewElement returns an element without attributes or children.
func NewElement(name string) *Element {
	return &Element{Name: name, attrs: map[string]string{}}
}

func (e *Element) set(key, value string) *Element {
	if e.attrs == nil {
		e.attrs = map[string]string{}
	}
	if _, ok := e.attrs[key]; !ok {
		e.order = append(e.order, key)
	}
	e.attrs[key] = value

	return e
}

// SetString sets a string attribute. Setting a key twice keeps the last value.
func (e *Element) SetString(key, value string) *Element {
	return e.set(key, value)
}

// SetInt sets an integer attribute.
func (e *Element) SetInt(key string, value int) *Element {
	return e.set(key, strconv.Itoa(value))
}

// SetFloat sets a floating point attribute using FormatFloat.
func (e *Element) SetFloat(key string, value float64) *Element {
	return e.set(key, FormatFloat(value))
}

// SetBool sets a boolean attribute as "true" or "false".
func (e *Element) SetBool(key string, value bool) *Element {
	return e.set(key, strconv.FormatBool(value))
}

// Attr returns the value of key or a *MissingAttributeError.
func (e *Element) Attr(key string) (string, error) {
	v, ok := e.attrs[key]
	if !ok {
		return "", &MissingAttributeError{Element: e.Name, Attribute: key}
	}

	return v, nil
}

// HasAttr reports whether key was set.
func (e *Element) HasAttr(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// AttrNames returns the attribute keys in the order they were first set.
func (e *Element) AttrNames() []string {
	return append([]string(nil), e.order...)
}

// Require fails with the first key that was never set.
func (e *Element) Require(keys ...string) error {
	for _, key := range keys {
		if _, err := e.Attr(key); err != nil {
			return err
		}
	}

	return nil
}

// Append adds child after the existing children and returns it.
func (e *Element) Append(child Node) Node {
	e.Children = append(e.Children, child)
	return child
}

// InsertBefore places child at index i, shifting later children. An out of range index appends.
func (e *Element) InsertBefore(i int, child Node) {
	if i < 0 || i >= len(e.Children) {
		e.Children = append(e.Children, child)
		return
	}

	e.Children = append(e.Children, nil)
	copy(e.Children[i+1:], e.Children[i:])
	e.Children[i] = child
}

// Remove drops child (compared by identity) and reports whether it was present.
func (e *Element) Remove(child Node) bool {
	for i, c := range e.Children {
		if c == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return true
		}
	}

	return false
}

// AddElement appends a new child element named name and returns it.
func (e *Element) AddElement(name string) *Element {
	child := NewElement(name)
	e.Children = append(e.Children, child)

	return child
}

// AddText appends escaped text.
func (e *Element) AddText(value string) *Text {
	return e.addText(value, Escaped)
}

// AddCDATA appends text wrapped in a CDATA section.
func (e *Element) AddCDATA(value string) *Text {
	return e.addText(value, CDATA)
}

// AddComment appends an XML comment.
func (e *Element) AddComment(value string) *Text {
	return e.addText(value, Comment)
}

// AddRaw appends text written as is, such as an embedded stylesheet.
func (e *Element) AddRaw(value string) *Text {
	return e.addText(value, Raw)
}

func (e *Element) addText(value string, mode TextMode) *Text {
	t := &Text{Value: value, Mode: mode}
	e.Children = append(e.Children, t)

	return t
}

// Prefix returns the namespace prefix of the element name, or "".
func (e *Element) Prefix() string {
	if i := strings.IndexByte(e.Name, ':'); i >= 0 {
		return e.Name[:i]
	}

	return ""
}

// LocalName returns the element name without its namespace prefix.
func (e *Element) LocalName() string {
	return e.Name[strings.IndexByte(e.Name, ':')+1:]
}

// Elements returns the direct child elements named name.
func (e *Element) Elements(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.Name == name {
			out = append(out, el)
		}
	}

	return out
}

// FirstElement returns the first direct child element named name, or nil.
func (e *Element) FirstElement(name string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.Name == name {
			return el
		}
	}

	return nil
}

// TextContent concatenates the direct text children.
func (e *Element) TextContent() string {
	var sb strings.Builder
	for _, c := range e.Children {
		if t, ok := c.(*Text); ok && t.Mode != Comment {
			sb.WriteString(t.Value)
		}
	}

	return sb.String()
}

// Equal reports structural equality: same name, same attribute map, equal children in order.
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Name != other.Name || len(e.attrs) != len(other.attrs) || len(e.Children) != len(other.Children) {
		return false
	}
	for k, v := range e.attrs {
		if ov, ok := other.attrs[k]; !ok || ov != v {
			return false
		}
	}
	for i := range e.Children {
		if !Equal(e.Children[i], other.Children[i]) {
			return false
		}
	}

	return true
}

// TextMode selects how a text leaf is written.
type TextMode int

const (
	// Escaped text has markup characters replaced by entities.
	Escaped TextMode = iota
	// Raw text is written unchanged.
	Raw
	// CDATA text is wrapped in CDATA sections.
	CDATA
	// Comment text is written as an XML comment and is not character data.
	Comment
)

// Text is a character data leaf.
type Text struct {
	Value string
	Mode  TextMode
}

// Equal compares text content. The mode is a rendering choice and is ignored, except that a
// comment never equals character data.
func (t *Text) Equal(other *Text) bool {
	if t == nil || other == nil {
		return t == other
	}

	return t.Value == other.Value && (t.Mode == Comment) == (other.Mode == Comment)
}

// Equal compares two nodes structurally.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Element:
		y, ok := b.(*Element)
		return ok && x.Equal(y)
	case *Text:
		y, ok := b.(*Text)
		return ok && x.Equal(y)
	}

	return a == nil && b == nil
}

// FormatFloat writes v without exponent and always with a decimal point, so 1 becomes "1.0".
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}
