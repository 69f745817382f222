package tag

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"
)

const indentUnit = "    "

// Header lines prepended by documents.
const (
	XMLDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`
	HTML5Doctype   = `<!DOCTYPE html>`
)

// HTML elements that never have content and stay self-closing in HTML documents.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

type printer struct {
	buf  bytes.Buffer
	html bool
}

func (p *printer) pad(indent int) {
	for range indent {
		p.buf.WriteString(indentUnit)
	}
}

func (p *printer) escape(s string) {
	_ = xml.EscapeText(&p.buf, []byte(s))
}

func (e *Element) render(p *printer, indent int) {
	p.pad(indent)
	p.buf.WriteByte('<')
	p.buf.WriteString(e.Name)
	for _, key := range e.order {
		p.buf.WriteByte(' ')
		p.buf.WriteString(key)
		p.buf.WriteString(`="`)
		p.escape(e.attrs[key])
		p.buf.WriteByte('"')
	}

	if len(e.Children) == 0 {
		if p.html && !voidElements[e.Name] {
			p.buf.WriteString("></" + e.Name + ">\n")
		} else {
			p.buf.WriteString("/>\n")
		}

		return
	}

	if t, ok := e.Children[0].(*Text); ok && len(e.Children) == 1 {
		p.buf.WriteByte('>')
		t.write(p)
		p.buf.WriteString("</" + e.Name + ">\n")

		return
	}

	p.buf.WriteString(">\n")
	for _, c := range e.Children {
		c.render(p, indent+1)
	}
	p.pad(indent)
	p.buf.WriteString("</" + e.Name + ">\n")
}

func (t *Text) render(p *printer, indent int) {
	p.pad(indent)
	t.write(p)
	p.buf.WriteByte('\n')
}

func (t *Text) write(p *printer) {
	switch t.Mode {
	case Raw:
		p.buf.WriteString(t.Value)
	case CDATA:
		p.buf.WriteString("<![CDATA[")
		p.buf.WriteString(strings.ReplaceAll(sanitize(t.Value), "]]>", "]]]]><![CDATA[>"))
		p.buf.WriteString("]]>")
	case Comment:
		p.buf.WriteString("<!--")
		p.buf.WriteString(commentSafe(sanitize(t.Value)))
		p.buf.WriteString("-->")
	default:
		p.escape(t.Value)
	}
}

// sanitize replaces invalid UTF-8 and characters XML 1.0 does not allow with U+FFFD. CDATA
// sections have no escaping, so control characters from stack traces would otherwise make the
// document unparseable.
func sanitize(s string) string {
	clean := true
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		if !isXMLChar(r, width) {
			clean = false
			break
		}
		i += width
	}
	if clean {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		if isXMLChar(r, width) {
			sb.WriteString(s[i : i+width])
		} else {
			sb.WriteRune(utf8.RuneError)
		}
		i += width
	}

	return sb.String()
}

func isXMLChar(r rune, width int) bool {
	if r == utf8.RuneError && width == 1 {
		return false
	}

	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// commentSafe keeps "--" out of a comment body and never ends it with "-".
func commentSafe(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	if strings.HasSuffix(s, "-") {
		s += " "
	}

	return s
}

// Render writes the element and its subtree starting at the given indent level.
func (e *Element) Render(w io.Writer, indent int) error {
	p := &printer{}
	e.render(p, indent)
	_, err := w.Write(p.buf.Bytes())

	return err
}

func (e *Element) String() string {
	p := &printer{}
	e.render(p, 0)

	return p.buf.String()
}

// Document is a root element with the header lines of its format.
type Document struct {
	Headers []string
	Root    *Element
	// HTML renders empty non-void elements with an explicit closing tag.
	HTML bool
}

// NewXMLDocument returns a document starting with the XML declaration followed by extra headers.
func NewXMLDocument(root *Element, headers ...string) *Document {
	return &Document{Headers: append([]string{XMLDeclaration}, headers...), Root: root}
}

// NewHTMLDocument returns an HTML5 document.
func NewHTMLDocument(root *Element) *Document {
	return &Document{Headers: []string{HTML5Doctype}, Root: root, HTML: true}
}

// Bytes renders the headers and the root element.
func (d *Document) Bytes() []byte {
	p := &printer{html: d.HTML}
	for _, h := range d.Headers {
		p.buf.WriteString(h)
		p.buf.WriteByte('\n')
	}
	if d.Root != nil {
		d.Root.render(p, 0)
	}

	return p.buf.Bytes()
}

func (d *Document) String() string {
	return string(d.Bytes())
}

// WriteTo implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Bytes())
	return int64(n), err
}
