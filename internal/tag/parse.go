package tag

import (
	"encoding/xml"
	"io"
	"strings"

	"apexci/internal/errors"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Parse decodes an XML document into an element tree. Whitespace-only text is dropped,
// adjacent character data is merged and namespace declarations are kept as xmlns attributes.
// Element and attribute prefixes are kept as written. Comments inside the root element are
// kept; the prolog and anything outside the root are not.
func Parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var (
		root   *Element
		stack  []*Element
		scopes = []namespaces{{prefixes: map[string]string{xmlNamespace: "xml"}}}
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStackTrace(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			ns := scopes[len(scopes)-1].declare(t.Attr)
			scopes = append(scopes, ns)

			el := NewElement(ns.elementName(t.Name))
			for _, a := range t.Attr {
				el.SetString(ns.attrName(a.Name), a.Value)
			}

			switch {
			case len(stack) > 0:
				stack[len(stack)-1].Append(el)
			case root == nil:
				root = el
			default:
				return nil, errors.Errorf("xml: more than one root element (<%s> after <%s>)", el.Name, root.Name)
			}

			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]
		case xml.Comment:
			if len(stack) > 0 {
				stack[len(stack)-1].AddComment(string(t))
			}
		case xml.CharData:
			if len(stack) == 0 || strings.TrimSpace(string(t)) == "" {
				continue
			}

			parent := stack[len(stack)-1]
			if n := len(parent.Children); n > 0 {
				if prev, ok := parent.Children[n-1].(*Text); ok && prev.Mode != Comment {
					prev.Value += string(t)
					continue
				}
			}
			parent.AddText(string(t))
		}
	}

	if root == nil {
		return nil, errors.New("xml: document has no root element")
	}

	return root, nil
}

// namespaces is the set of namespace bindings in scope for an element. The decoder resolves
// prefixes to URLs, so prefixes maps each URL back to the prefix it was declared with.
type namespaces struct {
	prefixes map[string]string
	def      string
}

func (ns namespaces) declare(attrs []xml.Attr) namespaces {
	next := ns
	copied := false
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			if !copied {
				next.prefixes = make(map[string]string, len(ns.prefixes)+1)
				for url, prefix := range ns.prefixes {
					next.prefixes[url] = prefix
				}
				copied = true
			}
			next.prefixes[a.Value] = a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			next.def = a.Value
		}
	}

	return next
}

func (ns namespaces) elementName(name xml.Name) string {
	if name.Space == "" || name.Space == ns.def {
		return name.Local
	}

	return ns.qualify(name)
}

func (ns namespaces) attrName(name xml.Name) string {
	switch name.Space {
	case "":
		return name.Local
	case "xmlns":
		return "xmlns:" + name.Local
	}

	return ns.qualify(name)
}

// qualify writes the declared prefix. An undeclared prefix is left in Space by the decoder
// and is kept as is.
func (ns namespaces) qualify(name xml.Name) string {
	if prefix, ok := ns.prefixes[name.Space]; ok {
		return prefix + ":" + name.Local
	}

	return name.Space + ":" + name.Local
}
