// Package htmldoc is a generic HTML document builder on top of the tag model, used to assemble
// report pages from collections instead of string templates.
package htmldoc

import (
	"strings"

	"apexci/internal/tag"
)

// Elem is an HTML element with shorthand builders. Builders that add a child return the child.
type Elem struct {
	*tag.Element
}

// ID sets the id attribute.
func (e Elem) ID(id string) Elem {
	e.SetString("id", id)
	return e
}

// Class sets the class attribute to the space separated classes. Empty names are skipped.
func (e Elem) Class(classes ...string) Elem {
	var names []string
	for _, c := range classes {
		if c != "" {
			names = append(names, c)
		}
	}
	if len(names) > 0 {
		e.SetString("class", strings.Join(names, " "))
	}

	return e
}

// Style sets the inline style attribute.
func (e Elem) Style(style string) Elem {
	e.SetString("style", style)
	return e
}

// Set sets any other attribute.
func (e Elem) Set(key, value string) Elem {
	e.SetString(key, value)
	return e
}

// Text appends escaped text and returns the receiver.
func (e Elem) Text(s string) Elem {
	e.AddText(s)
	return e
}

// Child appends an element named name.
func (e Elem) Child(name string) Elem {
	return Elem{e.AddElement(name)}
}

func (e Elem) Div() Elem     { return e.Child("div") }
func (e Elem) Span() Elem    { return e.Child("span") }
func (e Elem) P() Elem       { return e.Child("p") }
func (e Elem) H1() Elem      { return e.Child("h1") }
func (e Elem) H2() Elem      { return e.Child("h2") }
func (e Elem) Table() Elem   { return e.Child("table") }
func (e Elem) Thead() Elem   { return e.Child("thead") }
func (e Elem) Tbody() Elem   { return e.Child("tbody") }
func (e Elem) Tr() Elem      { return e.Child("tr") }
func (e Elem) Th() Elem      { return e.Child("th") }
func (e Elem) Td() Elem      { return e.Child("td") }
func (e Elem) Ul() Elem      { return e.Child("ul") }
func (e Elem) Li() Elem      { return e.Child("li") }
func (e Elem) Pre() Elem     { return e.Child("pre") }
func (e Elem) Code() Elem    { return e.Child("code") }
func (e Elem) Footer() Elem  { return e.Child("footer") }
func (e Elem) Strong() Elem  { return e.Child("strong") }
func (e Elem) Section() Elem { return e.Child("section") }

// A appends a link.
func (e Elem) A(href string) Elem {
	return e.Child("a").Set("href", href)
}

// Page is an html element with its head and body.
type Page struct {
	Root Elem
	Head Elem
	Body Elem
}

// New returns a page with charset, viewport and title set.
func New(title string) *Page {
	root := Elem{tag.NewElement("html")}.Set("lang", "en")
	head := root.Child("head")
	head.Child("meta").Set("charset", "utf-8")
	head.Child("meta").Set("name", "viewport").Set("content", "width=device-width, initial-scale=1")
	head.Child("title").Text(title)
	body := root.Child("body")

	return &Page{Root: root, Head: head, Body: body}
}

// StyleSheet embeds css in the head.
func (p *Page) StyleSheet(css string) {
	p.Head.Child("style").AddRaw(css)
}

// Script embeds js at the current end of the body.
func (p *Page) Script(js string) {
	p.Body.Child("script").AddRaw(js)
}

// Document returns the HTML5 document of the page.
func (p *Page) Document() *tag.Document {
	return tag.NewHTMLDocument(p.Root.Element)
}
