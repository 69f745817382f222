package packaging

import (
	"bytes"
	"fmt"
	"strings"

	"apexci/internal/tag"
)

// MetadataNamespace is the XML namespace of package manifests and metadata files.
const MetadataNamespace = "http://soap.sforce.com/2006/04/metadata"

// ApexClassType is the manifest type name of Apex classes.
const ApexClassType = "ApexClass"

const wildcard = "*"

// manifest is a parsed package.xml.
type manifest struct {
	root *tag.Element
}

func parseManifest(data []byte) (*manifest, error) {
	root, err := tag.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return &manifest{root: root}, nil
}

// types returns the <types> block whose <name> is typeName, or nil.
func (m *manifest) types(typeName string) *tag.Element {
	for _, t := range children(m.root, "types") {
		if name := first(t, "name"); name != nil && strings.TrimSpace(name.TextContent()) == typeName {
			return t
		}
	}

	return nil
}

// version returns the declared API version, or "" when absent.
func (m *manifest) version() string {
	if v := first(m.root, "version"); v != nil {
		return strings.TrimSpace(v.TextContent())
	}

	return ""
}

// addClass adds className as the first member of the ApexClass block. A wildcard member is
// replaced by explicit members for classes, since the class must be listed by name.
func (m *manifest) addClass(types *tag.Element, className string, classes []string) {
	var wildcards []*tag.Element
	listed := make(map[string]bool)
	for _, member := range children(types, "members") {
		name := strings.TrimSpace(member.TextContent())
		if name == wildcard {
			wildcards = append(wildcards, member)
			continue
		}
		listed[strings.ToLower(name)] = true
	}

	if len(wildcards) > 0 {
		at := indexOf(types, wildcards[0])
		for _, w := range wildcards {
			types.Remove(w)
		}
		for _, name := range classes {
			if listed[strings.ToLower(name)] {
				continue
			}
			types.InsertBefore(at, prefixed(types, member(name)))
			at++
		}
	}

	types.InsertBefore(0, prefixed(types, member(className)))
}

func (m *manifest) bytes() []byte {
	return tag.NewXMLDocument(m.root).Bytes()
}

func member(name string) *tag.Element {
	el := tag.NewElement("members")
	el.AddText(name)

	return el
}

// children returns the child elements with the given local name, so manifests written with a
// namespace prefix such as <sf:types> are read the same way.
func children(parent *tag.Element, local string) []*tag.Element {
	var out []*tag.Element
	for _, c := range parent.Children {
		if el, ok := c.(*tag.Element); ok && el.LocalName() == local {
			out = append(out, el)
		}
	}

	return out
}

func first(parent *tag.Element, local string) *tag.Element {
	if els := children(parent, local); len(els) > 0 {
		return els[0]
	}

	return nil
}

// prefixed gives el the namespace prefix of parent.
func prefixed(parent, el *tag.Element) *tag.Element {
	if prefix := parent.Prefix(); prefix != "" {
		el.Name = prefix + ":" + el.Name
	}

	return el
}

func indexOf(parent *tag.Element, child tag.Node) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}

	return -1
}

// newManifest returns a Package with the given types and version.
func newManifest(version string, types map[string][]string) *tag.Element {
	root := tag.NewElement("Package").SetString("xmlns", MetadataNamespace)
	for _, typeName := range sortedKeys(types) {
		block := root.AddElement("types")
		for _, name := range types[typeName] {
			block.Append(member(name))
		}
		block.AddElement("name").AddText(typeName)
	}
	root.AddElement("version").AddText(version)

	return root
}

// testClassBody returns an always passing test that resolves every class by name, so each one
// is loaded during the test run.
func testClassBody(className string, classes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@IsTest\nprivate class %s {\n", className)
	b.WriteString("    @IsTest\n    static void touchAllClasses() {\n        try {\n")
	for _, name := range classes {
		fmt.Fprintf(&b, "            Type.forName('%s');\n", name)
	}
	b.WriteString("        } catch (Exception e) {\n            System.assert(true);\n        }\n    }\n}\n")

	return b.String()
}

// classMeta returns the -meta.xml descriptor of a class.
func classMeta(apiVersion string) []byte {
	root := tag.NewElement("ApexClass").SetString("xmlns", MetadataNamespace)
	root.AddElement("apiVersion").AddText(apiVersion)
	root.AddElement("status").AddText("Active")

	return tag.NewXMLDocument(root).Bytes()
}
