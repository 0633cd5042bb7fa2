package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// xmlNode is a schema-free view of one XML element: attributes, accumulated
// character data, and child elements grouped by local name in declaration
// order. Feeds vary too much for fixed structs, so normalization works over
// this tree the same way the item fields are probed.
type xmlNode struct {
	attrs    map[string]string
	children map[string][]*xmlNode
	order    []string
	text     strings.Builder
}

func newXMLNode() *xmlNode {
	return &xmlNode{
		attrs:    map[string]string{},
		children: map[string][]*xmlNode{},
	}
}

func (n *xmlNode) add(name string, child *xmlNode) {
	if _, seen := n.children[name]; !seen {
		n.order = append(n.order, name)
	}
	n.children[name] = append(n.children[name], child)
}

// Text returns the element's trimmed character data. Attribute-bearing
// wrapper nodes (e.g. <guid isPermaLink="false">X</guid>) unwrap to X.
func (n *xmlNode) Text() string {
	return strings.TrimSpace(n.text.String())
}

func (n *xmlNode) childText(name string) string {
	if kids := n.children[name]; len(kids) > 0 {
		return kids[0].Text()
	}
	return ""
}

// toValue mirrors the shape API consumers expect for the raw payload:
// leaf elements collapse to their text, everything else becomes a map of
// merged attributes and children, repeated children become arrays.
func (n *xmlNode) toValue() interface{} {
	if len(n.children) == 0 && len(n.attrs) == 0 {
		return n.Text()
	}

	m := map[string]interface{}{}
	for k, v := range n.attrs {
		m[k] = v
	}
	for _, name := range n.order {
		kids := n.children[name]
		if len(kids) == 1 {
			m[name] = kids[0].toValue()
			continue
		}
		vals := make([]interface{}, 0, len(kids))
		for _, k := range kids {
			vals = append(vals, k.toValue())
		}
		m[name] = vals
	}
	if t := n.Text(); t != "" {
		m["_"] = t
	}
	return m
}

// parseXML decodes a document into a node tree rooted at the top-level
// element (the root element's name itself is dropped, so an RSS document
// surfaces its channel directly).
func parseXML(doc []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var root *xmlNode
	var stack []*xmlNode

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := newXMLNode()
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				stack[len(stack)-1].add(t.Name.Local, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("document contains no elements")
	}
	return root, nil
}
