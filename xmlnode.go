package netconify

import (
	"encoding/xml"
	"io"
)

// XMLNode is an opaque, schema-less XML tree node. The core treats the
// vendor's XML dialect as opaque trees routed by tag name (spec.md §1
// Non-goals: "no authoritative schema of the vendor's XML dialect"), so
// this is a small recursive struct rather than a generated binding, in the
// same spirit as nemith-netconf's RawXML (msg.go) but walkable.
type XMLNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*XMLNode `xml:",any"`
}

// Tag returns the node's local (namespace-stripped) element name.
func (n *XMLNode) Tag() string {
	if n == nil {
		return ""
	}
	return n.XMLName.Local
}

// Find returns the first direct child with the given tag name, or nil.
func (n *XMLNode) Find(tag string) *XMLNode {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Tag() == tag {
			return c
		}
	}
	return nil
}

// FindPath walks a sequence of direct-child tag names, e.g.
// node.FindPath("chassis", "serial-number"), returning nil if any segment
// is missing.
func (n *XMLNode) FindPath(tags ...string) *XMLNode {
	cur := n
	for _, tag := range tags {
		cur = cur.Find(tag)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// FindDescendant performs a depth-first search for the first descendant
// (at any depth) with the given tag name.
func (n *XMLNode) FindDescendant(tag string) *XMLNode {
	if n == nil {
		return nil
	}
	if n.Tag() == tag {
		return n
	}
	for _, c := range n.Children {
		if found := c.FindDescendant(tag); found != nil {
			return found
		}
	}
	return nil
}

// FindChildWhere returns the first direct child with the given tag whose
// named sub-child has the given text, e.g. looking up a
// `<chassis-module><name>Backplane</name>...</chassis-module>` sibling by
// its <name>.
func (n *XMLNode) FindChildWhere(tag, subTag, subText string) *XMLNode {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Tag() != tag {
			continue
		}
		if sub := c.Find(subTag); sub != nil && sub.Text == subText {
			return c
		}
	}
	return nil
}

// TextOf is a nil-safe accessor for a node's character data, trimmed of
// nothing (callers that need trimming do it themselves, matching the
// original's lxml findtext() semantics).
func (n *XMLNode) TextOf() string {
	if n == nil {
		return ""
	}
	return n.Text
}

// parseXMLNode parses r as a single XML tree rooted at its first element.
func parseXMLNode(r io.Reader) (*XMLNode, error) {
	var n XMLNode
	if err := xml.NewDecoder(r).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}
