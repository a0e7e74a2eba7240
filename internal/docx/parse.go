// Package docx reads and rewrites WordprocessingML parts: it flattens
// pre-existing tracked changes, indexes document text back to runs, and
// applies redactions as new tracked changes so reviewers can see exactly
// what was removed.
package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/antchfx/xmlquery"
)

const (
	// WordNS is the WordprocessingML main namespace.
	WordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	// RelNS is the officeDocument relationships namespace used by
	// r:id / r:embed references.
	RelNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

var (
	// ErrXMLParse marks a malformed document part. It is fatal; a broken
	// part is never retried.
	ErrXMLParse = errors.New("docx: malformed xml part")

	// ErrOffsetContract marks redaction offsets that do not map onto the
	// indexed document text. This is a caller bug, not a document defect.
	ErrOffsetContract = errors.New("docx: redaction offsets violate text index")

	// ErrRelationship marks a part that references a relationship id the
	// .rels part does not declare.
	ErrRelationship = errors.New("docx: dangling relationship reference")
)

// ParsePart parses one XML part with entity expansion disabled, so a
// hostile document cannot smuggle entities into the text index.
func ParsePart(data []byte) (*xmlquery.Node, error) {
	doc, err := xmlquery.ParseWithOptions(bytes.NewReader(data), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict: true,
			Entity: map[string]string{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrXMLParse, err)
	}
	return doc, nil
}

// Serialize renders a parsed part back to bytes.
func Serialize(doc *xmlquery.Node) []byte {
	return []byte(doc.OutputXML(true))
}

// isWordEl reports whether n is the WordprocessingML element <w:local>.
// Parts that omit the namespace declaration still match on the prefix.
func isWordEl(n *xmlquery.Node, local string) bool {
	if n == nil || n.Type != xmlquery.ElementNode || n.Data != local {
		return false
	}
	return n.NamespaceURI == WordNS || n.Prefix == "w"
}

func newWordEl(local string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.ElementNode, Data: local, Prefix: "w", NamespaceURI: WordNS}
}

func newTextNode(text string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.TextNode, Data: text}
}

// insertAfter splices n into the tree immediately after anchor.
func insertAfter(anchor, n *xmlquery.Node) {
	n.Parent = anchor.Parent
	n.PrevSibling = anchor
	n.NextSibling = anchor.NextSibling
	if anchor.NextSibling != nil {
		anchor.NextSibling.PrevSibling = n
	} else if anchor.Parent != nil {
		anchor.Parent.LastChild = n
	}
	anchor.NextSibling = n
}

// insertFirst makes n the first child of parent.
func insertFirst(parent, n *xmlquery.Node) {
	n.Parent = parent
	n.PrevSibling = nil
	n.NextSibling = parent.FirstChild
	if parent.FirstChild != nil {
		parent.FirstChild.PrevSibling = n
	} else {
		parent.LastChild = n
	}
	parent.FirstChild = n
}

// detach removes n from the tree without touching its own children.
func detach(n *xmlquery.Node) {
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	} else if n.Parent != nil {
		n.Parent.FirstChild = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	} else if n.Parent != nil {
		n.Parent.LastChild = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}

// unwrap replaces n with its children, preserving their order.
func unwrap(n *xmlquery.Node) {
	anchor := n
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		detach(child)
		insertAfter(anchor, child)
		anchor = child
		child = next
	}
	n.FirstChild, n.LastChild = nil, nil
	detach(n)
}

// cloneNode deep-copies an element subtree. Used to duplicate w:rPr onto
// split-off runs so formatting survives the split.
func cloneNode(n *xmlquery.Node) *xmlquery.Node {
	if n == nil {
		return nil
	}
	cp := &xmlquery.Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
	}
	if len(n.Attr) > 0 {
		cp.Attr = append([]xmlquery.Attr(nil), n.Attr...)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		xmlquery.AddChild(cp, cloneNode(child))
	}
	return cp
}

// childEl returns the first direct child element <w:local> of n.
func childEl(n *xmlquery.Node, local string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isWordEl(c, local) {
			return c
		}
	}
	return nil
}

// elementText concatenates the direct text children of an element.
func elementText(n *xmlquery.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			buf.WriteString(c.Data)
		}
	}
	return buf.String()
}

// setElementText replaces the text content of an element with one node.
func setElementText(n *xmlquery.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			detach(c)
		}
		c = next
	}
	if text != "" {
		xmlquery.AddChild(n, newTextNode(text))
	}
}

// attrValue returns the value of the attribute with the given local name
// regardless of its namespace prefix.
func attrValue(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// setAttr sets or replaces a prefixed attribute on an element.
func setAttr(n *xmlquery.Node, space, local, value string) {
	for i, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space == space {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xmlquery.Attr{
		Name:  xml.Name{Space: space, Local: local},
		Value: value,
	})
}

// walkElements visits every element under root in document order. The
// visitor returns false to skip the element's subtree.
func walkElements(root *xmlquery.Node, visit func(*xmlquery.Node) bool) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && !visit(c) {
			continue
		}
		walkElements(c, visit)
	}
}
