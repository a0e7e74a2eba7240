package docx

import (
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
)

// segment maps a contiguous range of document text to the w:t element
// holding it and the w:r enclosing that element.
type segment struct {
	start, end int
	text       *xmlquery.Node
	run        *xmlquery.Node
}

// RunMap is the bridge between span offsets and XML structure: it
// concatenates every visible w:t in document order, one "\n" per
// paragraph, recording which run produced each byte. Deleted text
// (w:delText, anything under w:del) is invisible and not indexed.
type RunMap struct {
	Text string
	segs []segment
}

// NewRunMap indexes one parsed part. Paragraphs inside tables, text
// boxes, and content controls are picked up by the recursive walk; the
// caller indexes headers, footers, and note parts the same way since
// each is its own XML part.
func NewRunMap(doc *xmlquery.Node) *RunMap {
	rm := &RunMap{}
	var b strings.Builder
	walkElements(doc, func(n *xmlquery.Node) bool {
		if !isWordEl(n, "p") {
			return true
		}
		rm.indexParagraph(n, &b)
		b.WriteString("\n")
		return false
	})
	rm.Text = b.String()
	return rm
}

func (rm *RunMap) indexParagraph(para *xmlquery.Node, b *strings.Builder) {
	var scan func(n *xmlquery.Node)
	scan = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			if wordNamespaced(c) {
				if _, drop := revisionDropTags[c.Data]; drop {
					continue
				}
				if c.Data == "p" {
					// text-box paragraphs nested inside a run
					rm.indexParagraph(c, b)
					b.WriteString("\n")
					continue
				}
			}
			if isWordEl(c, "t") {
				text := elementText(c)
				if text != "" {
					rm.segs = append(rm.segs, segment{
						start: b.Len(), end: b.Len() + len(text),
						text: c, run: enclosingRun(c),
					})
					b.WriteString(text)
				}
				continue
			}
			scan(c)
		}
	}
	scan(para)
}

// segmentAt returns the segment covering byte offset off, or -1 when the
// offset falls on a paragraph break or past the end.
func (rm *RunMap) segmentAt(off int) int {
	i := sort.Search(len(rm.segs), func(i int) bool { return rm.segs[i].end > off })
	if i == len(rm.segs) || rm.segs[i].start > off {
		return -1
	}
	return i
}

// overlapping returns the segment indices intersecting [start, end).
func (rm *RunMap) overlapping(start, end int) []int {
	var out []int
	for i, seg := range rm.segs {
		if seg.end <= start {
			continue
		}
		if seg.start >= end {
			break
		}
		out = append(out, i)
	}
	return out
}

func enclosingRun(n *xmlquery.Node) *xmlquery.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isWordEl(p, "r") {
			return p
		}
	}
	return nil
}
