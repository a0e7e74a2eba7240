package docx

import (
	"regexp"

	"github.com/antchfx/xmlquery"
)

// Revision elements partitioned by accept-all behavior: drop removes the
// element and its content, strip keeps the content but removes the wrapper,
// marker elements are bookkeeping with no content of their own.
var (
	revisionDropTags = map[string]struct{}{
		"del": {}, "moveFrom": {},
	}
	revisionStripTags = map[string]struct{}{
		"ins": {}, "moveTo": {},
	}
	revisionMarkerTags = map[string]struct{}{
		"moveFromRangeStart": {}, "moveFromRangeEnd": {},
		"moveToRangeStart": {}, "moveToRangeEnd": {},
		"rPrChange": {}, "pPrChange": {}, "sectPrChange": {},
		"tblPrChange": {}, "tblGridChange": {}, "tcPrChange": {},
	}

	// Elements that do not count as content when deciding whether a
	// paragraph was hollowed out by revision removal.
	paragraphMetaTags = map[string]struct{}{
		"pPr": {}, "proofErr": {}, "bookmarkStart": {}, "bookmarkEnd": {},
		"commentRangeStart": {}, "commentRangeEnd": {},
	}
)

var reRunSpaces = regexp.MustCompile(`[ \t]{2,}`)

// FlattenRevisions accepts every tracked change in one XML part:
// insertions and inbound moves are kept and unwrapped, deletions and
// outbound moves are removed, and range markers and formatting-change
// records are dropped. Paragraphs left holding nothing but revision
// residue are removed entirely. When a removed deletion carried the only
// whitespace between two runs, a space is injected so words do not fuse.
// A part with no revision markup is returned unchanged with changed=false.
func FlattenRevisions(data []byte) ([]byte, bool, error) {
	doc, err := ParsePart(data)
	if err != nil {
		return nil, false, err
	}

	f := &flattener{}
	f.walk(doc)
	if !f.changed {
		return data, false, nil
	}

	f.removeZombieParagraphs()
	normalizeRunSpaces(doc)
	return Serialize(doc), true, nil
}

type flattener struct {
	changed bool
	touched []*xmlquery.Node // paragraphs that lost revision content
}

func (f *flattener) walk(n *xmlquery.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type != xmlquery.ElementNode || !wordNamespaced(child) {
			f.walk(child)
			child = next
			continue
		}
		switch {
		case inSet(revisionDropTags, child.Data):
			f.dropWithSpacing(child)
		case inSet(revisionStripTags, child.Data):
			f.walk(child)
			unwrap(child)
			f.changed = true
		case inSet(revisionMarkerTags, child.Data):
			detach(child)
			f.changed = true
		default:
			f.walk(child)
		}
		child = next
	}
}

func (f *flattener) dropWithSpacing(n *xmlquery.Node) {
	para := enclosingParagraph(n)
	if para != nil && containsWhitespace(n.InnerText()) {
		repairSpacingScar(para, n)
	}
	detach(n)
	f.changed = true
	if para != nil {
		f.touched = append(f.touched, para)
	}
}

// repairSpacingScar appends a space to the text run preceding the doomed
// node when the runs on either side would otherwise butt together.
func repairSpacingScar(para, doomed *xmlquery.Node) {
	prev, next := flankingTextRuns(para, doomed)
	if prev == nil || next == nil {
		return
	}
	before, after := elementText(prev), elementText(next)
	if before == "" || after == "" {
		return
	}
	if endsWithSpace(before) || startsWithSpace(after) {
		return
	}
	setElementText(prev, before+" ")
	setAttr(prev, "xml", "space", "preserve")
}

// flankingTextRuns finds the last w:t before doomed and the first w:t
// after it within the same paragraph, skipping doomed's own subtree.
func flankingTextRuns(para, doomed *xmlquery.Node) (prev, next *xmlquery.Node) {
	state := 0 // 0 = before doomed, 1 = after
	var scan func(n *xmlquery.Node)
	scan = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c == doomed {
				state = 1
				continue
			}
			if isWordEl(c, "t") {
				if state == 0 {
					prev = c
				} else if next == nil {
					next = c
				}
				continue
			}
			scan(c)
		}
	}
	scan(para)
	return prev, next
}

func (f *flattener) removeZombieParagraphs() {
	for _, para := range f.touched {
		if para.Parent == nil {
			continue // already removed via an ancestor
		}
		if paragraphIsZombie(para) {
			detach(para)
		}
	}
}

// paragraphIsZombie reports whether only metadata elements remain.
func paragraphIsZombie(para *xmlquery.Node) bool {
	for c := para.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode:
			if !inSet(paragraphMetaTags, c.Data) {
				return false
			}
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if containsNonSpace(c.Data) {
				return false
			}
		}
	}
	return true
}

// normalizeRunSpaces collapses runs of spaces and tabs inside every w:t,
// cleaning up scars left by removed revision content.
func normalizeRunSpaces(doc *xmlquery.Node) {
	walkElements(doc, func(n *xmlquery.Node) bool {
		if !isWordEl(n, "t") {
			return true
		}
		if text := elementText(n); reRunSpaces.MatchString(text) {
			setElementText(n, reRunSpaces.ReplaceAllString(text, " "))
		}
		return false
	})
}

func enclosingParagraph(n *xmlquery.Node) *xmlquery.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isWordEl(p, "p") {
			return p
		}
	}
	return nil
}

func wordNamespaced(n *xmlquery.Node) bool {
	return n.NamespaceURI == WordNS || n.Prefix == "w"
}

func inSet(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func containsWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			return true
		}
	}
	return false
}

func containsNonSpace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return true
		}
	}
	return false
}

func endsWithSpace(s string) bool {
	return s != "" && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t')
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t')
}
