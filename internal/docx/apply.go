package docx

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Relationship declarations carry no namespace prefix in .rels parts,
// so they are matched by local name.
var relationshipQuery = xpath.MustCompile("//*[local-name()='Relationship']")

// Redaction replaces the document text in [Start, End) with a label,
// recorded as a tracked deletion plus a tracked insertion.
type Redaction struct {
	Start       int
	End         int
	Replacement string
}

// Run properties that could hide or obscure the replacement label. They
// are stripped from the inserted run while font, size, and weight stay.
var hidingProps = []string{"vanish", "webHidden", "shd", "highlight", "effect", "specVanish", "oMath"}

const replacementColor = "FF0000"

// Applier mutates one parsed part, turning redactions into tracked
// changes attributed to a single reviewer identity.
type Applier struct {
	doc    *xmlquery.Node
	rm     *RunMap
	author string
	nextID int
	now    func() time.Time
}

// NewApplier indexes the part and seeds the revision-id counter past any
// ids already present so new revisions never collide with existing ones.
func NewApplier(doc *xmlquery.Node, author string) *Applier {
	a := &Applier{doc: doc, rm: NewRunMap(doc), author: author, nextID: 1, now: time.Now}
	walkElements(doc, func(n *xmlquery.Node) bool {
		if n.Data == "ins" || n.Data == "del" {
			if id, err := strconv.Atoi(attrValue(n, "id")); err == nil && id >= a.nextID {
				a.nextID = id + 1
			}
		}
		return true
	})
	return a
}

// Text returns the indexed document text redaction offsets refer to.
func (a *Applier) Text() string {
	return a.rm.Text
}

// Apply validates the redaction set against the text index, then applies
// the redactions in descending start order so earlier offsets stay valid
// while later text is rewritten. Any contract violation rejects the whole
// batch before the first mutation.
func (a *Applier) Apply(redactions []Redaction) error {
	sorted := append([]Redaction(nil), redactions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, rd := range sorted {
		if rd.Start < 0 || rd.End > len(a.rm.Text) || rd.Start >= rd.End {
			return fmt.Errorf("%w: span [%d,%d) outside text of length %d",
				ErrOffsetContract, rd.Start, rd.End, len(a.rm.Text))
		}
		if i > 0 && rd.Start < sorted[i-1].End {
			return fmt.Errorf("%w: spans [%d,%d) and [%d,%d) overlap",
				ErrOffsetContract, sorted[i-1].Start, sorted[i-1].End, rd.Start, rd.End)
		}
		if a.rm.segmentAt(rd.Start) < 0 {
			return fmt.Errorf("%w: span start %d falls on a paragraph break",
				ErrOffsetContract, rd.Start)
		}
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		a.applyOne(sorted[i])
	}
	return nil
}

func (a *Applier) applyOne(rd Redaction) {
	first := true
	for _, si := range a.rm.overlapping(rd.Start, rd.End) {
		seg := a.rm.segs[si]
		original := elementText(seg.text)
		lo := max(rd.Start, seg.start) - seg.start
		hi := min(rd.End, seg.end) - seg.start
		pre, mid, post := original[:lo], original[lo:hi], original[hi:]

		rPr := childEl(seg.run, "rPr")

		setElementText(seg.text, pre)
		delEl := a.makeDeletion(mid, rPr)
		insertAfter(seg.run, delEl)

		if first {
			insEl := a.makeInsertion(rd.Replacement, rPr)
			insertAfter(delEl, insEl)
			forceVisible(insEl)
			if post != "" {
				insertAfter(insEl, makeTextRun(post, rPr, seg.run))
			}
			first = false
		} else if post != "" {
			insertAfter(delEl, makeTextRun(post, rPr, seg.run))
		}
	}
}

// makeTextRun builds a w:r with a space-preserving w:t, cloning the
// source run's properties and attributes so a split is invisible.
func makeTextRun(text string, rPr, source *xmlquery.Node) *xmlquery.Node {
	r := newWordEl("r")
	if source != nil && len(source.Attr) > 0 {
		r.Attr = append([]xmlquery.Attr(nil), source.Attr...)
	}
	if rPr != nil {
		xmlquery.AddChild(r, cloneNode(rPr))
	}
	t := newWordEl("t")
	setAttr(t, "xml", "space", "preserve")
	xmlquery.AddChild(t, newTextNode(text))
	xmlquery.AddChild(r, t)
	return r
}

func (a *Applier) makeDeletion(text string, rPr *xmlquery.Node) *xmlquery.Node {
	del := a.makeRevisionEl("del")
	r := newWordEl("r")
	if rPr != nil {
		xmlquery.AddChild(r, cloneNode(rPr))
	}
	dt := newWordEl("delText")
	setAttr(dt, "xml", "space", "preserve")
	xmlquery.AddChild(dt, newTextNode(text))
	xmlquery.AddChild(r, dt)
	xmlquery.AddChild(del, r)
	return del
}

func (a *Applier) makeInsertion(text string, rPr *xmlquery.Node) *xmlquery.Node {
	ins := a.makeRevisionEl("ins")
	xmlquery.AddChild(ins, makeTextRun(text, rPr, nil))
	return ins
}

func (a *Applier) makeRevisionEl(local string) *xmlquery.Node {
	el := newWordEl(local)
	setAttr(el, "w", "id", strconv.Itoa(a.nextID))
	setAttr(el, "w", "author", a.author)
	setAttr(el, "w", "date", a.now().UTC().Format("2006-01-02T15:04:05Z"))
	a.nextID++
	return el
}

// forceVisible strips hiding properties from the inserted run and forces
// a red label color so the replacement is legible on any background.
func forceVisible(insEl *xmlquery.Node) {
	r := childEl(insEl, "r")
	if r == nil {
		return
	}
	rPr := childEl(r, "rPr")
	if rPr == nil {
		rPr = newWordEl("rPr")
		insertFirst(r, rPr)
	}
	for _, prop := range hidingProps {
		if el := childEl(rPr, prop); el != nil {
			detach(el)
		}
	}
	if el := childEl(rPr, "color"); el != nil {
		detach(el)
	}
	color := newWordEl("color")
	setAttr(color, "w", "val", replacementColor)
	xmlquery.AddChild(rPr, color)
}

// CheckRelationshipRefs re-parses a mutated part and verifies every
// r:id / r:embed / r:link attribute resolves against the ids declared in
// the part's .rels. A nil rels document means no ids are declared.
func CheckRelationshipRefs(part, rels []byte) error {
	declared := map[string]struct{}{}
	if len(rels) > 0 {
		relDoc, err := ParsePart(rels)
		if err != nil {
			return err
		}
		for _, n := range xmlquery.QuerySelectorAll(relDoc, relationshipQuery) {
			if id := attrValue(n, "Id"); id != "" {
				declared[id] = struct{}{}
			}
		}
	}

	doc, err := ParsePart(part)
	if err != nil {
		return err
	}
	var dangling error
	walkElements(doc, func(n *xmlquery.Node) bool {
		for _, attr := range n.Attr {
			if attr.Name.Space != "r" && attr.Name.Space != RelNS && attr.NamespaceURI != RelNS {
				continue
			}
			switch attr.Name.Local {
			case "id", "embed", "link":
				if _, ok := declared[attr.Value]; !ok && dangling == nil {
					dangling = fmt.Errorf("%w: %s:%s=%q on <%s>",
						ErrRelationship, attr.Name.Space, attr.Name.Local, attr.Value, n.Data)
				}
			}
		}
		return dangling == nil
	})
	return dangling
}
