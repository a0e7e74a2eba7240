// Package span defines the redaction span model shared by the rule engine,
// the model-response interpreter, and the resolver. Offsets are half-open
// byte ranges into the extracted document text.
package span

import (
	"fmt"
	"sort"
)

// Label classifies what a span contains. The set is closed: anything a
// detector or the model produces is normalized into one of these or dropped.
type Label string

const (
	LabelName    Label = "NAME"
	LabelOrg     Label = "ORG"
	LabelBrand   Label = "BRAND"
	LabelLoc     Label = "LOC"
	LabelEmail   Label = "EMAIL"
	LabelPhone   Label = "PHONE"
	LabelSSN     Label = "SSN"
	LabelMoney   Label = "MONEY"
	LabelPercent Label = "PERCENT"
	LabelDate    Label = "DATE"
	LabelURL     Label = "URL"
	LabelIP      Label = "IP"
	LabelAccount Label = "ACCOUNT"
	LabelSwift   Label = "SWIFT"
	LabelNumber  Label = "NUMBER"
	LabelCard    Label = "CARD"
	LabelDocID   Label = "DOCID"
)

// Known reports whether l is a member of the closed label set.
func Known(l Label) bool {
	_, ok := labelRanks[l]
	return ok
}

var labelRanks = map[Label]int{
	LabelEmail:   3,
	LabelPhone:   3,
	LabelSSN:     3,
	LabelCard:    3,
	LabelAccount: 3,
	LabelSwift:   3,
	LabelURL:     3,
	LabelIP:      3,
	LabelDocID:   3,
	LabelName:    2,
	LabelOrg:     2,
	LabelBrand:   2,
	LabelLoc:     2,
	LabelMoney:   1,
	LabelPercent: 1,
	LabelNumber:  1,
	LabelDate:    1,
}

// Rank returns the merge priority of a label. When overlapping spans merge,
// the higher-ranked label wins the union. Unknown labels rank lowest.
func Rank(l Label) int {
	return labelRanks[l]
}

// Source records which stage produced a span. It participates in merge
// tie-breaking, so the ordering of the constants below is meaningful.
type Source string

const (
	SourceRule        Source = "rule"
	SourceSignature   Source = "rule_signature"
	SourceDefinedTerm Source = "rule_defined_term"
	SourceLLM         Source = "llm"
	SourceConsistency Source = "consistency"
	SourceAlias       Source = "alias"
)

var sourceOrder = map[Source]int{
	SourceRule:        0,
	SourceSignature:   1,
	SourceDefinedTerm: 2,
	SourceLLM:         3,
	SourceConsistency: 4,
	SourceAlias:       5,
}

// SourceOrder returns a stable ordinal for tie-breaking. Unknown sources
// sort last.
func SourceOrder(s Source) int {
	if n, ok := sourceOrder[s]; ok {
		return n
	}
	return len(sourceOrder)
}

// Span is one region of document text slated for redaction.
type Span struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Label      Label   `json:"label"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Valid reports whether the span's offsets are inside doc and its Text
// matches the slice it claims to cover.
func (s Span) Valid(doc string) bool {
	if s.Start < 0 || s.End > len(doc) || s.Start >= s.End {
		return false
	}
	return s.Text == doc[s.Start:s.End]
}

// Resync rewrites Text from the document so the offset invariant holds
// after any offset mutation.
func (s *Span) Resync(doc string) error {
	if s.Start < 0 || s.End > len(doc) || s.Start >= s.End {
		return fmt.Errorf("span [%d,%d) out of range for document of length %d", s.Start, s.End, len(doc))
	}
	s.Text = doc[s.Start:s.End]
	return nil
}

// Len returns the byte length of the span.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two half-open ranges intersect.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// SortForReport orders spans ascending by start, breaking ties by
// descending length so an enclosing span precedes one it contains.
func SortForReport(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Len() > spans[j].Len()
	})
}
