// Package resolve turns the union of rule and model spans into one
// non-overlapping, boundary-correct, alias-expanded, document-consistent
// span set. Resolution is deterministic and idempotent: running the
// resolver on its own output returns the same set.
package resolve

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/LegalMarc/marcut/internal/interpret"
	"github.com/LegalMarc/marcut/internal/rules"
	"github.com/LegalMarc/marcut/internal/span"
)

const consistencyConfidence = 0.95

// Labels safe to propagate across the document. DATE, NUMBER, and MONEY
// repeat legitimately and are excluded.
var safeLabels = map[span.Label]struct{}{
	span.LabelName:    {},
	span.LabelOrg:     {},
	span.LabelBrand:   {},
	span.LabelEmail:   {},
	span.LabelSSN:     {},
	span.LabelPhone:   {},
	span.LabelAccount: {},
	span.LabelCard:    {},
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "inc": {}, "llc": {}, "corp": {}, "ltd": {}, "company": {},
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "esq": {}, "dept": {},
}

// Separators that delimit a span's trailing segment for the trim pass.
var (
	reTrailingParen = regexp.MustCompile(`\s*\(([^()]*)\)\s*$`)
	trimSeparators  = []string{", ", " / ", " - "}
)

// Resolver holds the exclusion vocabulary shared with the rule engine.
type Resolver struct {
	vocab *rules.Vocabulary
}

func New(vocab *rules.Vocabulary) *Resolver {
	if vocab == nil {
		vocab = rules.NewVocabulary()
	}
	return &Resolver{vocab: vocab}
}

// Resolve runs the five ordered passes over the candidate set. The result
// is sorted ascending by start and pairwise disjoint.
func (r *Resolver) Resolve(text string, candidates []span.Span) []span.Span {
	spans := dropInvalid(text, candidates)
	spans = mergeOverlaps(text, spans)
	spans = snapToBoundaries(text, spans)
	spans = mergeOverlaps(text, spans) // snapping can pull neighbors into the same token
	spans = r.trimExcludedTails(text, spans)
	spans = r.attachAliases(text, spans)
	spans = r.propagateConsistency(text, spans)
	span.SortForReport(spans)
	return spans
}

func dropInvalid(text string, in []span.Span) []span.Span {
	out := make([]span.Span, 0, len(in))
	for _, s := range in {
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			continue
		}
		if s.Label == "" {
			continue
		}
		s.Text = text[s.Start:s.End]
		out = append(out, s)
	}
	return out
}

// mergeOverlaps resolves every cluster of transitively intersecting spans
// to a single span. The winner is chosen by rank, then length, then
// confidence, then source order, then insertion order; its range is the
// union of the cluster members that share the winning rank, so a
// high-priority span is never widened by lower-priority neighbors.
func mergeOverlaps(text string, in []span.Span) []span.Span {
	if len(in) == 0 {
		return in
	}
	sorted := make([]indexed, len(in))
	for i, s := range in {
		sorted[i] = indexed{s, i}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	var out []span.Span
	for i := 0; i < len(sorted); {
		cluster := []indexed{sorted[i]}
		end := sorted[i].End
		j := i + 1
		for j < len(sorted) && sorted[j].Start < end {
			cluster = append(cluster, sorted[j])
			if sorted[j].End > end {
				end = sorted[j].End
			}
			j++
		}

		winner := cluster[0]
		for _, c := range cluster[1:] {
			if beats(c, winner) {
				winner = c
			}
		}
		merged := winner.Span
		for _, c := range cluster {
			if span.Rank(c.Label) != span.Rank(winner.Label) {
				continue
			}
			if c.Start < merged.Start {
				merged.Start = c.Start
			}
			if c.End > merged.End {
				merged.End = c.End
			}
			if c.Confidence > merged.Confidence {
				merged.Confidence = c.Confidence
			}
		}
		merged.Text = text[merged.Start:merged.End]
		out = append(out, merged)
		i = j
	}
	return out
}

type indexed struct {
	span.Span
	ord int
}

func beats(a, b indexed) bool {
	ra, rb := span.Rank(a.Label), span.Rank(b.Label)
	if ra != rb {
		return ra > rb
	}
	if a.Len() != b.Len() {
		return a.Len() > b.Len()
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if sa, sb := span.SourceOrder(a.Source), span.SourceOrder(b.Source); sa != sb {
		return sa < sb
	}
	return a.ord < b.ord
}

// snapToBoundaries widens spans whose edges fall inside a token so they
// cover whole words. A token is a run of alphanumerics where interior
// apostrophes and hyphens also bind ("Smith-Jones", "O'Brien").
func snapToBoundaries(text string, in []span.Span) []span.Span {
	out := make([]span.Span, 0, len(in))
	for _, s := range in {
		s.Start = expandLeft(text, s.Start)
		s.End = expandRight(text, s.End)
		s.Text = text[s.Start:s.End]
		out = append(out, s)
	}
	return out
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func expandLeft(text string, pos int) int {
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:pos])
		if isTokenRune(r) {
			pos -= size
			continue
		}
		if r == '\'' || r == '-' || r == '’' {
			prev, psize := utf8.DecodeLastRuneInString(text[:pos-size])
			if psize > 0 && isTokenRune(prev) {
				pos -= size
				continue
			}
		}
		break
	}
	return pos
}

func expandRight(text string, pos int) int {
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if isTokenRune(r) {
			pos += size
			continue
		}
		if r == '\'' || r == '-' || r == '’' {
			next, _ := utf8.DecodeRuneInString(text[pos+size:])
			if isTokenRune(next) {
				pos += size
				continue
			}
		}
		break
	}
	return pos
}

// trimExcludedTails shortens spans whose last top-level segment is
// exclusion vocabulary or a jurisdiction formation clause, so
// "Example Holdings, Inc., a Delaware corporation" keeps only the name.
// Only the final separator or a trailing parenthetical is considered.
func (r *Resolver) trimExcludedTails(text string, in []span.Span) []span.Span {
	out := make([]span.Span, 0, len(in))
	for _, s := range in {
		if m := reTrailingParen.FindStringSubmatchIndex(s.Text); m != nil {
			inner := s.Text[m[2]:m[3]]
			if r.tailExcluded(inner) {
				s.End = s.Start + m[0]
				if trimmed := strings.TrimRight(text[s.Start:s.End], " ,;"); len(trimmed) > 0 {
					s.End = s.Start + len(trimmed)
				}
				if s.Start < s.End {
					s.Text = text[s.Start:s.End]
					out = append(out, s)
				}
				continue
			}
		}
		if at, tail := lastTopLevelSegment(s.Text); at >= 0 && r.tailExcluded(tail) {
			trimmed := strings.TrimRight(s.Text[:at], " ,;")
			if len(trimmed) == 0 {
				continue
			}
			s.End = s.Start + len(trimmed)
			s.Text = text[s.Start:s.End]
		}
		out = append(out, s)
	}
	return out
}

func lastTopLevelSegment(s string) (int, string) {
	best := -1
	var tail string
	for _, sep := range trimSeparators {
		if at := strings.LastIndex(s, sep); at > best {
			best = at
			tail = s[at+len(sep):]
		}
	}
	return best, tail
}

func (r *Resolver) tailExcluded(tail string) bool {
	tail = strings.Trim(tail, " ,;")
	if tail == "" {
		return false
	}
	if r.vocab.IsExcluded(tail) || r.vocab.SegmentsExcluded(tail) {
		return true
	}
	return rules.IsJurisdictionClause(", " + tail)
}

// attachAliases re-runs defined-term alias detection against the finalized
// NAME/ORG spans and keeps only alias occurrences not already covered.
func (r *Resolver) attachAliases(text string, in []span.Span) []span.Span {
	aliases := interpret.AttachAliases(text, in, r.vocab)
	for _, a := range aliases {
		if !overlapsAny(in, a) {
			in = append(in, a)
		}
	}
	return in
}

// propagateConsistency adds a span at every uncovered exact, case-sensitive
// occurrence of an already-confirmed safe-label entity. Case-insensitive
// propagation is deliberately not done; a lowercase common word must never
// match an alias.
func (r *Resolver) propagateConsistency(text string, in []span.Span) []span.Span {
	candidates := make(map[string]span.Label)
	var order []string
	for _, s := range in {
		if _, safe := safeLabels[s.Label]; !safe {
			continue
		}
		txt := strings.TrimSpace(s.Text)
		if len(txt) < 4 {
			continue
		}
		if _, stop := stopWords[strings.ToLower(txt)]; stop {
			continue
		}
		if !strings.ContainsFunc(txt, func(r rune) bool { return isTokenRune(r) }) {
			continue
		}
		if _, seen := candidates[txt]; !seen {
			candidates[txt] = s.Label
			order = append(order, txt)
		}
	}

	for _, txt := range order {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(txt) + `\b`)
		if err != nil {
			continue
		}
		for _, m := range re.FindAllStringIndex(text, -1) {
			cand := span.Span{
				Start: m[0], End: m[1], Label: candidates[txt],
				Text: text[m[0]:m[1]], Confidence: consistencyConfidence,
				Source: span.SourceConsistency,
			}
			if !overlapsAny(in, cand) {
				in = append(in, cand)
			}
		}
	}
	return in
}

func overlapsAny(spans []span.Span, s span.Span) bool {
	for _, other := range spans {
		if s.Overlaps(other) {
			return true
		}
	}
	return false
}
