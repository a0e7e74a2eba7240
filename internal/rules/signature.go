package rules

import (
	"strings"

	"github.com/LegalMarc/marcut/internal/span"
)

// detectDefinedTerms emits NAME spans for `Full Name ("Short")` defined-term
// introductions where the quoted short form repeats the surname. Both the
// full name and the quoted term are redacted.
func (e *Engine) detectDefinedTerms(text, scan string, offsets []int) []span.Span {
	var out []span.Span
	for _, m := range reDefinedTermName.FindAllStringSubmatchIndex(scan, -1) {
		fs, fe := m[2], m[3]
		ss, se := m[4], m[5]
		if fs < 0 || ss < 0 {
			continue
		}
		full := scan[fs:fe]
		short := strings.Trim(scan[ss:se], ".'-")
		tokens := strings.Fields(full)
		if len(tokens) == 0 || short == "" {
			continue
		}
		last := strings.Trim(tokens[len(tokens)-1], ".'-")
		if !strings.EqualFold(last, short) {
			continue
		}

		ofs, ofe := toSource(offsets, fs, fe)
		oss, ose := toSource(offsets, ss, se)
		out = append(out,
			span.Span{Start: ofs, End: ofe, Label: span.LabelName, Text: text[ofs:ofe], Confidence: 0.90, Source: span.SourceDefinedTerm},
			span.Span{Start: oss, End: ose, Label: span.LabelName, Text: text[oss:ose], Confidence: 0.88, Source: span.SourceDefinedTerm},
		)
	}
	return out
}

// detectSignatureNames pulls person names off "Name:" lines in signature
// blocks. Side-by-side signature columns separate names with runs of
// spaces, so the line content is split on multi-space gaps and each piece
// is validated against the two-to-three-capitalized-word person shape.
func (e *Engine) detectSignatureNames(text, scan string, offsets []int) []span.Span {
	var out []span.Span
	for _, m := range reSignatureLine.FindAllStringSubmatchIndex(scan, -1) {
		ls, le := m[2], m[3]
		if ls < 0 {
			continue
		}
		line := scan[ls:le]
		pos := 0
		for _, cand := range reMultiSpace.Split(strings.TrimSpace(line), -1) {
			cand = strings.TrimSpace(cand)
			if cand == "" || !reIndividualName.MatchString(cand) {
				continue
			}
			at := strings.Index(line[pos:], cand)
			if at < 0 {
				continue
			}
			s := ls + pos + at
			en := s + len(cand)
			os_, oe := toSource(offsets, s, en)
			out = append(out, span.Span{
				Start: os_, End: oe, Label: span.LabelName,
				Text: text[os_:oe], Confidence: 0.95, Source: span.SourceSignature,
			})
			pos += at + len(cand)
		}
	}
	return out
}
