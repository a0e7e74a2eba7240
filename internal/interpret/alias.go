package interpret

import (
	"regexp"
	"strings"

	"github.com/LegalMarc/marcut/internal/rules"
	"github.com/LegalMarc/marcut/internal/span"
)

const aliasConfidence = 0.85

// Quoted short form immediately after an entity, e.g. (“Public”).
var reAliasIntro = regexp.MustCompile(`^\s*\(\s*["“”]([A-Za-z][A-Za-z'’.\-]*)["”]\s*\)`)

// AttachAliases scans the trailing context of each NAME/ORG span for a
// quoted defined-term alias and emits a span for every later literal
// occurrence of it. The alias must be a token suffix/subset of the full
// name or its initials, and must not be excluded vocabulary.
func AttachAliases(doc string, spans []span.Span, vocab *rules.Vocabulary) []span.Span {
	var out []span.Span
	seen := make(map[string]struct{})
	for _, parent := range spans {
		if parent.Label != span.LabelName && parent.Label != span.LabelOrg {
			continue
		}
		if parent.End > len(doc) {
			continue
		}
		m := reAliasIntro.FindStringSubmatch(doc[parent.End:])
		if m == nil {
			continue
		}
		alias := m[1]
		if _, done := seen[alias+string(parent.Label)]; done {
			continue
		}
		if vocab.IsExcluded(alias) || !aliasDerivedFrom(alias, parent.Text) {
			continue
		}
		seen[alias+string(parent.Label)] = struct{}{}

		introEnd := parent.End + len(m[0])
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(alias) + `\b`)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(doc, -1) {
			if loc[0] < introEnd {
				continue
			}
			out = append(out, span.Span{
				Start: loc[0], End: loc[1], Label: parent.Label,
				Text: doc[loc[0]:loc[1]], Confidence: aliasConfidence, Source: span.SourceAlias,
			})
		}
	}
	return out
}

// aliasDerivedFrom accepts aliases that reuse tokens of the full name
// ("Public" from "Jane Q. Public", "Example" from "Example Holdings, LLC")
// or abbreviate its initials ("EH" from "Example Holdings").
func aliasDerivedFrom(alias, full string) bool {
	trim := func(s string) string { return strings.Trim(s, `.,'’"-`) }
	aliasClean := trim(alias)
	if aliasClean == "" {
		return false
	}
	tokens := strings.Fields(full)
	var initials strings.Builder
	for _, t := range tokens {
		t = trim(t)
		if t == "" {
			continue
		}
		if strings.EqualFold(t, aliasClean) {
			return true
		}
		initials.WriteByte(t[0])
	}
	return strings.EqualFold(initials.String(), aliasClean)
}
