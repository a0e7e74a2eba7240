// Package rules is the deterministic detector layer. It finds structured
// identifiers (emails, phones, SSNs, cards, URLs, dates, money) and
// conservative entity shapes (legal-suffix organizations, addresses,
// signature-block names) with compiled patterns and context guards.
package rules

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/LegalMarc/marcut/internal/span"
)

// EnvRuleFilter holds a comma-separated allow-list of detector labels.
// Unset means all detectors run; set but empty disables every detector.
const EnvRuleFilter = "MARCUT_RULE_FILTER"

// SignatureRuleLabel gates the signature-block name pass in EnvRuleFilter.
const SignatureRuleLabel = "SIGNATURE"

const orgMaxLength = 60

type guardFunc func(scan string, start, end int) bool

type detector struct {
	label      span.Label
	re         *regexp.Regexp
	confidence float64
	validate   func(match string) bool
	guard      guardFunc
}

// Engine runs the detector table over a document and applies the exclusion
// vocabulary. It is safe for concurrent use once constructed.
type Engine struct {
	vocab     *Vocabulary
	allowed   map[string]bool
	detectors []detector
}

// NewEngine builds an engine around the given vocabulary, reading the
// label allow-list from EnvRuleFilter once at construction.
func NewEngine(vocab *Vocabulary) *Engine {
	if vocab == nil {
		vocab = NewVocabulary()
	}
	return &Engine{
		vocab:     vocab,
		allowed:   filterFromEnv(),
		detectors: detectorTable(),
	}
}

func filterFromEnv() map[string]bool {
	raw, ok := os.LookupEnv(EnvRuleFilter)
	if !ok {
		return nil
	}
	allowed := make(map[string]bool)
	for _, tok := range strings.Split(raw, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			allowed[strings.ToUpper(tok)] = true
		}
	}
	return allowed
}

func (e *Engine) enabled(label string) bool {
	if e.allowed == nil {
		return true
	}
	return e.allowed[label]
}

// Confidence values reflect pattern specificity: formats with structural
// markers score high, broad digit runs and entity shapes score lower.
func detectorTable() []detector {
	return []detector{
		{span.LabelEmail, reEmail, 0.98, nil, nil},
		{span.LabelPhone, rePhone, 0.96, nil, digitGuard},
		{span.LabelSSN, reSSN, 0.99, nil, nil},
		{span.LabelMoney, reMoney, 0.90, nil, nil},
		{span.LabelPercent, rePercent, 0.90, nil, nil},
		{span.LabelNumber, reNumberBracket, 0.70, nil, currencyPrefixGuard},
		{span.LabelDate, reDate, 0.88, nil, wordGuard},
		{span.LabelAccount, reAccount, 0.80, nil, digitGuard},
		{span.LabelSwift, reSwift, 0.92, containsDigit, nil},
		{span.LabelCard, reCard, 0.92, luhnOK, digitGuard},
		{span.LabelURL, reURL, 0.90, nil, urlGuard},
		{span.LabelIP, reIPv4, 0.90, nil, nil},
		{span.LabelIP, reIPv6, 0.90, nil, nil},
		{span.LabelDocID, reDocIDEnvelope, 0.95, nil, nil},
		{span.LabelDocID, reDocIDLabeled, 0.95, nil, nil},
		{span.LabelDocID, reDocIDUUID, 0.95, nil, wordGuard},
		{span.LabelDocID, reDocIDVersion, 0.95, nil, wordGuard},
		{span.LabelDocID, reDocIDPrefix, 0.95, nil, nil},
		{span.LabelOrg, reOrg, 0.75, nil, wordAfterGuard},
		{span.LabelLoc, reAddress, 0.85, nil, nil},
		{span.LabelLoc, reCounty, 0.82, nil, nil},
	}
}

// Detect scans text and returns every raw rule span. Overlap resolution is
// the resolver's job; spans here may nest and overlap freely.
func (e *Engine) Detect(text string) []span.Span {
	scan, offsets := scanText(text)
	var out []span.Span

	for _, d := range e.detectors {
		if !e.enabled(string(d.label)) {
			continue
		}
		for _, m := range d.re.FindAllStringIndex(scan, -1) {
			s, en := m[0], m[1]
			if d.guard != nil && !d.guard(scan, s, en) {
				continue
			}
			os_, oe := toSource(offsets, s, en)
			sub := text[os_:oe]
			label, conf := d.label, d.confidence

			if label == span.LabelURL {
				trimmed := strings.TrimRight(sub, ".,;:!?)]}>\"'")
				if trimmed == "" {
					continue
				}
				oe = os_ + len(trimmed)
				sub = trimmed
			}

			if d.validate != nil && !d.validate(sub) {
				continue
			}

			if label == span.LabelPhone {
				bare := allDigits(sub)
				if bare && e.enabled(string(span.LabelAccount)) && looksLikeAccountContext(scan, s, en) {
					continue
				}
				if bare && !looksLikePhoneContext(scan, s, en) {
					if !e.enabled(string(span.LabelNumber)) {
						continue
					}
					label, conf = span.LabelNumber, 0.70
				}
			}

			if label == span.LabelOrg {
				var ok bool
				os_, oe, sub, ok = e.refineOrg(text, os_, oe, sub)
				if !ok {
					continue
				}
			} else if label == span.LabelLoc && e.vocab.IsExcluded(sub) {
				continue
			}

			out = append(out, span.Span{
				Start: os_, End: oe, Label: label,
				Text: sub, Confidence: conf, Source: span.SourceRule,
			})
		}
	}

	out = append(out, e.detectDefinedTerms(text, scan, offsets)...)
	if e.enabled(SignatureRuleLabel) {
		out = append(out, e.detectSignatureNames(text, scan, offsets)...)
	}
	return out
}

// refineOrg applies the defined-term safeguards that keep boilerplate like
// "the Company" or sentence fragments out of ORG spans.
func (e *Engine) refineOrg(text string, start, end int, sub string) (int, int, string, bool) {
	if m := reJurisdictionTail.FindStringIndex(sub); m != nil {
		if m[0] == 0 {
			return 0, 0, "", false
		}
		sub = strings.TrimRight(sub[:m[0]], " ,;")
		if sub == "" {
			return 0, 0, "", false
		}
		end = start + len(sub)
	}
	if len(sub) > orgMaxLength {
		return 0, 0, "", false
	}
	if containsSentenceBoundary(sub) {
		return 0, 0, "", false
	}
	if e.isGenericOrgSpan(sub) {
		return 0, 0, "", false
	}
	if e.vocab.IsExcluded(sub) {
		return 0, 0, "", false
	}

	// Trim excluded phrase prefixes such as "FOR VALUE RECEIVED, Acme Inc."
	segments := reCommaSplit.Split(sub, -1)
	if len(segments) > 1 {
		trim := 0
		for _, seg := range segments[:len(segments)-1] {
			if seg = strings.TrimSpace(seg); seg != "" && e.vocab.IsExcluded(seg) {
				trim++
			} else {
				break
			}
		}
		if trim > 0 {
			if at := strings.Index(sub, segments[trim]); at > 0 {
				start += at
				sub = sub[at:]
			}
			if e.isGenericOrgSpan(sub) || e.vocab.IsExcluded(sub) {
				return 0, 0, "", false
			}
		}
	}
	return start, end, sub, true
}

// isGenericOrgSpan reports whether everything before the legal suffix is
// connectors and excluded vocabulary, e.g. "the Target Company".
func (e *Engine) isGenericOrgSpan(sub string) bool {
	parts := strings.Fields(sub)
	if len(parts) < 2 {
		return false
	}
	for _, word := range parts[:len(parts)-1] {
		if IsConnector(strings.TrimRight(strings.ToLower(word), ",")) {
			continue
		}
		if e.vocab.matches(Normalize(word)) {
			continue
		}
		return false
	}
	return true
}

// IsJurisdictionClause reports whether s ends a span with a formation
// clause such as ", a Delaware limited liability company". The resolver
// uses this when trimming span tails.
func IsJurisdictionClause(s string) bool {
	return reJurisdictionTail.MatchString(s)
}

var sentenceAbbrevs = map[string]struct{}{
	"Mr": {}, "Mrs": {}, "Ms": {}, "Dr": {}, "St": {},
	"Jr": {}, "Sr": {}, "Inc": {}, "Ltd": {},
}

// containsSentenceBoundary reports a period-then-capital transition that is
// not an entity suffix ("N.A.") or common abbreviation ("Mr. Smith").
func containsSentenceBoundary(s string) bool {
	cleaned := reEntitySuffixPeriods.ReplaceAllString(s, "")
	for _, m := range reSentenceBreak.FindAllStringIndex(cleaned, -1) {
		tok := trailingWord(cleaned[:m[0]])
		if _, abbrev := sentenceAbbrevs[tok]; abbrev {
			continue
		}
		if len(tok) == 1 && tok[0] >= 'A' && tok[0] <= 'Z' {
			continue
		}
		return true
	}
	return false
}

func trailingWord(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			i--
			continue
		}
		break
	}
	return s[i:]
}

func looksLikeAccountContext(scan string, start, end int) bool {
	lo := max(0, start-120)
	if reAccountContext.MatchString(scan[lo:start]) {
		return true
	}
	hi := min(len(scan), end+20)
	return reCurrencyTrail.MatchString(scan[end:hi])
}

func looksLikePhoneContext(scan string, start, end int) bool {
	lo := max(0, start-60)
	if rePhoneContext.MatchString(scan[lo:start]) {
		return true
	}
	hi := min(len(scan), end+30)
	return rePhoneContext.MatchString(scan[end:hi])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func containsDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// digitGuard rejects matches butted against more digits, standing in for
// the (?<!\d) / (?!\d) anchors the source patterns would otherwise need.
func digitGuard(scan string, start, end int) bool {
	if start > 0 && scan[start-1] >= '0' && scan[start-1] <= '9' {
		return false
	}
	if end < len(scan) && scan[end] >= '0' && scan[end] <= '9' {
		return false
	}
	return true
}

// wordGuard rejects matches embedded in a larger word-character run.
func wordGuard(scan string, start, end int) bool {
	if start > 0 && isWordByte(scan[start-1]) {
		return false
	}
	if end < len(scan) && isWordByte(scan[end]) {
		return false
	}
	return true
}

// wordAfterGuard rejects matches whose tail continues into a word, e.g. the
// "Inc" of "Incline".
func wordAfterGuard(scan string, _, end int) bool {
	return end >= len(scan) || !isWordByte(scan[end])
}

// urlGuard keeps bare-domain matches out of email local parts.
func urlGuard(scan string, start, _ int) bool {
	return start == 0 || scan[start-1] != '@'
}

// currencyPrefixGuard keeps "[500,000]" as NUMBER only when it is not the
// amount of "$[500,000]", which the money detector owns.
func currencyPrefixGuard(scan string, start, _ int) bool {
	if start == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(scan[:start])
	switch r {
	case '$', '€', '£', '¥':
		return false
	}
	return true
}
