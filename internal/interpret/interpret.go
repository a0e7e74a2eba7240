// Package interpret turns free-form model replies into validated redaction
// spans. Models wrap JSON in markdown fences, prepend prose, and leave
// trailing commas, so decoding is a recovery pipeline rather than a single
// json.Unmarshal. Candidate entities are shape-checked and then located in
// the source window by exact literal search; the model's own offsets are
// never trusted.
package interpret

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/LegalMarc/marcut/internal/rules"
	"github.com/LegalMarc/marcut/internal/span"
)

// ErrResponseParse marks a reply with no recoverable JSON object. The
// caller treats it as retryable.
var ErrResponseParse = errors.New("no valid JSON object in model response")

// llmConfidence is assigned to every model-derived span; the resolver may
// upgrade it during merging.
const llmConfidence = 0.70

var (
	reCodeFence     = regexp.MustCompile("(?is)```(?:json)?\\s*\\n?([\\s\\S]*?)```")
	reLineComment   = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,\s*([\]}])`)
	reSegmentDelim  = regexp.MustCompile(`(,\s*|:\s*|;\s*|\n)`)
	reNameToken     = regexp.MustCompile(`^[A-Z][a-z'’.-]*$`)
	reOrgToken      = regexp.MustCompile(`^[A-Z][A-Za-z&'’.-]*$`)
	reOrgDesignator = regexp.MustCompile(`\b(Inc\.?|LLC|L\.L\.C\.|Corp\.?|Corporation|Ltd\.?|Limited|LP|L\.P\.|LLP|L\.L\.P\.|Co\.?|Company|GmbH|AG|S\.A\.|B\.V\.|N\.V\.|PLC|Pty|KK|Holdings|Partners|Capital|Group|Management|Ventures|Bank|Trust|University)\b`)
	reBoundarySafe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 '&.,-]*[A-Za-z0-9]$`)
)

type entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type envelope struct {
	Entities []entity `json:"entities"`
}

// recoverJSON extracts and repairs the JSON payload of a model reply.
func recoverJSON(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	var payload string
	if m := reCodeFence.FindStringSubmatch(cleaned); m != nil {
		payload = strings.TrimSpace(m[1])
	} else {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start == -1 || end <= start {
			return "", fmt.Errorf("%w: no object braces found", ErrResponseParse)
		}
		payload = cleaned[start : end+1]
	}
	payload = reLineComment.ReplaceAllString(payload, "")
	payload = reTrailingComma.ReplaceAllString(payload, "$1")
	return payload, nil
}

// Parse decodes a model reply into its entity list, repairing the common
// failure shapes first. Returns ErrResponseParse when nothing decodable
// remains.
func Parse(raw string) ([]Candidate, error) {
	payload, err := recoverJSON(raw)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseParse, err)
	}
	out := make([]Candidate, 0, len(env.Entities))
	for _, e := range env.Entities {
		label, ok := MapLabel(e.Type)
		if !ok {
			continue
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		out = append(out, Candidate{Text: text, Label: label})
	}
	return out, nil
}

// Candidate is a normalized entity the model proposed, before offset
// recovery.
type Candidate struct {
	Text  string
	Label span.Label
}

// MapLabel folds the model's label vocabulary onto the closed label set.
// Unknown labels are dropped, never defaulted.
func MapLabel(raw string) (span.Label, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "NAME", "PERSON", "HUMAN", "INDIVIDUAL":
		return span.LabelName, true
	case "ORG", "ORGANIZATION", "COMPANY", "INSTITUTION", "BUSINESS":
		return span.LabelOrg, true
	case "BRAND", "PRODUCT", "SERVICE":
		return span.LabelBrand, true
	case "LOC", "LOCATION", "GPE", "PLACE", "ADDRESS":
		return span.LabelLoc, true
	case "MONEY", "CURRENCY":
		return span.LabelMoney, true
	case "NUMBER", "QUANTITY", "COUNT", "AMOUNT":
		return span.LabelNumber, true
	case "DATE":
		return span.LabelDate, true
	}
	return "", false
}

// Interpreter validates candidates against the shared exclusion vocabulary
// and recovers their offsets inside a chunk window.
type Interpreter struct {
	vocab *rules.Vocabulary
}

func New(vocab *rules.Vocabulary) *Interpreter {
	if vocab == nil {
		vocab = rules.NewVocabulary()
	}
	return &Interpreter{vocab: vocab}
}

// Interpret parses raw and returns spans positioned in document
// coordinates: window is doc[windowOffset:windowOffset+len(window)].
func (in *Interpreter) Interpret(raw, window string, windowOffset int) ([]span.Span, error) {
	candidates, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	var all []span.Span
	for _, c := range candidates {
		text := in.splitClean(c.Text)
		if text == "" {
			continue
		}
		for _, s := range in.findOccurrences(window, text, c.Label) {
			s.Start += windowOffset
			s.End += windowOffset
			all = append(all, s)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End < all[j].End
	})
	type key struct {
		start, end int
		label      span.Label
	}
	seen := make(map[key]struct{}, len(all))
	out := all[:0]
	for _, s := range all {
		k := key{s.Start, s.End, s.Label}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// splitClean removes boilerplate segments the model glued onto an entity,
// keeping contiguous valid chains with their separators:
// "FOR VALUE RECEIVED, Energize Holdings, Inc." -> "Energize Holdings, Inc."
func (in *Interpreter) splitClean(text string) string {
	parts := reSegmentDelim.Split(text, -1)
	delims := reSegmentDelim.FindAllString(text, -1)

	var b strings.Builder
	lastKept := -1
	for i, seg := range parts {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		if in.vocab.IsExcluded(seg) {
			continue
		}
		if lastKept != -1 && i == lastKept+1 {
			b.WriteString(delims[i-1])
		}
		b.WriteString(seg)
		lastKept = i
	}
	return strings.TrimSpace(b.String())
}

// validCandidate applies shape rules that cut model noise before the text
// is searched for.
func (in *Interpreter) validCandidate(text string, label span.Label) bool {
	s := strings.TrimSpace(text)
	if s == "" || in.vocab.IsExcluded(s) {
		return false
	}
	if label != span.LabelName && label != span.LabelOrg {
		return true
	}
	toks := strings.Fields(s)
	if len(toks) < 2 {
		return false
	}
	switch label {
	case span.LabelName:
		capLike := 0
		for _, t := range toks {
			if reNameToken.MatchString(t) {
				capLike++
			}
		}
		if capLike < max(2, len(toks)-1) {
			return false
		}
	case span.LabelOrg:
		if !reOrgDesignator.MatchString(s) {
			capLike := 0
			for _, t := range toks {
				if reOrgToken.MatchString(t) {
					capLike++
				}
			}
			if capLike < 2 {
				return false
			}
		}
	}
	return true
}

// findOccurrences locates every exact occurrence of entity in window.
// Word-boundary matching is used when the literal starts and ends on a
// word character; otherwise a plain substring scan.
func (in *Interpreter) findOccurrences(window, entity string, label span.Label) []span.Span {
	entity = strings.TrimSpace(entity)
	if !in.validCandidate(entity, label) {
		return nil
	}

	var out []span.Span
	if reBoundarySafe.MatchString(entity) {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(entity) + `\b`)
		if err == nil {
			for _, m := range re.FindAllStringIndex(window, -1) {
				out = append(out, span.Span{
					Start: m[0], End: m[1], Label: label,
					Text: window[m[0]:m[1]], Confidence: llmConfidence, Source: span.SourceLLM,
				})
			}
			return out
		}
	}
	for from := 0; ; {
		at := strings.Index(window[from:], entity)
		if at < 0 {
			break
		}
		start := from + at
		out = append(out, span.Span{
			Start: start, End: start + len(entity), Label: label,
			Text: entity, Confidence: llmConfidence, Source: span.SourceLLM,
		})
		from = start + 1
	}
	return out
}
