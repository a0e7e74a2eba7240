package rules

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// EnvExcludedWordsPath points at an optional user-supplied exclusion file.
// Each line is either a plain term (matched whole-string, case-insensitive)
// or a regex when it contains regex metacharacters.
const EnvExcludedWordsPath = "MARCUT_EXCLUDED_WORDS_PATH"

// Boilerplate legal vocabulary that must never be redacted on its own.
// Plural forms are derived automatically.
var baseExcludedTerms = []string{
	"agreement", "section", "article", "recital", "exhibit", "schedule",
	"appendix", "annex", "notice", "resolution", "minutes", "consent",
	"meeting", "vote", "bylaws", "charter", "company", "corporation",
	"board", "board of directors", "stockholder", "stockholders",
	"member", "members", "party", "parties", "purchaser", "seller",
	"target", "counterparty", "dgcl", "act", "law", "statute", "code",
	"regulation",
	// drafting formulas that precede or label entities
	"for value received", "in witness whereof", "now therefore", "whereas",
	"know all men by these presents",
}

// Determiners stripped from the front of a phrase before exclusion lookup,
// so "the Company" is excluded whenever "Company" is.
var determinerPrefixes = []string{
	"the", "a", "an", "this", "that", "such", "each", "any", "certain",
	"both", "all", "these", "those", "every", "either", "neither",
}

var determinerSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(determinerPrefixes))
	for _, d := range determinerPrefixes {
		m[d] = struct{}{}
	}
	return m
}()

// Connectors treats determiners plus generic joiners as vocabulary-neutral
// when deciding whether a phrase is entirely boilerplate.
var connectorSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(determinerPrefixes)+8)
	for _, d := range determinerPrefixes {
		m[d] = struct{}{}
	}
	for _, c := range []string{"and", "or", "of", "for", "de", "la", "if", "&"} {
		m[c] = struct{}{}
	}
	return m
}()

var userRegexMeta = regexp.MustCompile(`[\\^$.*+?{}()\[\]|]`)

// parentheticalPlural rewrites "Agreement(s)" to "agreement" during
// normalization so drafting shorthand hits the vocabulary.
var parentheticalPlural = regexp.MustCompile(`\(s\)$`)

// Vocabulary is the immutable exclusion table shared by the rule engine,
// the model-response interpreter, and the resolver's trim pass.
type Vocabulary struct {
	literals map[string]struct{}
	patterns []*regexp.Regexp
}

// NewVocabulary builds the base vocabulary plus any terms from the file at
// EnvExcludedWordsPath. A missing or unreadable user file is not an error;
// the base table still applies.
func NewVocabulary() *Vocabulary {
	v := &Vocabulary{literals: make(map[string]struct{}, 2*len(baseExcludedTerms))}
	for _, term := range baseExcludedTerms {
		v.literals[term] = struct{}{}
		if !strings.HasSuffix(term, "s") {
			v.literals[term+"s"] = struct{}{}
		}
	}
	if path := os.Getenv(EnvExcludedWordsPath); path != "" {
		v.loadUserFile(path)
	}
	return v
}

func (v *Vocabulary) loadUserFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if userRegexMeta.MatchString(line) {
			if re, err := regexp.Compile("(?i)^(?:" + line + ")$"); err == nil {
				v.patterns = append(v.patterns, re)
			}
			continue
		}
		v.literals[Normalize(line)] = struct{}{}
	}
}

// Normalize lowercases, trims, and folds drafting plurals ("Exhibit(s)")
// so lookups are shape-insensitive.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return parentheticalPlural.ReplaceAllString(s, "")
}

// StripDeterminer removes one leading determiner token, if present.
func StripDeterminer(s string) string {
	trimmed := strings.TrimSpace(s)
	first, rest, ok := strings.Cut(trimmed, " ")
	if !ok {
		return trimmed
	}
	if _, isDet := determinerSet[strings.ToLower(first)]; isDet {
		return strings.TrimSpace(rest)
	}
	return trimmed
}

// IsExcluded reports whether the phrase, with or without a leading
// determiner, is in the exclusion table.
func (v *Vocabulary) IsExcluded(s string) bool {
	if v.matches(Normalize(s)) {
		return true
	}
	if stripped := StripDeterminer(s); stripped != s {
		return v.matches(Normalize(stripped))
	}
	return false
}

func (v *Vocabulary) matches(normalized string) bool {
	if normalized == "" {
		return false
	}
	if _, ok := v.literals[normalized]; ok {
		return true
	}
	for _, re := range v.patterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// IsConnector reports whether a lowercase token is a determiner or generic
// joiner that carries no identifying content.
func IsConnector(tok string) bool {
	_, ok := connectorSet[tok]
	return ok
}

var comboTokenRe = regexp.MustCompile(`[A-Za-z0-9']+|&`)

// SegmentsExcluded reports whether the phrase can be fully segmented into
// excluded terms and connectors, meaning nothing identifying remains.
// "such Stockholders and the Company" is excluded; "Acme Holdings and the
// Company" is not.
func (v *Vocabulary) SegmentsExcluded(s string) bool {
	tokens := comboTokenRe.FindAllString(s, -1)
	if len(tokens) == 0 {
		return false
	}
	norm := make([]string, len(tokens))
	for i, t := range tokens {
		norm[i] = strings.ToLower(t)
	}

	allConnectors := true
	for _, t := range norm {
		if !IsConnector(t) {
			allConnectors = false
			break
		}
	}
	if allConnectors {
		return true
	}

	// dp[i] is true when tokens[i:] segments cleanly.
	n := len(norm)
	dp := make([]bool, n+1)
	dp[n] = true
	for i := n - 1; i >= 0; i-- {
		if IsConnector(norm[i]) && dp[i+1] {
			dp[i] = true
			continue
		}
		for j := i; j < n; j++ {
			if !dp[j+1] {
				continue
			}
			if v.matches(Normalize(strings.Join(norm[i:j+1], " "))) {
				dp[i] = true
				break
			}
		}
	}
	return dp[0]
}
