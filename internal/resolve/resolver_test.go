package resolve

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegalMarc/marcut/internal/rules"
	"github.com/LegalMarc/marcut/internal/span"
)

func mkSpan(text string, start, end int, label span.Label, conf float64, src span.Source) span.Span {
	return span.Span{Start: start, End: end, Label: label, Text: text[start:end], Confidence: conf, Source: src}
}

func TestMergeTieBreakPrefersHigherRank(t *testing.T) {
	text := "Contact info@example.com"
	spans := []span.Span{
		mkSpan(text, 0, 9, span.LabelOrg, 0.5, span.SourceLLM),
		mkSpan(text, 8, 24, span.LabelEmail, 0.9, span.SourceRule),
	}

	r := New(rules.NewVocabulary())
	got := r.Resolve(text, spans)
	require.Len(t, got, 1, "overlapping spans collapse to the higher-rank winner")
	assert.Equal(t, span.LabelEmail, got[0].Label)
	assert.Equal(t, 8, got[0].Start)
	assert.Equal(t, 24, got[0].End)
	assert.Equal(t, "info@example.com", got[0].Text)
}

func TestMergeSameRankUnions(t *testing.T) {
	text := "Meridian Holdings International Group"
	spans := []span.Span{
		mkSpan(text, 0, 17, span.LabelOrg, 0.75, span.SourceRule),
		mkSpan(text, 9, 37, span.LabelOrg, 0.70, span.SourceLLM),
	}
	got := mergeOverlaps(text, dropInvalid(text, spans))
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 37, got[0].End)
	assert.Equal(t, text, got[0].Text)
	assert.Equal(t, 0.75, got[0].Confidence, "merged span keeps the best confidence")
}

func TestMergeDropsInvalidSpans(t *testing.T) {
	text := "hello world"
	spans := []span.Span{
		{Start: 5, End: 3, Label: span.LabelName},
		{Start: -2, End: 4, Label: span.LabelName},
		{Start: 0, End: 500, Label: span.LabelName},
		{Start: 0, End: 5, Label: ""},
		mkSpan(text, 6, 11, span.LabelName, 0.9, span.SourceLLM),
	}
	got := mergeOverlaps(text, dropInvalid(text, spans))
	require.Len(t, got, 1)
	assert.Equal(t, "world", got[0].Text)
}

func TestSnapToBoundaries(t *testing.T) {
	text := "Hello World"
	got := snapToBoundaries(text, []span.Span{mkSpan(text, 7, 9, span.LabelName, 0.8, span.SourceLLM)})
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Start)
	assert.Equal(t, 11, got[0].End)
	assert.Equal(t, "World", got[0].Text)
}

func TestSnapKeepsHyphenatedAndPossessiveTokens(t *testing.T) {
	text := "met Smith-Jones today"
	got := snapToBoundaries(text, []span.Span{mkSpan(text, 4, 9, span.LabelName, 0.8, span.SourceLLM)})
	require.Len(t, got, 1)
	assert.Equal(t, "Smith-Jones", got[0].Text)

	text2 := "per O'Brien only"
	got2 := snapToBoundaries(text2, []span.Span{mkSpan(text2, 6, 11, span.LabelName, 0.8, span.SourceLLM)})
	require.Len(t, got2, 1)
	assert.Equal(t, "O'Brien", got2[0].Text)
}

func TestTrimExcludedTail(t *testing.T) {
	text := "by Example Holdings, Inc., a Delaware corporation as guarantor"
	entity := "Example Holdings, Inc., a Delaware corporation"
	start := strings.Index(text, "Example")
	s := mkSpan(text, start, start+len(entity), span.LabelOrg, 0.75, span.SourceRule)
	require.Equal(t, entity, s.Text)

	r := New(rules.NewVocabulary())
	got := r.trimExcludedTails(text, []span.Span{s})
	require.Len(t, got, 1)
	assert.Equal(t, "Example Holdings, Inc.", got[0].Text)
	assert.True(t, got[0].Valid(text))
}

func TestTrimTrailingParenthetical(t *testing.T) {
	text := "with Example Holdings, Inc. (a Delaware corporation) as agent"
	entity := "Example Holdings, Inc. (a Delaware corporation)"
	start := strings.Index(text, "Example")
	s := mkSpan(text, start, start+len(entity), span.LabelOrg, 0.75, span.SourceRule)
	require.Equal(t, entity, s.Text)

	r := New(rules.NewVocabulary())
	got := r.trimExcludedTails(text, []span.Span{s})
	require.Len(t, got, 1)
	assert.Equal(t, "Example Holdings, Inc.", got[0].Text)
}

func TestTrimLeavesInteriorCommasAlone(t *testing.T) {
	text := "Smith, Jones & Ortega, LLP"
	s := mkSpan(text, 0, len(text), span.LabelOrg, 0.75, span.SourceRule)
	r := New(rules.NewVocabulary())
	got := r.trimExcludedTails(text, []span.Span{s})
	require.Len(t, got, 1)
	assert.Equal(t, text, got[0].Text)
}

func TestConsistencyPropagation(t *testing.T) {
	text := `Jane Q. Public signed first. Later, Jane Q. Public countersigned.`
	spans := []span.Span{mkSpan(text, 0, 14, span.LabelName, 0.9, span.SourceLLM)}

	r := New(rules.NewVocabulary())
	got := r.Resolve(text, spans)
	require.Len(t, got, 2, "the second literal occurrence gains a span")
	assert.Equal(t, span.SourceConsistency, got[1].Source)
	assert.Equal(t, "Jane Q. Public", got[1].Text)
	assert.Equal(t, 0.95, got[1].Confidence)
}

func TestConsistencySkipsUnsafeShortAndStopCandidates(t *testing.T) {
	text := `On January 5, 2024 and again on January 5, 2024 the company met. Ana met Ana.`
	spans := []span.Span{
		mkSpan(text, 3, 18, span.LabelDate, 0.88, span.SourceRule), // DATE is not propagated
		mkSpan(text, 65, 68, span.LabelName, 0.9, span.SourceLLM),  // "Ana" is under 4 chars
	}
	r := New(rules.NewVocabulary())
	got := r.Resolve(text, spans)
	assert.Len(t, got, 2, "no propagation for unsafe or short candidates")
}

func TestResolveAttachesAliases(t *testing.T) {
	text := `Example Holdings, LLC ("Example") is party. Example shall pay promptly.`
	spans := []span.Span{mkSpan(text, 0, 21, span.LabelOrg, 0.75, span.SourceRule)}

	r := New(rules.NewVocabulary())
	got := r.Resolve(text, spans)
	// The later mention arrives via alias attachment; the quoted
	// introduction itself is then picked up by consistency propagation.
	require.Len(t, got, 3)
	for _, s := range got[1:] {
		assert.Equal(t, span.LabelOrg, s.Label)
		assert.Equal(t, "Example", s.Text)
	}
	assert.Equal(t, span.SourceConsistency, got[1].Source)
	assert.Equal(t, span.SourceAlias, got[2].Source)
}

func TestResolveIdempotent(t *testing.T) {
	text := `Jane Q. Public ("Public") and Example Holdings, Inc., a Delaware corporation. Public notified info@example.com twice. Jane Q. Public agreed.`
	spans := []span.Span{
		mkSpan(text, 0, 14, span.LabelName, 0.9, span.SourceLLM),
		mkSpan(text, 30, 76, span.LabelOrg, 0.75, span.SourceRule),
		mkSpan(text, 94, 110, span.LabelEmail, 0.98, span.SourceRule),
	}

	r := New(rules.NewVocabulary())
	once := r.Resolve(text, spans)
	twice := r.Resolve(text, once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("resolver is not idempotent (-once +twice):\n%s", diff)
	}
	for i := 1; i < len(once); i++ {
		assert.GreaterOrEqual(t, once[i].Start, once[i-1].End, "output spans are disjoint and ordered")
	}
}

func TestResolveOutputOrdering(t *testing.T) {
	text := "alpha beta gamma delta epsilon"
	spans := []span.Span{
		mkSpan(text, 17, 22, span.LabelName, 0.9, span.SourceLLM),
		mkSpan(text, 0, 5, span.LabelOrg, 0.8, span.SourceLLM),
		mkSpan(text, 11, 16, span.LabelEmail, 0.98, span.SourceRule),
	}
	r := New(rules.NewVocabulary())
	got := r.Resolve(text, spans)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Start, got[i].Start)
	}
}
