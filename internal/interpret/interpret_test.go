package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegalMarc/marcut/internal/rules"
	"github.com/LegalMarc/marcut/internal/span"
)

func TestParseRobustness(t *testing.T) {
	clean := `{"entities": [{"text": "Jane Q. Public", "type": "PERSON"}]}`
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"clean JSON", clean, false},
		{"markdown fence", "```json\n" + clean + "\n```", false},
		{"bare fence", "```\n" + clean + "\n```", false},
		{"prefix prose", "Here are the entities: " + clean, false},
		{"suffix prose", clean + " Let me know if you need more.", false},
		{"trailing comma", `{"entities": [{"text": "Jane Q. Public", "type": "PERSON"},]}`, false},
		{"line comments", "{\"entities\": [ // people\n{\"text\": \"Jane Q. Public\", \"type\": \"PERSON\"}]}", false},
		{"truncated object", `{"entities": [{"text": "Jane`, true},
		{"no JSON at all", `I could not find any entities.`, true},
		{"empty reply", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrResponseParse)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Jane Q. Public", got[0].Text)
			assert.Equal(t, span.LabelName, got[0].Label)
		})
	}
}

func TestParseEquivalenceAcrossDamage(t *testing.T) {
	clean := `{"entities": [{"text": "Meridian Holdings, Inc.", "type": "ORG"}]}`
	damaged := "```json\n" + `{"entities": [{"text": "Meridian Holdings, Inc.", "type": "ORG"},]}` + "\n```"

	a, err := Parse(clean)
	require.NoError(t, err)
	b, err := Parse(damaged)
	require.NoError(t, err)
	assert.Equal(t, a, b, "fenced and comma-damaged payloads decode to the same candidates")
}

func TestMapLabel(t *testing.T) {
	tests := []struct {
		in   string
		want span.Label
		ok   bool
	}{
		{"PERSON", span.LabelName, true},
		{"human", span.LabelName, true},
		{"ORGANIZATION", span.LabelOrg, true},
		{"gpe", span.LabelLoc, true},
		{"PRODUCT", span.LabelBrand, true},
		{"CURRENCY", span.LabelMoney, true},
		{"QUANTITY", span.LabelNumber, true},
		{"DATE", span.LabelDate, true},
		{"WIZARD", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := MapLabel(tt.in)
		assert.Equal(t, tt.ok, ok, "label %q", tt.in)
		assert.Equal(t, tt.want, got, "label %q", tt.in)
	}
}

func TestInterpretRecoversOffsets(t *testing.T) {
	window := "This Agreement is between Jane Q. Public and Meridian Holdings, Inc. whereby Jane Q. Public agrees."
	raw := `{"entities": [
		{"text": "Jane Q. Public", "type": "PERSON"},
		{"text": "Meridian Holdings, Inc.", "type": "ORG"}
	]}`

	in := New(rules.NewVocabulary())
	got, err := in.Interpret(raw, window, 1000)
	require.NoError(t, err)
	require.Len(t, got, 3, "both occurrences of the person plus the organization")

	for _, s := range got {
		assert.Equal(t, span.SourceLLM, s.Source)
		assert.Equal(t, window[s.Start-1000:s.End-1000], s.Text, "offsets are window-relative plus the window offset")
	}
	assert.Equal(t, span.LabelName, got[0].Label)
	assert.Equal(t, span.LabelOrg, got[1].Label)
}

func TestInterpretDropsInvalidCandidates(t *testing.T) {
	window := "The Agreement and the Board met with Smith at the Company."
	raw := `{"entities": [
		{"text": "Agreement", "type": "ORG"},
		{"text": "the Company", "type": "ORG"},
		{"text": "Smith", "type": "PERSON"},
		{"text": "Anything", "type": "WIZARD"}
	]}`

	in := New(rules.NewVocabulary())
	got, err := in.Interpret(raw, window, 0)
	require.NoError(t, err)
	assert.Empty(t, got, "boilerplate, single-token names, and unknown labels are all dropped")
}

func TestSplitCleanStripsBoilerplate(t *testing.T) {
	in := New(rules.NewVocabulary())
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"prefix boilerplate", "FOR VALUE RECEIVED, Energize Holdings, Inc.", "Energize Holdings, Inc."},
		{"label prefix", "Seller: Energize Holdings, Inc.", "Energize Holdings, Inc."},
		{"all boilerplate", "Agreement, Section, Exhibit", ""},
		{"clean passthrough", "Energize Holdings, Inc.", "Energize Holdings, Inc."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, in.splitClean(tt.in))
		})
	}
}

func TestAttachAliases(t *testing.T) {
	doc := `Jane Q. Public ("Public") and Example Holdings, LLC ("Example") are parties. Public shall notify Example. The word Public appears again.`
	vocab := rules.NewVocabulary()
	parents := []span.Span{
		{Start: 0, End: 14, Label: span.LabelName, Text: "Jane Q. Public"},
		{Start: 30, End: 51, Label: span.LabelOrg, Text: "Example Holdings, LLC"},
	}
	for _, p := range parents {
		require.Equal(t, p.Text, doc[p.Start:p.End])
	}

	got := AttachAliases(doc, parents, vocab)
	byLabel := map[span.Label]int{}
	for _, s := range got {
		byLabel[s.Label]++
		assert.Equal(t, span.SourceAlias, s.Source)
		assert.True(t, s.Valid(doc))
		assert.Greater(t, s.Start, 51, "the introduction itself is not re-emitted")
	}
	assert.Equal(t, 2, byLabel[span.LabelName], "both later occurrences of Public")
	assert.Equal(t, 1, byLabel[span.LabelOrg])
}

func TestAttachAliasesRejectsUnderivedOrExcluded(t *testing.T) {
	vocab := rules.NewVocabulary()

	t.Run("alias not derived from name", func(t *testing.T) {
		doc := `Jane Q. Public ("Executive") shall serve. Executive reports quarterly.`
		parents := []span.Span{{Start: 0, End: 14, Label: span.LabelName, Text: "Jane Q. Public"}}
		assert.Empty(t, AttachAliases(doc, parents, vocab))
	})
	t.Run("excluded vocabulary alias", func(t *testing.T) {
		doc := `Company Holdings, Inc. ("Company") agrees. The Company shall pay.`
		parents := []span.Span{{Start: 0, End: 22, Label: span.LabelOrg, Text: "Company Holdings, Inc."}}
		assert.Empty(t, AttachAliases(doc, parents, vocab))
	})
	t.Run("initials abbreviation accepted", func(t *testing.T) {
		doc := `Example Holdings ("EH") is the issuer. EH shall deliver the notes.`
		parents := []span.Span{{Start: 0, End: 16, Label: span.LabelOrg, Text: "Example Holdings"}}
		got := AttachAliases(doc, parents, vocab)
		require.Len(t, got, 1)
		assert.Equal(t, "EH", got[0].Text)
	})
}
