package docx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplier(t *testing.T, data []byte) *Applier {
	t.Helper()
	doc, err := ParsePart(data)
	require.NoError(t, err)
	a := NewApplier(doc, "Marcut")
	a.now = func() time.Time { return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestApplyTracksChanges(t *testing.T) {
	in := wrapDoc(`<w:p><w:r><w:rPr><w:b></w:b></w:rPr><w:t xml:space="preserve">SSN: 123-45-6789 ok</w:t></w:r></w:p>`)
	a := newTestApplier(t, in)
	require.Equal(t, "SSN: 123-45-6789 ok\n", a.Text())

	start := strings.Index(a.Text(), "123")
	require.NoError(t, a.Apply([]Redaction{{Start: start, End: start + len("123-45-6789"), Replacement: "[SSN]"}}))

	out := string(Serialize(a.doc))
	assert.Contains(t, out, "<w:del")
	assert.Contains(t, out, "<w:delText")
	assert.Contains(t, out, "123-45-6789", "the removed text survives inside the tracked deletion")
	assert.Contains(t, out, "[SSN]")
	assert.Contains(t, out, `w:author="Marcut"`)
	assert.Contains(t, out, `w:date="2026-08-23T12:00:00Z"`)
	assert.Contains(t, out, "FF0000", "the replacement label is forced red")
}

// Accepting the tracked changes we produced must yield the redacted text.
func TestApplyThenAcceptRoundTrip(t *testing.T) {
	in := wrapDoc(`<w:p><w:r><w:t xml:space="preserve">SSN: 123-45-6789 ok</w:t></w:r></w:p>`)
	a := newTestApplier(t, in)
	start := strings.Index(a.Text(), "123")
	require.NoError(t, a.Apply([]Redaction{{Start: start, End: start + len("123-45-6789"), Replacement: "[SSN]"}}))

	out, changed, err := FlattenRevisions(Serialize(a.doc))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "SSN: [SSN] ok\n", flattenedText(t, out))
}

func TestApplySpansAcrossRuns(t *testing.T) {
	in := wrapDoc(`<w:p>` +
		`<w:r><w:t xml:space="preserve">John </w:t></w:r>` +
		`<w:r><w:rPr><w:i></w:i></w:rPr><w:t xml:space="preserve">Smith agrees</w:t></w:r>` +
		`</w:p>`)
	a := newTestApplier(t, in)
	require.Equal(t, "John Smith agrees\n", a.Text())

	require.NoError(t, a.Apply([]Redaction{{Start: 0, End: len("John Smith"), Replacement: "[NAME]"}}))

	out, _, err := FlattenRevisions(Serialize(a.doc))
	require.NoError(t, err)
	assert.Equal(t, "[NAME] agrees\n", flattenedText(t, out))
	assert.Contains(t, string(out), "<w:i", "the trailing split keeps the run's formatting")
}

func TestApplyMultipleRedactionsInOneRun(t *testing.T) {
	text := "Call 555-123-4567 or 555-987-6543 now"
	in := wrapDoc(`<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`)
	a := newTestApplier(t, in)

	first := strings.Index(text, "555-123")
	second := strings.Index(text, "555-987")
	require.NoError(t, a.Apply([]Redaction{
		{Start: first, End: first + 12, Replacement: "[PHONE]"},
		{Start: second, End: second + 12, Replacement: "[PHONE]"},
	}))

	out, _, err := FlattenRevisions(Serialize(a.doc))
	require.NoError(t, err)
	assert.Equal(t, "Call [PHONE] or [PHONE] now\n", flattenedText(t, out))
}

func TestApplyRejectsContractViolations(t *testing.T) {
	in := wrapDoc(`<w:p><w:r><w:t>alpha</w:t></w:r></w:p><w:p><w:r><w:t>beta</w:t></w:r></w:p>`)

	tests := []struct {
		name string
		reds []Redaction
	}{
		{"end past text", []Redaction{{Start: 0, End: 99, Replacement: "[X]"}}},
		{"inverted span", []Redaction{{Start: 3, End: 3, Replacement: "[X]"}}},
		{"negative start", []Redaction{{Start: -1, End: 2, Replacement: "[X]"}}},
		{"overlapping spans", []Redaction{
			{Start: 0, End: 4, Replacement: "[X]"},
			{Start: 2, End: 5, Replacement: "[Y]"},
		}},
		{"start on paragraph break", []Redaction{{Start: 5, End: 7, Replacement: "[X]"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApplier(t, in)
			err := a.Apply(tt.reds)
			require.ErrorIs(t, err, ErrOffsetContract)
			assert.NotContains(t, string(Serialize(a.doc)), "<w:del", "a rejected batch leaves the part untouched")
		})
	}
}

func TestApplierSeedsRevisionIDsPastExisting(t *testing.T) {
	in := wrapDoc(`<w:p>` +
		`<w:ins w:id="7" w:author="R" w:date="2024-01-01T00:00:00Z"><w:r><w:t>existing</w:t></w:r></w:ins>` +
		`<w:r><w:t xml:space="preserve"> tail</w:t></w:r>` +
		`</w:p>`)
	a := newTestApplier(t, in)
	require.NoError(t, a.Apply([]Redaction{{Start: 0, End: 8, Replacement: "[X]"}}))
	assert.Contains(t, string(Serialize(a.doc)), `w:id="8"`, "new revisions continue after the highest existing id")
}

func TestCheckRelationshipRefs(t *testing.T) {
	part := []byte(`<?xml version="1.0"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<w:body><w:p><w:r><w:drawing r:embed="rId5"></w:drawing></w:r></w:p></w:body></w:document>`)
	rels := []byte(`<?xml version="1.0"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId5" Type="image" Target="media/image1.png"></Relationship>` +
		`</Relationships>`)

	assert.NoError(t, CheckRelationshipRefs(part, rels))

	badRels := []byte(`<?xml version="1.0"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="image" Target="media/image1.png"></Relationship>` +
		`</Relationships>`)
	require.ErrorIs(t, CheckRelationshipRefs(part, badRels), ErrRelationship)
	require.ErrorIs(t, CheckRelationshipRefs(part, nil), ErrRelationship)
}

func TestRunMapIndexesTablesAndBreaks(t *testing.T) {
	in := wrapDoc(`<w:p><w:r><w:t>One</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`<w:p><w:r><w:t>Two</w:t></w:r></w:p>`)
	doc, err := ParsePart(in)
	require.NoError(t, err)
	rm := NewRunMap(doc)
	assert.Equal(t, "One\nCell\nTwo\n", rm.Text)

	assert.Equal(t, -1, rm.segmentAt(3), "paragraph breaks are unmapped")
	si := rm.segmentAt(4)
	require.GreaterOrEqual(t, si, 0)
	assert.Equal(t, "Cell", elementText(rm.segs[si].text))
}

func TestRunMapSkipsDeletedText(t *testing.T) {
	in := wrapDoc(`<w:p>` +
		`<w:r><w:t xml:space="preserve">kept </w:t></w:r>` +
		`<w:del w:id="2" w:author="R" w:date="2024-01-01T00:00:00Z"><w:r><w:delText>gone</w:delText></w:r></w:del>` +
		`</w:p>`)
	doc, err := ParsePart(in)
	require.NoError(t, err)
	assert.Equal(t, "kept \n", NewRunMap(doc).Text)
}
