package llm

import (
	"context"
	"encoding/json"
	"regexp"
)

// Mock recognizers approximating what a small instruct model flags in a
// legal document. Deterministic so test runs and the demo backend are
// reproducible.
var mockDetectors = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`\b(?:Mr\.|Ms\.|Mrs\.|Dr\.|Prof\.)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`), "NAME"},
	{regexp.MustCompile(`\b[A-Z][a-z]+\s+(?:[A-Z]\.\s+)?[A-Z][a-z]+\b`), "NAME"},
	{regexp.MustCompile(`\b[A-Z][A-Za-z&\s]+?(?:\s(?:Inc\.?|LLC|Corp\.?|Corporation|Ltd\.?|Limited|LP|LLP|Co\.|Company|Holdings|Group|Partners|Capital|Ventures|Bank|Trust))\b`), "ORG"},
	{regexp.MustCompile(`\b(?:Delaware|California|New\s+York|Texas|Nevada|Washington|Massachusetts)\b`), "LOC"},
	{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`), "DATE"},
}

// MockClient fabricates extraction responses without a model server. It
// backs the mock backend mode and the pipeline tests.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

type mockEntity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Generate scans the user text with the canned recognizers and returns
// a well-formed entities envelope.
func (m *MockClient) Generate(_ context.Context, _, userText string, _ Options) (string, error) {
	var entities []mockEntity
	seen := map[string]struct{}{}
	for _, d := range mockDetectors {
		for _, match := range d.re.FindAllString(userText, -1) {
			key := d.label + "\x00" + match
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			entities = append(entities, mockEntity{Text: match, Type: d.label})
		}
	}
	payload, err := json.Marshal(struct {
		Entities []mockEntity `json:"entities"`
	}{Entities: entities})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
