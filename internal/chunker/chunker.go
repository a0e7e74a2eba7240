// Package chunker splits document text into overlapping windows sized for
// a model's context budget.
package chunker

import "fmt"

// SmallDocThreshold is the length at or below which a document is sent to
// the model as a single chunk regardless of the configured window size.
const SmallDocThreshold = 4000

// Defaults for the sliding window.
const (
	DefaultMaxLen  = 2500
	DefaultOverlap = 400
)

// Chunk is one window of document text. Start and End are byte offsets into
// the source document, with Text == doc[Start:End].
type Chunk struct {
	Start int
	End   int
	Text  string
}

// Make splits text into windows of at most maxLen bytes where consecutive
// windows share overlap bytes. Small documents come back as a single chunk.
// The final chunk always ends exactly at len(text), so the concatenation of
// chunks covers the document with no gaps.
func Make(text string, maxLen, overlap int) ([]Chunk, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("chunker: max length must be positive, got %d", maxLen)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunker: overlap must be non-negative, got %d", overlap)
	}
	if overlap >= maxLen {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than max length %d", overlap, maxLen)
	}
	if text == "" {
		return nil, nil
	}
	n := len(text)
	if n <= SmallDocThreshold || n <= maxLen {
		return []Chunk{{Start: 0, End: n, Text: text}}, nil
	}

	var chunks []Chunk
	i := 0
	for {
		j := min(n, i+maxLen)
		chunks = append(chunks, Chunk{Start: i, End: j, Text: text[i:j]})
		if j == n {
			return chunks, nil
		}
		i = max(0, j-overlap)
	}
}
