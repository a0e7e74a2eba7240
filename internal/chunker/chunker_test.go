package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeSmallDocumentFastPath(t *testing.T) {
	text := strings.Repeat("a", SmallDocThreshold)
	chunks, err := Make(text, 100, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, Chunk{Start: 0, End: len(text), Text: text}, chunks[0])
}

func TestMakeEmptyInput(t *testing.T) {
	chunks, err := Make("", DefaultMaxLen, DefaultOverlap)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMakeInvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		maxLen  int
		overlap int
	}{
		{"zero max length", 0, 0},
		{"negative max length", -5, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max length", 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Make("some text", tt.maxLen, tt.overlap)
			assert.Error(t, err)
		})
	}
}

func TestMakeCoverageInvariant(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		maxLen  int
		overlap int
	}{
		{"even split", 10000, 2500, 400},
		{"window not dividing evenly", 9973, 2500, 400},
		{"zero overlap adjacent windows", 9000, 1000, 0},
		{"barely over threshold", SmallDocThreshold + 1, 2500, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("x", tt.size)
			chunks, err := Make(text, tt.maxLen, tt.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, 0, chunks[0].Start)
			assert.Equal(t, len(text), chunks[len(chunks)-1].End)
			for i, c := range chunks {
				assert.Equal(t, text[c.Start:c.End], c.Text)
				assert.LessOrEqual(t, c.End-c.Start, tt.maxLen)
				if i > 0 {
					prev := chunks[i-1]
					assert.LessOrEqual(t, c.Start, prev.End, "no gap between windows")
					if tt.overlap == 0 {
						assert.Equal(t, prev.End, c.Start, "zero overlap means adjacent windows")
					} else {
						assert.Equal(t, prev.End-tt.overlap, c.Start)
					}
				}
			}
		})
	}
}
