package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBeforeInitializeIsSafe(t *testing.T) {
	log := Get(Rules)
	require.NotNil(t, log)
	log.Infow("dropped on the floor", "key", "value")
}

func TestInitializeWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marcut.log")
	require.NoError(t, Initialize(true, path))

	Get(Docx).Debugw("flattened revisions", "paragraphs", 3)
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "docx")
	assert.Contains(t, string(data), "flattened revisions")
	assert.Contains(t, string(data), `"paragraphs":3`)
}
