package logs

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs.txt")
	require.NoError(t, InitializeFileLoggerAt(path))

	log.Printf("bridge: fetch of %s started", "people")
	CloseLogger()
	assert.Nil(t, Output)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bridge: fetch of people started")

	CloseLogger()
}
