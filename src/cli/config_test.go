package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigMissingFileIsNotAnError(t *testing.T) {
	config, err := ReadConfig(filepath.Join(t.TempDir(), "nope.matmakeconfig"))
	require.NoError(t, err)
	assert.Equal(t, 0, config.Matmake.NumThreads)
	assert.Empty(t, config.Matmake.Compiler)
}

func TestReadConfigParsesMatmakeSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".matmakeconfig")
	require.NoError(t, os.WriteFile(path, []byte("[matmake]\nnumthreads = 4\ncompiler = clang\n"), 0644))

	config, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, config.Matmake.NumThreads)
	assert.Equal(t, "clang", config.Matmake.Compiler)
}
