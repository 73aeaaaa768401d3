package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesCombinedOutput(t *testing.T) {
	e := New()
	out, err := e.Run(".", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", string(out))
}

func TestRunReturnsErrorOnFailure(t *testing.T) {
	e := New()
	_, err := e.Run(".", "exit 7")
	require.Error(t, err)
}

func TestBashCommandUsesPipefail(t *testing.T) {
	argv := BashCommand("false | true")
	assert.Contains(t, argv, "pipefail")
	assert.Equal(t, "false | true", argv[len(argv)-1])
}
