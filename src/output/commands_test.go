package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderCommandPassesThroughSimpleCommand(t *testing.T) {
	cmd := "gcc -c -o main.o main.cpp -Wall"
	assert.Equal(t, cmd, renderCommand(cmd))
}

func TestRenderCommandQuotesSpacesInArguments(t *testing.T) {
	cmd := `ar -rs "my lib.a" obj.o`
	assert.Equal(t, "ar -rs 'my lib.a' obj.o", renderCommand(cmd))
}

func TestRenderCommandFallsBackOnUnterminatedQuote(t *testing.T) {
	cmd := `gcc -o "unterminated`
	assert.Equal(t, cmd, renderCommand(cmd))
}
