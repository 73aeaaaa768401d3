package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeBasicWords(t *testing.T) {
	toks := Tokenize("cpp = c++ -Wall", 1)
	var texts []string
	for _, tk := range toks {
		texts = append(texts, tk.Text)
	}
	assert.Equal(t, []string{"cpp", "=", "c", "++", "-Wall"}, texts)
}

func TestTokenizeTracksLocation(t *testing.T) {
	toks := Tokenize("  src = main.cpp", 5)
	assert.Equal(t, 5, toks[0].Location.Line)
	assert.Equal(t, 3, toks[0].Location.Col)
}

func TestTokenizeStopsAtComment(t *testing.T) {
	toks := Tokenize("src = main.cpp # comment text", 1)
	assert.Equal(t, "main.cpp", toks[2:].Concat().Text)
}

func TestTokenizePlusEqualsIsOneToken(t *testing.T) {
	toks := Tokenize("flags += -O2", 1)
	assert.Equal(t, "+=", toks[1].Text)
}

func TestTokensGroups(t *testing.T) {
	toks := Tokenize("a.cpp b.cpp", 1)
	groups := toks.Groups()
	assert.Len(t, groups, 2)
	assert.Equal(t, "a.cpp", groups[0].Concat().Text)
	assert.Equal(t, "b.cpp", groups[1].Concat().Text)
}

func TestTokensConcatAndAppend(t *testing.T) {
	a := Tokenize("foo", 1)
	b := Tokenize("bar", 1)
	joined := a.Append(b)
	assert.Equal(t, "foo bar", joined.String())
}

func TestNameDescriptorDotted(t *testing.T) {
	toks := Tokenize("mylib.flags", 1)
	nd := NewNameDescriptor(toks)
	assert.Equal(t, "mylib", nd.RootName.Text)
	assert.Equal(t, "flags", nd.PropertyName.Text)
}

func TestNameDescriptorJoinsHyphenatedName(t *testing.T) {
	toks := Tokenize("my-lib.flags", 1)
	nd := NewNameDescriptor(toks)
	assert.Equal(t, "my-lib", nd.RootName.Text)
	assert.Equal(t, "flags", nd.PropertyName.Text)
}

func TestNameDescriptorBareProperty(t *testing.T) {
	toks := Tokenize("cpp", 1)
	nd := NewNameDescriptor(toks)
	assert.Equal(t, "root", nd.RootName.Text)
	assert.Equal(t, "cpp", nd.PropertyName.Text)
}

func TestLocationString(t *testing.T) {
	loc := Location{Line: 3, Col: 7}
	assert.Equal(t, "Matmakefile:3:7", loc.String())
}
