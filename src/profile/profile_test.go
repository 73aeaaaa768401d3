package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCCStrings(t *testing.T) {
	g := GCC{}
	assert.Equal(t, "-I", g.String(IncludePrefix))
	assert.Equal(t, ".so", g.String(SharedFileEnding))
	assert.Equal(t, ".a", g.String(StaticFileEnding))
	assert.True(t, g.Flag(RequiresPICForLibrary))
}

func TestGCCTranslateConfigCppStandard(t *testing.T) {
	flag, err := GCC{}.TranslateConfig("c++17")
	require.NoError(t, err)
	assert.Equal(t, "-std=c++17", flag)
}

func TestGCCTranslateConfigKnownName(t *testing.T) {
	flag, err := GCC{}.TranslateConfig("Wall")
	require.NoError(t, err)
	assert.Equal(t, "-Wall", flag)
}

func TestGCCTranslateConfigUnknownErrors(t *testing.T) {
	_, err := GCC{}.TranslateConfig("bogus")
	require.Error(t, err)
	assert.IsType(t, &ConfigError{}, err)
}

func TestGCCPrepareLinkString(t *testing.T) {
	assert.Equal(t, "-l:libfoo.so -L bin", GCC{}.PrepareLinkString("bin", "libfoo.so"))
}

func TestMSVCStrings(t *testing.T) {
	m := MSVC{}
	assert.Equal(t, "/I ", m.String(IncludePrefix))
	assert.Equal(t, ".dll", m.String(SharedFileEnding))
	assert.Equal(t, "", m.String(RPathOriginFlag))
}

func TestByNameDefaultsToGCC(t *testing.T) {
	assert.IsType(t, GCC{}, ByName(""))
	assert.IsType(t, MSVC{}, ByName("msvc"))
}
