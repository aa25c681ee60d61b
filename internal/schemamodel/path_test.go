package schemamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	p, err := NormalizePath("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, Path{"a", "b", "c"}, p)

	p, err = NormalizePath([]string{"a", "*", "b"})
	require.NoError(t, err)
	assert.Equal(t, Path{"a", "*", "b"}, p)

	p, err = NormalizePath("name")
	require.NoError(t, err)
	assert.Equal(t, Path{"name"}, p)

	_, err = NormalizePath("")
	assert.Error(t, err)
}

func TestIsRepeatedPathPart(t *testing.T) {
	assert.True(t, IsRepeatedPathPart("*"))
	assert.False(t, IsRepeatedPathPart("a"))
}

func TestSplitOnWildcards(t *testing.T) {
	p := Path{"a", "b", "c", "*", "d", "*", "*"}
	got := SplitOnWildcards(p)
	want := []SubPath{{"a", "b", "c"}, {"d"}, {}, {}}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestSplitOnWildcardsNoWildcard(t *testing.T) {
	got := SplitOnWildcards(Path{"a", "b"})
	require.Len(t, got, 1)
	assert.Equal(t, SubPath{"a", "b"}, got[0])
}

func TestNumWildcards(t *testing.T) {
	assert.Equal(t, 2, Path{"a", "*", "b", "*"}.NumWildcards())
	assert.Equal(t, 0, Path{"a", "b"}.NumWildcards())
}
