package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentID_Shape(t *testing.T) {
	id, err := DocumentID()
	require.NoError(t, err)

	assert.Len(t, id, DocumentIDLength)
	for _, r := range id {
		assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
	}
}

func TestDocumentID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id, err := DocumentID()
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestShortID(t *testing.T) {
	id := ShortID()
	assert.Len(t, id, ShortIDLength)
	assert.NotEqual(t, id, ShortID())
}
