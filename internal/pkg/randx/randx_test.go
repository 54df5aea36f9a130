package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetKey(t *testing.T) {
	key, err := AssetKey("/avatars/", ".jpg")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(key, "avatars/"))
	require.True(t, strings.HasSuffix(key, ".jpg"))

	id := strings.TrimSuffix(strings.TrimPrefix(key, "avatars/"), ".jpg")
	assert.Len(t, id, AssetIDLength)
	assert.True(t, IsBase62(id))

	bare, err := AssetKey("", ".png")
	require.NoError(t, err)
	assert.NotContains(t, bare, "/")
}

func TestIsBase62(t *testing.T) {
	assert.True(t, IsBase62("abcXYZ019"))
	assert.False(t, IsBase62(""))
	assert.False(t, IsBase62("abc-def"))
}

func TestConnectionIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id := ConnectionID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
