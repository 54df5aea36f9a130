package group

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/pkg/errs"
)

func TestNormalizeMembers(t *testing.T) {
	tests := []struct {
		name    string
		creator string
		members []string
		want    []string
		wantErr int
	}{
		{name: "creator added first", creator: "a", members: []string{"b", "c"}, want: []string{"a", "b", "c"}},
		{name: "creator kept in place", creator: "b", members: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "duplicates keep first", creator: "a", members: []string{"b", "c", "b", "a"}, want: []string{"b", "c", "a"}},
		{name: "creator deduplicated", creator: "a", members: []string{"a", "b", "a"}, want: []string{"a", "b"}},
		{name: "blank ids dropped", creator: "a", members: []string{" ", "b"}, want: []string{"a", "b"}},
		{name: "only creator", creator: "a", members: []string{"a"}, wantErr: errs.ErrGroupMembersInvalid},
		{name: "empty", creator: "a", members: nil, wantErr: errs.ErrGroupMembersInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMembers(tt.creator, tt.members)
			if tt.wantErr != 0 {
				require.NotNil(t, err)
				assert.Equal(t, tt.wantErr, err.Code)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	name, err := NormalizeName("  friends ")
	require.Nil(t, err)
	assert.Equal(t, "friends", name)

	_, err = NormalizeName("   ")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrGroupNameInvalid, err.Code)

	_, err = NormalizeName(strings.Repeat("x", MaxNameLength+1))
	require.NotNil(t, err)

	_, err = NormalizeName(strings.Repeat("é", MaxNameLength))
	assert.Nil(t, err)
}

func TestDiff(t *testing.T) {
	removed, added := Diff([]string{"A", "B", "C"}, []string{"A", "C", "D"})
	assert.Equal(t, []string{"B"}, removed)
	assert.Equal(t, []string{"D"}, added)

	removed, added = Diff([]string{"A"}, []string{"A"})
	assert.Empty(t, removed)
	assert.Empty(t, added)
}

func TestHasMember(t *testing.T) {
	g := Group{Members: []string{"a", "b"}}
	assert.True(t, g.HasMember("b"))
	assert.False(t, g.HasMember("c"))
}
