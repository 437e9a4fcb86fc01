package gitlib_test

import (
	"testing"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberset/resume/pkg/gitlib"
)

const sampleHex = "0123456789abcdef0123456789abcdef01234567"

func TestZeroHash(t *testing.T) {
	t.Parallel()

	hash := gitlib.ZeroHash()

	assert.Equal(t, gitlib.Hash{}, hash)
	assert.True(t, hash.IsZero())
	assert.False(t, gitlib.NewHash(sampleHex).IsZero())
}

func TestNewHashIgnoresCase(t *testing.T) {
	t.Parallel()

	lower := gitlib.NewHash(sampleHex)
	upper := gitlib.NewHash("0123456789ABCDEF0123456789ABCDEF01234567")

	assert.Equal(t, lower, upper)
	assert.Equal(t, byte(0x01), lower[0])
	assert.Equal(t, byte(0x67), lower[gitlib.HashSize-1])
}

func TestHashStringRoundTrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sampleHex, gitlib.NewHash(sampleHex).String())
	assert.Equal(t, "0000000000000000000000000000000000000000", gitlib.ZeroHash().String())
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "canonical", input: sampleHex},
		{name: "uppercase", input: "0123456789ABCDEF0123456789ABCDEF01234567"},
		{name: "too short", input: "0123", wantErr: true},
		{name: "too long", input: sampleHex + "89", wantErr: true},
		{name: "not hex", input: "zz23456789abcdef0123456789abcdef01234567", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash, err := gitlib.ParseHash(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, gitlib.ErrInvalidHash)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, gitlib.NewHash(tt.input), hash)
		})
	}
}

func TestHashOidRoundTrip(t *testing.T) {
	t.Parallel()

	oid, err := git2go.NewOid(sampleHex)
	require.NoError(t, err)

	hash := gitlib.HashFromOid(oid)

	assert.Equal(t, sampleHex, hash.String())
	assert.Equal(t, oid, hash.ToOid())
}

func TestHashSet(t *testing.T) {
	t.Parallel()

	a := gitlib.NewHash("aa00000000000000000000000000000000000000")
	b := gitlib.NewHash("bb00000000000000000000000000000000000000")
	c := gitlib.NewHash("cc00000000000000000000000000000000000000")

	set := gitlib.NewHashSet(c, a)
	assert.True(t, set.Contains(a))
	assert.False(t, set.Contains(b))

	snapshot := set.Clone()

	set.Merge(gitlib.NewHashSet(b))
	set.Add(a)

	assert.Len(t, set, 3)
	assert.Len(t, snapshot, 2)
	assert.True(t, set.IsSupersetOf(snapshot))
	assert.False(t, snapshot.IsSupersetOf(set))
	assert.Equal(t, []gitlib.Hash{a, b, c}, set.Sorted())
}
