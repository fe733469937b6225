package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDST = []byte("BLS_SIG_BN254G1_XMD:SHA-256_SVDW_RO_TEST_")

func TestHashToG1(t *testing.T) {
	p, err := HashToG1([]byte("task 42 response"), testDST)
	require.NoError(t, err)
	q, err := HashToG1([]byte("task 42 response"), testDST)
	require.NoError(t, err)

	assert.True(t, p.Equal(q))
	assert.True(t, p.IsOnCurve())
	assert.True(t, p.IsInSubgroup())
	assert.False(t, p.IsInfinity())

	other, err := HashToG1([]byte("task 42 response"), []byte("ANOTHER_DST"))
	require.NoError(t, err)
	assert.False(t, p.Equal(other))
}

func TestHashToG1Keccak(t *testing.T) {
	p := HashToG1Keccak([]byte("task 42 response"), nil)
	q := HashToG1Keccak([]byte("task 42 response"), nil)
	r := HashToG1Keccak([]byte("task 43 response"), nil)

	assert.True(t, p.Equal(q))
	assert.False(t, p.Equal(r))
	assert.True(t, p.IsOnCurve())

	var digest [32]byte
	digest[31] = 1
	assert.True(t, MapDigestToG1(digest).IsOnCurve())
}

func TestHashMode(t *testing.T) {
	for _, mode := range []HashMode{HashRFC9380, HashKeccak} {
		parsed, err := ParseHashMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)

		p, err := mode.Hash([]byte("m"), testDST)
		require.NoError(t, err)
		assert.True(t, p.IsInSubgroup())
	}
	_, err := ParseHashMode("sha3")
	assert.Error(t, err)
	_, err = HashMode(9).Hash([]byte("m"), testDST)
	assert.Error(t, err)
}
