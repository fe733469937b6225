package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair_Bilinear(t *testing.T) {
	a, err := RandomScalar(nil)
	require.NoError(t, err)
	b, err := RandomScalar(nil)
	require.NoError(t, err)

	left, err := Pair(G1Generator().Mul(a), G2Generator().Mul(b))
	require.NoError(t, err)
	right, err := Pair(G1Generator().Mul(a.Mul(b)), G2Generator())
	require.NoError(t, err)
	assert.True(t, left.Equal(right))
	assert.Equal(t, left.Bytes(), right.Bytes())

	other, err := Pair(G1Generator().Mul(a), G2Generator())
	require.NoError(t, err)
	assert.False(t, left.Equal(other))
}

func TestPairingCheck(t *testing.T) {
	p := randomG1(t)
	q := randomG2(t)

	ok, err := PairingCheck([]G1Point{p, p.Neg()}, []G2Point{q, q})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = PairingCheck([]G1Point{p, p}, []G2Point{q, q})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = PairingCheck([]G1Point{p}, nil)
	assert.Error(t, err)

	_, err = PairingCheck(nil, nil)
	assert.ErrorIs(t, err, ErrEmptySet)
}
