package curve

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomScalar_NonZeroAndDistinct(t *testing.T) {
	a, err := RandomScalar(nil)
	require.NoError(t, err)
	b, err := RandomScalar(nil)
	require.NoError(t, err)

	assert.False(t, a.IsZero())
	assert.False(t, a.Equal(b))
}

func TestRandomScalar_DeterministicReader(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, wideBytes)
	a, err := RandomScalar(bytes.NewReader(seed))
	require.NoError(t, err)
	b, err := RandomScalar(bytes.NewReader(seed))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestRandomScalar_ExhaustedSource(t *testing.T) {
	_, err := RandomScalar(bytes.NewReader(make([]byte, 10)))
	assert.ErrorIs(t, err, ErrRandomness)

	_, err = RandomScalar(bytes.NewReader(make([]byte, 4*wideBytes)))
	assert.ErrorIs(t, err, ErrRandomness)
}

func TestScalarFromBytes(t *testing.T) {
	s := NewScalarUint64(123456789)
	decoded, err := ScalarFromBytes(s.Bytes())
	require.NoError(t, err)
	assert.True(t, s.Equal(decoded))

	modulus := make([]byte, ScalarSize)
	fr.Modulus().FillBytes(modulus)
	_, err = ScalarFromBytes(modulus)
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = ScalarFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestScalar_FieldArithmetic(t *testing.T) {
	a, err := RandomScalar(nil)
	require.NoError(t, err)
	b, err := RandomScalar(nil)
	require.NoError(t, err)
	c, err := RandomScalar(nil)
	require.NoError(t, err)

	left := a.Add(b).Mul(c)
	right := a.Mul(c).Add(b.Mul(c))
	assert.True(t, left.Equal(right))

	assert.True(t, a.Add(a.Neg()).IsZero())
	assert.True(t, a.Sub(b).Add(b).Equal(a))

	inv, err := a.Inverse()
	require.NoError(t, err)
	assert.True(t, a.Mul(inv).Equal(NewScalarUint64(1)))

	_, err = Scalar{}.Inverse()
	assert.ErrorIs(t, err, ErrZeroScalar)
}

func TestNewScalar_Reduces(t *testing.T) {
	over := new(big.Int).Add(fr.Modulus(), big.NewInt(5))
	assert.True(t, NewScalar(over).Equal(NewScalarUint64(5)))
	assert.True(t, NewScalar(big.NewInt(-1)).Equal(NewScalarUint64(1).Neg()))
}

func TestScalar_Zeroize(t *testing.T) {
	s := NewScalarUint64(99)
	s.Zeroize()
	assert.True(t, s.IsZero())
}
