package curve

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomG1(t *testing.T) G1Point {
	t.Helper()
	s, err := RandomScalar(nil)
	require.NoError(t, err)
	return G1Generator().Mul(s)
}

func TestG1_GroupLaw(t *testing.T) {
	a, err := RandomScalar(nil)
	require.NoError(t, err)
	b, err := RandomScalar(nil)
	require.NoError(t, err)
	g := G1Generator()

	assert.True(t, g.Mul(a.Add(b)).Equal(g.Mul(a).Add(g.Mul(b))))
	assert.True(t, g.Mul(a).Add(g.Mul(a).Neg()).IsInfinity())
	assert.True(t, g.IsOnCurve())
	assert.True(t, g.IsInSubgroup())
}

func TestSumG1(t *testing.T) {
	_, err := SumG1(nil)
	assert.ErrorIs(t, err, ErrEmptySet)

	p, q, r := randomG1(t), randomG1(t), randomG1(t)
	sum, err := SumG1([]G1Point{p, q, r})
	require.NoError(t, err)
	assert.True(t, sum.Equal(p.Add(q).Add(r)))

	withInfinity, err := SumG1([]G1Point{{}, p})
	require.NoError(t, err)
	assert.True(t, withInfinity.Equal(p))
}

func TestG1_EncodingRoundTrip(t *testing.T) {
	points := []G1Point{{}, G1Generator(), G1Generator().Neg()}
	for i := 0; i < 8; i++ {
		points = append(points, randomG1(t))
	}
	for _, p := range points {
		c, err := DecompressG1(p.Compress())
		require.NoError(t, err)
		assert.True(t, p.Equal(c))

		u, err := UnmarshalG1(p.Marshal())
		require.NoError(t, err)
		assert.True(t, p.Equal(u))
	}
}

func TestG1_TextRoundTrip(t *testing.T) {
	p := randomG1(t)
	text, err := p.MarshalText()
	require.NoError(t, err)

	var decoded G1Point
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, p.Equal(decoded))

	assert.ErrorIs(t, decoded.UnmarshalText([]byte("0xzz")), ErrInvalidEncoding)
}

// nonResidueX returns an x for which x³ + 3 has no square root.
func nonResidueX(t *testing.T) fp.Element {
	t.Helper()
	for i := uint64(1); i < 1000; i++ {
		var x, rhs fp.Element
		x.SetUint64(i)
		rhs.Square(&x).Mul(&rhs, &x).Add(&rhs, &g1B)
		if rhs.Legendre() == -1 {
			return x
		}
	}
	t.Fatal("no non-residue found")
	return fp.Element{}
}

func TestDecompressG1_Rejections(t *testing.T) {
	good := randomG1(t).Compress()

	t.Run("wrong length", func(t *testing.T) {
		_, err := DecompressG1(good[:31])
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("missing flag", func(t *testing.T) {
		b := append([]byte(nil), good...)
		b[0] &^= flagMask
		_, err := DecompressG1(b)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("dirty infinity", func(t *testing.T) {
		b := make([]byte, G1CompressedSize)
		b[0] = flagInfinity
		b[31] = 1
		_, err := DecompressG1(b)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("non canonical x", func(t *testing.T) {
		b := make([]byte, G1CompressedSize)
		fp.Modulus().FillBytes(b)
		b[0] |= flagSmallest
		_, err := DecompressG1(b)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("x off curve", func(t *testing.T) {
		x := nonResidueX(t)
		b := make([]byte, G1CompressedSize)
		putField(b, &x)
		b[0] |= flagSmallest
		_, err := DecompressG1(b)
		assert.ErrorIs(t, err, ErrNotOnCurve)
	})
}

func TestUnmarshalG1_Rejections(t *testing.T) {
	p := randomG1(t).Affine()
	var y fp.Element
	y.SetOne()
	y.Add(&y, &p.Y)

	b := make([]byte, G1UncompressedSize)
	putField(b[:fieldSize], &p.X)
	putField(b[fieldSize:], &y)
	_, err := UnmarshalG1(b)
	assert.ErrorIs(t, err, ErrNotOnCurve)

	_, err = G1FromAffine(bn254.G1Affine{X: p.X, Y: y})
	assert.ErrorIs(t, err, ErrNotOnCurve)

	_, err = DecodeG1(make([]byte, 40))
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}
