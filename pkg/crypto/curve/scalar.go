package curve

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ScalarSize is the canonical big-endian encoding size of a Scalar.
const ScalarSize = fr.Bytes

// wideBytes is read from the randomness source before reduction mod r so the
// result is statistically close to uniform.
const wideBytes = 48

// Scalar is an element of the BN254 scalar field, always kept reduced.
type Scalar struct {
	e fr.Element
}

func NewScalar(v *big.Int) Scalar {
	var s Scalar
	s.e.SetBigInt(v)
	return s
}

func NewScalarUint64(v uint64) Scalar {
	var s Scalar
	s.e.SetUint64(v)
	return s
}

// RandomScalar samples a nonzero scalar from rng (crypto/rand when nil).
func RandomScalar(rng io.Reader) (Scalar, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var buf [wideBytes]byte
	for i := 0; i < 4; i++ {
		if _, err := io.ReadFull(rng, buf[:]); err != nil {
			return Scalar{}, fmt.Errorf("%w: %v", ErrRandomness, err)
		}
		s := NewScalar(new(big.Int).SetBytes(buf[:]))
		if !s.IsZero() {
			return s, nil
		}
	}
	return Scalar{}, fmt.Errorf("%w: source keeps producing zero", ErrRandomness)
}

// ScalarFromBytes decodes a canonical 32-byte big-endian scalar.
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != ScalarSize {
		return Scalar{}, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrInvalidEncoding, ScalarSize, len(b))
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(fr.Modulus()) >= 0 {
		return Scalar{}, fmt.Errorf("%w: scalar not reduced", ErrInvalidEncoding)
	}
	return NewScalar(v), nil
}

func (s Scalar) Add(o Scalar) Scalar {
	var r Scalar
	r.e.Add(&s.e, &o.e)
	return r
}

func (s Scalar) Sub(o Scalar) Scalar {
	var r Scalar
	r.e.Sub(&s.e, &o.e)
	return r
}

func (s Scalar) Mul(o Scalar) Scalar {
	var r Scalar
	r.e.Mul(&s.e, &o.e)
	return r
}

func (s Scalar) Neg() Scalar {
	var r Scalar
	r.e.Neg(&s.e)
	return r
}

func (s Scalar) Inverse() (Scalar, error) {
	if s.IsZero() {
		return Scalar{}, ErrZeroScalar
	}
	var r Scalar
	r.e.Inverse(&s.e)
	return r, nil
}

func (s Scalar) IsZero() bool {
	return s.e.IsZero()
}

func (s Scalar) Equal(o Scalar) bool {
	return s.e.Equal(&o.e)
}

func (s Scalar) Bytes() []byte {
	b := s.e.Bytes()
	return b[:]
}

func (s Scalar) BigInt() *big.Int {
	return s.e.BigInt(new(big.Int))
}

// Zeroize overwrites the scalar in place.
func (s *Scalar) Zeroize() {
	s.e.SetZero()
}
