package curve

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	G1CompressedSize   = fieldSize
	G1UncompressedSize = 2 * fieldSize
)

var _, _, g1Generator, g2Generator = bn254.Generators()

// g1B is the constant term of y² = x³ + 3.
var g1B = func() fp.Element {
	var b fp.Element
	b.SetUint64(3)
	return b
}()

// G1Point is a point of the BN254 G1 group. Values obtained through this
// package are always on the curve and in the prime-order subgroup; the zero
// value is the point at infinity.
type G1Point struct {
	p bn254.G1Affine
}

func G1Generator() G1Point {
	return G1Point{p: g1Generator}
}

// G1FromAffine validates a raw gnark point.
func G1FromAffine(p bn254.G1Affine) (G1Point, error) {
	return checkG1(p)
}

func (a G1Point) Add(b G1Point) G1Point {
	var r G1Point
	r.p.Add(&a.p, &b.p)
	return r
}

func (a G1Point) Neg() G1Point {
	var r G1Point
	r.p.Neg(&a.p)
	return r
}

func (a G1Point) Mul(s Scalar) G1Point {
	var r G1Point
	r.p.ScalarMultiplication(&a.p, s.BigInt())
	return r
}

func (a G1Point) Equal(b G1Point) bool {
	return a.p.Equal(&b.p)
}

func (a G1Point) IsInfinity() bool {
	return a.p.IsInfinity()
}

func (a G1Point) IsOnCurve() bool {
	return a.p.IsOnCurve()
}

func (a G1Point) IsInSubgroup() bool {
	return a.p.IsInSubGroup()
}

// Affine returns a copy of the underlying gnark point.
func (a G1Point) Affine() bn254.G1Affine {
	return a.p
}

// SumG1 adds all points; empty input is rejected.
func SumG1(points []G1Point) (G1Point, error) {
	if len(points) == 0 {
		return G1Point{}, ErrEmptySet
	}
	var acc bn254.G1Jac
	acc.FromAffine(&points[0].p)
	for i := 1; i < len(points); i++ {
		acc.AddMixed(&points[i].p)
	}
	var r G1Point
	r.p.FromJacobian(&acc)
	return r, nil
}

// Compress encodes the point as its x coordinate plus a flag selecting y.
func (a G1Point) Compress() []byte {
	out := make([]byte, G1CompressedSize)
	if a.p.IsInfinity() {
		out[0] = flagInfinity
		return out
	}
	putField(out, &a.p.X)
	if a.p.Y.LexicographicallyLargest() {
		out[0] |= flagLargest
	} else {
		out[0] |= flagSmallest
	}
	return out
}

// Marshal encodes x||y big-endian, the layout used by the EVM precompiles.
// Infinity is all zeros.
func (a G1Point) Marshal() []byte {
	out := make([]byte, G1UncompressedSize)
	if a.p.IsInfinity() {
		return out
	}
	putField(out[:fieldSize], &a.p.X)
	putField(out[fieldSize:], &a.p.Y)
	return out
}

// BigInts returns the affine coordinates as EVM words.
func (a G1Point) BigInts() [2]*big.Int {
	return [2]*big.Int{
		a.p.X.BigInt(new(big.Int)),
		a.p.Y.BigInt(new(big.Int)),
	}
}

func (a G1Point) String() string {
	return hexutil.Encode(a.Compress())
}

func (a G1Point) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *G1Point) UnmarshalText(text []byte) error {
	raw, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	p, err := DecodeG1(raw)
	if err != nil {
		return err
	}
	*a = p
	return nil
}

// DecodeG1 accepts either the compressed or the uncompressed encoding.
func DecodeG1(b []byte) (G1Point, error) {
	switch len(b) {
	case G1CompressedSize:
		return DecompressG1(b)
	case G1UncompressedSize:
		return UnmarshalG1(b)
	default:
		return G1Point{}, fmt.Errorf("%w: G1 encoding has length %d", ErrInvalidEncoding, len(b))
	}
}

func DecompressG1(b []byte) (G1Point, error) {
	if len(b) != G1CompressedSize {
		return G1Point{}, fmt.Errorf("%w: compressed G1 must be %d bytes, got %d", ErrInvalidEncoding, G1CompressedSize, len(b))
	}
	flag, body, err := splitFlags(b)
	if err != nil {
		return G1Point{}, err
	}
	if flag == flagInfinity {
		return G1Point{}, nil
	}
	x, err := fieldElement(body)
	if err != nil {
		return G1Point{}, err
	}

	var rhs, y fp.Element
	rhs.Square(&x).Mul(&rhs, &x).Add(&rhs, &g1B)
	if y.Sqrt(&rhs) == nil {
		return G1Point{}, fmt.Errorf("%w: x has no matching y", ErrNotOnCurve)
	}
	if y.LexicographicallyLargest() != (flag == flagLargest) {
		y.Neg(&y)
	}
	return checkG1(bn254.G1Affine{X: x, Y: y})
}

func UnmarshalG1(b []byte) (G1Point, error) {
	if len(b) != G1UncompressedSize {
		return G1Point{}, fmt.Errorf("%w: uncompressed G1 must be %d bytes, got %d", ErrInvalidEncoding, G1UncompressedSize, len(b))
	}
	x, err := fieldElement(b[:fieldSize])
	if err != nil {
		return G1Point{}, err
	}
	y, err := fieldElement(b[fieldSize:])
	if err != nil {
		return G1Point{}, err
	}
	return checkG1(bn254.G1Affine{X: x, Y: y})
}

func checkG1(p bn254.G1Affine) (G1Point, error) {
	if p.IsInfinity() {
		return G1Point{}, nil
	}
	if !p.IsOnCurve() {
		return G1Point{}, ErrNotOnCurve
	}
	if !p.IsInSubGroup() {
		return G1Point{}, ErrNotInSubgroup
	}
	return G1Point{p: p}, nil
}
