package curve

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	G2CompressedSize   = 2 * fieldSize
	G2UncompressedSize = 4 * fieldSize
)

// G2Point is a point of the BN254 G2 group (on the sextic twist). Values
// obtained through this package are validated; the zero value is infinity.
type G2Point struct {
	p bn254.G2Affine
}

func G2Generator() G2Point {
	return G2Point{p: g2Generator}
}

// G2FromAffine validates a raw gnark point.
func G2FromAffine(p bn254.G2Affine) (G2Point, error) {
	return checkG2(p)
}

func (a G2Point) Add(b G2Point) G2Point {
	var r G2Point
	r.p.Add(&a.p, &b.p)
	return r
}

func (a G2Point) Neg() G2Point {
	var r G2Point
	r.p.Neg(&a.p)
	return r
}

func (a G2Point) Mul(s Scalar) G2Point {
	var r G2Point
	r.p.ScalarMultiplication(&a.p, s.BigInt())
	return r
}

func (a G2Point) Equal(b G2Point) bool {
	return a.p.Equal(&b.p)
}

func (a G2Point) IsInfinity() bool {
	return a.p.IsInfinity()
}

func (a G2Point) IsOnCurve() bool {
	return a.p.IsOnCurve()
}

func (a G2Point) IsInSubgroup() bool {
	return a.p.IsInSubGroup()
}

func (a G2Point) Affine() bn254.G2Affine {
	return a.p
}

// SumG2 adds all points; empty input is rejected.
func SumG2(points []G2Point) (G2Point, error) {
	if len(points) == 0 {
		return G2Point{}, ErrEmptySet
	}
	var acc bn254.G2Jac
	acc.FromAffine(&points[0].p)
	for i := 1; i < len(points); i++ {
		acc.AddMixed(&points[i].p)
	}
	var r G2Point
	r.p.FromJacobian(&acc)
	return r, nil
}

// Compress encodes x as A1||A0 with the y selector flag on the first byte.
func (a G2Point) Compress() []byte {
	out := make([]byte, G2CompressedSize)
	if a.p.IsInfinity() {
		out[0] = flagInfinity
		return out
	}
	putField(out[:fieldSize], &a.p.X.A1)
	putField(out[fieldSize:], &a.p.X.A0)
	if e2Largest(&a.p) {
		out[0] |= flagLargest
	} else {
		out[0] |= flagSmallest
	}
	return out
}

// Marshal encodes X.A1||X.A0||Y.A1||Y.A0, the EVM precompile layout.
func (a G2Point) Marshal() []byte {
	out := make([]byte, G2UncompressedSize)
	if a.p.IsInfinity() {
		return out
	}
	putField(out[0*fieldSize:1*fieldSize], &a.p.X.A1)
	putField(out[1*fieldSize:2*fieldSize], &a.p.X.A0)
	putField(out[2*fieldSize:3*fieldSize], &a.p.Y.A1)
	putField(out[3*fieldSize:4*fieldSize], &a.p.Y.A0)
	return out
}

// BigInts returns [X.A1, X.A0, Y.A1, Y.A0] as EVM words.
func (a G2Point) BigInts() [4]*big.Int {
	return [4]*big.Int{
		a.p.X.A1.BigInt(new(big.Int)),
		a.p.X.A0.BigInt(new(big.Int)),
		a.p.Y.A1.BigInt(new(big.Int)),
		a.p.Y.A0.BigInt(new(big.Int)),
	}
}

func (a G2Point) String() string {
	return hexutil.Encode(a.Compress())
}

func (a G2Point) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *G2Point) UnmarshalText(text []byte) error {
	raw, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	p, err := DecodeG2(raw)
	if err != nil {
		return err
	}
	*a = p
	return nil
}

// DecodeG2 accepts either the compressed or the uncompressed encoding.
func DecodeG2(b []byte) (G2Point, error) {
	switch len(b) {
	case G2CompressedSize:
		return DecompressG2(b)
	case G2UncompressedSize:
		return UnmarshalG2(b)
	default:
		return G2Point{}, fmt.Errorf("%w: G2 encoding has length %d", ErrInvalidEncoding, len(b))
	}
}

func DecompressG2(b []byte) (G2Point, error) {
	if len(b) != G2CompressedSize {
		return G2Point{}, fmt.Errorf("%w: compressed G2 must be %d bytes, got %d", ErrInvalidEncoding, G2CompressedSize, len(b))
	}
	flag, body, err := splitFlags(b)
	if err != nil {
		return G2Point{}, err
	}
	if flag == flagInfinity {
		return G2Point{}, nil
	}

	var p bn254.G2Affine
	if p.X.A1, err = fieldElement(body[:fieldSize]); err != nil {
		return G2Point{}, err
	}
	if p.X.A0, err = fieldElement(body[fieldSize:]); err != nil {
		return G2Point{}, err
	}
	if !solveTwistY(&p) {
		return G2Point{}, fmt.Errorf("%w: x has no matching y", ErrNotOnCurve)
	}
	if e2Largest(&p) != (flag == flagLargest) {
		p.Y.Neg(&p.Y)
	}
	return checkG2(p)
}

func UnmarshalG2(b []byte) (G2Point, error) {
	if len(b) != G2UncompressedSize {
		return G2Point{}, fmt.Errorf("%w: uncompressed G2 must be %d bytes, got %d", ErrInvalidEncoding, G2UncompressedSize, len(b))
	}
	var p bn254.G2Affine
	var err error
	if p.X.A1, err = fieldElement(b[0*fieldSize : 1*fieldSize]); err != nil {
		return G2Point{}, err
	}
	if p.X.A0, err = fieldElement(b[1*fieldSize : 2*fieldSize]); err != nil {
		return G2Point{}, err
	}
	if p.Y.A1, err = fieldElement(b[2*fieldSize : 3*fieldSize]); err != nil {
		return G2Point{}, err
	}
	if p.Y.A0, err = fieldElement(b[3*fieldSize : 4*fieldSize]); err != nil {
		return G2Point{}, err
	}
	return checkG2(p)
}

func checkG2(p bn254.G2Affine) (G2Point, error) {
	if p.IsInfinity() {
		return G2Point{}, nil
	}
	if !p.IsOnCurve() {
		return G2Point{}, ErrNotOnCurve
	}
	if !p.IsInSubGroup() {
		return G2Point{}, ErrNotInSubgroup
	}
	return G2Point{p: p}, nil
}

// solveTwistY sets p.Y to a square root of x³ + b' and reports whether one
// exists. b' is recovered from the generator.
func solveTwistY(p *bn254.G2Affine) bool {
	b := g2Generator.Y
	b.Square(&g2Generator.Y)
	x3 := g2Generator.X
	x3.Square(&g2Generator.X).Mul(&x3, &g2Generator.X)
	b.Sub(&b, &x3)

	rhs := p.X
	rhs.Square(&p.X).Mul(&rhs, &p.X).Add(&rhs, &b)
	if rhs.Legendre() == -1 {
		return false
	}
	p.Y.Sqrt(&rhs)
	return true
}

// e2Largest orders Fp2 elements by A1, falling back to A0 when A1 is zero.
func e2Largest(p *bn254.G2Affine) bool {
	if p.Y.A1.IsZero() {
		return p.Y.A0.LexicographicallyLargest()
	}
	return p.Y.A1.LexicographicallyLargest()
}
