package curve

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// GT is an element of the pairing target group.
type GT struct {
	v bn254.GT
}

func (a GT) Equal(b GT) bool {
	return a.v.Equal(&b.v)
}

func (a GT) Bytes() []byte {
	b := a.v.Bytes()
	return b[:]
}

// Pair computes e(p, q).
func Pair(p G1Point, q G2Point) (GT, error) {
	v, err := bn254.Pair([]bn254.G1Affine{p.p}, []bn254.G2Affine{q.p})
	if err != nil {
		return GT{}, fmt.Errorf("pairing: %w", err)
	}
	return GT{v: v}, nil
}

// PairingCheck reports whether ∏ e(ps[i], qs[i]) == 1.
func PairingCheck(ps []G1Point, qs []G2Point) (bool, error) {
	if len(ps) != len(qs) {
		return false, fmt.Errorf("pairing check: %d G1 points but %d G2 points", len(ps), len(qs))
	}
	if len(ps) == 0 {
		return false, ErrEmptySet
	}
	g1 := make([]bn254.G1Affine, len(ps))
	g2 := make([]bn254.G2Affine, len(qs))
	for i := range ps {
		g1[i] = ps[i].p
		g2[i] = qs[i].p
	}
	ok, err := bn254.PairingCheck(g1, g2)
	if err != nil {
		return false, fmt.Errorf("pairing check: %w", err)
	}
	return ok, nil
}
