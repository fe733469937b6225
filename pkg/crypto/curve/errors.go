package curve

import "errors"

// Decoding and arithmetic failures. They are fatal to the operation that hit
// them and must never be swallowed by callers.
var (
	ErrInvalidEncoding = errors.New("crypto: invalid encoding")
	ErrNotOnCurve      = errors.New("crypto: point not on curve")
	ErrNotInSubgroup   = errors.New("crypto: point not in prime-order subgroup")
	ErrEmptySet        = errors.New("crypto: empty set")
	ErrZeroScalar      = errors.New("crypto: zero scalar")
	ErrRandomness      = errors.New("crypto: randomness source exhausted")
)

// IsCryptoError reports whether err belongs to the curve error taxonomy.
func IsCryptoError(err error) bool {
	for _, target := range []error{
		ErrInvalidEncoding, ErrNotOnCurve, ErrNotInSubgroup,
		ErrEmptySet, ErrZeroScalar, ErrRandomness,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
