package bls

import (
	"errors"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
)

// Curve errors are re-exported so callers only need this package.
var (
	ErrInvalidEncoding = curve.ErrInvalidEncoding
	ErrNotOnCurve      = curve.ErrNotOnCurve
	ErrNotInSubgroup   = curve.ErrNotInSubgroup
	ErrEmptySet        = curve.ErrEmptySet
	ErrRandomness      = curve.ErrRandomness
)

var (
	ErrZeroPrivateKey    = errors.New("bls: private key is zero")
	ErrNilKey            = errors.New("bls: nil key")
	ErrInsufficientStake = errors.New("bls: insufficient stake")
	ErrInvalidThreshold  = errors.New("bls: threshold must be positive")
	ErrUnknownSigner     = errors.New("bls: signer not in operator order")
	ErrDuplicateOperator = errors.New("bls: duplicate operator")
)
