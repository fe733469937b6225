package quorum

import (
	"errors"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
)

// Round outcomes a caller can recover from by starting a fresh round.
var (
	ErrQuorumTimeout     = errors.New("quorum: round timed out")
	ErrInsufficientStake = bls.ErrInsufficientStake
)

var (
	ErrUnknownRound             = errors.New("quorum: unknown round")
	ErrRoundClosed              = errors.New("quorum: round is not collecting")
	ErrRoundCancelled           = errors.New("quorum: round cancelled")
	ErrUnknownOperator          = errors.New("quorum: operator not registered")
	ErrOperatorExists           = errors.New("quorum: operator registered with a different key")
	ErrNoStake                  = errors.New("quorum: operator has no stake")
	ErrInvalidSignature         = errors.New("quorum: partial signature does not verify")
	ErrDuplicateSignature       = errors.New("quorum: operator already contributed")
	ErrInvalidProofOfPossession = errors.New("quorum: invalid proof of possession")
	ErrInvalidDeadline          = errors.New("quorum: deadline is in the past")
	ErrCoordinatorClosed        = errors.New("quorum: coordinator closed")
)

// IsRetryable reports whether err ends a round in a way a new round may fix.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrQuorumTimeout) || errors.Is(err, ErrInsufficientStake)
}
