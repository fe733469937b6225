package bls

import (
	"fmt"
	"math/big"
)

// WeightedPartial is one operator's partial signature with its stake.
type WeightedPartial struct {
	Operator  OperatorID
	PublicKey *PublicKey
	Signature *Signature
	Stake     *big.Int
}

// QuorumResult is the aggregate built from the first arrival-order prefix of
// valid partials whose stake reached the threshold.
type QuorumResult struct {
	Aggregate    *AggregateSignature
	AggregateKey *PublicKey
	Stake        *big.Int
	// Rejected lists operators whose partials were skipped as invalid.
	Rejected []OperatorID
}

// VerifyQuorum walks partials in arrival order, drops any that do not verify
// individually (or repeat an operator), and stops at the first point where
// the accumulated stake meets threshold. Later partials never affect the
// result.
func (s *Scheme) VerifyQuorum(partials []WeightedPartial, msg []byte, threshold *big.Int) (*QuorumResult, error) {
	if threshold == nil || threshold.Sign() <= 0 {
		return nil, ErrInvalidThreshold
	}

	var (
		accepted []Contribution
		keys     []*PublicKey
		rejected []OperatorID
		seen     = make(map[OperatorID]struct{}, len(partials))
		stake    = new(big.Int)
	)
	for _, p := range partials {
		if _, dup := seen[p.Operator]; dup {
			rejected = append(rejected, p.Operator)
			continue
		}
		if p.Stake == nil || p.Stake.Sign() <= 0 || !s.Verify(p.Signature, p.PublicKey, msg) {
			rejected = append(rejected, p.Operator)
			continue
		}
		seen[p.Operator] = struct{}{}
		accepted = append(accepted, Contribution{Operator: p.Operator, Signature: p.Signature})
		keys = append(keys, p.PublicKey)
		stake.Add(stake, p.Stake)

		if stake.Cmp(threshold) >= 0 {
			agg, err := AggregateContributions(accepted)
			if err != nil {
				return nil, err
			}
			aggPk, err := AggregatePublicKeys(keys)
			if err != nil {
				return nil, err
			}
			return &QuorumResult{
				Aggregate:    agg,
				AggregateKey: aggPk,
				Stake:        stake,
				Rejected:     rejected,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientStake, stake, threshold)
}

func VerifyQuorum(partials []WeightedPartial, msg []byte, threshold *big.Int) (*QuorumResult, error) {
	return Default.VerifyQuorum(partials, msg, threshold)
}
