package chainio

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
)

// Stake registry view functions, as deployed by EigenLayer middleware.
const stakeRegistryABI = `[
	{"type":"function","name":"getCurrentStake","stateMutability":"view",
	 "inputs":[{"name":"operatorId","type":"bytes32"},{"name":"quorumNumber","type":"uint8"}],
	 "outputs":[{"name":"","type":"uint96"}]},
	{"type":"function","name":"getCurrentTotalStake","stateMutability":"view",
	 "inputs":[{"name":"quorumNumber","type":"uint8"}],
	 "outputs":[{"name":"","type":"uint96"}]}
]`

// StakeRegistryReader reads operator stake for one quorum and derives the
// signing threshold as a fraction of total stake.
type StakeRegistryReader struct {
	caller      ethereum.ContractCaller
	address     common.Address
	quorum      uint8
	numerator   *big.Int
	denominator *big.Int
	abi         abi.ABI
}

func NewStakeRegistryReader(caller ethereum.ContractCaller, address common.Address, quorum uint8, numerator, denominator uint64) (*StakeRegistryReader, error) {
	if denominator == 0 || numerator == 0 || numerator > denominator {
		return nil, fmt.Errorf("invalid threshold fraction %d/%d", numerator, denominator)
	}
	parsed, err := abi.JSON(strings.NewReader(stakeRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stake registry abi: %w", err)
	}
	return &StakeRegistryReader{
		caller:      caller,
		address:     address,
		quorum:      quorum,
		numerator:   new(big.Int).SetUint64(numerator),
		denominator: new(big.Int).SetUint64(denominator),
		abi:         parsed,
	}, nil
}

func (r *StakeRegistryReader) call(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	to := r.address
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	vals, err := r.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, vals[0])
	}
	return v, nil
}

// OperatorStake returns the operator's current stake in the quorum.
func (r *StakeRegistryReader) OperatorStake(ctx context.Context, id bls.OperatorID) (*big.Int, error) {
	return r.call(ctx, "getCurrentStake", [32]byte(id), r.quorum)
}

// TotalStake returns the quorum's current total stake.
func (r *StakeRegistryReader) TotalStake(ctx context.Context) (*big.Int, error) {
	return r.call(ctx, "getCurrentTotalStake", r.quorum)
}

// QuorumThreshold is ceil(total * numerator / denominator).
func (r *StakeRegistryReader) QuorumThreshold(ctx context.Context) (*big.Int, error) {
	total, err := r.TotalStake(ctx)
	if err != nil {
		return nil, err
	}
	return ThresholdFraction(total, r.numerator, r.denominator), nil
}

func ThresholdFraction(total, numerator, denominator *big.Int) *big.Int {
	num := new(big.Int).Mul(total, numerator)
	q, m := new(big.Int).QuoRem(num, denominator, new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
