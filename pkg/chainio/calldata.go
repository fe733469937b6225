package chainio

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
)

// AggregateSubmissionSignature is the function the default calldata
// targets. sigma is the G1 aggregate, apkG2 the aggregate key in EVM order.
const AggregateSubmissionSignature = "submitAggregate(bytes32,uint256[2],uint256[4],bytes32[])"

var aggregateSubmissionSelector = crypto.Keccak256([]byte(AggregateSubmissionSignature))[:4]

func aggregateSubmissionArgs() (abi.Arguments, error) {
	bytes32, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		return nil, err
	}
	uint2, err := abi.NewType("uint256[2]", "", nil)
	if err != nil {
		return nil, err
	}
	uint4, err := abi.NewType("uint256[4]", "", nil)
	if err != nil {
		return nil, err
	}
	ids, err := abi.NewType("bytes32[]", "", nil)
	if err != nil {
		return nil, err
	}
	return abi.Arguments{
		{Name: "messageHash", Type: bytes32},
		{Name: "sigma", Type: uint2},
		{Name: "apkG2", Type: uint4},
		{Name: "signers", Type: ids},
	}, nil
}

// AggregateSubmission is the decoded form of the calldata.
type AggregateSubmission struct {
	MessageHash [32]byte
	Sigma       [2]*big.Int
	ApkG2       [4]*big.Int
	Signers     [][32]byte
}

// PackAggregateSubmission encodes a call to submitAggregate. The message
// hash is keccak256 of the signed message.
func PackAggregateSubmission(msg []byte, agg *bls.AggregateSignature, aggPk *bls.PublicKey) ([]byte, error) {
	if agg == nil || aggPk == nil {
		return nil, errors.New("aggregate signature and key are required")
	}
	args, err := aggregateSubmissionArgs()
	if err != nil {
		return nil, err
	}
	var hash [32]byte
	copy(hash[:], crypto.Keccak256(msg))
	signers := agg.Signers()
	ids := make([][32]byte, len(signers))
	for i, id := range signers {
		ids[i] = id
	}
	packed, err := args.Pack(hash, agg.Signature().Point().BigInts(), aggPk.Point().BigInts(), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to pack aggregate submission: %w", err)
	}
	return append(append([]byte(nil), aggregateSubmissionSelector...), packed...), nil
}

// UnpackAggregateSubmission decodes calldata built by PackAggregateSubmission.
func UnpackAggregateSubmission(data []byte) (*AggregateSubmission, error) {
	if len(data) < 4 || string(data[:4]) != string(aggregateSubmissionSelector) {
		return nil, errors.New("not an aggregate submission")
	}
	args, err := aggregateSubmissionArgs()
	if err != nil {
		return nil, err
	}
	vals, err := args.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack aggregate submission: %w", err)
	}
	var out AggregateSubmission
	if err := args.Copy(&out, vals); err != nil {
		return nil, fmt.Errorf("failed to decode aggregate submission: %w", err)
	}
	return &out, nil
}
