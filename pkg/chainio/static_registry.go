package chainio

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
)

// StaticOperator is one entry of an operator set file.
type StaticOperator struct {
	ID        string `yaml:"id"`
	Stake     string `yaml:"stake"`
	PublicKey string `yaml:"public_key"`
	PoP       string `yaml:"pop"`
}

type staticRegistryFile struct {
	Threshold            string           `yaml:"threshold"`
	ThresholdNumerator   uint64           `yaml:"threshold_numerator"`
	ThresholdDenominator uint64           `yaml:"threshold_denominator"`
	Operators            []StaticOperator `yaml:"operators"`
}

// RegisteredOperator is a parsed operator entry. PublicKey and PoP are nil
// when the file carries stake only.
type RegisteredOperator struct {
	ID        bls.OperatorID
	Stake     *big.Int
	PublicKey *bls.PublicKey
	PoP       *bls.Signature
}

// StaticRegistry serves stakes from a YAML file, for devnets and tests
// where no registry contract is deployed.
type StaticRegistry struct {
	operators []RegisteredOperator
	stakes    map[bls.OperatorID]*big.Int
	threshold *big.Int
}

func LoadStaticRegistry(path string) (*StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read operator set: %w", err)
	}
	return ParseStaticRegistry(data)
}

func ParseStaticRegistry(data []byte) (*StaticRegistry, error) {
	var f staticRegistryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse operator set: %w", err)
	}
	if len(f.Operators) == 0 {
		return nil, errors.New("operator set is empty")
	}

	r := &StaticRegistry{stakes: make(map[bls.OperatorID]*big.Int)}
	total := new(big.Int)
	for i, op := range f.Operators {
		parsed, err := parseStaticOperator(op)
		if err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}
		if _, dup := r.stakes[parsed.ID]; dup {
			return nil, fmt.Errorf("operator %d: %w: %s", i, bls.ErrDuplicateOperator, parsed.ID)
		}
		r.stakes[parsed.ID] = parsed.Stake
		r.operators = append(r.operators, parsed)
		total.Add(total, parsed.Stake)
	}

	switch {
	case f.Threshold != "":
		t, ok := new(big.Int).SetString(f.Threshold, 10)
		if !ok || t.Sign() <= 0 {
			return nil, fmt.Errorf("invalid threshold %q", f.Threshold)
		}
		r.threshold = t
	default:
		num, den := f.ThresholdNumerator, f.ThresholdDenominator
		if num == 0 && den == 0 {
			num, den = 2, 3
		}
		if den == 0 || num == 0 || num > den {
			return nil, fmt.Errorf("invalid threshold fraction %d/%d", num, den)
		}
		r.threshold = ThresholdFraction(total, new(big.Int).SetUint64(num), new(big.Int).SetUint64(den))
	}
	return r, nil
}

func parseStaticOperator(op StaticOperator) (RegisteredOperator, error) {
	var out RegisteredOperator
	stake, ok := new(big.Int).SetString(op.Stake, 10)
	if !ok || stake.Sign() < 0 {
		return out, fmt.Errorf("invalid stake %q", op.Stake)
	}
	out.Stake = stake

	if op.PublicKey != "" {
		raw, err := hexutil.Decode(op.PublicKey)
		if err != nil {
			return out, fmt.Errorf("invalid public key: %w", err)
		}
		pk, err := bls.PublicKeyFromBytes(raw)
		if err != nil {
			return out, fmt.Errorf("invalid public key: %w", err)
		}
		out.PublicKey = pk
		out.ID = pk.OperatorID()
	}
	if op.PoP != "" {
		raw, err := hexutil.Decode(op.PoP)
		if err != nil {
			return out, fmt.Errorf("invalid proof of possession: %w", err)
		}
		pop, err := bls.SignatureFromBytes(raw)
		if err != nil {
			return out, fmt.Errorf("invalid proof of possession: %w", err)
		}
		out.PoP = pop
	}

	if op.ID != "" {
		id, err := bls.OperatorIDFromHex(op.ID)
		if err != nil {
			return out, err
		}
		if out.PublicKey != nil && id != out.ID {
			return out, fmt.Errorf("id %s does not match public key", op.ID)
		}
		out.ID = id
	}
	if out.ID == (bls.OperatorID{}) {
		return out, errors.New("operator needs an id or a public key")
	}
	return out, nil
}

func (r *StaticRegistry) OperatorStake(_ context.Context, id bls.OperatorID) (*big.Int, error) {
	stake, ok := r.stakes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bls.ErrUnknownSigner, id)
	}
	return new(big.Int).Set(stake), nil
}

func (r *StaticRegistry) QuorumThreshold(context.Context) (*big.Int, error) {
	return new(big.Int).Set(r.threshold), nil
}

// Operators lists the entries in file order.
func (r *StaticRegistry) Operators() []RegisteredOperator {
	return append([]RegisteredOperator(nil), r.operators...)
}

// OperatorOrder lists operator ids in file order, for signer bitmaps.
func (r *StaticRegistry) OperatorOrder() []bls.OperatorID {
	out := make([]bls.OperatorID, len(r.operators))
	for i, op := range r.operators {
		out[i] = op.ID
	}
	return out
}
