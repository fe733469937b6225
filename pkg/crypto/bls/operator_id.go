package bls

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// OperatorID is the 32-byte registry identifier of an operator.
type OperatorID [32]byte

// OperatorIDFromPublicKey is keccak256 of the uncompressed G2 key.
func OperatorIDFromPublicKey(pk *PublicKey) OperatorID {
	return OperatorID(crypto.Keccak256Hash(pk.p.Marshal()))
}

func OperatorIDFromHex(h string) (OperatorID, error) {
	var id OperatorID
	raw, err := hexutil.Decode(h)
	if err != nil {
		return id, fmt.Errorf("invalid operator id: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid operator id: want %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func (id OperatorID) Hex() string    { return hexutil.Encode(id[:]) }
func (id OperatorID) String() string { return id.Hex() }

// Short is a log-friendly abbreviation.
func (id OperatorID) Short() string {
	return common.Bytes2Hex(id[:4])
}

func (id OperatorID) Less(o OperatorID) bool {
	return bytes.Compare(id[:], o[:]) < 0
}

func (id OperatorID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

func (id *OperatorID) UnmarshalText(text []byte) error {
	parsed, err := OperatorIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
