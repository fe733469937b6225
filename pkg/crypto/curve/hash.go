package curve

import (
	"fmt"

	bn254utils "github.com/Layr-Labs/eigensdk-go/crypto/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashMode selects how messages are mapped onto G1.
type HashMode int

const (
	// HashRFC9380 is hash_to_curve with expand_message_xmd(SHA-256) and the
	// Shallue-van de Woestijne map.
	HashRFC9380 HashMode = iota
	// HashKeccak is keccak256 followed by the try-and-increment map used by
	// the EigenLayer BN254 contracts, so signatures verify on-chain.
	HashKeccak
)

func (m HashMode) String() string {
	switch m {
	case HashRFC9380:
		return "rfc9380"
	case HashKeccak:
		return "keccak"
	default:
		return fmt.Sprintf("HashMode(%d)", int(m))
	}
}

// ParseHashMode is the inverse of HashMode.String.
func ParseHashMode(s string) (HashMode, error) {
	switch s {
	case "rfc9380", "":
		return HashRFC9380, nil
	case "keccak":
		return HashKeccak, nil
	default:
		return 0, fmt.Errorf("unknown hash mode %q", s)
	}
}

// HashToG1 maps msg to G1 under the given domain separation tag.
func HashToG1(msg, dst []byte) (G1Point, error) {
	p, err := bn254.HashToG1(msg, dst)
	if err != nil {
		return G1Point{}, fmt.Errorf("hash to G1: %w", err)
	}
	return G1Point{p: p}, nil
}

// HashToG1Keccak maps keccak256(dst || msg) to G1.
func HashToG1Keccak(msg, dst []byte) G1Point {
	return MapDigestToG1(crypto.Keccak256Hash(dst, msg))
}

// MapDigestToG1 maps a 32-byte digest to G1 exactly as the on-chain
// BN254.hashToG1 does.
func MapDigestToG1(digest [32]byte) G1Point {
	return G1Point{p: *bn254utils.MapToCurve(digest)}
}

// Hash dispatches on mode.
func (m HashMode) Hash(msg, dst []byte) (G1Point, error) {
	switch m {
	case HashRFC9380:
		return HashToG1(msg, dst)
	case HashKeccak:
		return HashToG1Keccak(msg, dst), nil
	default:
		return G1Point{}, fmt.Errorf("unsupported hash mode %d", int(m))
	}
}
