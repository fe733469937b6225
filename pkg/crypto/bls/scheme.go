package bls

import (
	"fmt"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
)

// Domain separation tags. Signatures and proofs of possession never share a
// tag so a proof cannot be replayed as a message signature.
const (
	SignatureDST = "BLS_SIG_BN254G1_XMD:SHA-256_SVDW_RO_NUL_"
	PopDST       = "BLS_POP_BN254G1_XMD:SHA-256_SVDW_RO_POP_"
)

// Scheme fixes how messages are hashed to G1. Schemes hold no mutable state
// and are safe for concurrent use.
type Scheme struct {
	mode   curve.HashMode
	sigDST []byte
	popDST []byte
}

// Default hashes with RFC 9380.
var Default = NewScheme(curve.HashRFC9380)

func NewScheme(mode curve.HashMode) *Scheme {
	return &Scheme{
		mode:   mode,
		sigDST: []byte(SignatureDST),
		popDST: []byte(PopDST),
	}
}

func (s *Scheme) HashMode() curve.HashMode {
	return s.mode
}

// HashToPoint maps msg into G1 with the signature tag.
func (s *Scheme) HashToPoint(msg []byte) (curve.G1Point, error) {
	return s.mode.Hash(msg, s.sigDST)
}

func (s *Scheme) Sign(sk *PrivateKey, msg []byte) (*Signature, error) {
	return s.sign(sk, msg, s.sigDST)
}

func (s *Scheme) sign(sk *PrivateKey, msg, dst []byte) (*Signature, error) {
	if sk.isZero() {
		return nil, ErrZeroPrivateKey
	}
	h, err := s.mode.Hash(msg, dst)
	if err != nil {
		return nil, err
	}
	return &Signature{p: h.Mul(sk.s)}, nil
}

// Verify checks a single signature.
func (s *Scheme) Verify(sig *Signature, pk *PublicKey, msg []byte) bool {
	return s.verify(sig, pk, msg, s.sigDST)
}

// VerifyAggregate checks e(sig, g2) == e(H(msg), aggPk). A mismatch is a
// normal false result, not an error.
func (s *Scheme) VerifyAggregate(agg *AggregateSignature, aggPk *PublicKey, msg []byte) bool {
	if agg == nil {
		return false
	}
	return s.verify(agg.sig, aggPk, msg, s.sigDST)
}

func (s *Scheme) verify(sig *Signature, pk *PublicKey, msg, dst []byte) bool {
	if sig == nil || pk == nil || sig.p.IsInfinity() || pk.p.IsInfinity() {
		return false
	}
	h, err := s.mode.Hash(msg, dst)
	if err != nil {
		return false
	}
	ok, err := curve.PairingCheck(
		[]curve.G1Point{sig.p, h},
		[]curve.G2Point{curve.G2Generator().Neg(), pk.p},
	)
	return err == nil && ok
}

// VerifyEncoded decodes and verifies. Malformed or adversarial encodings are
// reported as errors, a well-formed but wrong signature as false.
func (s *Scheme) VerifyEncoded(sigBytes, pkBytes, msg []byte) (bool, error) {
	sig, err := SignatureFromBytes(sigBytes)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	pk, err := PublicKeyFromBytes(pkBytes)
	if err != nil {
		return false, fmt.Errorf("decode public key: %w", err)
	}
	return s.Verify(sig, pk, msg), nil
}

// ProofOfPossession signs the uncompressed public key under the PoP tag.
func (s *Scheme) ProofOfPossession(sk *PrivateKey) (*Signature, error) {
	if sk.isZero() {
		return nil, ErrZeroPrivateKey
	}
	return s.sign(sk, sk.PublicKey().p.Marshal(), s.popDST)
}

// VerifyProofOfPossession must pass before pk is admitted into any aggregate
// built from third-party keys.
func (s *Scheme) VerifyProofOfPossession(pk *PublicKey, pop *Signature) bool {
	if pk == nil {
		return false
	}
	return s.verify(pop, pk, pk.p.Marshal(), s.popDST)
}

func Sign(sk *PrivateKey, msg []byte) (*Signature, error) {
	return Default.Sign(sk, msg)
}

func Verify(sig *Signature, pk *PublicKey, msg []byte) bool {
	return Default.Verify(sig, pk, msg)
}

func VerifyAggregate(agg *AggregateSignature, aggPk *PublicKey, msg []byte) bool {
	return Default.VerifyAggregate(agg, aggPk, msg)
}

func VerifyEncoded(sigBytes, pkBytes, msg []byte) (bool, error) {
	return Default.VerifyEncoded(sigBytes, pkBytes, msg)
}

func ProofOfPossession(sk *PrivateKey) (*Signature, error) {
	return Default.ProofOfPossession(sk)
}

func VerifyProofOfPossession(pk *PublicKey, pop *Signature) bool {
	return Default.VerifyProofOfPossession(pk, pop)
}
