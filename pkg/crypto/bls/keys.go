package bls

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
)

// noCopy makes `go vet` flag accidental copies of secret material.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// PrivateKey is a nonzero scalar. It is only handled through pointers and is
// owned by whoever created it.
type PrivateKey struct {
	noCopy noCopy
	s      curve.Scalar
}

func NewPrivateKey(s curve.Scalar) (*PrivateKey, error) {
	if s.IsZero() {
		return nil, ErrZeroPrivateKey
	}
	return &PrivateKey{s: s}, nil
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	s, err := curve.ScalarFromBytes(b)
	if err != nil {
		return nil, err
	}
	return NewPrivateKey(s)
}

func PrivateKeyFromHex(h string) (*PrivateKey, error) {
	raw, err := hexutil.Decode(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return PrivateKeyFromBytes(raw)
}

func (k *PrivateKey) Bytes() []byte {
	return k.s.Bytes()
}

func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{p: curve.G2Generator().Mul(k.s)}
}

// Zeroize wipes the scalar; the key is unusable afterwards.
func (k *PrivateKey) Zeroize() {
	k.s.Zeroize()
}

func (k *PrivateKey) isZero() bool {
	return k == nil || k.s.IsZero()
}

// PublicKey lives in G2.
type PublicKey struct {
	p curve.G2Point
}

// PublicKeyFromBytes decodes a compressed or uncompressed key with full
// curve and subgroup validation.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	p, err := curve.DecodeG2(b)
	if err != nil {
		return nil, err
	}
	return &PublicKey{p: p}, nil
}

func PublicKeyFromPoint(p curve.G2Point) *PublicKey {
	return &PublicKey{p: p}
}

func (pk *PublicKey) Point() curve.G2Point { return pk.p }
func (pk *PublicKey) Bytes() []byte        { return pk.p.Compress() }
func (pk *PublicKey) String() string       { return pk.p.String() }

func (pk *PublicKey) Equal(o *PublicKey) bool {
	if pk == nil || o == nil {
		return pk == o
	}
	return pk.p.Equal(o.p)
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return pk.p.MarshalText()
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	return pk.p.UnmarshalText(text)
}

// OperatorID derives the registry identifier for this key.
func (pk *PublicKey) OperatorID() OperatorID {
	return OperatorIDFromPublicKey(pk)
}

// KeyPair owns a private key and its derived public key.
type KeyPair struct {
	sk *PrivateKey
	pk *PublicKey
}

// GenerateKeyPair samples a fresh key from rng (crypto/rand when nil).
func GenerateKeyPair(rng io.Reader) (*KeyPair, error) {
	s, err := curve.RandomScalar(rng)
	if err != nil {
		return nil, err
	}
	sk, err := NewPrivateKey(s)
	if err != nil {
		return nil, err
	}
	return NewKeyPair(sk), nil
}

func NewKeyPair(sk *PrivateKey) *KeyPair {
	return &KeyPair{sk: sk, pk: sk.PublicKey()}
}

func (kp *KeyPair) PrivateKey() *PrivateKey { return kp.sk }
func (kp *KeyPair) PublicKey() *PublicKey   { return kp.pk }
func (kp *KeyPair) OperatorID() OperatorID  { return kp.pk.OperatorID() }

// Sign signs msg under the default scheme.
func (kp *KeyPair) Sign(msg []byte) (*Signature, error) {
	return Default.Sign(kp.sk, msg)
}

// ProofOfPossession signs the public key under the default scheme.
func (kp *KeyPair) ProofOfPossession() (*Signature, error) {
	return Default.ProofOfPossession(kp.sk)
}

// Destroy zeroizes the private key.
func (kp *KeyPair) Destroy() {
	kp.sk.Zeroize()
}
