package chainio

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Layr-Labs/eigensdk-go/signerv2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

// SignerConfig selects a key backend. Exactly one of PrivateKeyHex,
// KeystorePath or RemoteURL should be set.
type SignerConfig struct {
	PrivateKeyHex string
	KeystorePath  string
	Password      string
	// RemoteURL is a web3signer endpoint; Address names the remote account.
	RemoteURL string
	Address   common.Address
}

var _ txmgr.Signer = (*Signer)(nil)

// Signer wraps an eigensdk signerv2 signer, which covers local keys,
// encrypted keystores and remote signing services.
type Signer struct {
	address common.Address
	fn      signerv2.SignerFn
}

func NewSigner(cfg SignerConfig, chainID *big.Int) (*Signer, error) {
	sc := signerv2.Config{
		KeystorePath: cfg.KeystorePath,
		Password:     cfg.Password,
		Endpoint:     cfg.RemoteURL,
	}
	if cfg.Address != (common.Address{}) {
		sc.Address = cfg.Address.Hex()
	}
	if cfg.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		sc.PrivateKey = key
	}
	if sc.PrivateKey == nil && sc.KeystorePath == "" && sc.Endpoint == "" {
		return nil, errors.New("no signer configured")
	}
	fn, addr, err := signerv2.SignerFromConfig(sc, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	return &Signer{address: addr, fn: fn}, nil
}

// NewPrivateKeySigner signs with an in-memory key.
func NewPrivateKeySigner(key *ecdsa.PrivateKey, chainID *big.Int) (*Signer, error) {
	fn, addr, err := signerv2.SignerFromConfig(signerv2.Config{PrivateKey: key}, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	return &Signer{address: addr, fn: fn}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	signFn, err := s.fn(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain signer for %s: %w", s.address.Hex(), err)
	}
	return signFn(s.address, tx)
}
