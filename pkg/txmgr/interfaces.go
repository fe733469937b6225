package txmgr

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainClient is the subset of node RPC the manager relies on.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestFees(ctx context.Context) (FeeParams, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	// TransactionReceipt returns (nil, nil) when the hash is not included.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// RevertReasoner is optionally implemented by chain clients able to replay a
// reverted transaction and decode its reason.
type RevertReasoner interface {
	RevertReason(ctx context.Context, tx *types.Transaction, from common.Address, blockNumber *big.Int) (string, error)
}

// Signer signs transactions for one account. Implementations may hold key
// material locally or call a remote signing service.
type Signer interface {
	Address() common.Address
	SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)
}

// NonceSource reads the account nonce from chain.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// FeeSource produces market fee estimates.
type FeeSource interface {
	SuggestFees(ctx context.Context) (FeeParams, error)
}

// NonceState is the durable form of one account's ledger entry.
type NonceState struct {
	Account  common.Address `json:"account"`
	Next     uint64         `json:"next"`
	Released []uint64       `json:"released"`
}

// NonceStore persists ledger entries.
type NonceStore interface {
	SaveNonceState(ctx context.Context, state NonceState) error
}

// Store persists the ledger and in-flight records across restarts.
type Store interface {
	NonceStore
	LoadNonceStates(ctx context.Context) ([]NonceState, error)
	SaveRecord(ctx context.Context, record *TxRecord) error
	DeleteRecord(ctx context.Context, id string) error
	LoadRecords(ctx context.Context) ([]*TxRecord, error)
}
