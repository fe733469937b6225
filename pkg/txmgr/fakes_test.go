package txmgr

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

var testChainID = big.NewInt(31337)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.GWei))
}

type fakeChain struct {
	mu           sync.Mutex
	nonce        uint64
	fees         FeeParams
	feeErr       error
	feeCalls     int
	head         uint64
	gas          uint64
	estimateErr  error
	sendErrs     []error
	// keepOnErr stores a transaction even when its send returns an error,
	// like a node that answers after the timeout.
	keepOnErr    bool
	sent         []*types.Transaction
	receipts     map[common.Hash]*types.Receipt
	revertReason string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		fees:     FeeParams{GasTipCap: gwei(1), GasFeeCap: gwei(2)},
		gas:      50_000,
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (c *fakeChain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(testChainID), nil
}

func (c *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce, nil
}

func (c *fakeChain) SuggestFees(context.Context) (FeeParams, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feeCalls++
	if c.feeErr != nil {
		return FeeParams{}, c.feeErr
	}
	return c.fees.Clone(), nil
}

func (c *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gas, c.estimateErr
}

func (c *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sendErrs) > 0 {
		err := c.sendErrs[0]
		c.sendErrs = c.sendErrs[1:]
		if err != nil {
			if c.keepOnErr {
				c.sent = append(c.sent, tx)
			}
			return err
		}
	}
	c.sent = append(c.sent, tx)
	return nil
}

func (c *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipts[hash], nil
}

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *fakeChain) SubscribeNewHead(context.Context, chan<- *types.Header) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (c *fakeChain) RevertReason(context.Context, *types.Transaction, common.Address, *big.Int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revertReason == "" {
		return "", errors.New("no reason")
	}
	return c.revertReason, nil
}

func (c *fakeChain) mine(hash common.Hash, block uint64, status uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[hash] = &types.Receipt{
		TxHash:      hash,
		Status:      status,
		BlockNumber: new(big.Int).SetUint64(block),
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(len(c.receipts)))),
		GasUsed:     21_000,
	}
}

func (c *fakeChain) unmine(hash common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.receipts, hash)
}

func (c *fakeChain) setHead(head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

func (c *fakeChain) sentTxs() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction(nil), c.sent...)
}

type keySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newKeySigner(t *testing.T) *keySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &keySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *keySigner) Address() common.Address { return s.addr }

func (s *keySigner) SignTransaction(_ context.Context, tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(testChainID), s.key)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s *failingStore) SaveNonceState(context.Context, NonceState) error {
	return s.err
}
