// Package chainio adapts go-ethereum clients and EigenLayer signers to the
// interfaces used by the transaction manager and quorum coordinator.
package chainio

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/retry"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

// Backend is the part of *ethclient.Client the adapter calls.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var (
	_ txmgr.ChainClient    = (*EthClient)(nil)
	_ txmgr.RevertReasoner = (*EthClient)(nil)
	_ Backend              = (*ethclient.Client)(nil)
)

// EthClient implements txmgr.ChainClient. Reads are retried; sends are not,
// since the manager classifies send errors itself.
type EthClient struct {
	backend Backend
	ws      Backend
	logger  logging.Logger
	retry   *retry.RetryConfig
	closers []func()
}

// Dial connects to the HTTP endpoint and, when wsURL is set, a websocket
// endpoint used only for head subscriptions.
func Dial(ctx context.Context, rpcURL, wsURL string, logger logging.Logger) (*EthClient, error) {
	httpClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	c := NewEthClient(httpClient, logger)
	c.closers = append(c.closers, httpClient.Close)
	if wsURL != "" {
		wsClient, err := ethclient.DialContext(ctx, wsURL)
		if err != nil {
			httpClient.Close()
			return nil, fmt.Errorf("failed to dial %s: %w", wsURL, err)
		}
		c.ws = wsClient
		c.closers = append(c.closers, wsClient.Close)
	}
	return c, nil
}

func NewEthClient(backend Backend, logger logging.Logger) *EthClient {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	rc := retry.DefaultRetryConfig()
	rc.MaxAttempts = 3
	rc.InitialDelay = 200 * time.Millisecond
	rc.MaxDelay = 2 * time.Second
	rc.ShouldRetry = func(err error, _ int) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return &EthClient{backend: backend, logger: logger, retry: rc}
}

func (c *EthClient) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
}

func (c *EthClient) ChainID(ctx context.Context) (*big.Int, error) {
	return retry.Retry(ctx, func() (*big.Int, error) {
		return c.backend.ChainID(ctx)
	}, c.retry, c.logger)
}

func (c *EthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return retry.Retry(ctx, func() (uint64, error) {
		return c.backend.PendingNonceAt(ctx, account)
	}, c.retry, c.logger)
}

// SuggestFees returns tip = eth_maxPriorityFeePerGas and
// feeCap = 2*baseFee + tip. Pre-London chains get the legacy gas price for
// both caps.
func (c *EthClient) SuggestFees(ctx context.Context) (txmgr.FeeParams, error) {
	header, err := retry.Retry(ctx, func() (*types.Header, error) {
		return c.backend.HeaderByNumber(ctx, nil)
	}, c.retry, c.logger)
	if err != nil {
		return txmgr.FeeParams{}, fmt.Errorf("failed to fetch latest header: %w", err)
	}
	if header.BaseFee == nil {
		price, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return txmgr.FeeParams{}, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		return txmgr.FeeParams{GasTipCap: price, GasFeeCap: new(big.Int).Set(price)}, nil
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return txmgr.FeeParams{}, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	feeCap := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)
	return txmgr.FeeParams{GasTipCap: tip, GasFeeCap: feeCap}, nil
}

func (c *EthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.backend.EstimateGas(ctx, msg)
}

func (c *EthClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.backend.SendTransaction(ctx, tx)
}

// TransactionReceipt maps "not found" to (nil, nil).
func (c *EthClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return retry.Retry(ctx, func() (*types.Receipt, error) {
		r, err := c.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return r, err
	}, c.retry, c.logger)
}

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return retry.Retry(ctx, func() (uint64, error) {
		return c.backend.BlockNumber(ctx)
	}, c.retry, c.logger)
}

func (c *EthClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if c.ws == nil {
		return c.backend.SubscribeNewHead(ctx, ch)
	}
	return c.ws.SubscribeNewHead(ctx, ch)
}

func (c *EthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return retry.Retry(ctx, func() ([]byte, error) {
		out, err := c.backend.CallContract(ctx, msg, blockNumber)
		if err != nil && isRevert(err) {
			return nil, retry.Permanent(err)
		}
		return out, err
	}, c.retry, c.logger)
}

// RevertReason replays tx as a call at blockNumber and decodes the
// Error(string) payload.
func (c *EthClient) RevertReason(ctx context.Context, tx *types.Transaction, from common.Address, blockNumber *big.Int) (string, error) {
	msg := ethereum.CallMsg{
		From:      from,
		To:        tx.To(),
		Gas:       tx.Gas(),
		GasFeeCap: tx.GasFeeCap(),
		GasTipCap: tx.GasTipCap(),
		Value:     tx.Value(),
		Data:      tx.Data(),
	}
	_, err := c.backend.CallContract(ctx, msg, blockNumber)
	if err == nil {
		return "", errors.New("call succeeded on replay")
	}
	return DecodeRevert(err), nil
}

// DecodeRevert extracts a readable reason from a JSON-RPC call error.
func DecodeRevert(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason
				}
				if len(data) >= 4 {
					return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4]))
				}
			}
		}
	}
	return err.Error()
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	return errors.As(err, &dataErr)
}
