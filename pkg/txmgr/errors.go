package txmgr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Failure kinds. Underpriced and transient broadcast failures are retried
// internally; the rest reach the caller through TxError.
var (
	ErrUnderpriced           = errors.New("underpriced")
	ErrNonceTooLow           = errors.New("nonce too low")
	ErrReverted              = errors.New("reverted")
	ErrReplacementsExhausted = errors.New("replacements exhausted")
	ErrBroadcastFailed       = errors.New("broadcast failed")
)

var (
	ErrUnknownTx        = errors.New("txmgr: unknown transaction")
	ErrManagerStopped   = errors.New("txmgr: manager not running")
	ErrNonceNotReserved = errors.New("txmgr: nonce was not reserved")
	ErrNoSigner         = errors.New("txmgr: no signer for account")
	ErrInvalidFees      = errors.New("txmgr: invalid fee parameters")
)

var errorKinds = []error{
	ErrUnderpriced, ErrNonceTooLow, ErrReverted, ErrReplacementsExhausted, ErrBroadcastFailed,
}

func kindFromName(name string) error {
	for _, k := range errorKinds {
		if k.Error() == name {
			return k
		}
	}
	return ErrBroadcastFailed
}

// TxError is the terminal error of a transaction request.
type TxError struct {
	Kind   error
	TxID   string
	Hash   common.Hash
	Reason string
	Err    error
}

func (e *TxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tx %s: %v", e.TxID, e.Kind)
	if e.Hash != (common.Hash{}) {
		fmt.Fprintf(&b, " (hash %s)", e.Hash.Hex())
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TxError) Is(target error) bool {
	return target == e.Kind
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// sendOutcome classifies a node's answer to eth_sendRawTransaction.
type sendOutcome int

const (
	sendAccepted sendOutcome = iota
	sendUnderpriced
	sendNonceTooLow
	sendFatal
	sendTransient
)

func (o sendOutcome) String() string {
	switch o {
	case sendAccepted:
		return "accepted"
	case sendUnderpriced:
		return "underpriced"
	case sendNonceTooLow:
		return "nonce_too_low"
	case sendFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// classifySend maps geth txpool error strings onto outcomes. Node errors
// reach us as JSON-RPC messages, so matching on text is the only option.
func classifySend(err error) sendOutcome {
	if err == nil {
		return sendAccepted
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already known"),
		strings.Contains(msg, "known transaction"),
		strings.Contains(msg, "already imported"):
		return sendAccepted
	case strings.Contains(msg, "nonce too low"):
		return sendNonceTooLow
	case strings.Contains(msg, "underpriced"),
		strings.Contains(msg, "less than block base fee"),
		strings.Contains(msg, "fee too low"):
		return sendUnderpriced
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "intrinsic gas too low"),
		strings.Contains(msg, "exceeds block gas limit"),
		strings.Contains(msg, "invalid sender"),
		strings.Contains(msg, "transaction type not supported"),
		strings.Contains(msg, "max priority fee per gas higher than max fee per gas"),
		strings.Contains(msg, "oversized data"):
		return sendFatal
	default:
		return sendTransient
	}
}

func isRevertError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
