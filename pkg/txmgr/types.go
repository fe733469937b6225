package txmgr

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxRequest describes a logical transaction. Submit copies it, so later
// changes by the caller have no effect.
type TxRequest struct {
	// From selects the signing account; zero means the default signer.
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data []byte         `json:"data"`
	// Value in wei; nil means zero.
	Value *big.Int `json:"value"`
	// GasLimit overrides estimation when nonzero.
	GasLimit uint64 `json:"gasLimit"`
	// Label is carried into logs only.
	Label string `json:"label,omitempty"`
}

func (r TxRequest) clone() TxRequest {
	out := r
	out.Data = append([]byte(nil), r.Data...)
	if r.Value != nil {
		out.Value = new(big.Int).Set(r.Value)
	} else {
		out.Value = new(big.Int)
	}
	return out
}

// FeeParams are EIP-1559 fee caps in wei.
type FeeParams struct {
	GasTipCap *big.Int `json:"gasTipCap"`
	GasFeeCap *big.Int `json:"gasFeeCap"`
}

func (f FeeParams) Clone() FeeParams {
	return FeeParams{GasTipCap: cloneBig(f.GasTipCap), GasFeeCap: cloneBig(f.GasFeeCap)}
}

func (f FeeParams) Valid() bool {
	return f.GasTipCap != nil && f.GasFeeCap != nil &&
		f.GasTipCap.Sign() >= 0 && f.GasFeeCap.Cmp(f.GasTipCap) >= 0
}

func (f FeeParams) String() string {
	return fmt.Sprintf("tip=%s cap=%s", f.GasTipCap, f.GasFeeCap)
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// TxState is the lifecycle state of a TxRecord.
type TxState string

const (
	StatePending   TxState = "pending"   // nonce reserved, nothing broadcast yet
	StateBroadcast TxState = "broadcast" // at least one attempt sent, awaiting depth
	StateConfirmed TxState = "confirmed" // included with sufficient depth
	StateFailed    TxState = "failed"    // terminal
)

func (s TxState) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// AttemptState tracks a single signed transaction for a record's nonce.
type AttemptState string

const (
	AttemptBroadcast AttemptState = "broadcast" // in flight
	AttemptReplaced  AttemptState = "replaced"  // superseded by a higher-fee attempt
	AttemptMined     AttemptState = "mined"     // has a receipt
	AttemptDropped   AttemptState = "dropped"   // another attempt took the nonce
)

type Attempt struct {
	Hash   common.Hash  `json:"hash"`
	Fees   FeeParams    `json:"fees"`
	State  AttemptState `json:"state"`
	SentAt time.Time    `json:"sentAt"`
	// RawTx is the signed envelope, kept for rebroadcast after reorgs and restarts.
	RawTx []byte `json:"rawTx"`
}

// Inclusion records where an attempt was mined.
type Inclusion struct {
	Hash        common.Hash `json:"hash"`
	BlockNumber uint64      `json:"blockNumber"`
	BlockHash   common.Hash `json:"blockHash"`
	GasUsed     uint64      `json:"gasUsed"`
}

// TxRecord is the manager's tracking record for one logical request.
type TxRecord struct {
	ID           string         `json:"id"`
	From         common.Address `json:"from"`
	Request      TxRequest      `json:"request"`
	Nonce        uint64         `json:"nonce"`
	GasLimit     uint64         `json:"gasLimit"`
	Fees         FeeParams      `json:"fees"`
	State        TxState        `json:"state"`
	Attempts     []Attempt      `json:"attempts"`
	Replacements int            `json:"replacements"`
	// EverMined is sticky: once any attempt had a receipt the nonce is never
	// returned to the ledger.
	EverMined     bool       `json:"everMined"`
	Inclusion     *Inclusion `json:"inclusion,omitempty"`
	FailureKind   string     `json:"failureKind,omitempty"`
	FailureReason string     `json:"failureReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastSentAt    time.Time  `json:"lastSentAt"`

	Receipt *types.Receipt `json:"-"`
}

// ActiveHash is the hash of the attempt currently in flight, if any.
// A replaced attempt is never reported here again.
func (r *TxRecord) ActiveHash() (common.Hash, bool) {
	for i := len(r.Attempts) - 1; i >= 0; i-- {
		if r.Attempts[i].State == AttemptBroadcast {
			return r.Attempts[i].Hash, true
		}
	}
	return common.Hash{}, false
}

// Hashes lists every hash tried for this request, oldest first.
func (r *TxRecord) Hashes() []common.Hash {
	out := make([]common.Hash, len(r.Attempts))
	for i, a := range r.Attempts {
		out[i] = a.Hash
	}
	return out
}

// Err rebuilds the terminal error of a failed record.
func (r *TxRecord) Err() error {
	if r.State != StateFailed {
		return nil
	}
	var hash common.Hash
	if r.Inclusion != nil {
		hash = r.Inclusion.Hash
	} else if n := len(r.Attempts); n > 0 {
		hash = r.Attempts[n-1].Hash
	}
	return &TxError{Kind: kindFromName(r.FailureKind), TxID: r.ID, Hash: hash, Reason: r.FailureReason}
}

// Clone is a deep copy.
func (r *TxRecord) Clone() *TxRecord {
	out := *r
	out.Request = r.Request.clone()
	out.Fees = r.Fees.Clone()
	out.Attempts = make([]Attempt, len(r.Attempts))
	for i, a := range r.Attempts {
		a.Fees = a.Fees.Clone()
		a.RawTx = append([]byte(nil), a.RawTx...)
		out.Attempts[i] = a
	}
	if r.Inclusion != nil {
		inc := *r.Inclusion
		out.Inclusion = &inc
	}
	return &out
}
