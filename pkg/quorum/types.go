package quorum

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

// Phase is a round's position in its state machine:
// Collecting -> ThresholdMet -> Finalized, or Collecting -> Expired/Cancelled,
// or ThresholdMet -> Failed when aggregation or submission fails.
type Phase int

const (
	PhaseCollecting Phase = iota
	PhaseThresholdMet
	PhaseFinalized
	PhaseExpired
	PhaseCancelled
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseThresholdMet:
		return "threshold_met"
	case PhaseFinalized:
		return "finalized"
	case PhaseExpired:
		return "expired"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p Phase) Terminal() bool {
	return p >= PhaseFinalized
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Registry supplies stake weights. Implementations are in pkg/chainio.
type Registry interface {
	OperatorStake(ctx context.Context, id bls.OperatorID) (*big.Int, error)
	QuorumThreshold(ctx context.Context) (*big.Int, error)
}

// Submitter hands transactions to the transaction manager.
type Submitter interface {
	Submit(ctx context.Context, req txmgr.TxRequest) (*txmgr.TxHandle, error)
}

// TxBuilder turns a finished aggregate into a transaction request.
type TxBuilder func(msg []byte, agg *bls.AggregateSignature, aggPk *bls.PublicKey) (txmgr.TxRequest, error)

// Result is what a finalized round yields.
type Result struct {
	Aggregate          *bls.AggregateSignature
	AggregatePublicKey *bls.PublicKey
	TotalStake         *big.Int
	// Tx is nil when the coordinator has no submitter.
	Tx *txmgr.TxHandle
}

// RoundState is a point-in-time view of a round.
type RoundState struct {
	ID           string           `json:"id"`
	Phase        Phase            `json:"phase"`
	Message      hexutil.Bytes    `json:"message"`
	Threshold    *big.Int         `json:"threshold"`
	Stake        *big.Int         `json:"stake"`
	Contributors []bls.OperatorID `json:"contributors"`
	StartedAt    time.Time        `json:"startedAt"`
	Deadline     time.Time        `json:"deadline"`
	TxID         string           `json:"txId,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type Config struct {
	// DefaultRoundTimeout applies when StartRound gets a zero deadline.
	DefaultRoundTimeout time.Duration
	// SubmitTimeout bounds handing the aggregate to the transaction manager.
	SubmitTimeout time.Duration
	// FinishedRounds is how many ended rounds stay queryable.
	FinishedRounds int
}

func DefaultConfig() Config {
	return Config{
		DefaultRoundTimeout: 30 * time.Second,
		SubmitTimeout:       time.Minute,
		FinishedRounds:      256,
	}
}
