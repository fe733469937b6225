package quorum

import (
	"math/big"
	"sync"
	"time"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
)

// round is the QuorumState of one message. All fields below mu change only
// through add and finish.
type round struct {
	id        string
	msg       []byte
	threshold *big.Int
	startedAt time.Time
	deadline  time.Time
	done      chan struct{}

	mu       sync.Mutex
	timer    *time.Timer
	phase    Phase
	partials []bls.WeightedPartial
	seen     map[bls.OperatorID]struct{}
	result   *Result
	err      error
}

func newRound(id string, msg []byte, threshold *big.Int, startedAt, deadline time.Time) *round {
	return &round{
		id:        id,
		msg:       append([]byte(nil), msg...),
		threshold: new(big.Int).Set(threshold),
		startedAt: startedAt,
		deadline:  deadline,
		done:      make(chan struct{}),
		phase:     PhaseCollecting,
		seen:      make(map[bls.OperatorID]struct{}),
	}
}

// arm schedules onExpire at the deadline.
func (r *round) arm(d time.Duration, onExpire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timer = time.AfterFunc(d, onExpire)
}

// admissible is a cheap pre-check before signature verification.
func (r *round) admissible(op bls.OperatorID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseCollecting {
		return ErrRoundClosed
	}
	if _, dup := r.seen[op]; dup {
		return ErrDuplicateSignature
	}
	return nil
}

// add appends a verified partial. When the stake reaches the threshold the
// round moves to ThresholdMet and the contributing partials are returned.
func (r *round) add(p bls.WeightedPartial) ([]bls.WeightedPartial, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseCollecting {
		return nil, false, ErrRoundClosed
	}
	if _, dup := r.seen[p.Operator]; dup {
		return nil, false, ErrDuplicateSignature
	}
	r.seen[p.Operator] = struct{}{}
	r.partials = append(r.partials, p)
	if stakeOf(r.partials).Cmp(r.threshold) < 0 {
		return nil, false, nil
	}
	r.phase = PhaseThresholdMet
	if r.timer != nil {
		r.timer.Stop()
	}
	return append([]bls.WeightedPartial(nil), r.partials...), true, nil
}

// finish applies a terminal phase. Expired and Cancelled require the round
// to still be collecting; Finalized and Failed require ThresholdMet.
func (r *round) finish(phase Phase, res *Result, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch phase {
	case PhaseExpired, PhaseCancelled:
		if r.phase != PhaseCollecting {
			return false
		}
	case PhaseFinalized, PhaseFailed:
		if r.phase != PhaseThresholdMet {
			return false
		}
	default:
		return false
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.phase = phase
	r.result = res
	r.err = err
	close(r.done)
	return true
}

func (r *round) progress() (*big.Int, *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return stakeOf(r.partials), new(big.Int).Set(r.threshold)
}

func (r *round) outcome() (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}

func (r *round) state() RoundState {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := RoundState{
		ID:        r.id,
		Phase:     r.phase,
		Message:   append([]byte(nil), r.msg...),
		Threshold: new(big.Int).Set(r.threshold),
		Stake:     stakeOf(r.partials),
		StartedAt: r.startedAt,
		Deadline:  r.deadline,
	}
	for _, p := range r.partials {
		s.Contributors = append(s.Contributors, p.Operator)
	}
	if r.result != nil && r.result.Tx != nil {
		s.TxID = r.result.Tx.ID()
	}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	return s
}
