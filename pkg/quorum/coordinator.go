package quorum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/trigg3rX/triggerx-chainio/pkg/chainio"
	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/metrics"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

// Coordinator collects partial signatures per round and finalizes a round
// once contributing stake reaches the threshold read at round start.
type Coordinator struct {
	cfg       Config
	registry  Registry
	scheme    *bls.Scheme
	submitter Submitter
	builder   TxBuilder
	logger    logging.Logger
	metrics   *metrics.QuorumMetrics
	now       func() time.Time

	mu        sync.Mutex
	closed    bool
	operators map[bls.OperatorID]*bls.PublicKey
	rounds    map[string]*round
	finished  *lru.Cache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Coordinator)

func WithMetrics(m *metrics.QuorumMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New builds a coordinator. scheme nil means bls.Default. submitter and
// builder may both be nil, in which case rounds finalize without a
// transaction.
func New(cfg Config, registry Registry, scheme *bls.Scheme, submitter Submitter, builder TxBuilder, logger logging.Logger, opts ...Option) (*Coordinator, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if (submitter == nil) != (builder == nil) {
		return nil, errors.New("submitter and builder must be set together")
	}
	if cfg.DefaultRoundTimeout <= 0 || cfg.SubmitTimeout <= 0 || cfg.FinishedRounds < 1 {
		return nil, fmt.Errorf("invalid quorum config: %+v", cfg)
	}
	if scheme == nil {
		scheme = bls.Default
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	finished, err := lru.New(cfg.FinishedRounds)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:       cfg,
		registry:  registry,
		scheme:    scheme,
		submitter: submitter,
		builder:   builder,
		logger:    logger,
		now:       time.Now,
		operators: make(map[bls.OperatorID]*bls.PublicKey),
		rounds:    make(map[string]*round),
		finished:  finished,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewQuorumMetrics(nil, "")
	}
	return c, nil
}

// NewCalldataBuilder returns a TxBuilder calling submitAggregate on to.
func NewCalldataBuilder(to common.Address) TxBuilder {
	return func(msg []byte, agg *bls.AggregateSignature, aggPk *bls.PublicKey) (txmgr.TxRequest, error) {
		data, err := chainio.PackAggregateSubmission(msg, agg, aggPk)
		if err != nil {
			return txmgr.TxRequest{}, err
		}
		return txmgr.TxRequest{To: to, Data: data, Label: "aggregate"}, nil
	}
}

// RegisterOperator admits a public key after checking its proof of
// possession. Keys without a valid proof never enter an aggregate.
func (c *Coordinator) RegisterOperator(ctx context.Context, id bls.OperatorID, pk *bls.PublicKey, pop *bls.Signature) error {
	if pk == nil || pop == nil {
		return ErrInvalidProofOfPossession
	}
	if !c.scheme.VerifyProofOfPossession(pk, pop) {
		return ErrInvalidProofOfPossession
	}
	stake, err := c.registry.OperatorStake(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read stake for %s: %w", id, err)
	}
	if stake.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrNoStake, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.operators[id]; ok {
		if existing.Equal(pk) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrOperatorExists, id)
	}
	c.operators[id] = pk
	c.logger.Info("Operator registered", "operator", id.Short(), "stake", stake)
	return nil
}

// Operators lists registered operator ids.
func (c *Coordinator) Operators() []bls.OperatorID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bls.OperatorID, 0, len(c.operators))
	for id := range c.operators {
		out = append(out, id)
	}
	return out
}

// StartRound opens a round for msg. A zero deadline uses the configured
// default timeout.
func (c *Coordinator) StartRound(ctx context.Context, msg []byte, deadline time.Time) (*Handle, error) {
	now := c.now()
	if deadline.IsZero() {
		deadline = now.Add(c.cfg.DefaultRoundTimeout)
	}
	if !deadline.After(now) {
		return nil, ErrInvalidDeadline
	}
	threshold, err := c.registry.QuorumThreshold(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read quorum threshold: %w", err)
	}
	if threshold == nil || threshold.Sign() <= 0 {
		return nil, bls.ErrInvalidThreshold
	}

	r := newRound(uuid.NewString(), msg, threshold, now, deadline)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCoordinatorClosed
	}
	c.rounds[r.id] = r
	r.arm(deadline.Sub(now), func() { c.expire(r) })
	c.mu.Unlock()

	c.metrics.ActiveRounds.Inc()
	c.logger.Info("Quorum round started", "round", r.id, "threshold", threshold, "deadline", deadline.Format(time.RFC3339))
	return &Handle{r: r}, nil
}

func (c *Coordinator) lookup(id string) (*round, error) {
	c.mu.Lock()
	r, ok := c.rounds[id]
	c.mu.Unlock()
	if ok {
		return r, nil
	}
	if v, ok := c.finished.Get(id); ok {
		return v.(*round), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownRound, id)
}

func (c *Coordinator) operatorKey(id bls.OperatorID) (*bls.PublicKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pk, ok := c.operators[id]
	return pk, ok
}

// AddPartialSignature records one operator's signature for a round. It
// returns ErrRoundClosed once the round has stopped collecting, so late
// contributions never change a result.
func (c *Coordinator) AddPartialSignature(ctx context.Context, roundID string, operator bls.OperatorID, sig *bls.Signature) error {
	r, err := c.lookup(roundID)
	if err != nil {
		return err
	}
	pk, ok := c.operatorKey(operator)
	if !ok {
		c.metrics.PartialSignatures.WithLabelValues("unknown_operator").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownOperator, operator)
	}
	if err := r.admissible(operator); err != nil {
		c.metrics.PartialSignatures.WithLabelValues("rejected").Inc()
		return err
	}
	if sig == nil || !c.scheme.Verify(sig, pk, r.msg) {
		c.metrics.PartialSignatures.WithLabelValues("invalid").Inc()
		c.logger.Warn("Invalid partial signature", "round", r.id, "operator", operator.Short())
		return ErrInvalidSignature
	}
	stake, err := c.registry.OperatorStake(ctx, operator)
	if err != nil {
		return fmt.Errorf("failed to read stake for %s: %w", operator, err)
	}
	if stake.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrNoStake, operator)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCoordinatorClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	partials, crossed, err := r.add(bls.WeightedPartial{
		Operator:  operator,
		PublicKey: pk,
		Signature: sig,
		Stake:     stake,
	})
	if err != nil {
		c.wg.Done()
		c.metrics.PartialSignatures.WithLabelValues("rejected").Inc()
		return err
	}
	c.metrics.PartialSignatures.WithLabelValues("accepted").Inc()
	c.logger.Debug("Partial signature accepted", "round", r.id, "operator", operator.Short(), "stake", stake)

	if !crossed {
		c.wg.Done()
		return nil
	}
	go func() {
		defer c.wg.Done()
		c.finalize(r, partials)
	}()
	return nil
}

// finalize aggregates the contributing prefix and submits it.
func (c *Coordinator) finalize(r *round, partials []bls.WeightedPartial) {
	res, err := c.scheme.VerifyQuorum(partials, r.msg, r.threshold)
	if err != nil {
		c.end(r, PhaseFailed, nil, fmt.Errorf("aggregation failed: %w", err))
		return
	}
	result := &Result{
		Aggregate:          res.Aggregate,
		AggregatePublicKey: res.AggregateKey,
		TotalStake:         res.Stake,
	}

	if c.submitter != nil {
		req, err := c.builder(r.msg, res.Aggregate, res.AggregateKey)
		if err != nil {
			c.end(r, PhaseFailed, nil, fmt.Errorf("failed to build transaction: %w", err))
			return
		}
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.SubmitTimeout)
		handle, err := c.submitter.Submit(ctx, req)
		cancel()
		if err != nil {
			c.end(r, PhaseFailed, nil, fmt.Errorf("failed to submit aggregate: %w", err))
			return
		}
		result.Tx = handle
	}
	c.end(r, PhaseFinalized, result, nil)
}

func (c *Coordinator) expire(r *round) {
	stake, threshold := r.progress()
	err := fmt.Errorf("%w: have %s of %s stake", ErrQuorumTimeout, stake, threshold)
	c.end(r, PhaseExpired, nil, err)
}

// Cancel discards a collecting round.
func (c *Coordinator) Cancel(id string) error {
	r, err := c.lookup(id)
	if err != nil {
		return err
	}
	if !c.end(r, PhaseCancelled, nil, ErrRoundCancelled) {
		return ErrRoundClosed
	}
	return nil
}

// end moves r to a terminal phase and retires it. Expired and Cancelled
// only apply to collecting rounds. It reports whether the transition
// happened.
func (c *Coordinator) end(r *round, phase Phase, res *Result, err error) bool {
	if !r.finish(phase, res, err) {
		return false
	}
	c.mu.Lock()
	delete(c.rounds, r.id)
	c.mu.Unlock()
	c.finished.Add(r.id, r)

	c.metrics.ActiveRounds.Dec()
	c.metrics.Rounds.WithLabelValues(phase.String()).Inc()
	switch phase {
	case PhaseFinalized:
		c.metrics.RoundDuration.Observe(c.now().Sub(r.startedAt).Seconds())
		c.logger.Info("Quorum round finalized", "round", r.id, "stake", res.TotalStake, "signers", len(res.Aggregate.Signers()))
	case PhaseCancelled:
		c.logger.Info("Quorum round cancelled", "round", r.id)
	default:
		c.logger.Warn("Quorum round ended", "round", r.id, "phase", phase.String(), "error", err)
	}
	return true
}

// Round returns a snapshot of a live or recently ended round.
func (c *Coordinator) Round(id string) (RoundState, error) {
	r, err := c.lookup(id)
	if err != nil {
		return RoundState{}, err
	}
	return r.state(), nil
}

// Handle returns the handle of a live or recently ended round.
func (c *Coordinator) Handle(id string) (*Handle, error) {
	r, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return &Handle{r: r}, nil
}

// Close cancels every collecting round and waits for in-flight
// submissions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	live := make([]*round, 0, len(c.rounds))
	for _, r := range c.rounds {
		live = append(live, r)
	}
	c.mu.Unlock()

	for _, r := range live {
		c.end(r, PhaseCancelled, nil, ErrCoordinatorClosed)
	}
	c.cancel()
	c.wg.Wait()
}

// Handle follows one round.
type Handle struct {
	r *round
}

func (h *Handle) ID() string { return h.r.id }

func (h *Handle) State() RoundState { return h.r.state() }

// Done is closed when the round ends.
func (h *Handle) Done() <-chan struct{} { return h.r.done }

// Wait blocks until the round ends. It returns the result of a finalized
// round, or the error that ended it (ErrQuorumTimeout on expiry).
func (h *Handle) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-h.r.done:
		return h.r.outcome()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// stakeOf sums partial stakes.
func stakeOf(partials []bls.WeightedPartial) *big.Int {
	total := new(big.Int)
	for _, p := range partials {
		total.Add(total, p.Stake)
	}
	return total
}
