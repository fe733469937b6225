package txmgr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/metrics"
	"github.com/trigg3rX/triggerx-chainio/pkg/retry"
)

// Manager drives transaction requests from submission to confirmation.
type Manager struct {
	cfg     Config
	chain   ChainClient
	store   Store
	logger  logging.Logger
	metrics *metrics.TxMetrics
	now     func() time.Time

	signers       map[common.Address]Signer
	defaultSigner common.Address

	ledger *NonceLedger
	fees   *FeeTracker

	mu       sync.RWMutex
	running  bool
	chainID  *big.Int
	tracked  map[string]*tracked
	finished *lru.Cache

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Manager)

func WithMetrics(m *metrics.TxMetrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithSigner registers an additional account. Requests select it through
// TxRequest.From.
func WithSigner(s Signer) Option {
	return func(mgr *Manager) { mgr.signers[s.Address()] = s }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

// New builds a manager. store may be nil, in which case state only lives
// in memory.
func New(cfg Config, chain ChainClient, signer Signer, store Store, logger logging.Logger, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid txmgr config: %w", err)
	}
	if chain == nil {
		return nil, errors.New("chain client is required")
	}
	if signer == nil {
		return nil, ErrNoSigner
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	finished, err := lru.New(cfg.FinishedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create finished cache: %w", err)
	}

	m := &Manager{
		cfg:           cfg,
		chain:         chain,
		store:         store,
		logger:        logger,
		now:           time.Now,
		signers:       map[common.Address]Signer{signer.Address(): signer},
		defaultSigner: signer.Address(),
		tracked:       make(map[string]*tracked),
		finished:      finished,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.NewTxMetrics(nil, "")
	}
	m.ledger = NewNonceLedger(chain, store, logger)
	m.fees = NewFeeTracker(chain, cfg.FeeRefreshInterval, logger, m.metrics)
	m.fees.now = m.now
	return m, nil
}

// Start restores persisted state and launches the monitor.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	chainID, err := m.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chain id: %w", err)
	}
	states, err := m.store.LoadNonceStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load nonce states: %w", err)
	}
	m.ledger.Seed(states)
	for addr := range m.signers {
		if err := m.ledger.Init(ctx, addr); err != nil {
			return err
		}
	}

	records, err := m.store.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	for _, rec := range records {
		if rec.State == StateFailed {
			_ = m.store.DeleteRecord(ctx, rec.ID)
			continue
		}
		if _, ok := m.signers[rec.From]; !ok {
			m.logger.Warn("Skipping recovered record without signer", "id", rec.ID, "from", rec.From.Hex())
			continue
		}
		m.tracked[rec.ID] = newTracked(rec)
		m.logger.Info("Recovered transaction", "id", rec.ID, "state", rec.State, "nonce", rec.Nonce, "attempts", len(rec.Attempts))
	}
	m.metrics.InFlight.Set(float64(len(m.tracked)))

	if err := m.fees.Start(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.chainID = chainID
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)

	m.logger.Info("Transaction manager started", "chain_id", chainID, "recovered", len(records))
	return nil
}

// Stop halts monitoring. Tracked records stay in the store for the next Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.fees.Stop()
	m.logger.Info("Transaction manager stopped")
}

// Submit reserves a nonce, broadcasts the request, and returns a handle
// once the first attempt has been accepted by the node.
func (m *Manager) Submit(ctx context.Context, req TxRequest) (*TxHandle, error) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return nil, ErrManagerStopped
	}

	req = req.clone()
	signer, err := m.signerFor(req.From)
	if err != nil {
		return nil, err
	}
	from := signer.Address()
	req.From = from

	gasLimit, err := m.estimateGas(ctx, req)
	if err != nil {
		return nil, err
	}
	fees, err := m.fees.Current(ctx)
	if err != nil {
		return nil, &TxError{Kind: ErrBroadcastFailed, Reason: "fee estimate unavailable", Err: err}
	}
	nonce, err := m.ledger.Reserve(ctx, from)
	if err != nil {
		return nil, &TxError{Kind: ErrBroadcastFailed, Reason: "nonce reservation failed", Err: err}
	}
	m.metrics.NonceReserved.Inc()

	now := m.now()
	rec := &TxRecord{
		ID:        uuid.NewString(),
		From:      from,
		Request:   req,
		Nonce:     nonce,
		GasLimit:  gasLimit,
		Fees:      fees,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveRecord(ctx, rec); err != nil {
		m.releaseNonce(ctx, from, nonce)
		return nil, fmt.Errorf("failed to persist record: %w", err)
	}
	m.metrics.Submitted.Inc()
	m.logger.Info("Transaction submitted", "id", rec.ID, "label", req.Label, "from", from.Hex(), "nonce", nonce, "gas", gasLimit, "fees", fees.String())

	t := newTracked(rec)
	t.mu.Lock()
	err = m.broadcastInitial(ctx, t)
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	m.track(t)
	return &TxHandle{t: t}, nil
}

// Handle returns the handle of a tracked or recently finished record.
func (m *Manager) Handle(id string) (*TxHandle, error) {
	m.mu.RLock()
	t, ok := m.tracked[id]
	m.mu.RUnlock()
	if ok {
		return &TxHandle{t: t}, nil
	}
	if v, ok := m.finished.Get(id); ok {
		return &TxHandle{t: v.(*tracked)}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTx, id)
}

// Records lists snapshots of every tracked record.
func (m *Manager) Records() []*TxRecord {
	out := make([]*TxRecord, 0)
	for _, t := range m.trackedList() {
		rec, _ := t.view()
		out = append(out, rec.Clone())
	}
	SortRecords(out)
	return out
}

// Ledger exposes the nonce ledger for inspection.
func (m *Manager) Ledger() *NonceLedger {
	return m.ledger
}

func (m *Manager) signerFor(from common.Address) (Signer, error) {
	if from == (common.Address{}) {
		from = m.defaultSigner
	}
	s, ok := m.signers[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSigner, from.Hex())
	}
	return s, nil
}

func (m *Manager) estimateGas(ctx context.Context, req TxRequest) (uint64, error) {
	if req.GasLimit > 0 {
		return req.GasLimit, nil
	}
	to := req.To
	gas, err := m.chain.EstimateGas(ctx, ethereum.CallMsg{
		From:  req.From,
		To:    &to,
		Value: req.Value,
		Data:  req.Data,
	})
	if err != nil {
		if isRevertError(err) {
			return 0, &TxError{Kind: ErrReverted, Reason: err.Error(), Err: err}
		}
		return 0, &TxError{Kind: ErrBroadcastFailed, Reason: "gas estimation failed", Err: err}
	}
	return uint64(math.Ceil(float64(gas) * m.cfg.GasLimitMultiplier)), nil
}

func (m *Manager) retryConfig() *retry.RetryConfig {
	return &retry.RetryConfig{
		MaxAttempts:     m.cfg.MaxBroadcastRetries,
		InitialDelay:    m.cfg.BroadcastRetryDelay,
		MaxDelay:        8 * m.cfg.BroadcastRetryDelay,
		BackoffFactor:   2.0,
		JitterFactor:    0.1,
		LogRetryAttempt: true,
	}
}

// marketFees refreshes the estimate, falling back to zero caps so that a
// bump over the previous attempt still applies.
func (m *Manager) marketFees(ctx context.Context) FeeParams {
	fees, err := m.fees.Refresh(ctx)
	if err != nil {
		m.logger.Warn("Market fee refresh failed", "error", err)
		return FeeParams{GasTipCap: new(big.Int), GasFeeCap: new(big.Int)}
	}
	return fees
}

// sendAttempt signs and sends one transaction for rec's nonce. The attempt
// is returned whenever signing succeeded, so callers can keep envelopes
// whose send ended ambiguously.
func (m *Manager) sendAttempt(ctx context.Context, rec *TxRecord, fees FeeParams) (Attempt, sendOutcome, error) {
	signer, ok := m.signers[rec.From]
	if !ok {
		return Attempt{}, sendFatal, fmt.Errorf("%w: %s", ErrNoSigner, rec.From.Hex())
	}
	to := rec.Request.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   m.chainID,
		Nonce:     rec.Nonce,
		GasTipCap: fees.GasTipCap,
		GasFeeCap: fees.GasFeeCap,
		Gas:       rec.GasLimit,
		To:        &to,
		Value:     rec.Request.Value,
		Data:      rec.Request.Data,
	})
	signed, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		return Attempt{}, sendFatal, fmt.Errorf("failed to sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return Attempt{}, sendFatal, fmt.Errorf("failed to encode transaction: %w", err)
	}
	err = m.chain.SendTransaction(ctx, signed)
	attempt := Attempt{
		Hash:   signed.Hash(),
		Fees:   fees.Clone(),
		State:  AttemptBroadcast,
		SentAt: m.now(),
		RawTx:  raw,
	}
	return attempt, classifySend(err), err
}

// addAttempt appends a, dropping an earlier entry with the same hash.
func addAttempt(list []Attempt, a Attempt) []Attempt {
	out := list[:0:0]
	for _, prev := range list {
		if prev.Hash != a.Hash {
			out = append(out, prev)
		}
	}
	return append(out, a)
}

// adoptAttempts appends newly sent attempts to rec. The newest one becomes
// the attempt in flight and every earlier one is marked Replaced.
func adoptAttempts(rec *TxRecord, sent []Attempt) Attempt {
	for i := range rec.Attempts {
		if rec.Attempts[i].State == AttemptBroadcast {
			rec.Attempts[i].State = AttemptReplaced
		}
	}
	for i, a := range sent {
		a.State = AttemptReplaced
		if i == len(sent)-1 {
			a.State = AttemptBroadcast
		}
		rec.Attempts = append(rec.Attempts, a)
	}
	active := rec.Attempts[len(rec.Attempts)-1]
	rec.Fees = active.Fees.Clone()
	rec.LastSentAt = active.SentAt
	rec.UpdatedAt = active.SentAt
	return active
}

// broadcastInitial moves a Pending record to Broadcast. Underpriced and
// transient rejections are retried; anything else fails the record.
// A transient error leaves it unknown whether the node kept the envelope,
// so once any send ended that way the nonce stays reserved and the record
// is monitored like a broadcast one. Called with t.mu held.
func (m *Manager) broadcastInitial(ctx context.Context, t *tracked) error {
	rec := t.rec
	fees := rec.Fees.Clone()
	var (
		last        sendOutcome
		unconfirmed []Attempt
	)
	attempt, err := retry.Retry(ctx, func() (Attempt, error) {
		a, outcome, err := m.sendAttempt(ctx, rec, fees)
		last = outcome
		switch outcome {
		case sendAccepted:
			return a, nil
		case sendUnderpriced:
			fees = BumpFees(fees, m.marketFees(ctx), m.cfg.FeeBumpPercent)
			return Attempt{}, err
		case sendTransient:
			unconfirmed = addAttempt(unconfirmed, a)
			return Attempt{}, err
		default:
			return Attempt{}, retry.Permanent(err)
		}
	}, m.retryConfig(), m.logger)

	if err == nil || len(unconfirmed) > 0 {
		kind := "initial"
		sent := unconfirmed
		if err == nil {
			sent = addAttempt(unconfirmed, attempt)
		} else {
			kind = "unconfirmed"
			m.logger.Warn("Broadcast unconfirmed, monitoring for inclusion", "id", rec.ID, "nonce", rec.Nonce, "error", err)
		}
		active := adoptAttempts(rec, sent)
		rec.State = StateBroadcast
		m.persist(ctx, rec)
		t.publish()
		m.metrics.Broadcasts.WithLabelValues(kind).Inc()
		m.logger.Info("Transaction broadcast", "id", rec.ID, "hash", active.Hash.Hex(), "nonce", rec.Nonce, "fees", active.Fees.String())
		return nil
	}

	switch last {
	case sendNonceTooLow:
		// The ledger was behind the chain; the nonce is spent and must not
		// be handed out again.
		if chainNonce, nerr := m.chain.PendingNonceAt(ctx, rec.From); nerr == nil {
			if rerr := m.ledger.Reconcile(ctx, rec.From, chainNonce); rerr != nil {
				m.logger.Warn("Nonce reconcile failed", "error", rerr)
			}
		}
		return m.fail(ctx, t, ErrNonceTooLow, "", err, false)
	case sendUnderpriced:
		return m.fail(ctx, t, ErrUnderpriced, "", err, true)
	default:
		return m.fail(ctx, t, ErrBroadcastFailed, "", err, true)
	}
}

// fail moves a record to Failed and untracks it. Called with t.mu held.
func (m *Manager) fail(ctx context.Context, t *tracked, kind error, reason string, cause error, release bool) error {
	rec := t.rec
	rec.State = StateFailed
	rec.FailureKind = kind.Error()
	rec.FailureReason = reason
	if reason == "" && cause != nil {
		rec.FailureReason = cause.Error()
	}
	rec.UpdatedAt = m.now()
	for i := range rec.Attempts {
		if rec.Attempts[i].State == AttemptBroadcast {
			rec.Attempts[i].State = AttemptDropped
		}
	}
	if release {
		m.releaseNonce(ctx, rec.From, rec.Nonce)
	}
	if err := m.store.DeleteRecord(ctx, rec.ID); err != nil {
		m.logger.Warn("Failed to delete record", "id", rec.ID, "error", err)
	}
	t.publish()
	m.untrack(t)
	m.metrics.Failed.WithLabelValues(kind.Error()).Inc()
	m.logger.Error("Transaction failed", "id", rec.ID, "kind", kind.Error(), "nonce", rec.Nonce, "reason", rec.FailureReason)

	var hash common.Hash
	if rec.Inclusion != nil {
		hash = rec.Inclusion.Hash
	} else if n := len(rec.Attempts); n > 0 {
		hash = rec.Attempts[n-1].Hash
	}
	return &TxError{Kind: kind, TxID: rec.ID, Hash: hash, Reason: reason, Err: cause}
}

func (m *Manager) releaseNonce(ctx context.Context, from common.Address, nonce uint64) {
	if err := m.ledger.Release(ctx, from, nonce); err != nil {
		m.logger.Warn("Nonce release failed", "account", from.Hex(), "nonce", nonce, "error", err)
		return
	}
	m.metrics.NonceReleased.Inc()
}

func (m *Manager) persist(ctx context.Context, rec *TxRecord) {
	if err := m.store.SaveRecord(ctx, rec); err != nil {
		m.logger.Error("Failed to persist record", "id", rec.ID, "error", err)
	}
}

func (m *Manager) track(t *tracked) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked[t.rec.ID] = t
	m.metrics.InFlight.Set(float64(len(m.tracked)))
}

func (m *Manager) untrack(t *tracked) {
	m.mu.Lock()
	delete(m.tracked, t.rec.ID)
	m.metrics.InFlight.Set(float64(len(m.tracked)))
	m.mu.Unlock()
	m.finished.Add(t.rec.ID, t)
}

func (m *Manager) trackedList() []*tracked {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*tracked, 0, len(m.tracked))
	for _, t := range m.tracked {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i].view()
		b, _ := out[j].view()
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	heads := make(chan *types.Header, 16)
	var subErr <-chan error
	sub, err := m.chain.SubscribeNewHead(ctx, heads)
	if err != nil {
		m.logger.Warn("Head subscription unavailable, polling only", "error", err)
	} else {
		defer sub.Unsubscribe()
		subErr = sub.Err()
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		case <-heads:
			m.tick(ctx)
		case err := <-subErr:
			m.logger.Warn("Head subscription dropped, polling only", "error", err)
			subErr = nil
		}
	}
}

// tick checks every tracked record against the current head.
func (m *Manager) tick(ctx context.Context) {
	list := m.trackedList()
	if len(list) == 0 {
		return
	}
	head, err := m.chain.BlockNumber(ctx)
	if err != nil {
		m.logger.Warn("Failed to fetch block number", "error", err)
		return
	}
	var g errgroup.Group
	g.SetLimit(m.cfg.MaxConcurrentChecks)
	for _, t := range list {
		t := t
		g.Go(func() error {
			m.step(ctx, t, head)
			return nil
		})
	}
	_ = g.Wait()
}

// step advances one record's state machine by at most one transition.
func (m *Manager) step(ctx context.Context, t *tracked, head uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.rec.State {
	case StatePending:
		_ = m.broadcastInitial(ctx, t)
	case StateBroadcast:
		m.checkBroadcast(ctx, t, head)
	case StateConfirmed:
		m.checkConfirmed(ctx, t, head)
	}
}

// findReceipt looks for a receipt for any attempt, newest first. A replaced
// attempt can still be mined, so none are skipped.
func (m *Manager) findReceipt(ctx context.Context, rec *TxRecord) (*types.Receipt, int, error) {
	for i := len(rec.Attempts) - 1; i >= 0; i-- {
		receipt, err := m.chain.TransactionReceipt(ctx, rec.Attempts[i].Hash)
		if err != nil {
			return nil, -1, err
		}
		if receipt != nil {
			return receipt, i, nil
		}
	}
	return nil, -1, nil
}

func depth(head uint64, receipt *types.Receipt) uint64 {
	if receipt.BlockNumber == nil {
		return 0
	}
	bn := receipt.BlockNumber.Uint64()
	if head < bn {
		return 0
	}
	return head - bn + 1
}

// markMined records an inclusion. It reports whether a previously seen
// inclusion moved to a different block.
func (m *Manager) markMined(rec *TxRecord, receipt *types.Receipt, idx int) bool {
	moved := rec.Inclusion != nil && (rec.Inclusion.BlockHash != receipt.BlockHash || rec.Inclusion.Hash != receipt.TxHash)
	for i := range rec.Attempts {
		switch {
		case i == idx:
			rec.Attempts[i].State = AttemptMined
		case rec.Attempts[i].State == AttemptBroadcast || rec.Attempts[i].State == AttemptMined:
			rec.Attempts[i].State = AttemptDropped
		}
	}
	var bn uint64
	if receipt.BlockNumber != nil {
		bn = receipt.BlockNumber.Uint64()
	}
	rec.Inclusion = &Inclusion{
		Hash:        rec.Attempts[idx].Hash,
		BlockNumber: bn,
		BlockHash:   receipt.BlockHash,
		GasUsed:     receipt.GasUsed,
	}
	rec.Receipt = receipt
	rec.EverMined = true
	rec.UpdatedAt = m.now()
	return moved
}

func (m *Manager) checkBroadcast(ctx context.Context, t *tracked, head uint64) {
	rec := t.rec
	receipt, idx, err := m.findReceipt(ctx, rec)
	if err != nil {
		m.logger.Warn("Receipt lookup failed", "id", rec.ID, "error", err)
		return
	}

	if receipt != nil {
		if m.markMined(rec, receipt, idx) {
			m.metrics.Reorgs.Inc()
		}
		if receipt.Status == types.ReceiptStatusFailed {
			reason := m.revertReason(ctx, rec, idx, receipt)
			_ = m.fail(ctx, t, ErrReverted, reason, nil, false)
			return
		}
		if depth(head, receipt) >= m.cfg.ConfirmationDepth {
			m.confirm(ctx, t)
			return
		}
		m.persist(ctx, rec)
		t.publish()
		return
	}

	if rec.Inclusion != nil {
		m.reorg(ctx, t)
		return
	}
	if m.now().Sub(rec.LastSentAt) < m.cfg.ReplacementTimeout {
		return
	}
	m.replace(ctx, t)
}

func (m *Manager) checkConfirmed(ctx context.Context, t *tracked, head uint64) {
	rec := t.rec
	receipt, idx, err := m.findReceipt(ctx, rec)
	if err != nil {
		m.logger.Warn("Receipt lookup failed", "id", rec.ID, "error", err)
		return
	}
	if receipt == nil {
		m.reorg(ctx, t)
		return
	}
	if m.markMined(rec, receipt, idx) {
		m.metrics.Reorgs.Inc()
		m.logger.Warn("Confirmed transaction moved block", "id", rec.ID, "block", rec.Inclusion.BlockNumber)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		reason := m.revertReason(ctx, rec, idx, receipt)
		_ = m.fail(ctx, t, ErrReverted, reason, nil, false)
		return
	}

	d := depth(head, receipt)
	switch {
	case d < m.cfg.ConfirmationDepth:
		rec.State = StateBroadcast
		m.persist(ctx, rec)
		t.publish()
		m.logger.Warn("Transaction lost confirmation depth", "id", rec.ID, "depth", d)
	case d >= m.cfg.ConfirmationDepth+m.cfg.FinalityDepth:
		if err := m.store.DeleteRecord(ctx, rec.ID); err != nil {
			m.logger.Warn("Failed to delete record", "id", rec.ID, "error", err)
		}
		t.publish()
		m.untrack(t)
		m.logger.Debug("Transaction final", "id", rec.ID, "depth", d)
	default:
		t.publish()
	}
}

func (m *Manager) confirm(ctx context.Context, t *tracked) {
	rec := t.rec
	rec.State = StateConfirmed
	rec.UpdatedAt = m.now()
	m.persist(ctx, rec)
	t.publish()
	m.metrics.Confirmed.Inc()
	m.metrics.ConfirmationTime.Observe(rec.UpdatedAt.Sub(rec.CreatedAt).Seconds())
	m.logger.Info("Transaction confirmed", "id", rec.ID, "hash", rec.Inclusion.Hash.Hex(), "block", rec.Inclusion.BlockNumber, "replacements", rec.Replacements)
}

// reorg handles an inclusion that disappeared. The newest attempt becomes
// the active one again and is rebroadcast.
func (m *Manager) reorg(ctx context.Context, t *tracked) {
	rec := t.rec
	m.metrics.Reorgs.Inc()
	m.logger.Warn("Transaction inclusion reorged out", "id", rec.ID, "hash", rec.Inclusion.Hash.Hex(), "block", rec.Inclusion.BlockNumber)

	rec.Inclusion = nil
	rec.Receipt = nil
	last := len(rec.Attempts) - 1
	for i := range rec.Attempts {
		if i == last {
			rec.Attempts[i].State = AttemptBroadcast
		} else {
			rec.Attempts[i].State = AttemptReplaced
		}
	}
	rec.State = StateBroadcast
	now := m.now()
	rec.LastSentAt = now
	rec.UpdatedAt = now

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(rec.Attempts[last].RawTx); err != nil {
		m.logger.Error("Failed to decode attempt for rebroadcast", "id", rec.ID, "error", err)
	} else if err := m.chain.SendTransaction(ctx, tx); classifySend(err) != sendAccepted {
		m.logger.Warn("Rebroadcast after reorg rejected", "id", rec.ID, "error", err)
	} else {
		m.metrics.Broadcasts.WithLabelValues("rebroadcast").Inc()
	}
	m.persist(ctx, rec)
	t.publish()
}

// replace supersedes the active attempt with a higher-fee one at the same
// nonce. The prior attempt is marked Replaced once the node accepts the new
// one, or once a send of it ended with a transient error.
func (m *Manager) replace(ctx context.Context, t *tracked) {
	rec := t.rec
	if rec.Replacements >= m.cfg.MaxReplacements {
		reason := fmt.Sprintf("not included after %d replacements", rec.Replacements)
		_ = m.fail(ctx, t, ErrReplacementsExhausted, reason, nil, !rec.EverMined)
		return
	}

	market := m.marketFees(ctx)
	fees := BumpFees(rec.Fees, market, m.cfg.FeeBumpPercent)
	var (
		last        sendOutcome
		unconfirmed []Attempt
	)
	attempt, err := retry.Retry(ctx, func() (Attempt, error) {
		a, outcome, err := m.sendAttempt(ctx, rec, fees)
		last = outcome
		switch outcome {
		case sendAccepted:
			return a, nil
		case sendUnderpriced:
			fees = BumpFees(fees, market, m.cfg.FeeBumpPercent)
			return Attempt{}, err
		case sendTransient:
			unconfirmed = addAttempt(unconfirmed, a)
			return Attempt{}, err
		default:
			return Attempt{}, retry.Permanent(err)
		}
	}, m.retryConfig(), m.logger)

	switch {
	case err == nil:
		m.adoptReplacement(ctx, t, addAttempt(unconfirmed, attempt), "replacement")
	case last == sendNonceTooLow:
		// An earlier attempt was mined; its receipt shows up next tick.
		for _, a := range unconfirmed {
			a.State = AttemptReplaced
			rec.Attempts = append(rec.Attempts, a)
		}
		if len(unconfirmed) > 0 {
			m.persist(ctx, rec)
			t.publish()
		}
		m.logger.Info("Replacement rejected, nonce already used", "id", rec.ID, "nonce", rec.Nonce)
	case len(unconfirmed) > 0:
		m.logger.Warn("Replacement broadcast unconfirmed", "id", rec.ID, "nonce", rec.Nonce, "error", err)
		m.adoptReplacement(ctx, t, unconfirmed, "unconfirmed")
	case last == sendFatal:
		// The prior attempt may still be mined, so keep watching it and
		// count this round against the replacement budget.
		rec.Replacements++
		rec.LastSentAt = m.now()
		m.persist(ctx, rec)
		t.publish()
		m.logger.Error("Replacement rejected", "id", rec.ID, "error", err)
	default:
		m.logger.Warn("Replacement broadcast failed", "id", rec.ID, "error", err)
	}
}

func (m *Manager) adoptReplacement(ctx context.Context, t *tracked, sent []Attempt, kind string) {
	rec := t.rec
	active := adoptAttempts(rec, sent)
	rec.Replacements++
	m.persist(ctx, rec)
	t.publish()
	m.metrics.Broadcasts.WithLabelValues(kind).Inc()
	m.logger.Info("Transaction replaced", "id", rec.ID, "hash", active.Hash.Hex(), "nonce", rec.Nonce, "replacement", rec.Replacements, "fees", active.Fees.String())
}

func (m *Manager) revertReason(ctx context.Context, rec *TxRecord, idx int, receipt *types.Receipt) string {
	const fallback = "execution reverted"
	reasoner, ok := m.chain.(RevertReasoner)
	if !ok {
		return fallback
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(rec.Attempts[idx].RawTx); err != nil {
		return fallback
	}
	reason, err := reasoner.RevertReason(ctx, tx, rec.From, receipt.BlockNumber)
	if err != nil || reason == "" {
		if err != nil {
			m.logger.Debug("Revert reason unavailable", "id", rec.ID, "error", err)
		}
		return fallback
	}
	return reason
}
