package txmgr

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
)

// tracked pairs a mutable record with the immutable snapshot handed out to
// readers. mu serializes all work on the record; sigMu only guards the
// published view so readers never wait on RPC calls.
type tracked struct {
	mu  sync.Mutex
	rec *TxRecord

	sigMu  sync.Mutex
	snap   *TxRecord
	done   chan struct{}
	closed bool
}

func newTracked(rec *TxRecord) *tracked {
	t := &tracked{rec: rec, done: make(chan struct{})}
	t.publish()
	return t
}

// publish must be called with mu held.
func (t *tracked) publish() {
	snap := t.rec.Clone()
	t.sigMu.Lock()
	defer t.sigMu.Unlock()
	t.snap = snap
	switch {
	case snap.State.Terminal() && !t.closed:
		close(t.done)
		t.closed = true
	case !snap.State.Terminal() && t.closed:
		// A reorg reopened a confirmed record.
		t.done = make(chan struct{})
		t.closed = false
	}
}

func (t *tracked) view() (*TxRecord, <-chan struct{}) {
	t.sigMu.Lock()
	defer t.sigMu.Unlock()
	return t.snap, t.done
}

// TxHandle follows one submitted request.
type TxHandle struct {
	t *tracked
}

func (h *TxHandle) ID() string {
	rec, _ := h.t.view()
	return rec.ID
}

// Status returns a copy of the current record.
func (h *TxHandle) Status() *TxRecord {
	rec, _ := h.t.view()
	return rec.Clone()
}

// Done is closed when the record reaches Confirmed or Failed. A reorg may
// reopen the record, so callers wanting the final outcome should use Wait.
func (h *TxHandle) Done() <-chan struct{} {
	_, done := h.t.view()
	return done
}

// Wait blocks until the record is confirmed or failed. Failures are
// returned as *TxError; a reverted transaction also returns its receipt.
func (h *TxHandle) Wait(ctx context.Context) (*types.Receipt, error) {
	for {
		rec, done := h.t.view()
		switch rec.State {
		case StateConfirmed:
			return rec.Receipt, nil
		case StateFailed:
			return rec.Receipt, rec.Err()
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
