package txmgr

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
)

// NonceLedger hands out nonces per account. Reserve is the single
// serialization point for an account; nothing else mutates the counters.
type NonceLedger struct {
	source NonceSource
	store  NonceStore
	logger logging.Logger

	mu       sync.Mutex
	accounts map[common.Address]*accountNonces
	seeded   map[common.Address]NonceState
}

type accountNonces struct {
	mu          sync.Mutex
	initialized bool
	next        uint64
	// released is kept sorted ascending and is always below next.
	released []uint64
}

// NewNonceLedger builds a ledger. store may be nil.
func NewNonceLedger(source NonceSource, store NonceStore, logger logging.Logger) *NonceLedger {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &NonceLedger{
		source:   source,
		store:    store,
		logger:   logger,
		accounts: make(map[common.Address]*accountNonces),
		seeded:   make(map[common.Address]NonceState),
	}
}

// Seed registers persisted state to merge with the chain nonce on first use.
func (l *NonceLedger) Seed(states []NonceState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range states {
		l.seeded[s.Account] = s
	}
}

func (l *NonceLedger) account(addr common.Address) *accountNonces {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[addr]
	if !ok {
		a = &accountNonces{}
		l.accounts[addr] = a
	}
	return a
}

func (l *NonceLedger) seedFor(addr common.Address) (NonceState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.seeded[addr]
	return s, ok
}

// Init loads the account from chain if it has not been loaded yet.
func (l *NonceLedger) Init(ctx context.Context, addr common.Address) error {
	a := l.account(addr)
	a.mu.Lock()
	defer a.mu.Unlock()
	return l.ensureInit(ctx, addr, a)
}

func (l *NonceLedger) ensureInit(ctx context.Context, addr common.Address, a *accountNonces) error {
	if a.initialized {
		return nil
	}
	chainNonce, err := l.source.PendingNonceAt(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to fetch nonce for %s: %w", addr.Hex(), err)
	}
	a.next = chainNonce
	a.released = nil
	if seed, ok := l.seedFor(addr); ok {
		if seed.Next > a.next {
			a.next = seed.Next
		}
		for _, n := range seed.Released {
			if n >= chainNonce && n < a.next {
				a.released = insertSorted(a.released, n)
			}
		}
	}
	a.initialized = true
	l.logger.Info("Nonce ledger initialized", "account", addr.Hex(), "next", a.next, "released", len(a.released))
	return nil
}

// Reserve returns the smallest released nonce, or the next fresh one.
func (l *NonceLedger) Reserve(ctx context.Context, addr common.Address) (uint64, error) {
	a := l.account(addr)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := l.ensureInit(ctx, addr, a); err != nil {
		return 0, err
	}

	prevNext, prevReleased := a.next, append([]uint64(nil), a.released...)
	var nonce uint64
	if len(a.released) > 0 {
		nonce = a.released[0]
		a.released = a.released[1:]
	} else {
		nonce = a.next
		a.next++
	}
	if err := l.persist(ctx, addr, a); err != nil {
		a.next, a.released = prevNext, prevReleased
		return 0, err
	}
	return nonce, nil
}

// Release returns a nonce whose transaction failed before broadcast.
func (l *NonceLedger) Release(ctx context.Context, addr common.Address, nonce uint64) error {
	a := l.account(addr)
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized || nonce >= a.next {
		return fmt.Errorf("%w: %d for %s", ErrNonceNotReserved, nonce, addr.Hex())
	}
	for _, n := range a.released {
		if n == nonce {
			return nil
		}
	}

	prevNext, prevReleased := a.next, append([]uint64(nil), a.released...)
	a.released = insertSorted(a.released, nonce)
	// Fold the tail back into the counter so the pool stays small.
	for len(a.released) > 0 && a.released[len(a.released)-1] == a.next-1 {
		a.released = a.released[:len(a.released)-1]
		a.next--
	}
	if err := l.persist(ctx, addr, a); err != nil {
		a.next, a.released = prevNext, prevReleased
		return err
	}
	l.logger.Debug("Nonce released", "account", addr.Hex(), "nonce", nonce)
	return nil
}

// Reconcile aligns the ledger with a nonce observed on chain, typically
// after a "nonce too low" rejection. Nonces below chainNonce are consumed.
func (l *NonceLedger) Reconcile(ctx context.Context, addr common.Address, chainNonce uint64) error {
	a := l.account(addr)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := l.ensureInit(ctx, addr, a); err != nil {
		return err
	}

	prevNext, prevReleased := a.next, append([]uint64(nil), a.released...)
	if chainNonce > a.next {
		a.next = chainNonce
	}
	kept := a.released[:0:0]
	for _, n := range a.released {
		if n >= chainNonce {
			kept = append(kept, n)
		}
	}
	a.released = kept
	if err := l.persist(ctx, addr, a); err != nil {
		a.next, a.released = prevNext, prevReleased
		return err
	}
	if a.next != prevNext || len(a.released) != len(prevReleased) {
		l.logger.Warn("Nonce ledger reconciled", "account", addr.Hex(), "chain_nonce", chainNonce, "next", a.next)
	}
	return nil
}

// Snapshot reports the current state of an account.
func (l *NonceLedger) Snapshot(addr common.Address) (NonceState, bool) {
	a := l.account(addr)
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return NonceState{}, false
	}
	return NonceState{Account: addr, Next: a.next, Released: append([]uint64(nil), a.released...)}, true
}

func (l *NonceLedger) persist(ctx context.Context, addr common.Address, a *accountNonces) error {
	if l.store == nil {
		return nil
	}
	state := NonceState{Account: addr, Next: a.next, Released: append([]uint64(nil), a.released...)}
	if err := l.store.SaveNonceState(ctx, state); err != nil {
		return fmt.Errorf("failed to persist nonce state: %w", err)
	}
	return nil
}

func insertSorted(s []uint64, v uint64) []uint64 {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= v })
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
