package txmgr

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryStore keeps state in process. It is the default when no durable
// store is configured and is used by tests to simulate restarts.
type MemoryStore struct {
	mu      sync.Mutex
	nonces  map[common.Address]NonceState
	records map[string]*TxRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:  make(map[common.Address]NonceState),
		records: make(map[string]*TxRecord),
	}
}

func (s *MemoryStore) SaveNonceState(_ context.Context, state NonceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Released = append([]uint64(nil), state.Released...)
	s.nonces[state.Account] = state
	return nil
}

func (s *MemoryStore) LoadNonceStates(_ context.Context) ([]NonceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NonceState, 0, len(s.nonces))
	for _, st := range s.nonces {
		st.Released = append([]uint64(nil), st.Released...)
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Account.Hex() < out[j].Account.Hex()
	})
	return out, nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, record *TxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) LoadRecords(_ context.Context) ([]*TxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*TxRecord, 0, len(s.records))
	for _, r := range s.records {
		c := r.Clone()
		c.Receipt = nil
		out = append(out, c)
	}
	SortRecords(out)
	return out, nil
}

// SortRecords orders records by creation time, then nonce.
func SortRecords(records []*TxRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Nonce < records[j].Nonce
	})
}
