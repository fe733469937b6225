package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

// fileSnapshot is the on-disk layout. Accounts are keyed by hex address.
type fileSnapshot struct {
	Nonces  map[string]txmgr.NonceState `json:"nonces"`
	Records map[string]*txmgr.TxRecord  `json:"records"`
}

// FileStore keeps the whole state in one JSON file, rewritten atomically on
// every mutation.
type FileStore struct {
	path   string
	logger logging.Logger

	mu   sync.Mutex
	snap fileSnapshot
}

// OpenFileStore loads path if it exists.
func OpenFileStore(path string, logger logging.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		path:   path,
		logger: logger,
		snap: fileSnapshot{
			Nonces:  make(map[string]txmgr.NonceState),
			Records: make(map[string]*txmgr.TxRecord),
		},
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := json.Unmarshal(data, &s.snap); err != nil {
		return nil, fmt.Errorf("failed to decode store file %s: %w", path, err)
	}
	if s.snap.Nonces == nil {
		s.snap.Nonces = make(map[string]txmgr.NonceState)
	}
	if s.snap.Records == nil {
		s.snap.Records = make(map[string]*txmgr.TxRecord)
	}
	logger.Info("Loaded transaction store", "path", path, "accounts", len(s.snap.Nonces), "records", len(s.snap.Records))
	return s, nil
}

func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}

func (s *FileStore) SaveNonceState(_ context.Context, state txmgr.NonceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := state.Account.Hex()
	prev, had := s.snap.Nonces[key]
	state.Released = append([]uint64(nil), state.Released...)
	s.snap.Nonces[key] = state
	if err := s.flush(); err != nil {
		if had {
			s.snap.Nonces[key] = prev
		} else {
			delete(s.snap.Nonces, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) LoadNonceStates(_ context.Context) ([]txmgr.NonceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]txmgr.NonceState, 0, len(s.snap.Nonces))
	for _, st := range s.snap.Nonces {
		st.Released = append([]uint64(nil), st.Released...)
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Hex() < out[j].Account.Hex() })
	return out, nil
}

func (s *FileStore) SaveRecord(_ context.Context, record *txmgr.TxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.snap.Records[record.ID]
	s.snap.Records[record.ID] = record.Clone()
	if err := s.flush(); err != nil {
		if had {
			s.snap.Records[record.ID] = prev
		} else {
			delete(s.snap.Records, record.ID)
		}
		return err
	}
	return nil
}

func (s *FileStore) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.snap.Records[id]
	if !had {
		return nil
	}
	delete(s.snap.Records, id)
	if err := s.flush(); err != nil {
		s.snap.Records[id] = prev
		return err
	}
	return nil
}

func (s *FileStore) LoadRecords(_ context.Context) ([]*txmgr.TxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*txmgr.TxRecord, 0, len(s.snap.Records))
	for _, r := range s.snap.Records {
		c := r.Clone()
		c.Receipt = nil
		out = append(out, c)
	}
	txmgr.SortRecords(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }
