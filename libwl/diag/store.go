package diag

import (
	"context"
	"sort"
	"sync"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
)

// Store is an append-only log of statistic records, grouped by run.
type Store interface {

	// Append adds rec; a record with the same RunID and Sweep replaces the earlier one.
	Append(ctx context.Context, rec Record) error

	// Records returns every record of the given run in sweep order.
	Records(ctx context.Context, runID string) ([]Record, error)

	Close() error
}

// NewStore opens a statistics store of the given kind:
//
//	"" or "memory"   in-process only
//	"badger"         badger LSM at path (in-memory if path is empty)
//	"sqlite"         sqlite database file at path (requires building with -tags sqlite)
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(path)
	case "sqlite":
		return newSQLiteStore(path)
	default:
		return nil, errors.Wrapf(wlmc.ErrUnknownStore, "%q", kind)
	}
}

type memoryStore struct {
	mu     sync.RWMutex
	closed bool
	runs   map[string][]Record
}

func NewMemoryStore() Store {
	return &memoryStore{
		runs: make(map[string][]Record),
	}
}

func (s *memoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wlmc.ErrStoreClosed
	}

	recs := s.runs[rec.RunID]
	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].Sweep >= rec.Sweep
	})
	if i < len(recs) && recs[i].Sweep == rec.Sweep {
		recs[i] = rec
	} else {
		recs = append(recs, Record{})
		copy(recs[i+1:], recs[i:])
		recs[i] = rec
	}
	s.runs[rec.RunID] = recs
	return nil
}

func (s *memoryStore) Records(_ context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wlmc.ErrStoreClosed
	}
	return append([]Record(nil), s.runs[runID]...), nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.runs = nil
	return nil
}
